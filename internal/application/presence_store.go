package application

import (
	"context"
	"sync"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
	"github.com/haha-dream/lanyard-bridge/internal/ports/out"
)

// PresenceStore 保存当前指纹与最近一次原始快照
// Diff 与 Commit 分离：引擎先比对，推送流程走完后再提交
type PresenceStore struct {
	repo   out.StateRepository
	userID string

	mu             sync.RWMutex
	fingerprint    string
	hasFingerprint bool
	snapshot       entity.Snapshot
}

func NewPresenceStore(repo out.StateRepository, userID string) *PresenceStore {
	return &PresenceStore{repo: repo, userID: userID}
}

// Load 从持久层恢复上次提交的指纹，重启后相同状态不会重复推送
func (s *PresenceStore) Load(ctx context.Context) error {
	fp, err := s.repo.GetFingerprint(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fp != "" {
		s.fingerprint = fp
		s.hasFingerprint = true
	}
	return nil
}

// Diff 计算快照指纹并与当前值比对
// 没有已存指纹时（首次调用且持久层为空）必然返回 changed=true
func (s *PresenceStore) Diff(snapshot entity.Snapshot) (changed bool, fingerprint string) {
	fingerprint = snapshot.Fingerprint()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasFingerprint {
		return true, fingerprint
	}
	return fingerprint != s.fingerprint, fingerprint
}

// Commit 把新指纹写入持久层并更新内存，同时记住对应的快照
func (s *PresenceStore) Commit(ctx context.Context, snapshot entity.Snapshot, fingerprint string) error {
	if err := s.repo.CommitFingerprint(ctx, s.userID, fingerprint); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprint = fingerprint
	s.hasFingerprint = true
	s.snapshot = snapshot
	return nil
}

// Fingerprint 返回当前已提交的指纹
func (s *PresenceStore) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint
}
