package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
)

// fakeStateRepo 内存版状态仓储
type fakeStateRepo struct {
	mu           sync.Mutex
	fingerprints map[string]string
	origins      map[string]map[string]string
	commitErr    error
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{
		fingerprints: make(map[string]string),
		origins:      make(map[string]map[string]string),
	}
}

func (r *fakeStateRepo) GetFingerprint(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fingerprints[userID], nil
}

func (r *fakeStateRepo) CommitFingerprint(_ context.Context, userID, fp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.fingerprints[userID] = fp
	return nil
}

func (r *fakeStateRepo) GetGroupOrigins(_ context.Context, userID string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	origins := make(map[string]string)
	for k, v := range r.origins[userID] {
		origins[k] = v
	}
	return origins, nil
}

func (r *fakeStateRepo) SaveGroupOrigins(_ context.Context, userID string, origins map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]string, len(origins))
	for k, v := range origins {
		saved[k] = v
	}
	r.origins[userID] = saved
	return nil
}

// fakeSender 记录每次投递，failOrigins 里的目标返回错误
type fakeSender struct {
	mu          sync.Mutex
	sent        map[string][]string // origin -> texts
	failOrigins map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]string), failOrigins: make(map[string]bool)}
}

func (s *fakeSender) SendGroupMessage(_ context.Context, origin, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrigins[origin] {
		return errors.New("sink unavailable")
	}
	s.sent[origin] = append(s.sent[origin], text)
	return nil
}

func (s *fakeSender) totalSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, texts := range s.sent {
		n += len(texts)
	}
	return n
}

func newTestEngine(t *testing.T, enableKinds []int, repo *fakeStateRepo, sender *fakeSender, groups []string) *SyncEngine {
	t.Helper()
	engine := NewSyncEngine("42", enableKinds, repo, NewDispatcher(sender, nil), nil, nil)
	if err := engine.Start(context.Background(), groups); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	return engine
}

func gameSnapshot(name string) entity.Snapshot {
	return entity.Snapshot{
		DisplayName: "haha",
		Status:      entity.StatusOnline,
		Activities:  []entity.Activity{{Kind: entity.KindGame, Name: name}},
	}
}

func TestFirstSnapshotAlwaysDispatches(t *testing.T) {
	sender := newFakeSender()
	engine := newTestEngine(t, nil, newFakeStateRepo(), sender, []string{"g1"})

	if err := engine.HandlePresence(context.Background(), gameSnapshot("Minecraft")); err != nil {
		t.Fatalf("HandlePresence() error: %v", err)
	}
	if sender.totalSent() != 1 {
		t.Fatalf("expected 1 dispatch on first snapshot, got %d", sender.totalSent())
	}
}

func TestIdenticalSnapshotNotRedispatched(t *testing.T) {
	sender := newFakeSender()
	engine := newTestEngine(t, nil, newFakeStateRepo(), sender, []string{"g1"})

	ctx := context.Background()
	if err := engine.HandlePresence(ctx, gameSnapshot("Minecraft")); err != nil {
		t.Fatal(err)
	}
	// 提交后重复同样的快照，比如重连后的 INIT_STATE，不能再推
	if err := engine.HandlePresence(ctx, gameSnapshot("Minecraft")); err != nil {
		t.Fatal(err)
	}
	if sender.totalSent() != 1 {
		t.Fatalf("identical snapshot re-dispatched, total sends = %d", sender.totalSent())
	}

	// 内容变化则恰好再推一次
	if err := engine.HandlePresence(ctx, gameSnapshot("Terraria")); err != nil {
		t.Fatal(err)
	}
	if sender.totalSent() != 2 {
		t.Fatalf("expected exactly one more dispatch after change, total = %d", sender.totalSent())
	}
}

func TestFilteringPrecedesDiff(t *testing.T) {
	sender := newFakeSender()
	// 只启用游戏类型
	engine := newTestEngine(t, []int{0}, newFakeStateRepo(), sender, []string{"g1"})

	ctx := context.Background()
	empty := entity.Snapshot{DisplayName: "haha", Status: entity.StatusOnline}
	if err := engine.HandlePresence(ctx, empty); err != nil {
		t.Fatal(err)
	}
	if sender.totalSent() != 1 {
		t.Fatalf("expected initial dispatch, got %d", sender.totalSent())
	}

	// 只有听歌活动且未启用：过滤后等价于空集，不得再推
	listening := entity.Snapshot{
		DisplayName: "haha",
		Status:      entity.StatusOnline,
		Activities:  []entity.Activity{{Kind: entity.KindListening, Name: "Spotify", Details: "Levitating", State: "Dua Lipa"}},
	}
	if err := engine.HandlePresence(ctx, listening); err != nil {
		t.Fatal(err)
	}
	if sender.totalSent() != 1 {
		t.Fatalf("filtered-out activity triggered a dispatch, total = %d", sender.totalSent())
	}

	status, err := engine.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := empty.Fingerprint(); status.Fingerprint != want {
		t.Fatalf("stored fingerprint = %s, want empty-set fingerprint %s", status.Fingerprint, want)
	}
}

func TestDispatchIsolation(t *testing.T) {
	sender := newFakeSender()
	sender.failOrigins["a"] = true
	engine := newTestEngine(t, nil, newFakeStateRepo(), sender, []string{"a", "b"})

	if err := engine.HandlePresence(context.Background(), gameSnapshot("Minecraft")); err != nil {
		t.Fatalf("sink failure must not surface from HandlePresence: %v", err)
	}

	if len(sender.sent["b"]) != 1 {
		t.Fatal("healthy sink did not receive the message")
	}
	if len(sender.sent["a"]) != 0 {
		t.Fatal("failing sink unexpectedly recorded a send")
	}
}

func TestCommitBeforeDispatch(t *testing.T) {
	sender := newFakeSender()
	sender.failOrigins["g1"] = true
	repo := newFakeStateRepo()
	engine := newTestEngine(t, nil, repo, sender, []string{"g1"})

	ctx := context.Background()
	snap := gameSnapshot("Minecraft")
	if err := engine.HandlePresence(ctx, snap); err != nil {
		t.Fatal(err)
	}

	// 全部投递失败也要提交指纹，避免同一变更被反复重推
	if got := repo.fingerprints["42"]; got != snap.Fingerprint() {
		t.Fatalf("fingerprint not committed before dispatch, got %q", got)
	}

	if err := engine.HandlePresence(ctx, snap); err != nil {
		t.Fatal(err)
	}
	if sender.totalSent() != 0 {
		t.Fatalf("expected no successful sends, got %d", sender.totalSent())
	}
}

func TestRestartRestoresCommittedFingerprint(t *testing.T) {
	repo := newFakeStateRepo()
	snap := gameSnapshot("Minecraft")
	repo.fingerprints["42"] = snap.Fingerprint()

	sender := newFakeSender()
	engine := newTestEngine(t, nil, repo, sender, []string{"g1"})

	// 重启后同样的状态不重复推送
	if err := engine.HandlePresence(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	if sender.totalSent() != 0 {
		t.Fatalf("snapshot matching persisted fingerprint was re-dispatched %d times", sender.totalSent())
	}
}

func TestGroupRegistryLifecycle(t *testing.T) {
	repo := newFakeStateRepo()
	repo.origins["42"] = map[string]string{"g1": "token-1"}

	sender := newFakeSender()
	engine := newTestEngine(t, nil, repo, sender, []string{"g1", "g2"})

	ctx := context.Background()
	status, err := engine.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// 持久化的投递目标优先于配置补种的默认值
	if status.Groups["g1"] != "token-1" {
		t.Fatalf("persisted origin lost, got %q", status.Groups["g1"])
	}
	if status.Groups["g2"] != "g2" {
		t.Fatalf("seeded group missing, got %q", status.Groups["g2"])
	}

	if err := engine.RegisterGroup(ctx, "g3", "token-3"); err != nil {
		t.Fatal(err)
	}
	if err := engine.UnregisterGroup(ctx, "g2"); err != nil {
		t.Fatal(err)
	}

	persisted := repo.origins["42"]
	if persisted["g3"] != "token-3" {
		t.Fatal("registered group not persisted")
	}
	if _, ok := persisted["g2"]; ok {
		t.Fatal("unregistered group still persisted")
	}

	if err := engine.HandlePresence(ctx, gameSnapshot("Minecraft")); err != nil {
		t.Fatal(err)
	}
	for origin := range sender.sent {
		if origin == "g2" {
			t.Fatal("unregistered group received a message")
		}
	}
}

func TestDispatchedTextCarriesDedupMarker(t *testing.T) {
	sender := newFakeSender()
	engine := newTestEngine(t, nil, newFakeStateRepo(), sender, []string{"g1"})

	if err := engine.HandlePresence(context.Background(), gameSnapshot("Minecraft")); err != nil {
		t.Fatal(err)
	}

	text := sender.sent["g1"][0]
	if !strings.HasPrefix(text, "​") || !strings.HasSuffix(text, "​") {
		t.Fatalf("dispatched text missing dedup markers: %q", text)
	}
	// 指纹不受投递包装影响：Status 里的指纹就是纯快照指纹
	status, _ := engine.Status(context.Background())
	if status.Fingerprint != gameSnapshot("Minecraft").Fingerprint() {
		t.Fatal("fingerprint affected by dispatch-layer markers")
	}
}
