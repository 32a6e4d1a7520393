package entity

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	s := Snapshot{
		DisplayName: "haha",
		Status:      StatusOnline,
		Activities: []Activity{
			{Kind: KindGame, Name: "Elden Ring", Details: "Limgrave"},
			{Kind: KindListening, Name: "Spotify", Details: "Levitating", State: "Dua Lipa"},
		},
	}

	if s.Fingerprint() != s.Fingerprint() {
		t.Fatal("fingerprint of the same snapshot differs between calls")
	}
}

func TestFingerprintIgnoresDisplayName(t *testing.T) {
	// 显示名不属于语义字段，改名不该触发推送
	a := Snapshot{DisplayName: "old", Status: StatusOnline, Activities: []Activity{{Kind: KindGame, Name: "Minecraft"}}}
	b := Snapshot{DisplayName: "new", Status: StatusOnline, Activities: []Activity{{Kind: KindGame, Name: "Minecraft"}}}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("fingerprint changed with display name only")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Snapshot{Status: StatusOnline, Activities: []Activity{{Kind: KindGame, Name: "Minecraft", Details: "Survival"}}}

	tests := []struct {
		name string
		snap Snapshot
	}{
		{"different name", Snapshot{Status: StatusOnline, Activities: []Activity{{Kind: KindGame, Name: "Terraria", Details: "Survival"}}}},
		{"different kind", Snapshot{Status: StatusOnline, Activities: []Activity{{Kind: KindWatching, Name: "Minecraft", Details: "Survival"}}}},
		{"different details", Snapshot{Status: StatusOnline, Activities: []Activity{{Kind: KindGame, Name: "Minecraft", Details: "Creative"}}}},
		{"extra activity", Snapshot{Status: StatusOnline, Activities: []Activity{
			{Kind: KindGame, Name: "Minecraft", Details: "Survival"},
			{Kind: KindGame, Name: "Terraria"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.snap.Fingerprint() == base.Fingerprint() {
				t.Fatalf("expected different fingerprint for %s", tt.name)
			}
		})
	}
}

func TestFingerprintEmptySetUsesStatus(t *testing.T) {
	online := Snapshot{Status: StatusOnline}
	offline := Snapshot{Status: StatusOffline}

	if online.Fingerprint() == offline.Fingerprint() {
		t.Fatal("empty snapshots with different status should fingerprint differently")
	}
}

func TestFilterKinds(t *testing.T) {
	s := Snapshot{
		Status: StatusOnline,
		Activities: []Activity{
			{Kind: KindGame, Name: "Minecraft"},
			{Kind: KindListening, Name: "Spotify", Details: "Levitating", State: "Dua Lipa"},
		},
	}

	gameOnly := map[ActivityKind]struct{}{KindGame: {}}
	filtered := s.FilterKinds(gameOnly)
	if len(filtered.Activities) != 1 || filtered.Activities[0].Name != "Minecraft" {
		t.Fatalf("expected only the game activity, got %+v", filtered.Activities)
	}

	// 空的启用集合表示不过滤
	all := s.FilterKinds(nil)
	if len(all.Activities) != 2 {
		t.Fatalf("empty enabled set must pass everything, got %d activities", len(all.Activities))
	}

	// 原快照不被修改
	if len(s.Activities) != 2 {
		t.Fatal("FilterKinds mutated the source snapshot")
	}
}

func TestFilteredToEmptyEqualsEmptyFingerprint(t *testing.T) {
	// 被过滤到空的快照与真正的空快照指纹一致
	listeningOnly := Snapshot{
		Status:     StatusOnline,
		Activities: []Activity{{Kind: KindListening, Name: "Spotify", Details: "Levitating", State: "Dua Lipa"}},
	}
	empty := Snapshot{Status: StatusOnline}

	gameOnly := map[ActivityKind]struct{}{KindGame: {}}
	if listeningOnly.FilterKinds(gameOnly).Fingerprint() != empty.Fingerprint() {
		t.Fatal("filtered-to-empty snapshot must fingerprint like the empty snapshot")
	}
}
