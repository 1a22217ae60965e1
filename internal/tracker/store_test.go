package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mchen/pagewatch/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(storage.Config{DSN: "file:" + filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAddTarget_UpsertByURL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := s.AddTarget(ctx, Target{Name: "Example", URL: "https://example.com", Threshold: 100})
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.AddTarget(ctx, Target{Name: "Example 2", URL: "https://example.com", Threshold: 50})
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("same URL must map to one target: %d vs %d", id1, id2)
	}

	got, err := s.GetTarget(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Example 2" || got.Threshold != 50 {
		t.Fatalf("upsert did not refresh fields: %+v", got)
	}
}

func TestAddTarget_UpsertAfterOtherInserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	idA, err := s.AddTarget(ctx, Target{URL: "https://a.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	idB, err := s.AddTarget(ctx, Target{URL: "https://b.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if idA == idB {
		t.Fatalf("distinct URLs must get distinct ids: %d", idA)
	}

	// Re-adding the first URL after another insert must return the first
	// target's id, not the most recent rowid on the connection.
	again, err := s.AddTarget(ctx, Target{URL: "https://a.example.com", Threshold: 7})
	if err != nil {
		t.Fatal(err)
	}
	if again != idA {
		t.Fatalf("re-adding a.example.com returned id %d, want %d", again, idA)
	}

	got, _ := s.GetTarget(ctx, again)
	if got.URL != "https://a.example.com" || got.Threshold != 7 {
		t.Fatalf("wrong target updated: %+v", got)
	}
}

func TestAddTarget_Defaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.AddTarget(ctx, Target{URL: "https://example.com/pricing"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetTarget(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "example.com/pricing" {
		t.Fatalf("expected derived name, got %q", got.Name)
	}
	if got.Color != "#ffff66" {
		t.Fatalf("expected default color, got %q", got.Color)
	}
	if got.Threshold != DefaultThreshold {
		t.Fatalf("expected default threshold %d, got %d", DefaultThreshold, got.Threshold)
	}
	if !got.Enabled {
		t.Fatal("new targets should start enabled")
	}
}

func TestAddTarget_RejectsNegativeThreshold(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddTarget(context.Background(), Target{URL: "https://example.com", Threshold: -1}); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestUpdateThreshold(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.AddTarget(ctx, Target{URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateThreshold(ctx, id, -3); err == nil {
		t.Fatal("expected error for negative threshold")
	}
	if err := s.UpdateThreshold(ctx, id, 250); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTarget(ctx, id)
	if got.Threshold != 250 {
		t.Fatalf("expected threshold 250, got %d", got.Threshold)
	}
}

func TestSnapshotRotation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.AddTarget(ctx, Target{URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}

	if snap, _ := s.GetSnapshot(ctx, id, SnapCurrent); snap != nil {
		t.Fatal("expected no snapshot before first capture")
	}

	if err := s.SaveCurrentSnapshot(ctx, id, "<p>v1</p>", 2, "sum1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RotateSnapshots(ctx, id, "<p>v2</p>", 2, "sum2"); err != nil {
		t.Fatal(err)
	}

	cur, err := s.GetSnapshot(ctx, id, SnapCurrent)
	if err != nil {
		t.Fatal(err)
	}
	prev, err := s.GetSnapshot(ctx, id, SnapPrevious)
	if err != nil {
		t.Fatal(err)
	}
	if cur == nil || cur.HTML != "<p>v2</p>" || cur.TextLen != 2 {
		t.Fatalf("current snapshot wrong: %+v", cur)
	}
	if prev == nil || prev.HTML != "<p>v1</p>" {
		t.Fatalf("previous snapshot wrong: %+v", prev)
	}

	// A second rotation replaces previous with the old current.
	if err := s.RotateSnapshots(ctx, id, "<p>v3</p>", 2, "sum3"); err != nil {
		t.Fatal(err)
	}
	prev, _ = s.GetSnapshot(ctx, id, SnapPrevious)
	if prev.HTML != "<p>v2</p>" {
		t.Fatalf("expected previous v2, got %q", prev.HTML)
	}

	target, _ := s.GetTarget(ctx, id)
	if target.LastChangedAt == nil {
		t.Fatal("rotation should stamp last_changed_at")
	}
}

func TestChangeTimeline(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.AddTarget(ctx, Target{URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range []int{5, 12, 3} {
		if _, err := s.SaveChange(ctx, Change{TargetID: id, Distance: d, OldLen: 100 + i, NewLen: 110 + i}); err != nil {
			t.Fatal(err)
		}
	}

	timeline, err := s.ChangeTimeline(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(timeline) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(timeline))
	}
	if timeline[0].Distance != 3 {
		t.Fatalf("expected newest first, got distance %d", timeline[0].Distance)
	}
}

func TestRemoveTarget_Cascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.AddTarget(ctx, Target{URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCurrentSnapshot(ctx, id, "<p>v1</p>", 2, "sum1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveTarget(ctx, id); err != nil {
		t.Fatal(err)
	}
	if tgt, _ := s.GetTarget(ctx, id); tgt != nil {
		t.Fatal("target should be gone")
	}
	if snap, _ := s.GetSnapshot(ctx, id, SnapCurrent); snap != nil {
		t.Fatal("snapshot should cascade away with its target")
	}
}

func TestTargetDue(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Minute)
	stale := now.Add(-2 * time.Hour)

	if !(Target{}).Due(now) {
		t.Fatal("target without interval or history must always be due")
	}
	if !(Target{IntervalSecs: 3600}).Due(now) {
		t.Fatal("never-checked target must be due")
	}
	if (Target{IntervalSecs: 3600, LastCheckedAt: &recent}).Due(now) {
		t.Fatal("recently checked target must not be due")
	}
	if !(Target{IntervalSecs: 3600, LastCheckedAt: &stale}).Due(now) {
		t.Fatal("stale target must be due")
	}
}

func TestMeta(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if v, err := s.GetMeta(ctx, "missing"); err != nil || v != "" {
		t.Fatalf("expected empty value for missing key, got %q err %v", v, err)
	}
	if err := s.SetMeta(ctx, "last_scan", "2026-08-30"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMeta(ctx, "last_scan", "2026-08-31"); err != nil {
		t.Fatal(err)
	}
	v, err := s.GetMeta(ctx, "last_scan")
	if err != nil {
		t.Fatal(err)
	}
	if v != "2026-08-31" {
		t.Fatalf("expected updated value, got %q", v)
	}
}
