package session

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/sitelens/internal/model"
)

func newTestSession(id string, expiresAt time.Time) *model.Session {
	return &model.Session{
		ID:        id,
		Username:  "demo",
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

func TestStore_CreateAndFindByID(t *testing.T) {
	store := NewStore(50)
	ctx := context.Background()

	sess := newTestSession("s-1", time.Now().Add(time.Hour))
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create がエラーを返した: %v", err)
	}

	found, err := store.FindByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if found == nil {
		t.Fatal("作成したセッションが見つからない")
	}
	if found.Username != "demo" {
		t.Errorf("Username = %q, want %q", found.Username, "demo")
	}
}

func TestStore_FindByID_UnknownID_ReturnsNil(t *testing.T) {
	store := NewStore(50)

	found, err := store.FindByID(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if found != nil {
		t.Error("存在しないセッションIDに対してはnilを返さなければならない")
	}
}

func TestStore_FindByID_Expired_ReturnsNilAndEvicts(t *testing.T) {
	store := NewStore(50)
	ctx := context.Background()

	sess := newTestSession("s-expired", time.Now().Add(-time.Minute))
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create がエラーを返した: %v", err)
	}

	found, err := store.FindByID(ctx, "s-expired")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if found != nil {
		t.Error("期限切れセッションに対してはnilを返さなければならない")
	}
	if store.Count() != 0 {
		t.Errorf("期限切れセッションは破棄されること: Count = %d", store.Count())
	}
	if store.HistoryFor("s-expired") != nil {
		t.Error("期限切れセッションの履歴も破棄されること")
	}
}

func TestStore_DeleteByID_RemovesSessionAndHistory(t *testing.T) {
	store := NewStore(50)
	ctx := context.Background()

	sess := newTestSession("s-2", time.Now().Add(time.Hour))
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create がエラーを返した: %v", err)
	}

	if err := store.DeleteByID(ctx, "s-2"); err != nil {
		t.Fatalf("DeleteByID がエラーを返した: %v", err)
	}

	found, _ := store.FindByID(ctx, "s-2")
	if found != nil {
		t.Error("削除したセッションが見つかってはならない")
	}
	if store.HistoryFor("s-2") != nil {
		t.Error("セッション削除時に履歴も破棄されること")
	}
}

func TestStore_HistoryFor_ReturnsPerSessionHistory(t *testing.T) {
	store := NewStore(50)
	ctx := context.Background()

	_ = store.Create(ctx, newTestSession("s-a", time.Now().Add(time.Hour)))
	_ = store.Create(ctx, newTestSession("s-b", time.Now().Add(time.Hour)))

	ha := store.HistoryFor("s-a")
	hb := store.HistoryFor("s-b")
	if ha == nil || hb == nil {
		t.Fatal("各セッションに履歴が割り当てられていること")
	}

	ha.Add(&model.AnalysisResult{URL: "https://example.com", Status: model.StatusSuccess})

	if ha.Len() != 1 {
		t.Errorf("s-a の履歴件数 = %d, want 1", ha.Len())
	}
	if hb.Len() != 0 {
		t.Errorf("履歴はセッションごとに独立していること: s-b = %d件", hb.Len())
	}
}
