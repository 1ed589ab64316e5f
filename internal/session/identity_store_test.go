package session

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/repository/memory"
)

func TestIdentityStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	user := &domain.User{Username: "alice", Email: "alice@example.com"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	store := NewIdentityStore(users)

	if _, ok, err := store.Current(ctx, user.ID); err != nil || ok {
		t.Fatalf("expected empty slot, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, user.ID, "r-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Rotate(ctx, user.ID, "r-1", "r-2"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := store.Rotate(ctx, user.ID, "r-1", "r-3"); !errors.Is(err, ErrStale) {
		t.Fatalf("expected stale, got %v", err)
	}
	if err := store.Clear(ctx, user.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Rotate(ctx, user.ID, "r-2", "r-4"); !errors.Is(err, ErrStale) {
		t.Fatalf("expected stale after clear, got %v", err)
	}
	if err := store.Set(ctx, "ghost", "r-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown identity, got %v", err)
	}
	if err := store.Rotate(ctx, "ghost", "r-1", "r-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on rotate for unknown identity, got %v", err)
	}
}
