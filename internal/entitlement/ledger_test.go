package entitlement

import (
	"context"
	"errors"
	"testing"

	"cartoonify/internal/catalog"
	"cartoonify/internal/domain"
)

type stubRepository struct {
	loaded domain.EntitlementState
	saved  []domain.EntitlementState
	err    error
}

func (s *stubRepository) Load(context.Context) (domain.EntitlementState, error) {
	return s.loaded, s.err
}

func (s *stubRepository) Save(_ context.Context, state domain.EntitlementState) error {
	s.saved = append(s.saved, state)
	return s.err
}

func mustStyle(t *testing.T, id domain.StyleID) domain.StyleDefinition {
	t.Helper()
	s, err := catalog.Default().Lookup(id)
	if err != nil {
		t.Fatalf("Lookup(%s): %v", id, err)
	}
	return s
}

func TestLedgerRewardedUnlockIsSingleUse(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(LedgerOptions{})
	watercolor := mustStyle(t, "watercolor")

	if got := ledger.CanUse(watercolor); got != RequiresUpgrade {
		t.Fatalf("CanUse before reward = %s, want %s", got, RequiresUpgrade)
	}
	if err := ledger.RewardAdCompleted(ctx, watercolor.ID); err != nil {
		t.Fatalf("RewardAdCompleted: %v", err)
	}
	if got := ledger.CanUse(watercolor); got != Allowed {
		t.Fatalf("CanUse after reward = %s, want %s", got, Allowed)
	}

	res, decision := ledger.Reserve(watercolor)
	if decision != Allowed || res == nil {
		t.Fatalf("Reserve = (%v, %s), want reservation", res, decision)
	}
	if !res.HoldsUnlock() {
		t.Fatalf("reservation should hold the unlock")
	}
	if _, second := ledger.Reserve(watercolor); second != RequiresUpgrade {
		t.Fatalf("second Reserve = %s, want %s", second, RequiresUpgrade)
	}
	res.Commit()
	res.Release()
	if got := ledger.CanUse(watercolor); got != RequiresUpgrade {
		t.Fatalf("CanUse after commit = %s, want %s", got, RequiresUpgrade)
	}
}

func TestLedgerReleaseRestoresUnlock(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(LedgerOptions{})
	sketch := mustStyle(t, "sketch")
	_ = ledger.RewardAdCompleted(ctx, sketch.ID)

	res, _ := ledger.Reserve(sketch)
	res.Release()
	res.Release()
	if got := ledger.CanUse(sketch); got != Allowed {
		t.Fatalf("CanUse after release = %s, want %s", got, Allowed)
	}
	if n := len(ledger.State().TemporaryUnlocks); n != 1 {
		t.Fatalf("unlocks = %d, want 1", n)
	}
}

func TestLedgerSubscriberDoesNotSpendUnlock(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(LedgerOptions{})
	oil := mustStyle(t, "oil-painting")
	_ = ledger.RewardAdCompleted(ctx, oil.ID)
	_ = ledger.Subscribe(ctx)

	res, decision := ledger.Reserve(oil)
	if decision != Allowed {
		t.Fatalf("decision = %s, want %s", decision, Allowed)
	}
	if res.HoldsUnlock() {
		t.Fatalf("subscriber reservation should not hold an unlock")
	}
	res.Commit()
	if !ledger.State().HasUnlock(oil.ID) {
		t.Fatalf("unlock should remain available for after the subscription lapses")
	}
}

func TestLedgerPersistsAndLoads(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepository{loaded: domain.EntitlementState{IsPremiumSubscriber: true}}
	ledger := NewLedger(LedgerOptions{Repository: repo})
	if err := ledger.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ledger.State().IsPremiumSubscriber {
		t.Fatalf("loaded state lost subscription flag")
	}
	if err := ledger.CancelSubscription(ctx); err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}
	if len(repo.saved) != 1 || repo.saved[0].IsPremiumSubscriber {
		t.Fatalf("unexpected saved states: %#v", repo.saved)
	}
}

func TestLedgerSurfacesRepositoryError(t *testing.T) {
	repo := &stubRepository{err: errors.New("db down")}
	ledger := NewLedger(LedgerOptions{Repository: repo})
	if err := ledger.Subscribe(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	if ledger.State().IsPremiumSubscriber {
		t.Fatalf("failed subscribe must not change the state")
	}
	if err := ledger.RewardAdCompleted(context.Background(), "sketch"); err == nil {
		t.Fatalf("expected save error")
	}
	if ledger.State().HasUnlock("sketch") {
		t.Fatalf("failed reward must not grant an unlock")
	}
	if err := ledger.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestLedgerReservationPersistsOnSync(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepository{}
	ledger := NewLedger(LedgerOptions{Repository: repo})
	sketch := mustStyle(t, "sketch")
	if err := ledger.RewardAdCompleted(ctx, sketch.ID); err != nil {
		t.Fatalf("RewardAdCompleted: %v", err)
	}
	if len(repo.saved) != 1 || ledger.Dirty() {
		t.Fatalf("saved = %d dirty = %v, want 1 and clean", len(repo.saved), ledger.Dirty())
	}

	res, _ := ledger.Reserve(sketch)
	if len(repo.saved) != 1 {
		t.Fatalf("Reserve wrote to the repository")
	}
	if !ledger.Dirty() {
		t.Fatalf("ledger should be dirty after Reserve")
	}
	if err := ledger.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(repo.saved) != 2 || repo.saved[1].HasUnlock(sketch.ID) {
		t.Fatalf("unexpected saved states: %#v", repo.saved)
	}
	if err := ledger.Sync(ctx); err != nil || len(repo.saved) != 2 {
		t.Fatalf("clean Sync should not write, saved = %d err = %v", len(repo.saved), err)
	}

	res.Release()
	if err := ledger.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(repo.saved) != 3 || !repo.saved[2].HasUnlock(sketch.ID) {
		t.Fatalf("release was not persisted: %#v", repo.saved)
	}
}

func TestLedgerSyncKeepsDirtyOnError(t *testing.T) {
	repo := &stubRepository{}
	ledger := NewLedger(LedgerOptions{Repository: repo})
	sketch := mustStyle(t, "sketch")
	_ = ledger.RewardAdCompleted(context.Background(), sketch.ID)
	ledger.Reserve(sketch)

	repo.err = errors.New("db down")
	if err := ledger.Sync(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	if !ledger.Dirty() {
		t.Fatalf("failed Sync should leave the ledger dirty")
	}
	repo.err = nil
	if err := ledger.Sync(context.Background()); err != nil || ledger.Dirty() {
		t.Fatalf("Sync after recovery: err = %v dirty = %v", err, ledger.Dirty())
	}
}
