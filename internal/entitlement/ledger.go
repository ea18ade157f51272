package entitlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"cartoonify/internal/domain"
	"cartoonify/internal/infra"
)

// LedgerOptions configures a Ledger.
type LedgerOptions struct {
	Repository domain.EntitlementRepository
	Logger     *infra.Logger
}

// Ledger is the process-wide owner of the entitlement state. mu guards the
// in-memory state and is never held across a repository call; writes are
// serialised by persistMu so an older snapshot cannot overwrite a newer one.
type Ledger struct {
	mu        sync.Mutex
	state     domain.EntitlementState
	version   uint64
	persisted uint64

	persistMu sync.Mutex
	repo      domain.EntitlementRepository
	logger    infra.Logger
}

// NewLedger constructs an empty ledger.
func NewLedger(opts LedgerOptions) *Ledger {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Ledger{repo: opts.Repository, logger: logger}
}

// Load replaces the in-memory state with the persisted one.
func (l *Ledger) Load(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}
	state, err := l.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("entitlement: load: %w", err)
	}
	l.mu.Lock()
	l.state = state.Clone()
	l.version++
	l.persisted = l.version
	l.mu.Unlock()
	return nil
}

// State returns a copy of the current entitlement state.
func (l *Ledger) State() domain.EntitlementState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

// CanUse evaluates the gate against the current state.
func (l *Ledger) CanUse(style domain.StyleDefinition) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CanUse(style, l.state)
}

// Subscribe records a successful subscription purchase.
func (l *Ledger) Subscribe(ctx context.Context) error {
	if err := l.apply(ctx, func(s domain.EntitlementState) domain.EntitlementState {
		s.IsPremiumSubscriber = true
		return s
	}); err != nil {
		return err
	}
	l.logger.Info().Bool("subscriber", true).Msg("entitlement: subscription changed")
	return nil
}

// CancelSubscription records that the subscription lapsed.
func (l *Ledger) CancelSubscription(ctx context.Context) error {
	if err := l.apply(ctx, func(s domain.EntitlementState) domain.EntitlementState {
		s.IsPremiumSubscriber = false
		return s
	}); err != nil {
		return err
	}
	l.logger.Info().Bool("subscriber", false).Msg("entitlement: subscription changed")
	return nil
}

// RewardAdCompleted grants a single-use unlock for id.
func (l *Ledger) RewardAdCompleted(ctx context.Context, id domain.StyleID) error {
	if err := l.apply(ctx, func(s domain.EntitlementState) domain.EntitlementState {
		return GrantTemporaryUnlock(id, s)
	}); err != nil {
		return err
	}
	l.logger.Info().Str("style_id", string(id)).Msg("entitlement: rewarded unlock granted")
	return nil
}

// apply persists mutate(state) and only then makes it visible. On a
// repository error the in-memory state is left unchanged.
func (l *Ledger) apply(ctx context.Context, mutate func(domain.EntitlementState) domain.EntitlementState) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	base := l.version
	next := mutate(l.state.Clone())
	l.mu.Unlock()

	if l.repo != nil {
		if err := l.repo.Save(ctx, next.Clone()); err != nil {
			return fmt.Errorf("entitlement: save: %w", err)
		}
	}

	l.mu.Lock()
	if l.version == base {
		l.state = next
		l.version++
		l.persisted = l.version
		l.mu.Unlock()
		return nil
	}
	// A reservation moved the state while the write was in flight; apply the
	// change on top of it and write the merged state.
	l.state = mutate(l.state.Clone())
	l.version++
	l.mu.Unlock()
	return l.flushLocked(ctx)
}

// Reserve checks the gate for style and, when access relies on a temporary
// unlock, takes that unlock out of the state so no other request can spend it.
// The reservation must be committed once the unlock has been used or released
// to hand it back. The change is in memory only; Sync writes it out.
func (l *Ledger) Reserve(style domain.StyleDefinition) (*Reservation, Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	decision := CanUse(style, l.state)
	if decision != Allowed {
		return nil, decision
	}
	r := &Reservation{ledger: l, style: style.ID}
	if style.IsPremium && !l.state.IsPremiumSubscriber {
		l.state = ConsumeUnlockIfPresent(style.ID, l.state)
		l.version++
		r.holdsUnlock = true
	}
	return r, decision
}

// Sync writes the current state to the repository if it changed since the
// last successful write.
func (l *Ledger) Sync(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()
	return l.flushLocked(ctx)
}

// Dirty reports whether in-memory changes are waiting for Sync.
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo != nil && l.version != l.persisted
}

// flushLocked requires persistMu.
func (l *Ledger) flushLocked(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}
	l.mu.Lock()
	if l.version == l.persisted {
		l.mu.Unlock()
		return nil
	}
	snap, v := l.state.Clone(), l.version
	l.mu.Unlock()

	if err := l.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("entitlement: save: %w", err)
	}
	l.mu.Lock()
	if v > l.persisted {
		l.persisted = v
	}
	l.mu.Unlock()
	return nil
}

// Reservation is a claim on gate access for one processing request.
type Reservation struct {
	ledger      *Ledger
	style       domain.StyleID
	holdsUnlock bool
	settled     bool
}

// HoldsUnlock reports whether the reservation consumed a temporary unlock.
func (r *Reservation) HoldsUnlock() bool {
	if r == nil {
		return false
	}
	return r.holdsUnlock
}

// Commit finalises the reservation; a held unlock stays consumed.
func (r *Reservation) Commit() {
	if r == nil {
		return
	}
	r.ledger.mu.Lock()
	r.settled = true
	r.ledger.mu.Unlock()
}

// Release returns a held unlock to the state. Releasing after Commit, or twice,
// does nothing. Like Reserve it only touches memory.
func (r *Reservation) Release() {
	if r == nil {
		return
	}
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.settled {
		return
	}
	r.settled = true
	if !r.holdsUnlock {
		return
	}
	l.state = GrantTemporaryUnlock(r.style, l.state)
	l.version++
	l.logger.Debug().Str("style_id", string(r.style)).Msg("entitlement: unlock released")
}
