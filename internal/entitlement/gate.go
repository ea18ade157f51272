// Package entitlement decides which styles the user may apply and tracks the
// subscription and rewarded-ad unlocks that widen that set.
package entitlement

import "cartoonify/internal/domain"

// Decision is the outcome of a gate check.
type Decision string

const (
	Allowed         Decision = "allowed"
	RequiresUpgrade Decision = "requires_upgrade"
)

// CanUse reports whether style may be applied under state. Free styles are
// always allowed; premium styles need a subscription or an unconsumed unlock.
func CanUse(style domain.StyleDefinition, state domain.EntitlementState) Decision {
	if !style.IsPremium || state.IsPremiumSubscriber || state.HasUnlock(style.ID) {
		return Allowed
	}
	return RequiresUpgrade
}

// GrantTemporaryUnlock returns state with a single-use unlock for id. Granting
// an unlock that already exists leaves exactly one.
func GrantTemporaryUnlock(id domain.StyleID, state domain.EntitlementState) domain.EntitlementState {
	out := state.Clone()
	if out.TemporaryUnlocks == nil {
		out.TemporaryUnlocks = make(map[domain.StyleID]struct{}, 1)
	}
	out.TemporaryUnlocks[id] = struct{}{}
	return out
}

// ConsumeUnlockIfPresent returns state without the unlock for id. Consuming an
// absent unlock is a no-op.
func ConsumeUnlockIfPresent(id domain.StyleID, state domain.EntitlementState) domain.EntitlementState {
	out := state.Clone()
	delete(out.TemporaryUnlocks, id)
	return out
}
