package domain

// EntitlementState is the set of premium capabilities currently available.
// TemporaryUnlocks holds single-use unlocks granted by rewarded ads.
type EntitlementState struct {
	IsPremiumSubscriber bool                 `json:"is_premium_subscriber"`
	TemporaryUnlocks    map[StyleID]struct{} `json:"-"`
}

// HasUnlock reports whether an unconsumed unlock exists for id.
func (e EntitlementState) HasUnlock(id StyleID) bool {
	_, ok := e.TemporaryUnlocks[id]
	return ok
}

// UnlockedStyles lists the styles holding an unconsumed unlock.
func (e EntitlementState) UnlockedStyles() []StyleID {
	out := make([]StyleID, 0, len(e.TemporaryUnlocks))
	for id := range e.TemporaryUnlocks {
		out = append(out, id)
	}
	return out
}

// Clone deep-copies the unlock set so callers can derive new states freely.
func (e EntitlementState) Clone() EntitlementState {
	out := EntitlementState{IsPremiumSubscriber: e.IsPremiumSubscriber}
	if len(e.TemporaryUnlocks) > 0 {
		out.TemporaryUnlocks = make(map[StyleID]struct{}, len(e.TemporaryUnlocks))
		for id := range e.TemporaryUnlocks {
			out.TemporaryUnlocks[id] = struct{}{}
		}
	}
	return out
}
