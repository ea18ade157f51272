package flow

import (
	"math/rand/v2"
	"sync"
)

// Trigger identifies the step after which an interstitial may be shown.
type Trigger string

const (
	TriggerSave  Trigger = "save"
	TriggerShare Trigger = "share"
)

// PolicyInput is what a policy may base its decision on.
type PolicyInput struct {
	Trigger   Trigger
	SessionID string
	// SinceLast counts eligible triggers since the last interstitial, this one
	// included. It starts at 1 after process start.
	SinceLast int
	// Shown is the number of interstitials shown so far.
	Shown int
}

// InterstitialPolicy decides whether to interject an interstitial.
type InterstitialPolicy interface {
	ShouldShow(in PolicyInput) bool
}

// PolicyFunc adapts a function to InterstitialPolicy.
type PolicyFunc func(PolicyInput) bool

func (f PolicyFunc) ShouldShow(in PolicyInput) bool { return f(in) }

// Never shows no interstitials.
var Never = PolicyFunc(func(PolicyInput) bool { return false })

// Always shows an interstitial on every trigger.
var Always = PolicyFunc(func(PolicyInput) bool { return true })

// Probability shows an interstitial with a fixed probability.
type Probability struct {
	p   float64
	mu  sync.Mutex
	rng *rand.Rand
}

// NewProbability returns a policy firing with probability p, clamped to [0,1].
// A nil rng uses the global source; tests pass a seeded one.
func NewProbability(p float64, rng *rand.Rand) *Probability {
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	return &Probability{p: p, rng: rng}
}

// Seeded returns a deterministic generator for NewProbability.
func Seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (p *Probability) ShouldShow(PolicyInput) bool {
	if p.p <= 0 {
		return false
	}
	if p.p >= 1 {
		return true
	}
	var draw float64
	if p.rng == nil {
		draw = rand.Float64()
	} else {
		p.mu.Lock()
		draw = p.rng.Float64()
		p.mu.Unlock()
	}
	return draw < p.p
}

// FrequencyCap suppresses interstitials until at least MinGap triggers have
// passed since the previous one, then defers to Inner.
type FrequencyCap struct {
	Inner  InterstitialPolicy
	MinGap int
}

func (f FrequencyCap) ShouldShow(in PolicyInput) bool {
	if in.Shown > 0 && in.SinceLast < f.MinGap {
		return false
	}
	if f.Inner == nil {
		return true
	}
	return f.Inner.ShouldShow(in)
}

// Capped wraps inner in a FrequencyCap when minGap is positive.
func Capped(inner InterstitialPolicy, minGap int) InterstitialPolicy {
	if minGap <= 0 {
		return inner
	}
	return FrequencyCap{Inner: inner, MinGap: minGap}
}
