package flow

import "testing"

func TestProbabilityBounds(t *testing.T) {
	never := NewProbability(-1, Seeded(1))
	always := NewProbability(2, Seeded(1))
	for i := 0; i < 100; i++ {
		if never.ShouldShow(PolicyInput{}) {
			t.Fatal("p=0 policy fired")
		}
		if !always.ShouldShow(PolicyInput{}) {
			t.Fatal("p=1 policy did not fire")
		}
	}
}

func TestProbabilityIsReproducibleWithSeed(t *testing.T) {
	a := NewProbability(0.5, Seeded(42))
	b := NewProbability(0.5, Seeded(42))
	hits := 0
	for i := 0; i < 200; i++ {
		x, y := a.ShouldShow(PolicyInput{}), b.ShouldShow(PolicyInput{})
		if x != y {
			t.Fatalf("draw %d differs", i)
		}
		if x {
			hits++
		}
	}
	if hits == 0 || hits == 200 {
		t.Fatalf("hits = %d, expected a mix", hits)
	}
}

func TestFrequencyCap(t *testing.T) {
	p := FrequencyCap{Inner: Always, MinGap: 3}
	tests := []struct {
		in   PolicyInput
		want bool
	}{
		{PolicyInput{SinceLast: 1, Shown: 0}, true},
		{PolicyInput{SinceLast: 1, Shown: 1}, false},
		{PolicyInput{SinceLast: 2, Shown: 1}, false},
		{PolicyInput{SinceLast: 3, Shown: 1}, true},
	}
	for _, tt := range tests {
		if got := p.ShouldShow(tt.in); got != tt.want {
			t.Fatalf("ShouldShow(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if (FrequencyCap{Inner: Never, MinGap: 1}).ShouldShow(PolicyInput{SinceLast: 5, Shown: 1}) {
		t.Fatal("cap must defer to inner policy")
	}
}

func TestCappedWithoutGapReturnsInner(t *testing.T) {
	if _, ok := Capped(Always, 0).(PolicyFunc); !ok {
		t.Fatal("expected inner policy unchanged")
	}
	if _, ok := Capped(Always, 2).(FrequencyCap); !ok {
		t.Fatal("expected frequency cap")
	}
}
