// Package dice provides the randomness abstraction shared by every part of the
// adventure simulator, plus dice-expression rolling for loot quantities.
package dice

import "fmt"

// RollResult is one evaluated expression: the dice that counted toward the
// total and the flat modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the kept dice plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String formats r as "2d6+3 [4 5] = 12".
func (r RollResult) String() string {
	return fmt.Sprintf("%s %v = %d", r.Expression, r.Dice, r.Total())
}

// Source is the randomness provider for dice rolls, wave draws, armor
// effect triggers and loot rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// floatResolution is the granularity used to turn Intn draws into fractions.
const floatResolution = 1 << 30

// Float64 returns a value in [0, 1) drawn from src.
//
// Precondition: src must be non-nil.
// Postcondition: 0 <= result < 1.
func Float64(src Source) float64 {
	return float64(src.Intn(floatResolution)) / floatResolution
}

// Chance reports whether an event with probability p fires.
//
// Postcondition: Returns false for p <= 0 and true for p >= 1 without drawing.
func Chance(src Source, p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return Float64(src) < p
}

// Between returns an int drawn uniformly from [lo, hi].
//
// Postcondition: Returns lo when hi <= lo.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}
