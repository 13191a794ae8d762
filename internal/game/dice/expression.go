package dice

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	rollPattern     = regexp.MustCompile(`^(\d*)d(\d+)(?:kh(\d+))?([+-]\d+)?$`)
	constantPattern = regexp.MustCompile(`^[+-]?\d+$`)
)

// Expression is a parsed dice expression. A constant such as "3" has
// Count == 0 and rolls to its Modifier.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
	// KeepHighest, when > 0, keeps only that many of the highest dice.
	KeepHighest int
}

// Parse parses "3", "d6", "2d6", "1d4+1", "3d6-2" or "4d6kh3".
//
// Postcondition: On success either Count == 0 or (Count >= 1 and Sides >= 2),
// and 0 <= KeepHighest < Count.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(expr), " ", ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	if constantPattern.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid constant %q: %w", expr, err)
		}
		return Expression{Raw: expr, Modifier: n}, nil
	}

	m := rollPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}
	e := Expression{Raw: expr, Count: 1}
	if m[1] != "" {
		e.Count, _ = strconv.Atoi(m[1])
	}
	e.Sides, _ = strconv.Atoi(m[2])
	switch {
	case e.Count < 1:
		return Expression{}, fmt.Errorf("dice: die count in %q must be >= 1", expr)
	case e.Sides < 2:
		return Expression{}, fmt.Errorf("dice: die sides in %q must be >= 2", expr)
	}
	if m[3] != "" {
		e.KeepHighest, _ = strconv.Atoi(m[3])
		if e.KeepHighest < 1 || e.KeepHighest >= e.Count {
			return Expression{}, fmt.Errorf("dice: kh%d in %q must be in [1, %d)", e.KeepHighest, expr, e.Count)
		}
	}
	if m[4] != "" {
		e.Modifier, _ = strconv.Atoi(m[4])
	}
	return e, nil
}

func (e Expression) kept() int {
	if e.KeepHighest > 0 {
		return e.KeepHighest
	}
	return e.Count
}

// Min returns the lowest total e can roll.
func (e Expression) Min() int { return e.kept() + e.Modifier }

// Max returns the highest total e can roll.
func (e Expression) Max() int { return e.kept()*e.Sides + e.Modifier }

// Roll evaluates e with src.
//
// Precondition: e must come from Parse; src must be non-nil.
// Postcondition: Min() <= result.Total() <= Max().
func Roll(e Expression, src Source) (RollResult, error) {
	rolled := make([]int, e.Count)
	for i := range rolled {
		rolled[i] = src.Intn(e.Sides) + 1
	}
	if e.KeepHighest > 0 {
		slices.SortFunc(rolled, func(a, b int) int { return b - a })
		rolled = rolled[:e.KeepHighest]
	}
	return RollResult{Expression: e.Raw, Dice: rolled, Modifier: e.Modifier}, nil
}

// RollExpr parses and rolls expr with src.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src)
}
