package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed quantity expression.
//
// A plain integer such as "3" parses to Count 0 with Modifier 3, so fixed
// quantities and dice quantities share one representation.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

// Parse parses "3", "d6", "2d6", "1d3+1" or "4d8-2".
//
// Precondition: expr must be non-empty.
// Postcondition: Returns an Expression with Count == 0 or (Count >= 1 and
// Sides >= 2), or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	s := strings.ToLower(raw)

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid constant %q: %w", raw, err)
		}
		return Expression{Raw: raw, Modifier: n}, nil
	}

	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}

	rest := s[dIdx+1:]
	sidesStr, modStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i > 0 {
		sidesStr, modStr = rest[:i], rest[i:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{Raw: raw, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error.
//
// Precondition: expr must be a valid expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// Roll evaluates expr against src.
//
// Postcondition: len(result.Dice) == expr.Count.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}
