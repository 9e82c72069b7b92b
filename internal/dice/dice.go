// Package dice implements dice rolling for the battle rules engine.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// ErrInvalidExpr indicates a dice expression could not be parsed.
var ErrInvalidExpr = errors.New("invalid dice expression")

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// Limits on a single expression. Anything larger is a data error.
const (
	maxCount = 100
	maxSides = 1000
)

// Source is the randomness the rules engine consumes. Intn returns a value in
// [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// NewSource returns a deterministic source for the given seed.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Expr is a parsed dice expression such as "2d6+1".
type Expr struct {
	Count int
	Sides int
	Bonus int
}

// Roll captures the individual dice and the total including the flat bonus.
type Roll struct {
	Results []int
	Bonus   int
	Total   int
}

// Parse parses NdS, NdS+B, NdS-B, dS or a flat integer.
func Parse(s string) (Expr, error) {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return Expr{}, fmt.Errorf("%w: empty", ErrInvalidExpr)
	}

	d := strings.IndexByte(s, 'd')
	if d < 0 {
		bonus, err := strconv.Atoi(s)
		if err != nil {
			return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpr, s)
		}
		return Expr{Bonus: bonus}, nil
	}

	count := 1
	if d > 0 {
		n, err := strconv.Atoi(s[:d])
		if err != nil {
			return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpr, s)
		}
		count = n
	}

	rest := s[d+1:]
	bonus := 0
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		b, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpr, s)
		}
		bonus = b
		rest = rest[:i]
	}

	sides, err := strconv.Atoi(rest)
	if err != nil {
		return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpr, s)
	}
	if sides <= 0 || count <= 0 {
		return Expr{}, ErrInvalidDiceSpec
	}
	if count > maxCount || sides > maxSides {
		return Expr{}, fmt.Errorf("%w: %q exceeds %dd%d", ErrInvalidDiceSpec, s, maxCount, maxSides)
	}

	return Expr{Count: count, Sides: sides, Bonus: bonus}, nil
}

// MustParse parses a dice expression, panicking on error.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// String renders the expression in NdS+B form.
func (e Expr) String() string {
	if e.Count == 0 {
		return strconv.Itoa(e.Bonus)
	}
	out := strconv.Itoa(e.Count) + "d" + strconv.Itoa(e.Sides)
	switch {
	case e.Bonus > 0:
		out += "+" + strconv.Itoa(e.Bonus)
	case e.Bonus < 0:
		out += strconv.Itoa(e.Bonus)
	}
	return out
}

// Roll rolls the expression. Dice are rolled in order, one Intn call each.
func (e Expr) Roll(src Source) Roll {
	results := make([]int, e.Count)
	total := e.Bonus
	for i := 0; i < e.Count; i++ {
		results[i] = rollDie(src, e.Sides)
		total += results[i]
	}
	return Roll{Results: results, Bonus: e.Bonus, Total: total}
}

// RollString parses and rolls an expression in one step.
func RollString(src Source, s string) (Roll, error) {
	e, err := Parse(s)
	if err != nil {
		return Roll{}, err
	}
	return e.Roll(src), nil
}

// D20 rolls a single twenty-sided die.
func D20(src Source) int {
	return rollDie(src, 20)
}

// Percent reports whether a chance in percent succeeds. Chances at or above
// 100 always succeed without consuming randomness; at or below 0 always fail.
func Percent(src Source, chance int) bool {
	if chance >= 100 {
		return true
	}
	if chance <= 0 {
		return false
	}
	return src.Intn(100) < chance
}

// rollDie rolls a single die with the provided number of sides.
func rollDie(src Source, sides int) int {
	return src.Intn(sides) + 1
}
