package models

import (
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

// Grade is a single symbol from the ordered grading alphabet.
type Grade string

// GradeScale is a total order over a finite grade alphabet. Symbols are
// ordered strongest first, so on the default scale A outranks E.
type GradeScale struct {
	symbols []Grade
	ranks   map[Grade]int
}

// DefaultGradeSymbols is the scale used when configuration provides none.
var DefaultGradeSymbols = []string{"A", "B", "C", "D", "E"}

// NewGradeScale builds a scale from symbols ordered strongest first.
func NewGradeScale(symbols []string) *GradeScale {
	if len(symbols) == 0 {
		symbols = DefaultGradeSymbols
	}
	scale := &GradeScale{
		symbols: make([]Grade, 0, len(symbols)),
		ranks:   make(map[Grade]int, len(symbols)),
	}
	for i, s := range symbols {
		g := Grade(s)
		if _, dup := scale.ranks[g]; dup {
			continue
		}
		scale.symbols = append(scale.symbols, g)
		// strongest symbol gets the highest rank
		scale.ranks[g] = len(symbols) - i
	}
	return scale
}

// Symbols returns the alphabet ordered strongest first.
func (s *GradeScale) Symbols() []Grade {
	out := make([]Grade, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Rank returns the position of the grade on the scale, higher meaning
// stronger. Symbols outside the alphabet fail and are never coerced.
func (s *GradeScale) Rank(g Grade) (int, error) {
	rank, ok := s.ranks[g]
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrInvalidGrade, "unknown grade "+string(g))
	}
	return rank, nil
}

// AtLeast reports whether candidate meets or exceeds minimum on the scale.
func (s *GradeScale) AtLeast(candidate, minimum Grade) (bool, error) {
	candidateRank, err := s.Rank(candidate)
	if err != nil {
		return false, err
	}
	minimumRank, err := s.Rank(minimum)
	if err != nil {
		return false, err
	}
	return candidateRank >= minimumRank, nil
}

// Valid reports whether the grade belongs to the alphabet.
func (s *GradeScale) Valid(g Grade) bool {
	_, ok := s.ranks[g]
	return ok
}
