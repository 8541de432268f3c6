// Package generate produces synthetic person records for bulk loading and
// selectivity testing.
package generate

import (
	"fmt"
	"math/rand"

	"github.com/censusdb/census/pkg/types"
)

// Name pools for random record generation. First and middle names are
// partitioned by grammatical gender; last names are shared.
var (
	firstNamesMale   = []string{"Ivan", "Petr", "Sergey", "Andrey", "Alexey", "Dmitry", "Mikhail", "Nikolay"}
	firstNamesFemale = []string{"Anna", "Maria", "Elena", "Olga", "Tatyana", "Natalia", "Irina", "Svetlana"}
	lastNames        = []string{"Ivanov", "Petrov", "Sidorov", "Smirnov", "Kuznetsov", "Popov", "Volkov", "Fedorov"}
	middleNamesMale  = []string{"Ivanovich", "Petrovich", "Sergeevich", "Andreevich", "Alexeevich"}
	middleNamesFem   = []string{"Ivanovna", "Petrovna", "Sergeevna", "Andreevna", "Alexeevna"}

	// targetedSuffixes are last-name stems completed with the configured
	// leading letter, guaranteeing a known prefix for the benchmark query.
	targetedSuffixes = []string{"isher", "ord", "letcher", "ranklin", "erguson"}
)

// Birth year bounds for generated records.
const (
	minBirthYear = 1950
	maxBirthYear = 2005
)

// DefaultTargetLetter is the leading last-name letter of the targeted subset.
const DefaultTargetLetter = "F"

// Generator produces synthetic person records from a seeded random source.
// The source is injected so tests can reproduce exact sequences.
type Generator struct {
	rng          *rand.Rand
	targetLetter string
}

// Option configures a Generator.
type Option func(*Generator)

// WithTargetLetter overrides the leading letter of targeted last names.
func WithTargetLetter(letter string) Option {
	return func(g *Generator) {
		if letter != "" {
			g.targetLetter = letter
		}
	}
}

// New creates a generator seeded with the given value.
func New(seed int64, opts ...Option) *Generator {
	return NewWithRand(rand.New(rand.NewSource(seed)), opts...)
}

// NewWithRand creates a generator backed by an explicit random source.
func NewWithRand(rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{
		rng:          rng,
		targetLetter: DefaultTargetLetter,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sequence is a finite, lazily evaluated stream of person records.
// A sequence is consumed by calling Next until ok is false; it cannot be
// restarted.
type Sequence struct {
	remaining int
	draw      func() types.Person
}

// Next returns the next record in the sequence. ok is false once the
// sequence is exhausted.
func (s *Sequence) Next() (p types.Person, ok bool) {
	if s.remaining <= 0 {
		return types.Person{}, false
	}
	s.remaining--
	return s.draw(), true
}

// Remaining returns the number of records not yet drawn.
func (s *Sequence) Remaining() int {
	return s.remaining
}

// Generate returns a sequence of exactly n random person records.
// Each call yields a fresh independent sequence.
func (g *Generator) Generate(n int) *Sequence {
	if n < 0 {
		n = 0
	}
	return &Sequence{
		remaining: n,
		draw:      g.drawRandom,
	}
}

// GenerateTargeted returns a sequence of exactly n male records whose last
// name starts with the configured letter. This subset guarantees a
// predictable, non-trivial result size for the benchmark query regardless of
// random chance in the bulk data.
func (g *Generator) GenerateTargeted(n int) *Sequence {
	if n < 0 {
		n = 0
	}
	return &Sequence{
		remaining: n,
		draw:      g.drawTargeted,
	}
}

// drawRandom draws one uniformly random record.
func (g *Generator) drawRandom() types.Person {
	gender := types.GenderMale
	if g.rng.Intn(2) == 1 {
		gender = types.GenderFemale
	}

	var first, middle string
	if gender == types.GenderMale {
		first = pick(g.rng, firstNamesMale)
		middle = pick(g.rng, middleNamesMale)
	} else {
		first = pick(g.rng, firstNamesFemale)
		middle = pick(g.rng, middleNamesFem)
	}
	last := pick(g.rng, lastNames)

	return types.Person{
		FullName:  fmt.Sprintf("%s %s %s", last, first, middle),
		BirthDate: g.drawBirthDate(),
		Gender:    gender,
	}
}

// drawTargeted draws one male record with a last name in the targeted pool.
func (g *Generator) drawTargeted() types.Person {
	first := pick(g.rng, firstNamesMale)
	middle := pick(g.rng, middleNamesMale)
	last := g.targetLetter + pick(g.rng, targetedSuffixes)

	return types.Person{
		FullName:  fmt.Sprintf("%s %s %s", last, first, middle),
		BirthDate: g.drawBirthDate(),
		Gender:    types.GenderMale,
	}
}

// drawBirthDate draws a uniformly random valid calendar date.
// Days are capped at 28 so every month length is valid.
func (g *Generator) drawBirthDate() string {
	year := minBirthYear + g.rng.Intn(maxBirthYear-minBirthYear+1)
	month := 1 + g.rng.Intn(12)
	day := 1 + g.rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}
