package generate

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/censusdb/census/pkg/types"
)

// TestProperty_GenerateExactCount validates that for any n >= 0 and any seed,
// Generate yields exactly n records, each with a parseable birth date in the
// supported year range.
func TestProperty_GenerateExactCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Generate(n) yields exactly n valid records", prop.ForAll(
		func(seed int64, n int) bool {
			g := New(seed)
			seq := g.Generate(n)

			count := 0
			for {
				p, ok := seq.Next()
				if !ok {
					break
				}
				count++

				birth, err := time.Parse(types.BirthDateLayout, p.BirthDate)
				if err != nil {
					return false
				}
				if birth.Year() < minBirthYear || birth.Year() > maxBirthYear {
					return false
				}
				if !p.Gender.Valid() {
					return false
				}
			}
			return count == n
		},
		gen.Int64(),
		gen.IntRange(0, 300),
	))

	properties.TestingRun(t)
}

// TestProperty_TargetedSubset validates that every targeted record is male
// and carries the configured leading last-name letter.
func TestProperty_TargetedSubset(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("GenerateTargeted(n) yields n male records with the target prefix", prop.ForAll(
		func(seed int64, n int) bool {
			g := New(seed)
			seq := g.GenerateTargeted(n)

			count := 0
			for {
				p, ok := seq.Next()
				if !ok {
					break
				}
				count++

				if p.Gender != types.GenderMale {
					return false
				}
				if !strings.HasPrefix(p.FullName, DefaultTargetLetter) {
					return false
				}
			}
			return count == n
		},
		gen.Int64(),
		gen.IntRange(0, 300),
	))

	properties.TestingRun(t)
}

// TestProperty_SeedDeterminism validates that equal seeds reproduce equal
// sequences, record for record.
func TestProperty_SeedDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("equal seeds yield identical sequences", prop.ForAll(
		func(seed int64, n int) bool {
			a := New(seed).Generate(n)
			b := New(seed).Generate(n)

			for {
				pa, okA := a.Next()
				pb, okB := b.Next()
				if okA != okB {
					return false
				}
				if !okA {
					return true
				}
				if pa != pb {
					return false
				}
			}
		},
		gen.Int64(),
		gen.IntRange(0, 200),
	))

	properties.TestingRun(t)
}
