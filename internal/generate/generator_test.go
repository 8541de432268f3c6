package generate

import (
	"strings"
	"testing"
	"time"

	"github.com/censusdb/census/pkg/types"
)

func TestGenerator_GenerateCount(t *testing.T) {
	gen := New(42)

	for _, n := range []int{0, 1, 10, 1000} {
		seq := gen.Generate(n)
		count := 0
		for {
			_, ok := seq.Next()
			if !ok {
				break
			}
			count++
		}
		if count != n {
			t.Errorf("Generate(%d) yielded %d records", n, count)
		}
	}
}

func TestGenerator_GenerateValidRecords(t *testing.T) {
	gen := New(7)
	seq := gen.Generate(500)

	for {
		p, ok := seq.Next()
		if !ok {
			break
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("generated invalid record %+v: %v", p, err)
		}
		birth, err := time.Parse(types.BirthDateLayout, p.BirthDate)
		if err != nil {
			t.Fatalf("unparseable birth date %q: %v", p.BirthDate, err)
		}
		if birth.Year() < minBirthYear || birth.Year() > maxBirthYear {
			t.Errorf("birth year %d out of range", birth.Year())
		}
		if birth.Day() > 28 {
			t.Errorf("birth day %d exceeds 28", birth.Day())
		}
		if len(strings.Fields(p.FullName)) != 3 {
			t.Errorf("full name %q is not last-first-middle", p.FullName)
		}
	}
}

func TestGenerator_GenerateTargeted(t *testing.T) {
	gen := New(99)
	seq := gen.GenerateTargeted(100)

	count := 0
	for {
		p, ok := seq.Next()
		if !ok {
			break
		}
		count++
		if p.Gender != types.GenderMale {
			t.Errorf("targeted record has gender %q", p.Gender)
		}
		if !strings.HasPrefix(p.FullName, DefaultTargetLetter) {
			t.Errorf("targeted full name %q does not start with %q", p.FullName, DefaultTargetLetter)
		}
	}
	if count != 100 {
		t.Errorf("GenerateTargeted(100) yielded %d records", count)
	}
}

func TestGenerator_TargetLetterOption(t *testing.T) {
	gen := New(5, WithTargetLetter("K"))
	seq := gen.GenerateTargeted(20)

	for {
		p, ok := seq.Next()
		if !ok {
			break
		}
		if !strings.HasPrefix(p.FullName, "K") {
			t.Errorf("full name %q does not start with K", p.FullName)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := New(1234).Generate(50)
	b := New(1234).Generate(50)

	for {
		pa, okA := a.Next()
		pb, okB := b.Next()
		if okA != okB {
			t.Fatal("sequences of equal seed diverged in length")
		}
		if !okA {
			break
		}
		if pa != pb {
			t.Fatalf("sequences of equal seed diverged: %+v vs %+v", pa, pb)
		}
	}
}

func TestSequence_NotRestartable(t *testing.T) {
	seq := New(3).Generate(2)
	seq.Next()
	seq.Next()
	if _, ok := seq.Next(); ok {
		t.Error("exhausted sequence yielded another record")
	}
	if seq.Remaining() != 0 {
		t.Errorf("Remaining() = %d after exhaustion", seq.Remaining())
	}
}
