// Package types provides core data types for the Census directory engine.
package types

import (
	"fmt"
	"time"

	cenerrors "github.com/censusdb/census/internal/errors"
)

// Gender is the recorded gender of a person. Only two values are persisted.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Valid reports whether the gender is one of the persisted enum values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// ParseGender converts a user-supplied string into a Gender.
func ParseGender(s string) (Gender, error) {
	g := Gender(s)
	if !g.Valid() {
		return "", cenerrors.NewValidationError(cenerrors.CodeInvalidGender,
			fmt.Sprintf("invalid gender %q (must be Male or Female)", s))
	}
	return g, nil
}

// BirthDateLayout is the ISO-8601 calendar date layout used for birth dates.
const BirthDateLayout = "2006-01-02"

// Person represents a single directory record.
// The store assigns a surrogate key on insert; the record itself carries none.
type Person struct {
	// FullName follows the "Last First Middle" convention
	FullName string `json:"full_name"`

	// BirthDate is an ISO-8601 calendar date (YYYY-MM-DD)
	BirthDate string `json:"birth_date"`

	// Gender is Male or Female
	Gender Gender `json:"gender"`
}

// StoredPerson is a Person together with its store-assigned surrogate key.
type StoredPerson struct {
	ID int64 `json:"id"`
	Person
}

// ParseBirthDate parses the record's birth date, returning a validation
// error when the string is not a valid ISO-8601 calendar date.
func (p Person) ParseBirthDate() (time.Time, error) {
	t, err := time.Parse(BirthDateLayout, p.BirthDate)
	if err != nil {
		return time.Time{}, cenerrors.Wrap(cenerrors.ErrCategoryValidation,
			cenerrors.CodeInvalidBirthDate,
			fmt.Sprintf("malformed birth date %q", p.BirthDate), err)
	}
	return t, nil
}

// Age computes the person's age in whole years as of today.
// Generated birth days never exceed 28, so comparing (month, day) pairs is
// exact and no leap-year handling is needed.
func (p Person) Age(today time.Time) (int, error) {
	birth, err := p.ParseBirthDate()
	if err != nil {
		return 0, err
	}

	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() ||
		(today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age, nil
}

// Validate checks the record's structural invariants before persistence.
func (p Person) Validate() error {
	if p.FullName == "" {
		return cenerrors.NewValidationError(cenerrors.CodeEmptyName, "full_name must not be empty")
	}
	if !p.Gender.Valid() {
		return cenerrors.NewValidationError(cenerrors.CodeInvalidGender,
			fmt.Sprintf("invalid gender %q", p.Gender))
	}
	if _, err := p.ParseBirthDate(); err != nil {
		return err
	}
	return nil
}
