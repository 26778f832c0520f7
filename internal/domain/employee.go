package domain

import (
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used for birth dates
const DateLayout = "2006-01-02"

// Gender is one of the two genders accepted by storage
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// ParseGender normalizes s (trimmed, case-insensitive) to a Gender
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	}
	return "", &ValidationError{Field: "gender", Value: s, Reason: "must be 'Male' or 'Female'"}
}

// Valid returns true for GenderMale and GenderFemale
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

func (g Gender) String() string {
	return string(g)
}

// Employee is a validated employee record.
//
// The identity key is (FullName, BirthDate). BirthDate carries no time of day
// and is always in UTC.
type Employee struct {
	FullName  string    `json:"full_name"`
	BirthDate time.Time `json:"birth_date"`
	Gender    Gender    `json:"gender"`
}

// Row is the canonical storage encoding of an Employee
type Row struct {
	FullName  string
	BirthDate string
	Gender    string
}

// Key is the identity key of an Employee
type Key struct {
	FullName  string
	BirthDate string
}

// NewEmployee builds an Employee, trimming the name and truncating the birth
// date to a calendar day.
func NewEmployee(fullName string, birthDate time.Time, gender Gender) (Employee, error) {
	name := strings.TrimSpace(fullName)
	if name == "" {
		return Employee{}, &ValidationError{Field: "full_name", Value: fullName, Reason: "must not be blank"}
	}

	g, err := ParseGender(string(gender))
	if err != nil {
		return Employee{}, err
	}

	y, m, d := birthDate.Date()
	return Employee{
		FullName:  name,
		BirthDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Gender:    g,
	}, nil
}

// ParseEmployee builds an Employee from raw strings. birthDate must be in
// YYYY-MM-DD form.
func ParseEmployee(fullName, birthDate, gender string) (Employee, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(birthDate))
	if err != nil {
		return Employee{}, &ValidationError{Field: "birth_date", Value: birthDate, Reason: "expected YYYY-MM-DD"}
	}

	g, err := ParseGender(gender)
	if err != nil {
		return Employee{}, err
	}

	return NewEmployee(fullName, parsed, g)
}

// Row returns the canonical (full_name, birth_date, gender) encoding
func (e Employee) Row() Row {
	return Row{
		FullName:  e.FullName,
		BirthDate: e.BirthDateString(),
		Gender:    string(e.Gender),
	}
}

// Key returns the identity key
func (e Employee) Key() Key {
	return Key{FullName: e.FullName, BirthDate: e.BirthDateString()}
}

// BirthDateString returns the birth date in YYYY-MM-DD form
func (e Employee) BirthDateString() string {
	return e.BirthDate.Format(DateLayout)
}

// Age returns whole years between the birth date and ref, counting the
// current year only once the birthday has occurred.
func (e Employee) Age(ref time.Time) int {
	ry, rm, rd := ref.Date()
	by, bm, bd := e.BirthDate.Date()

	years := ry - by
	if rm < bm || (rm == bm && rd < bd) {
		years--
	}
	return years
}
