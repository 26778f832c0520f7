package domain

import "strings"

// Filter selects employees of one gender whose full name starts with Prefix.
// The prefix match is case-sensitive; an empty Prefix matches every name.
type Filter struct {
	Gender Gender `json:"gender" yaml:"gender"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// DefaultFilter selects men whose surname starts with "F"
var DefaultFilter = Filter{Gender: GenderMale, Prefix: "F"}

// Match reports whether e satisfies the filter
func (f Filter) Match(e Employee) bool {
	return e.Gender == f.Gender && strings.HasPrefix(e.FullName, f.Prefix)
}

// Validate checks the filter's gender
func (f Filter) Validate() error {
	if !f.Gender.Valid() {
		return &ValidationError{Field: "gender", Value: string(f.Gender), Reason: "must be 'Male' or 'Female'"}
	}
	return nil
}

func (f Filter) String() string {
	return string(f.Gender) + ", name starts with '" + f.Prefix + "'"
}

// CompressedEmployee is a row of the compressed cache: the indexed identity
// and gender columns plus an opaque compressed payload.
type CompressedEmployee struct {
	Employee
	Payload []byte
}

// CompressedStats summarizes the compressed cache
type CompressedStats struct {
	Rows         int64
	PayloadBytes int64
}
