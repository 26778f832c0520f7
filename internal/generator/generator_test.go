package generator

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employeedb/internal/domain"
)

func TestStreamDistribution(t *testing.T) {
	employees := slices.Collect(New(42).Stream(520))
	require.Len(t, employees, 520)

	for i, e := range employees {
		initial := string(rune('A' + i%26))
		require.True(t, strings.HasPrefix(e.FullName, initial), "employee %d: %q should start with %s", i, e.FullName, initial)
		require.Len(t, strings.Fields(e.FullName), 3)
		if initial == "F" {
			assert.Equal(t, domain.GenderMale, e.Gender, "F surnames are always male")
		}
		assert.False(t, e.BirthDate.Before(minBirth))
		assert.False(t, e.BirthDate.After(maxBirth))

		// Round-trip through validation to prove the record is storable.
		_, err := domain.ParseEmployee(e.FullName, e.BirthDateString(), string(e.Gender))
		require.NoError(t, err)
	}
}

func TestFemaleMiddleNames(t *testing.T) {
	e := New(7).Generate(domain.GenderFemale, 'b', 3)
	assert.True(t, strings.HasPrefix(e.FullName, "Bawson "), e.FullName)
	assert.True(t, strings.HasSuffix(e.FullName, "a"), e.FullName)
	assert.Equal(t, domain.GenderFemale, e.Gender)
}

func TestMaleSurnameF(t *testing.T) {
	employees := slices.Collect(New(1).MaleSurnameF(50))
	require.Len(t, employees, 50)
	for _, e := range employees {
		assert.True(t, domain.DefaultFilter.Match(e), e.FullName)
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	a := slices.Collect(New(99).Stream(30))
	b := slices.Collect(New(99).Stream(30))
	assert.Equal(t, a, b)
}

func TestStreamStopsEarly(t *testing.T) {
	var n int
	for range New(3).Stream(1000) {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}
