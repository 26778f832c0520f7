// Package generator produces synthetic employees for bulk-load benchmarks.
//
// Names are assembled as "<Surname> <First> <Middle>". Surnames cycle
// through initials A–Z, and every employee whose surname starts with F is
// male, which keeps the benchmark filter's selectivity predictable.
package generator

import (
	"iter"
	"math/rand/v2"
	"time"

	"employeedb/internal/domain"
)

var (
	maleFirstNames = []string{
		"Alexander", "Benjamin", "Charles", "Daniel", "Edward", "Fig", "George",
		"Henry", "Isaac", "James", "Kevin", "Leonard", "Michael", "Nicholas",
		"Oliver", "Patrick", "Quentin", "Richard", "Samuel", "Thomas", "Ulysses",
		"Victor", "William", "Xavier", "Yannick", "Zachary",
	}
	femaleFirstNames = []string{
		"Abigail", "Bianca", "Charlotte", "Diana", "Eleanor", "Fiona", "Gabriella",
		"Hannah", "Isabella", "Julia", "Katherine", "Lillian", "Madeline", "Natalie",
		"Olivia", "Penelope", "Queenie", "Rebecca", "Sophia", "Tabitha", "Uma",
		"Victoria", "Wendy", "Ximena", "Yvette", "Zoey",
	}
	middleNames = []string{
		"Alexandrovich", "Borisovich", "Carlson", "Dmitrievich", "Evans",
		"Fedorovich", "Gregory", "Howard", "Ivanovich", "Jackson",
		"Konstantinovich", "Ludovic", "Mikhailovich", "Nathaniel", "Olivier",
		"Petrovich", "Quincy", "Robertson", "Sergeevich", "Timothy", "Ulyanov",
		"Vladimirovich", "Wilkinson", "Xavier", "Yakovlevich", "Zaharovich",
	}
	surnameSuffixes = []string{
		"anderson", "bennett", "clarkson", "dawson", "ellington", "foster",
		"garrison", "hawkins", "iverson", "johnson", "kellington", "lancaster",
		"morrison", "norrington", "oakwood", "parkinson", "quinton", "robertson",
		"sanderson", "tremont", "upton", "vanderbilt", "wellington", "xander",
		"york", "zellington",
	}
)

var (
	minBirth = time.Date(1960, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxBirth = time.Date(2010, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// specialIndexOffset keeps MaleSurnameF suffixes independent of Stream's
const specialIndexOffset = 1_000_000

// Generator produces employees from a seeded source. It is not safe for
// concurrent use.
type Generator struct {
	rng *rand.Rand
}

// New creates a Generator. A zero seed selects a time-based seed.
func New(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate builds one employee with the given gender and surname initial.
// index selects the surname suffix.
func (g *Generator) Generate(gender domain.Gender, initial byte, index int) domain.Employee {
	names := maleFirstNames
	middle := middleNames[g.rng.IntN(len(middleNames))]
	if gender == domain.GenderFemale {
		names = femaleFirstNames
		middle += "a"
	}
	first := names[g.rng.IntN(len(names))]

	suffix := surnameSuffixes[index%len(surnameSuffixes)]
	surname := string(upper(initial)) + suffix[1:]

	return domain.Employee{
		FullName:  surname + " " + first + " " + middle,
		BirthDate: g.birthDate(),
		Gender:    gender,
	}
}

// Stream yields total employees. Surname initials cycle A–Z; initial F is
// always male, other initials alternate male and female.
func (g *Generator) Stream(total int) iter.Seq[domain.Employee] {
	return func(yield func(domain.Employee) bool) {
		for i := 0; i < total; i++ {
			initial := byte('A' + i%26)
			gender := domain.GenderFemale
			if initial == 'F' || i%2 == 0 {
				gender = domain.GenderMale
			}
			if !yield(g.Generate(gender, initial, i)) {
				return
			}
		}
	}
}

// MaleSurnameF yields count male employees whose surname starts with F
func (g *Generator) MaleSurnameF(count int) iter.Seq[domain.Employee] {
	return func(yield func(domain.Employee) bool) {
		for i := 0; i < count; i++ {
			if !yield(g.Generate(domain.GenderMale, 'F', i+specialIndexOffset)) {
				return
			}
		}
	}
}

func (g *Generator) birthDate() time.Time {
	days := int(maxBirth.Sub(minBirth).Hours() / 24)
	return minBirth.AddDate(0, 0, g.rng.IntN(days+1))
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
