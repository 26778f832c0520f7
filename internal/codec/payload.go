package codec

import (
	"time"

	"employeedb/internal/domain"
)

// Payload is the self-describing record stored compressed in the cache
type Payload struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
}

// NewPayload captures e together with its age as of ref
func NewPayload(e domain.Employee, ref time.Time) Payload {
	row := e.Row()
	return Payload{
		FullName:  row.FullName,
		BirthDate: row.BirthDate,
		Gender:    row.Gender,
		Age:       e.Age(ref),
	}
}

// Employee validates the payload back into a domain.Employee
func (p Payload) Employee() (domain.Employee, error) {
	return domain.ParseEmployee(p.FullName, p.BirthDate, p.Gender)
}
