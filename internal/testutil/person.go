package testutil

import (
	"time"

	"github.com/roach88/repoquery/internal/schema"
)

// Money is the embedded salary structure of Person.
type Money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Person is the example entity used across package tests.
type Person struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Age      int       `json:"age"`
	Active   bool      `json:"active"`
	Birthday time.Time `json:"birthday"`
	Salary   Money     `json:"salary"`
	Tags     []string  `json:"tags,omitempty"`
}

// PersonEntity returns the schema of Person. The collection is "Person".
func PersonEntity() *schema.Entity {
	return schema.MustEntity("Person", "", "id",
		schema.Field{Name: "id", Type: schema.TypeString},
		schema.Field{Name: "name", Type: schema.TypeString},
		schema.Field{Name: "age", Type: schema.TypeInt},
		schema.Field{Name: "active", Type: schema.TypeBool},
		schema.Field{Name: "birthday", Type: schema.TypeTime},
		schema.Field{Name: "salary", Type: schema.TypeObject, Fields: []schema.Field{
			{Name: "value", Type: schema.TypeDecimal},
			{Name: "currency", Type: schema.TypeString},
		}},
		schema.Field{Name: "tags", Type: schema.TypeString, List: true},
	)
}

// People returns five persons with distinct names and ages and no ids.
// Stores assign ids on save.
func People() []Person {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return []Person{
		{Name: "Ada", Age: 36, Active: true, Birthday: day(1815, time.December, 10), Salary: Money{Value: 5000, Currency: "GBP"}, Tags: []string{"math"}},
		{Name: "Grace", Age: 85, Active: false, Birthday: day(1906, time.December, 9), Salary: Money{Value: 7000, Currency: "USD"}, Tags: []string{"navy", "cobol"}},
		{Name: "Alan", Age: 41, Active: true, Birthday: day(1912, time.June, 23), Salary: Money{Value: 4500, Currency: "GBP"}},
		{Name: "Barbara", Age: 12, Active: true, Birthday: day(1939, time.November, 7), Salary: Money{Value: 6500, Currency: "USD"}, Tags: []string{"clu"}},
		{Name: "Edsger", Age: 15, Active: false, Birthday: day(1930, time.May, 11), Salary: Money{Value: 6000, Currency: "EUR"}},
	}
}
