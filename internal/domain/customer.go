package domain

import "time"

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

type Customer struct {
	CustomerID  string    `json:"customer_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Gender      Gender    `json:"gender"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

// Unassigned reports whether the customer still carries the sentinel id.
func (c *Customer) Unassigned() bool {
	return c.CustomerID == UnassignedNumber || c.CustomerID == ""
}
