package teacher

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

type Teacher struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmployeeID    string    `json:"employee_id"`
	Department    string    `json:"department"`
	Subject       string    `json:"subject"`
	Qualification string    `json:"qualification"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	DateOfBirth   string    `json:"date_of_birth"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type NewTeacher struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	EmployeeID    string `json:"employee_id" validate:"omitempty,max=32"`
	Department    string `json:"department" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	Qualification string `json:"qualification"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	DateOfBirth   string `json:"date_of_birth" validate:"omitempty,isodate"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.EmployeeID = core.CleanString(nt.EmployeeID)
	nt.Department = core.CleanString(nt.Department)
	nt.Subject = core.CleanString(nt.Subject)
	nt.Qualification = core.CleanString(nt.Qualification)
	nt.Phone = core.CleanString(nt.Phone)
	nt.Address = core.CleanString(nt.Address)
	return validate.Struct(nt)
}

// UpdateTeacher holds the editable fields of a Teacher. Empty fields keep their current value.
type UpdateTeacher struct {
	Name          string `json:"name"`
	Department    string `json:"department"`
	Subject       string `json:"subject"`
	Qualification string `json:"qualification"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	DateOfBirth   string `json:"date_of_birth" validate:"omitempty,isodate"`
	IsActive      *bool  `json:"is_active"`
}

func (ut *UpdateTeacher) Validate(orig Teacher, validate *validator.Validate) error {
	keep := func(val *string, origVal string) {
		if *val = core.CleanString(*val); *val == "" {
			*val = origVal
		}
	}
	keep(&ut.Name, orig.Name)
	keep(&ut.Department, orig.Department)
	keep(&ut.Subject, orig.Subject)
	keep(&ut.Qualification, orig.Qualification)
	keep(&ut.Phone, orig.Phone)
	keep(&ut.Address, orig.Address)
	keep(&ut.DateOfBirth, orig.DateOfBirth)
	return validate.Struct(ut)
}

type GetFilter struct {
	ID         string
	UserID     string
	EmployeeID string
}

type QueryFilter struct {
	Search     string `query:"search"`
	Department string `query:"department"`
	Subject    string `query:"subject"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
	qf.Subject = core.CleanString(qf.Subject)
}

type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	Departments int `json:"departments"`
}

// OrderingFields maps the orderable json fields to their columns.
var OrderingFields = map[string]string{
	"name":        "name",
	"employee_id": "employee_id",
	"department":  "department",
	"subject":     "subject",
	"created_at":  "created_at",
}
