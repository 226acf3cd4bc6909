package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Statuses
const (
	StatusActive    = "Active"
	StatusInactive  = "Inactive"
	StatusWarning   = "Warning"
	StatusGraduated = "Graduated"
)

type Student struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Class       string    `json:"class"`
	RollNumber  string    `json:"roll_number"`
	Gender      string    `json:"gender"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	DateOfBirth string    `json:"date_of_birth"`
	ParentID    string    `json:"parent_id"`
	ParentName  string    `json:"parent_name"`
	ParentEmail string    `json:"parent_email"`
	ParentPhone string    `json:"parent_phone"`
	Status      string    `json:"status"`
	Attendance  float64   `json:"attendance"` // percentage, computed
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (s Student) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusWarning
}

type NewStudent struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Class       string `json:"class" validate:"required"`
	RollNumber  string `json:"roll_number" validate:"required"`
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,isodate"`
	ParentName  string `json:"parent_name" validate:"required_with=ParentEmail"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone string `json:"parent_phone"`
	Status      string `json:"status" validate:"omitempty,oneof=Active Inactive Warning Graduated"`
}

func (ns *NewStudent) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Class = core.CleanString(ns.Class)
	ns.RollNumber = core.CleanString(ns.RollNumber)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Address = core.CleanString(ns.Address)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	if ns.Status == "" {
		ns.Status = StatusActive
	}
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckRollNumber(ctx, ns.Class, ns.RollNumber)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value.
type UpdateStudent struct {
	Name        string `json:"name"`
	Class       string `json:"class"`
	RollNumber  string `json:"roll_number"`
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,isodate"`
	ParentPhone string `json:"parent_phone"`
	Status      string `json:"status" validate:"omitempty,oneof=Active Inactive Warning Graduated"`
}

func (us *UpdateStudent) Validate(ctx context.Context, orig Student, validate *validator.Validate, svc Service) error {
	keep := func(val *string, origVal string) {
		if *val = core.CleanString(*val); *val == "" {
			*val = origVal
		}
	}
	keep(&us.Name, orig.Name)
	keep(&us.Class, orig.Class)
	keep(&us.RollNumber, orig.RollNumber)
	keep(&us.Gender, orig.Gender)
	keep(&us.Phone, orig.Phone)
	keep(&us.Address, orig.Address)
	keep(&us.DateOfBirth, orig.DateOfBirth)
	keep(&us.ParentPhone, orig.ParentPhone)
	keep(&us.Status, orig.Status)

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckRollNumber(ctx, us.Class, us.RollNumber, orig.ID)
}

type GetFilter struct {
	ID     string
	UserID string
}

type QueryFilter struct {
	Search     string   `query:"search"`
	Class      string   `query:"class"`
	Status     string   `query:"status"`
	ParentID   string   `query:"parent_id"`
	StudentIDs []string `query:"id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Class = core.CleanString(qf.Class)
	qf.Status = core.CleanString(qf.Status)
	qf.ParentID = core.CleanString(qf.ParentID)
	qf.StudentIDs = core.CleanStrings(qf.StudentIDs)
}

type Stats struct {
	Total         int     `json:"total"`
	Active        int     `json:"active"`
	Inactive      int     `json:"inactive"`
	Warning       int     `json:"warning"`
	Graduated     int     `json:"graduated"`
	AvgAttendance float64 `json:"avg_attendance"`
}

// OrderingFields maps the orderable json fields to their columns.
var OrderingFields = map[string]string{
	"name":        "name",
	"class":       "class",
	"roll_number": "roll_number",
	"status":      "status",
	"created_at":  "created_at",
}
