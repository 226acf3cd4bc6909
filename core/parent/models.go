package parent

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

type Parent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Relationship string    `json:"relationship"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type NewParent struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Relationship string `json:"relationship" validate:"omitempty,oneof=Father Mother Guardian Other"`
}

func (np *NewParent) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Phone = core.CleanString(np.Phone)
	np.Address = core.CleanString(np.Address)
	if np.Relationship == "" {
		np.Relationship = "Guardian"
	}
	return validate.Struct(np)
}

// UpdateParent holds the editable fields of a Parent. Empty fields keep their current value.
type UpdateParent struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Relationship string `json:"relationship" validate:"omitempty,oneof=Father Mother Guardian Other"`
}

func (up *UpdateParent) Validate(orig Parent, validate *validator.Validate) error {
	if up.Name = core.CleanString(up.Name); up.Name == "" {
		up.Name = orig.Name
	}
	if up.Phone = core.CleanString(up.Phone); up.Phone == "" {
		up.Phone = orig.Phone
	}
	if up.Address = core.CleanString(up.Address); up.Address == "" {
		up.Address = orig.Address
	}
	if up.Relationship == "" {
		up.Relationship = orig.Relationship
	}
	return validate.Struct(up)
}

type GetFilter struct {
	ID     string
	UserID string
	Email  string
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields maps the orderable json fields to their columns.
var OrderingFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
}
