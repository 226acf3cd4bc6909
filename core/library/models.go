package library

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Issue statuses
const (
	StatusIssued   = "Issued"
	StatusReturned = "Returned"
	StatusOverdue  = "Overdue"
)

type Book struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Author    string    `json:"author" bson:"author"`
	ISBN      string    `json:"isbn" bson:"isbn"`
	Category  string    `json:"category" bson:"category"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Available int       `json:"available" bson:"available"`
	Location  string    `json:"location" bson:"location"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

// Issued returns the number of copies currently lent.
func (b Book) Issued() int {
	return b.Quantity - b.Available
}

type Issue struct {
	ID         string     `json:"id" bson:"_id"`
	BookID     string     `json:"book_id" bson:"book_id"`
	BookTitle  string     `json:"book_title" bson:"book_title"`
	UserID     string     `json:"user_id" bson:"user_id"`
	UserName   string     `json:"user_name" bson:"user_name"`
	UserRole   string     `json:"user_role" bson:"user_role"`
	IssuedAt   time.Time  `json:"issued_at" bson:"issued_at"` // UTC
	DueDate    time.Time  `json:"due_date" bson:"due_date"`   // UTC
	ReturnedAt *time.Time `json:"returned_at" bson:"returned_at,omitempty"`
	Status     string     `json:"status" bson:"status"` // Issued | Returned; Overdue is computed
	Fine       float64    `json:"fine" bson:"fine"`
}

func (is Issue) Returned() bool {
	return is.ReturnedAt != nil
}

// SetOverdue flags an unreturned issue past its due date.
func (is *Issue) SetOverdue(now time.Time) {
	if !is.Returned() && now.After(is.DueDate) {
		is.Status = StatusOverdue
	}
}

// ComputeFine charges finePerDay for every started day past the due date.
func ComputeFine(due, returned time.Time, finePerDay float64) float64 {
	if !returned.After(due) {
		return 0
	}
	days := math.Ceil(returned.Sub(due).Hours() / 24)
	return core.RoundMoney(days * finePerDay)
}

// Settings are the lending rules of the library.
type Settings struct {
	FinePerDay      float64   `json:"fine_per_day" bson:"fine_per_day" validate:"gte=0"`
	IssuePeriodDays int       `json:"issue_period_days" bson:"issue_period_days" validate:"gte=1"`
	MaxBooksPerUser int       `json:"max_books_per_user" bson:"max_books_per_user" validate:"gte=1"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

func (s *Settings) Validate(validate *validator.Validate) error {
	s.FinePerDay = core.RoundMoney(s.FinePerDay)
	return validate.Struct(s)
}

type NewBook struct {
	Title    string `json:"title" validate:"required"`
	Author   string `json:"author" validate:"required"`
	ISBN     string `json:"isbn"`
	Category string `json:"category"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
	Location string `json:"location"`
}

func (nb *NewBook) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.Author = core.CleanString(nb.Author)
	nb.ISBN = core.CleanString(nb.ISBN)
	nb.Category = core.CleanString(nb.Category)
	nb.Location = core.CleanString(nb.Location)
	return validate.Struct(nb)
}

// UpdateBook holds the editable fields of a Book. Empty fields keep their current value.
type UpdateBook struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Category string `json:"category"`
	Quantity *int   `json:"quantity" validate:"omitempty,gte=1"`
	Location string `json:"location"`
}

func (ub *UpdateBook) Validate(validate *validator.Validate) error {
	ub.Title = core.CleanString(ub.Title)
	ub.Author = core.CleanString(ub.Author)
	ub.ISBN = core.CleanString(ub.ISBN)
	ub.Category = core.CleanString(ub.Category)
	ub.Location = core.CleanString(ub.Location)
	return validate.Struct(ub)
}

type NewIssue struct {
	BookID  string    `json:"book_id" validate:"required"`
	UserID  string    `json:"user_id" validate:"required"`
	DueDate time.Time `json:"due_date"` // defaults to now + Settings.IssuePeriodDays
}

func (ni *NewIssue) Validate(validate *validator.Validate) error {
	ni.BookID = core.CleanString(ni.BookID)
	ni.UserID = core.CleanString(ni.UserID)
	return validate.Struct(ni)
}

type BookFilter struct {
	Search    string `query:"search"`
	Category  string `query:"category"`
	Available *bool  `query:"available"`
}

func (bf *BookFilter) Clean() {
	bf.Search = core.CleanString(bf.Search)
	bf.Category = core.CleanString(bf.Category)
}

type IssueFilter struct {
	UserID   string    `query:"user_id"`
	BookID   string    `query:"book_id"`
	Returned *bool     `query:"returned"`
	Overdue  *bool     `query:"overdue"`
	Now      time.Time `query:"-"` // reference time of Overdue; set by the service
}

func (isf *IssueFilter) Clean() {
	isf.UserID = core.CleanString(isf.UserID)
	isf.BookID = core.CleanString(isf.BookID)
}

type Stats struct {
	Titles          int     `json:"titles"`
	TotalCopies     int     `json:"total_copies"`
	AvailableCopies int     `json:"available_copies"`
	Issued          int     `json:"issued"`
	Overdue         int     `json:"overdue"`
	TotalFines      float64 `json:"total_fines"`
}

var BookOrderingFields = map[string]string{
	"title":      "title",
	"author":     "author",
	"category":   "category",
	"available":  "available",
	"created_at": "created_at",
}

var IssueOrderingFields = map[string]string{
	"issued_at":  "issued_at",
	"due_date":   "due_date",
	"book_title": "book_title",
	"user_name":  "user_name",
}
