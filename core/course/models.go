package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Submission statuses
const (
	SubmissionSubmitted = "Submitted"
	SubmissionLate      = "Late"
	SubmissionGraded    = "Graded"
)

type Course struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	Class            string    `json:"class"`
	Description      string    `json:"description"`
	TeacherID        string    `json:"teacher_id"`
	TeacherName      string    `json:"teacher_name"`
	Active           bool      `json:"active"`
	EnrolledStudents []string  `json:"enrolled_students"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// Detail is a course with its assignments and materials.
type Detail struct {
	Course
	Assignments []Assignment `json:"assignments"`
	Materials   []Material   `json:"materials"`
}

type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"` // UTC
	MaxMarks    float64   `json:"max_marks"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Material struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Type        string    `json:"type"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"` // UTC
}

// Submission is the work of a student for an assignment. There is at most one Submission per (AssignmentID, StudentID).
type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	CourseID     string    `json:"course_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	Link         string    `json:"link"`
	SubmittedAt  time.Time `json:"submitted_at"` // UTC
	Status       string    `json:"status"`
	Marks        *float64  `json:"marks"`
	Feedback     string    `json:"feedback"`
}

type NewCourse struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,max=32"`
	Class       string `json:"class" validate:"required"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id"`
	Active      *bool  `json:"active"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	nc.Class = core.CleanString(nc.Class)
	nc.Description = core.CleanString(nc.Description)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return validate.Struct(nc)
}

// UpdateCourse holds the editable fields of a Course. Empty fields keep their current value.
type UpdateCourse struct {
	Name        string `json:"name"`
	Code        string `json:"code" validate:"max=32"`
	Class       string `json:"class"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id"`
	Active      *bool  `json:"active"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	keep := func(val *string, origVal string) {
		if *val = core.CleanString(*val); *val == "" {
			*val = origVal
		}
	}
	keep(&uc.Name, orig.Name)
	keep(&uc.Code, orig.Code)
	keep(&uc.Class, orig.Class)
	keep(&uc.Description, orig.Description)
	keep(&uc.TeacherID, orig.TeacherID)
	if uc.Active == nil {
		active := orig.Active
		uc.Active = &active
	}
	return validate.Struct(uc)
}

type Enroll struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
}

func (e *Enroll) Validate(validate *validator.Validate) error {
	e.StudentIDs = core.CleanStrings(e.StudentIDs)
	return validate.Struct(e)
}

type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxMarks    float64   `json:"max_marks" validate:"required,gt=0"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.DueDate = na.DueDate.UTC()
	return validate.Struct(na)
}

// UpdateAssignment holds the editable fields of an Assignment. Empty fields keep their current value.
type UpdateAssignment struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	MaxMarks    float64   `json:"max_marks" validate:"gte=0"`
}

func (ua *UpdateAssignment) Validate(orig Assignment, validate *validator.Validate) error {
	if ua.Title = core.CleanString(ua.Title); ua.Title == "" {
		ua.Title = orig.Title
	}
	if ua.Description = core.CleanString(ua.Description); ua.Description == "" {
		ua.Description = orig.Description
	}
	if ua.DueDate.IsZero() {
		ua.DueDate = orig.DueDate
	}
	ua.DueDate = ua.DueDate.UTC()
	if ua.MaxMarks == 0 {
		ua.MaxMarks = orig.MaxMarks
	}
	return validate.Struct(ua)
}

type NewMaterial struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Link        string `json:"link" validate:"required,url"`
	Type        string `json:"type" validate:"omitempty,oneof=document video link slides other"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.Link = core.CleanString(nm.Link)
	if nm.Type = core.CleanString(nm.Type, true /* lower */); nm.Type == "" {
		nm.Type = "link"
	}
	return validate.Struct(nm)
}

type NewSubmission struct {
	Link string `json:"link" validate:"required,url"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Link = core.CleanString(ns.Link)
	return validate.Struct(ns)
}

type Grade struct {
	Marks    *float64 `json:"marks" validate:"required,gte=0"`
	Feedback string   `json:"feedback"`
}

func (g *Grade) Validate(validate *validator.Validate) error {
	g.Feedback = core.CleanString(g.Feedback)
	return validate.Struct(g)
}

type QueryFilter struct {
	TeacherID string   `query:"teacher_id"`
	Class     string   `query:"class"`
	Active    *bool    `query:"active"`
	Search    string   `query:"search"`
	Classes   []string `query:"-"` // restricts the result to these classes; set by the API
}

func (qf *QueryFilter) Clean() {
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.Class = core.CleanString(qf.Class)
	qf.Search = core.CleanString(qf.Search)
}

type SubmissionFilter struct {
	ID           string   `query:"-"`
	AssignmentID string   `query:"assignment_id"`
	CourseID     string   `query:"course_id"`
	StudentIDs   []string `query:"student_id"`
}

func (sf *SubmissionFilter) Clean() {
	sf.AssignmentID = core.CleanString(sf.AssignmentID)
	sf.CourseID = core.CleanString(sf.CourseID)
	sf.StudentIDs = core.CleanStrings(sf.StudentIDs)
}

// OrderingFields maps the orderable json fields to their columns.
var OrderingFields = map[string]string{
	"name":       "name",
	"code":       "code",
	"class":      "class",
	"created_at": "created_at",
}
