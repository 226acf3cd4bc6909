package attendance

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Statuses
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
	StatusLate    = "Late"
	StatusExcused = "Excused"
)

var (
	Statuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

	statusTag  = "attstatus"
	statusText = "{0} must be one of Present, Absent, Late or Excused"
)

// InitValidators registers the attendance validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return core.ContainsString(Statuses, fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

// Record is the attendance of a student on a given day. There is at most one Record per (Date, StudentID).
type Record struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"` // YYYY-MM-DD
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Class       string    `json:"class"`
	Status      string    `json:"status"`
	Remarks     string    `json:"remarks"`
	MarkedBy    string    `json:"marked_by"`
	MarkedAt    time.Time `json:"marked_at"` // UTC
}

// TeacherRecord is the attendance of a teacher on a given day. There is at most one TeacherRecord per (Date, TeacherID).
type TeacherRecord struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"` // YYYY-MM-DD
	TeacherID   string    `json:"teacher_id"`
	TeacherName string    `json:"teacher_name"`
	Status      string    `json:"status"`
	Remarks     string    `json:"remarks"`
	MarkedBy    string    `json:"marked_by"`
	MarkedAt    time.Time `json:"marked_at"` // UTC
}

type NewRecord struct {
	Date      string `json:"date" validate:"required,isodate"`
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,attstatus"`
	Remarks   string `json:"remarks"`
}

type BulkMark struct {
	Records []NewRecord `json:"records" validate:"required,min=1,dive"`
}

func (bm *BulkMark) Validate(validate *validator.Validate) error {
	for i := range bm.Records {
		bm.Records[i].Date = core.CleanString(bm.Records[i].Date)
		bm.Records[i].StudentID = core.CleanString(bm.Records[i].StudentID)
		bm.Records[i].Remarks = core.CleanString(bm.Records[i].Remarks)
	}
	return validate.Struct(bm)
}

type MarkAllPresent struct {
	Date  string `json:"date" validate:"required,isodate"`
	Class string `json:"class" validate:"required"`
}

func (mp *MarkAllPresent) Validate(validate *validator.Validate) error {
	mp.Date = core.CleanString(mp.Date)
	mp.Class = core.CleanString(mp.Class)
	return validate.Struct(mp)
}

type NewTeacherRecord struct {
	Date      string `json:"date" validate:"required,isodate"`
	TeacherID string `json:"teacher_id" validate:"required"`
	Status    string `json:"status" validate:"required,attstatus"`
	Remarks   string `json:"remarks"`
}

type BulkTeacherMark struct {
	Records []NewTeacherRecord `json:"records" validate:"required,min=1,dive"`
}

func (bm *BulkTeacherMark) Validate(validate *validator.Validate) error {
	for i := range bm.Records {
		bm.Records[i].Date = core.CleanString(bm.Records[i].Date)
		bm.Records[i].TeacherID = core.CleanString(bm.Records[i].TeacherID)
		bm.Records[i].Remarks = core.CleanString(bm.Records[i].Remarks)
	}
	return validate.Struct(bm)
}

type QueryFilter struct {
	Date       string   `query:"date"`
	From       string   `query:"from"`
	To         string   `query:"to"`
	Class      string   `query:"class"`
	StudentIDs []string `query:"student_id"`
	Status     string   `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Date = core.CleanString(qf.Date)
	qf.From = core.CleanString(qf.From)
	qf.To = core.CleanString(qf.To)
	qf.Class = core.CleanString(qf.Class)
	qf.StudentIDs = core.CleanStrings(qf.StudentIDs)
	qf.Status = core.CleanString(qf.Status)
}

type TeacherQueryFilter struct {
	Date       string   `query:"date"`
	From       string   `query:"from"`
	To         string   `query:"to"`
	TeacherIDs []string `query:"teacher_id"`
	Status     string   `query:"status"`
}

func (qf *TeacherQueryFilter) Clean() {
	qf.Date = core.CleanString(qf.Date)
	qf.From = core.CleanString(qf.From)
	qf.To = core.CleanString(qf.To)
	qf.TeacherIDs = core.CleanStrings(qf.TeacherIDs)
	qf.Status = core.CleanString(qf.Status)
}

// Stats counts records by status.
// Percentage = (Present + Late) / (Total - Excused); 0 when there is no counted day.
type Stats struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Excused    int     `json:"excused"`
	Percentage float64 `json:"percentage"`
}

func (s *Stats) Add(status string) {
	s.Total++
	switch status {
	case StatusPresent:
		s.Present++
	case StatusAbsent:
		s.Absent++
	case StatusLate:
		s.Late++
	case StatusExcused:
		s.Excused++
	}
	s.Percentage = core.Percent(float64(s.Present+s.Late), float64(s.Total-s.Excused))
}

type Summary struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Class       string `json:"class"`
	Stats
	Records []Record `json:"records"`
}

// OrderingFields maps the orderable json fields to their columns.
var OrderingFields = map[string]string{
	"date":         "date",
	"student_name": "student_name",
	"class":        "class",
	"status":       "status",
	"marked_at":    "marked_at",
}

var TeacherOrderingFields = map[string]string{
	"date":         "date",
	"teacher_name": "teacher_name",
	"status":       "status",
	"marked_at":    "marked_at",
}
