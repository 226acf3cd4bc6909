package exam

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// PassMark is the lowest passing average.
const PassMark = 40

type Schedule struct {
	ID         string    `json:"id"`
	CourseName string    `json:"course_name"`
	Class      string    `json:"class"`
	ExamName   string    `json:"exam_name"`
	ExamDate   string    `json:"exam_date"`  // YYYY-MM-DD
	StartTime  string    `json:"start_time"` // HH:MM
	EndTime    string    `json:"end_time"`   // HH:MM
	Venue      string    `json:"venue"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// Marks holds the three exam scores of a student for a course. There is at most one Marks per (CourseID, StudentID).
type Marks struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	CourseName  string    `json:"course_name"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Class       string    `json:"class"`
	Exam1       *float64  `json:"exam1"`
	Exam2       *float64  `json:"exam2"`
	Exam3       *float64  `json:"exam3"`
	EnteredBy   string    `json:"entered_by"`
	EnteredAt   time.Time `json:"entered_at"` // UTC
}

// Average is the mean of the entered exam scores; ok is false when none was entered.
func (m Marks) Average() (avg float64, ok bool) {
	var sum float64
	var n int
	for _, score := range []*float64{m.Exam1, m.Exam2, m.Exam3} {
		if score != nil {
			sum += *score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return round(sum / float64(n)), true
}

type NewSchedule struct {
	CourseName string `json:"course_name" validate:"required"`
	Class      string `json:"class" validate:"required"`
	ExamName   string `json:"exam_name" validate:"required"`
	ExamDate   string `json:"exam_date" validate:"required,isodate"`
	StartTime  string `json:"start_time" validate:"required,hhmm"`
	EndTime    string `json:"end_time" validate:"required,hhmm"`
	Venue      string `json:"venue"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.CourseName = core.CleanString(ns.CourseName)
	ns.Class = core.CleanString(ns.Class)
	ns.ExamName = core.CleanString(ns.ExamName)
	ns.ExamDate = core.CleanString(ns.ExamDate)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
	ns.Venue = core.CleanString(ns.Venue)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if core.ClockMinutes(ns.StartTime) >= core.ClockMinutes(ns.EndTime) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end_time must be after start_time"})
	}
	return nil
}

type NewMarks struct {
	StudentID string   `json:"student_id" validate:"required"`
	Exam1     *float64 `json:"exam1" validate:"omitempty,gte=0,lte=100"`
	Exam2     *float64 `json:"exam2" validate:"omitempty,gte=0,lte=100"`
	Exam3     *float64 `json:"exam3" validate:"omitempty,gte=0,lte=100"`
}

type BulkMarks struct {
	CourseID string     `json:"course_id" validate:"required"`
	Marks    []NewMarks `json:"marks" validate:"required,min=1,dive"`
}

func (bm *BulkMarks) Validate(validate *validator.Validate) error {
	bm.CourseID = core.CleanString(bm.CourseID)
	for i := range bm.Marks {
		bm.Marks[i].StudentID = core.CleanString(bm.Marks[i].StudentID)
	}
	return validate.Struct(bm)
}

type ScheduleFilter struct {
	Class string `query:"class"`
	From  string `query:"from"`
	To    string `query:"to"`
}

func (sf *ScheduleFilter) Clean() {
	sf.Class = core.CleanString(sf.Class)
	sf.From = core.CleanString(sf.From)
	sf.To = core.CleanString(sf.To)
}

type MarksFilter struct {
	CourseID   string   `query:"course_id"`
	Class      string   `query:"class"`
	StudentIDs []string `query:"student_id"`
}

func (mf *MarksFilter) Clean() {
	mf.CourseID = core.CleanString(mf.CourseID)
	mf.Class = core.CleanString(mf.Class)
	mf.StudentIDs = core.CleanStrings(mf.StudentIDs)
}

type CourseResult struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Average    float64 `json:"average"`
	Grade      string  `json:"grade"`
}

type FinalMarks struct {
	StudentID   string         `json:"student_id"`
	StudentName string         `json:"student_name"`
	Class       string         `json:"class"`
	Courses     []CourseResult `json:"courses"`
	Average     float64        `json:"average"`
	Grade       string         `json:"grade"`
	Passed      bool           `json:"passed"`
}

// ComputeFinalMarks aggregates the marks of one student.
func ComputeFinalMarks(marks []Marks) FinalMarks {
	fm := FinalMarks{Courses: []CourseResult{}}
	var sum float64
	for _, m := range marks {
		fm.StudentID, fm.StudentName, fm.Class = m.StudentID, m.StudentName, m.Class
		avg, ok := m.Average()
		if !ok {
			continue
		}
		sum += avg
		fm.Courses = append(fm.Courses, CourseResult{
			CourseID:   m.CourseID,
			CourseName: m.CourseName,
			Average:    avg,
			Grade:      Grade(avg),
		})
	}
	if len(fm.Courses) > 0 {
		fm.Average = round(sum / float64(len(fm.Courses)))
	}
	fm.Grade = Grade(fm.Average)
	fm.Passed = len(fm.Courses) > 0 && fm.Average >= PassMark
	return fm
}

var gradeThresholds = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C"},
	{40, "D"},
}

// Grade converts an average mark (0-100) to a letter grade.
func Grade(avg float64) string {
	for _, t := range gradeThresholds {
		if avg >= t.min {
			return t.grade
		}
	}
	return "F"
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

var ScheduleOrderingFields = map[string]string{
	"exam_date":   "exam_date",
	"class":       "class",
	"course_name": "course_name",
}

var MarksOrderingFields = map[string]string{
	"student_name": "student_name",
	"course_name":  "course_name",
	"entered_at":   "entered_at",
}
