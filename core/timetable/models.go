package timetable

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Kinds
const (
	KindTeacher = "teacher"
	KindClass   = "class"
)

type Entry struct {
	Day         string `json:"day" validate:"required,weekday"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	EndTime     string `json:"end_time" validate:"required,hhmm"`
	Subject     string `json:"subject" validate:"required"`
	Room        string `json:"room"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	ClassName   string `json:"class_name"`
}

// Timetable is the weekly schedule of a teacher (OwnerKey = teacher ID) or a class (OwnerKey = class name).
type Timetable struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	OwnerKey  string    `json:"owner_key"`
	OwnerName string    `json:"owner_name"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type SaveTimetable struct {
	Kind     string  `json:"kind" validate:"required,oneof=teacher class"`
	OwnerKey string  `json:"owner_key" validate:"required"`
	Entries  []Entry `json:"entries" validate:"dive"`
}

func (st *SaveTimetable) Validate(validate *validator.Validate) error {
	st.Kind = core.CleanString(st.Kind, true /* lower */)
	st.OwnerKey = core.CleanString(st.OwnerKey)
	for i := range st.Entries {
		e := &st.Entries[i]
		e.Day = core.CleanString(e.Day)
		if idx := core.WeekdayIndex(e.Day); idx >= 0 {
			e.Day = core.Weekdays[idx]
		}
		e.StartTime = core.CleanString(e.StartTime)
		e.EndTime = core.CleanString(e.EndTime)
		e.Subject = core.CleanString(e.Subject)
		e.Room = core.CleanString(e.Room)
		e.TeacherID = core.CleanString(e.TeacherID)
		e.TeacherName = core.CleanString(e.TeacherName)
		e.ClassName = core.CleanString(e.ClassName)
	}
	if st.Entries == nil {
		st.Entries = []Entry{}
	}
	if err := validate.Struct(st); err != nil {
		return err
	}
	return CheckEntries(st.Entries)
}

// SortEntries orders `entries` by weekday, then start time.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := core.WeekdayIndex(entries[i].Day), core.WeekdayIndex(entries[j].Day)
		if di != dj {
			return di < dj
		}
		return entries[i].StartTime < entries[j].StartTime
	})
}

// CheckEntries sorts `entries` and makes sure every entry ends after it starts
// and that no two entries of the same day overlap.
func CheckEntries(entries []Entry) error {
	var flds []core.FieldError
	for i, e := range entries {
		if core.ClockMinutes(e.StartTime) >= core.ClockMinutes(e.EndTime) {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("entries[%d].end_time", i),
				Error: "end_time must be after start_time",
			})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	SortEntries(entries)
	for i := 1; i < len(entries); i++ {
		prev, curr := entries[i-1], entries[i]
		if prev.Day == curr.Day && core.ClockMinutes(curr.StartTime) < core.ClockMinutes(prev.EndTime) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "entries",
				Error: fmt.Sprintf("%s %s-%s overlaps %s-%s", curr.Day, curr.StartTime, curr.EndTime, prev.StartTime, prev.EndTime),
			})
		}
	}
	return nil
}

type GetFilter struct {
	ID       string
	Kind     string
	OwnerKey string
}

type QueryFilter struct {
	Kind      string   `query:"kind"`
	OwnerKeys []string `query:"owner_key"`
}

func (qf *QueryFilter) Clean() {
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.OwnerKeys = core.CleanStrings(qf.OwnerKeys)
}

// OrderingFields maps the orderable json fields to their columns.
var OrderingFields = map[string]string{
	"owner_key":  "owner_key",
	"owner_name": "owner_name",
	"updated_at": "updated_at",
}
