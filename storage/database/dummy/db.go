// Package dummydb is the in-memory storage used by tests and by the `dummy` database engine.
package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/communication"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/exam"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/library"
	"github.com/trezcool/campus/core/parent"
	"github.com/trezcool/campus/core/settings"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/timetable"
	"github.com/trezcool/campus/core/user"
)

type (
	table[T any] struct {
		sync.RWMutex
		rows map[string]T
	}

	snapshotter interface {
		snapshot() (restore func())
		clear()
	}

	DB struct {
		txMu   sync.Mutex
		tables []snapshotter

		user              *table[user.User]
		student           *table[student.Student]
		parent            *table[parent.Parent]
		teacher           *table[teacher.Teacher]
		attendance        *table[attendance.Record]
		teacherAttendance *table[attendance.TeacherRecord]
		fee               *table[fee.Fee]
		timetable         *table[timetable.Timetable]
		course            *table[course.Course]
		assignment        *table[course.Assignment]
		material          *table[course.Material]
		submission        *table[course.Submission]
		examSchedule      *table[exam.Schedule]
		examMarks         *table[exam.Marks]
		announcement      *table[communication.Announcement]
		message           *table[communication.Message]
		notification      *table[communication.Notification]
		book              *table[library.Book]
		bookIssue         *table[library.Issue]
		librarySettings   *table[library.Settings]
		preferences       *table[settings.Preferences]
	}
)

func newTable[T any](db *DB) *table[T] {
	t := &table[T]{rows: make(map[string]T)}
	db.tables = append(db.tables, t)
	return t
}

// values returns the rows of the table; the caller holds the lock.
func (t *table[T]) values() []T {
	vals := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		vals = append(vals, v)
	}
	return vals
}

// filter returns the rows matching `keep`; the caller holds the lock.
func (t *table[T]) filter(keep func(row T) bool) []T {
	vals := make([]T, 0)
	for _, v := range t.rows {
		if keep(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

// find returns a row matching `match`; the caller holds the lock.
func (t *table[T]) find(match func(row T) bool) (T, bool) {
	for _, v := range t.rows {
		if match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (t *table[T]) snapshot() func() {
	t.RLock()
	rows := make(map[string]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	t.RUnlock()

	return func() {
		t.Lock()
		t.rows = rows
		t.Unlock()
	}
}

func Open() (*DB, error) {
	db := &DB{}
	db.user = newTable[user.User](db)
	db.student = newTable[student.Student](db)
	db.parent = newTable[parent.Parent](db)
	db.teacher = newTable[teacher.Teacher](db)
	db.attendance = newTable[attendance.Record](db)
	db.teacherAttendance = newTable[attendance.TeacherRecord](db)
	db.fee = newTable[fee.Fee](db)
	db.timetable = newTable[timetable.Timetable](db)
	db.course = newTable[course.Course](db)
	db.assignment = newTable[course.Assignment](db)
	db.material = newTable[course.Material](db)
	db.submission = newTable[course.Submission](db)
	db.examSchedule = newTable[exam.Schedule](db)
	db.examMarks = newTable[exam.Marks](db)
	db.announcement = newTable[communication.Announcement](db)
	db.message = newTable[communication.Message](db)
	db.notification = newTable[communication.Notification](db)
	db.book = newTable[library.Book](db)
	db.bookIssue = newTable[library.Issue](db)
	db.librarySettings = newTable[library.Settings](db)
	db.preferences = newTable[settings.Preferences](db)
	return db, nil
}

// Flush empties every table.
func (db *DB) Flush() {
	for _, t := range db.tables {
		t.clear()
	}
}

func (t *table[T]) clear() {
	t.Lock()
	t.rows = make(map[string]T)
	t.Unlock()
}

type txRunner struct {
	db *DB
}

var _ core.TxRunner = (*txRunner)(nil)

// NewTxRunner runs units of work one at a time; the tables are restored when a unit of work fails.
func NewTxRunner(db *DB) core.TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()

	restores := make([]func(), 0, len(r.db.tables))
	for _, t := range r.db.tables {
		restores = append(restores, t.snapshot())
	}
	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// Ordering

type comparator[T any] func(a, b T) int

// sortRows sorts `rows` by `ordering`, then by `deflt`.
func sortRows[T any](rows []T, ordering []core.DBOrdering, fields map[string]comparator[T], deflt comparator[T]) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(rows[i], rows[j]); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		if deflt != nil {
			return deflt(rows[i], rows[j]) < 0
		}
		return false
	})
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	return cmpFloat(float64(a), float64(b))
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// containsFold reports whether any of `fields` contains `search`, case-insensitively.
func containsFold(search string, fields ...string) bool {
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func inRange(date, from, to string) bool {
	return (from == "" || date >= from) && (to == "" || date <= to)
}
