// Package report aggregates the data of the other domains into the admin reports.
package report

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/exam"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/teacher"
)

type (
	Filter struct {
		Class string `query:"class"`
		From  string `query:"from" validate:"omitempty,isodate"`
		To    string `query:"to" validate:"omitempty,isodate"`
	}

	Overview struct {
		TotalStudents     int       `json:"total_students"`
		TotalTeachers     int       `json:"total_teachers"`
		ActiveClasses     int       `json:"active_classes"`
		AverageAttendance float64   `json:"average_attendance"`
		TotalRevenue      float64   `json:"total_revenue"`
		PendingFees       float64   `json:"pending_fees"`
		PendingFeeList    []fee.Fee `json:"pending_fee_list"`
	}

	AcademicRow struct {
		StudentID   string  `json:"student_id"`
		StudentName string  `json:"student_name"`
		Class       string  `json:"class"`
		Average     float64 `json:"average"`
		Grade       string  `json:"grade"`
		Rank        int     `json:"rank"`
	}

	Academic struct {
		Students     []AcademicRow `json:"students"`
		AverageGrade string        `json:"average_grade"`
		PassRate     float64       `json:"pass_rate"`
	}

	Financial struct {
		TotalRevenue   float64   `json:"total_revenue"`
		PendingAmount  float64   `json:"pending_amount"`
		CollectionRate float64   `json:"collection_rate"`
		Stats          fee.Stats `json:"stats"`
		Fees           []fee.Fee `json:"fees"`
	}

	AttendanceRow struct {
		StudentID   string `json:"student_id"`
		StudentName string `json:"student_name"`
		Class       string `json:"class"`
		attendance.Stats
	}

	Attendance struct {
		Students          []AttendanceRow `json:"students"`
		AverageAttendance float64         `json:"average_attendance"`
		TotalDays         int             `json:"total_days"`
	}

	Service interface {
		Overview(ctx context.Context, filter Filter) (Overview, error)
		Academic(ctx context.Context, filter Filter) (Academic, error)
		Financial(ctx context.Context, filter Filter) (Financial, error)
		Attendance(ctx context.Context, filter Filter) (Attendance, error)
	}

	service struct {
		studentSvc    student.Service
		teacherSvc    teacher.Service
		attendanceSvc attendance.Service
		feeSvc        fee.Service
		examSvc       exam.Service
	}
)

var _ Service = (*service)(nil)

func NewService(
	studentSvc student.Service,
	teacherSvc teacher.Service,
	attendanceSvc attendance.Service,
	feeSvc fee.Service,
	examSvc exam.Service,
) Service {
	return &service{
		studentSvc:    studentSvc,
		teacherSvc:    teacherSvc,
		attendanceSvc: attendanceSvc,
		feeSvc:        feeSvc,
		examSvc:       examSvc,
	}
}

func (svc *service) Overview(ctx context.Context, filter Filter) (Overview, error) {
	students, err := svc.studentSvc.Query(ctx, &student.QueryFilter{Class: filter.Class}, nil)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying students")
	}
	tstats, err := svc.teacherSvc.Stats(ctx)
	if err != nil {
		return Overview{}, errors.Wrap(err, "computing teacher stats")
	}
	fees, err := svc.feeSvc.Query(ctx, &fee.QueryFilter{Class: filter.Class}, []core.DBOrdering{{Field: "due_date", Ascending: true}})
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying fees")
	}

	ov := Overview{TotalStudents: len(students), TotalTeachers: tstats.Active, PendingFeeList: []fee.Fee{}}
	classes := make(map[string]struct{})
	var attendanceSum float64
	for _, s := range students {
		if s.IsActive() {
			classes[s.Class] = struct{}{}
		}
		attendanceSum += s.Attendance
	}
	ov.ActiveClasses = len(classes)
	if len(students) > 0 {
		ov.AverageAttendance = core.Percent(attendanceSum, float64(len(students))*100)
	}

	for _, f := range fees {
		ov.TotalRevenue += f.PaidAmount
		if f.Status != fee.StatusPaid {
			ov.PendingFees += f.RemainingAmount
			ov.PendingFeeList = append(ov.PendingFeeList, f)
		}
	}
	ov.TotalRevenue = core.RoundMoney(ov.TotalRevenue)
	ov.PendingFees = core.RoundMoney(ov.PendingFees)
	return ov, nil
}

// Academic ranks the students by their average marks.
func (svc *service) Academic(ctx context.Context, filter Filter) (Academic, error) {
	results, err := svc.examSvc.ClassResults(ctx, filter.Class)
	if err != nil {
		return Academic{}, errors.Wrap(err, "computing results")
	}

	rep := Academic{Students: make([]AcademicRow, 0, len(results))}
	var sum float64
	var passed, graded int
	for _, fm := range results {
		if len(fm.Courses) == 0 {
			continue
		}
		graded++
		sum += fm.Average
		if fm.Passed {
			passed++
		}
		rep.Students = append(rep.Students, AcademicRow{
			StudentID:   fm.StudentID,
			StudentName: fm.StudentName,
			Class:       fm.Class,
			Average:     fm.Average,
			Grade:       fm.Grade,
		})
	}
	sort.SliceStable(rep.Students, func(i, j int) bool {
		return rep.Students[i].Average > rep.Students[j].Average
	})
	for i := range rep.Students {
		rep.Students[i].Rank = i + 1
		if i > 0 && rep.Students[i].Average == rep.Students[i-1].Average {
			rep.Students[i].Rank = rep.Students[i-1].Rank
		}
	}
	if graded > 0 {
		rep.AverageGrade = exam.Grade(sum / float64(graded))
	}
	rep.PassRate = core.Percent(float64(passed), float64(graded))
	return rep, nil
}

func (svc *service) Financial(ctx context.Context, filter Filter) (Financial, error) {
	fees, err := svc.feeSvc.Query(ctx, &fee.QueryFilter{Class: filter.Class}, []core.DBOrdering{{Field: "due_date", Ascending: true}})
	if err != nil {
		return Financial{}, errors.Wrap(err, "querying fees")
	}
	inRange := make([]fee.Fee, 0, len(fees))
	for _, f := range fees {
		if (filter.From == "" || f.DueDate >= filter.From) && (filter.To == "" || f.DueDate <= filter.To) {
			inRange = append(inRange, f)
		}
	}
	stats := fee.ComputeStats(inRange)
	return Financial{
		TotalRevenue:   stats.CollectedAmount,
		PendingAmount:  stats.PendingAmount,
		CollectionRate: stats.CollectionRate,
		Stats:          stats,
		Fees:           inRange,
	}, nil
}

func (svc *service) Attendance(ctx context.Context, filter Filter) (Attendance, error) {
	recs, err := svc.attendanceSvc.Query(ctx, &attendance.QueryFilter{Class: filter.Class, From: filter.From, To: filter.To}, nil)
	if err != nil {
		return Attendance{}, errors.Wrap(err, "querying attendance")
	}

	rep := Attendance{Students: []AttendanceRow{}}
	idx := make(map[string]int)
	days := make(map[string]struct{})
	for _, rec := range recs {
		days[rec.Date] = struct{}{}
		i, ok := idx[rec.StudentID]
		if !ok {
			rep.Students = append(rep.Students, AttendanceRow{StudentID: rec.StudentID, StudentName: rec.StudentName, Class: rec.Class})
			i = len(rep.Students) - 1
			idx[rec.StudentID] = i
		}
		rep.Students[i].Add(rec.Status)
	}
	rep.TotalDays = len(days)

	sort.SliceStable(rep.Students, func(i, j int) bool {
		return rep.Students[i].StudentName < rep.Students[j].StudentName
	})
	var sum float64
	for _, row := range rep.Students {
		sum += row.Percentage
	}
	if len(rep.Students) > 0 {
		rep.AverageAttendance = core.Percent(sum, float64(len(rep.Students))*100)
	}
	return rep, nil
}
