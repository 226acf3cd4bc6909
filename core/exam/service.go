package exam

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrScheduleNotFound = core.NewNotFoundError("exam schedule")

	errNotCourseTeacher = core.NewForbiddenError("only the course teacher or an admin can enter marks")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, s Schedule, exec ...core.DBExecutor) (Schedule, error)
		GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (Schedule, error)
		QuerySchedules(ctx context.Context, filter *ScheduleFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Schedule, error)
		DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error

		// UpsertMarks saves `marks`, replacing the marks already saved for the same (CourseID, StudentID).
		UpsertMarks(ctx context.Context, marks []Marks, exec ...core.DBExecutor) ([]Marks, error)
		QueryMarks(ctx context.Context, filter *MarksFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Marks, error)
	}

	Service interface {
		CreateSchedule(ctx context.Context, ns NewSchedule) (Schedule, error)
		QuerySchedules(ctx context.Context, filter *ScheduleFilter, ordering []core.DBOrdering) ([]Schedule, error)
		DeleteSchedule(ctx context.Context, id string) error

		EnterMarks(ctx context.Context, bm BulkMarks, by user.User) ([]Marks, error)
		QueryMarks(ctx context.Context, filter *MarksFilter, ordering []core.DBOrdering) ([]Marks, error)
		FinalMarks(ctx context.Context, s student.Student) (FinalMarks, error)
		// ClassResults computes the final marks of every student having marks, in `class` (every class when empty).
		ClassResults(ctx context.Context, class string) ([]FinalMarks, error)
	}

	service struct {
		repo        Repository
		courseSvc   course.Service
		studentRepo student.Repository
		tx          core.TxRunner
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, studentRepo student.Repository, tx core.TxRunner) Service {
	return &service{
		repo:        repo,
		courseSvc:   courseSvc,
		studentRepo: studentRepo,
		tx:          tx,
	}
}

func (svc *service) CreateSchedule(ctx context.Context, ns NewSchedule) (Schedule, error) {
	return svc.repo.CreateSchedule(ctx, Schedule{
		ID:         core.NewID(),
		CourseName: ns.CourseName,
		Class:      ns.Class,
		ExamName:   ns.ExamName,
		ExamDate:   ns.ExamDate,
		StartTime:  ns.StartTime,
		EndTime:    ns.EndTime,
		Venue:      ns.Venue,
		CreatedAt:  core.NowFunc().UTC(),
	})
}

func (svc *service) QuerySchedules(ctx context.Context, filter *ScheduleFilter, ordering []core.DBOrdering) ([]Schedule, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "exam_date", Ascending: true}}
	}
	return svc.repo.QuerySchedules(ctx, filter, core.FilterOrdering(ordering, ScheduleOrderingFields))
}

func (svc *service) DeleteSchedule(ctx context.Context, id string) error {
	s, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	return svc.repo.DeleteSchedule(ctx, s.ID)
}

// EnterMarks saves the marks of a course. Scores left empty keep their previous value.
func (svc *service) EnterMarks(ctx context.Context, bm BulkMarks, by user.User) ([]Marks, error) {
	c, err := svc.courseSvc.GetByID(ctx, bm.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course not found"})
		}
		return nil, err
	}
	ok, err := svc.courseSvc.CanManage(ctx, c, by)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotCourseTeacher
	}

	ids := make([]string, 0, len(bm.Marks))
	for _, nm := range bm.Marks {
		ids = append(ids, nm.StudentID)
	}
	students, err := svc.studentRepo.QueryStudents(ctx, &student.QueryFilter{StudentIDs: ids}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	byID := make(map[string]student.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	var saved []Marks
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		prev, err := svc.repo.QueryMarks(ctx, &MarksFilter{CourseID: c.ID, StudentIDs: ids}, nil, exec)
		if err != nil {
			return err
		}
		prevByStudent := make(map[string]Marks, len(prev))
		for _, m := range prev {
			prevByStudent[m.StudentID] = m
		}

		now := core.NowFunc().UTC()
		marks := make([]Marks, 0, len(bm.Marks))
		for i, nm := range bm.Marks {
			s, ok := byID[nm.StudentID]
			if !ok {
				return core.NewValidationError(nil, core.FieldError{
					Field: fmt.Sprintf("marks[%d].student_id", i),
					Error: "student not found",
				})
			}
			m, ok := prevByStudent[s.ID]
			if !ok {
				m = Marks{ID: core.NewID(), CourseID: c.ID, StudentID: s.ID}
			}
			m.CourseName = c.Name
			m.StudentName = s.Name
			m.Class = s.Class
			if nm.Exam1 != nil {
				m.Exam1 = nm.Exam1
			}
			if nm.Exam2 != nil {
				m.Exam2 = nm.Exam2
			}
			if nm.Exam3 != nil {
				m.Exam3 = nm.Exam3
			}
			m.EnteredBy = by.ID
			m.EnteredAt = now
			marks = append(marks, m)
		}
		saved, err = svc.repo.UpsertMarks(ctx, marks, exec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (svc *service) QueryMarks(ctx context.Context, filter *MarksFilter, ordering []core.DBOrdering) ([]Marks, error) {
	return svc.repo.QueryMarks(ctx, filter, core.FilterOrdering(ordering, MarksOrderingFields))
}

func (svc *service) FinalMarks(ctx context.Context, s student.Student) (FinalMarks, error) {
	marks, err := svc.repo.QueryMarks(ctx, &MarksFilter{StudentIDs: []string{s.ID}}, []core.DBOrdering{{Field: "course_name", Ascending: true}})
	if err != nil {
		return FinalMarks{}, err
	}
	fm := ComputeFinalMarks(marks)
	fm.StudentID, fm.StudentName, fm.Class = s.ID, s.Name, s.Class
	return fm, nil
}

func (svc *service) ClassResults(ctx context.Context, class string) ([]FinalMarks, error) {
	marks, err := svc.repo.QueryMarks(ctx, &MarksFilter{Class: class}, []core.DBOrdering{{Field: "course_name", Ascending: true}})
	if err != nil {
		return nil, err
	}
	byStudent := make(map[string][]Marks)
	for _, m := range marks {
		byStudent[m.StudentID] = append(byStudent[m.StudentID], m)
	}
	results := make([]FinalMarks, 0, len(byStudent))
	for _, sm := range byStudent {
		results = append(results, ComputeFinalMarks(sm))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Average != results[j].Average {
			return results[i].Average > results[j].Average
		}
		return results[i].StudentName < results[j].StudentName
	})
	return results, nil
}
