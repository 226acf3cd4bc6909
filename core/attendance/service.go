package attendance

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/user"
)

var ErrNotFound = core.NewNotFoundError("attendance record")

type (
	Repository interface {
		// UpsertRecords saves `recs`, replacing the records already saved for the same (Date, StudentID).
		UpsertRecords(ctx context.Context, recs []Record, exec ...core.DBExecutor) ([]Record, error)
		GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (Record, error)
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Record, error)
		DeleteRecord(ctx context.Context, id string, exec ...core.DBExecutor) error

		// UpsertTeacherRecords saves `recs`, replacing the records already saved for the same (Date, TeacherID).
		UpsertTeacherRecords(ctx context.Context, recs []TeacherRecord, exec ...core.DBExecutor) ([]TeacherRecord, error)
		QueryTeacherRecords(ctx context.Context, filter *TeacherQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]TeacherRecord, error)
	}

	Service interface {
		Mark(ctx context.Context, bm BulkMark, by user.User) ([]Record, error)
		MarkAllPresent(ctx context.Context, mp MarkAllPresent, by user.User) ([]Record, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		GetByID(ctx context.Context, id string) (Record, error)
		Delete(ctx context.Context, id string) error
		Stats(ctx context.Context, filter *QueryFilter) (Stats, error)
		StudentSummary(ctx context.Context, s student.Student, filter *QueryFilter) (Summary, error)
		Percentages(ctx context.Context, studentIDs ...string) (map[string]float64, error)

		MarkTeachers(ctx context.Context, bm BulkTeacherMark, by user.User) ([]TeacherRecord, error)
		QueryTeachers(ctx context.Context, filter *TeacherQueryFilter, ordering []core.DBOrdering) ([]TeacherRecord, error)
		TeacherStats(ctx context.Context, filter *TeacherQueryFilter) (Stats, error)
	}

	service struct {
		repo        Repository
		studentRepo student.Repository
		parentRepo  student.ParentFinder
		teacherRepo teacher.Repository
		tx          core.TxRunner
		broker      core.EventBroker
		logger      core.Logger
	}
)

var (
	_ Service                 = (*service)(nil)
	_ student.AttendanceRater = (*service)(nil)
)

func NewService(
	repo Repository,
	studentRepo student.Repository,
	parentRepo student.ParentFinder,
	teacherRepo teacher.Repository,
	tx core.TxRunner,
	broker core.EventBroker,
	logger core.Logger,
) Service {
	return &service{
		repo:        repo,
		studentRepo: studentRepo,
		parentRepo:  parentRepo,
		teacherRepo: teacherRepo,
		tx:          tx,
		broker:      broker,
		logger:      logger,
	}
}

func (svc *service) Mark(ctx context.Context, bm BulkMark, by user.User) ([]Record, error) {
	ids := make([]string, 0, len(bm.Records))
	for _, nr := range bm.Records {
		ids = append(ids, nr.StudentID)
	}
	students, err := svc.studentRepo.QueryStudents(ctx, &student.QueryFilter{StudentIDs: ids}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	byID := make(map[string]student.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	now := core.NowFunc().UTC()
	recs := make([]Record, 0, len(bm.Records))
	for i, nr := range bm.Records {
		s, ok := byID[nr.StudentID]
		if !ok {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("records[%d].student_id", i),
				Error: "student not found",
			})
		}
		recs = append(recs, Record{
			ID:          core.NewID(),
			Date:        nr.Date,
			StudentID:   s.ID,
			StudentName: s.Name,
			Class:       s.Class,
			Status:      nr.Status,
			Remarks:     nr.Remarks,
			MarkedBy:    by.ID,
			MarkedAt:    now,
		})
	}
	return svc.save(ctx, recs)
}

func (svc *service) save(ctx context.Context, recs []Record) ([]Record, error) {
	var saved []Record
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		saved, err = svc.repo.UpsertRecords(ctx, recs, exec)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "saving attendance")
	}

	studentIDs := make([]string, 0, len(saved))
	for _, rec := range saved {
		studentIDs = append(studentIDs, rec.StudentID)
	}
	audience := append([]string{user.RoleAdmin, user.RoleTeacher}, student.Audience(ctx, svc.studentRepo, svc.parentRepo, studentIDs...)...)
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicAttendance, core.ActionUpdated, "", saved, audience...))
	return saved, nil
}

// MarkAllPresent marks every active student of the class as Present on the given date.
func (svc *service) MarkAllPresent(ctx context.Context, mp MarkAllPresent, by user.User) ([]Record, error) {
	students, err := svc.studentRepo.QueryStudents(ctx, &student.QueryFilter{Class: mp.Class}, []core.DBOrdering{{Field: "roll_number", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	now := core.NowFunc().UTC()
	recs := make([]Record, 0, len(students))
	for _, s := range students {
		if !s.IsActive() {
			continue
		}
		recs = append(recs, Record{
			ID:          core.NewID(),
			Date:        mp.Date,
			StudentID:   s.ID,
			StudentName: s.Name,
			Class:       s.Class,
			Status:      StatusPresent,
			MarkedBy:    by.ID,
			MarkedAt:    now,
		})
	}
	if len(recs) == 0 {
		return []Record{}, nil
	}
	return svc.save(ctx, recs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
}

func (svc *service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteRecord(ctx, rec.ID); err != nil {
		return err
	}
	audience := append([]string{user.RoleAdmin, user.RoleTeacher}, student.Audience(ctx, svc.studentRepo, svc.parentRepo, rec.StudentID)...)
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicAttendance, core.ActionDeleted, rec.ID, rec, audience...))
	return nil
}

func (svc *service) Stats(ctx context.Context, filter *QueryFilter) (Stats, error) {
	recs, err := svc.repo.QueryRecords(ctx, filter, nil)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, rec := range recs {
		stats.Add(rec.Status)
	}
	return stats, nil
}

func (svc *service) StudentSummary(ctx context.Context, s student.Student, filter *QueryFilter) (Summary, error) {
	f := *filter
	f.StudentIDs = []string{s.ID}
	recs, err := svc.repo.QueryRecords(ctx, &f, []core.DBOrdering{{Field: "date", Ascending: false}})
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{StudentID: s.ID, StudentName: s.Name, Class: s.Class, Records: recs}
	for _, rec := range recs {
		summary.Add(rec.Status)
	}
	if summary.Records == nil {
		summary.Records = []Record{}
	}
	return summary, nil
}

func (svc *service) Percentages(ctx context.Context, studentIDs ...string) (map[string]float64, error) {
	rates := make(map[string]float64, len(studentIDs))
	if len(studentIDs) == 0 {
		return rates, nil
	}
	recs, err := svc.repo.QueryRecords(ctx, &QueryFilter{StudentIDs: studentIDs}, nil)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]*Stats, len(studentIDs))
	for _, rec := range recs {
		st, ok := stats[rec.StudentID]
		if !ok {
			st = new(Stats)
			stats[rec.StudentID] = st
		}
		st.Add(rec.Status)
	}
	for id, st := range stats {
		rates[id] = st.Percentage
	}
	return rates, nil
}

func (svc *service) MarkTeachers(ctx context.Context, bm BulkTeacherMark, by user.User) ([]TeacherRecord, error) {
	now := core.NowFunc().UTC()
	recs := make([]TeacherRecord, 0, len(bm.Records))
	names := make(map[string]string)
	for i, nr := range bm.Records {
		name, ok := names[nr.TeacherID]
		if !ok {
			t, err := svc.teacherRepo.GetTeacher(ctx, teacher.GetFilter{ID: nr.TeacherID})
			if err != nil {
				if errors.Cause(err) == teacher.ErrNotFound {
					return nil, core.NewValidationError(nil, core.FieldError{
						Field: fmt.Sprintf("records[%d].teacher_id", i),
						Error: "teacher not found",
					})
				}
				return nil, errors.Wrap(err, "finding teacher")
			}
			name = t.Name
			names[t.ID] = name
		}
		recs = append(recs, TeacherRecord{
			ID:          core.NewID(),
			Date:        nr.Date,
			TeacherID:   nr.TeacherID,
			TeacherName: name,
			Status:      nr.Status,
			Remarks:     nr.Remarks,
			MarkedBy:    by.ID,
			MarkedAt:    now,
		})
	}

	var saved []TeacherRecord
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		saved, err = svc.repo.UpsertTeacherRecords(ctx, recs, exec)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "saving teacher attendance")
	}
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicAttendance, core.ActionUpdated, "", saved, user.RoleAdmin))
	return saved, nil
}

func (svc *service) QueryTeachers(ctx context.Context, filter *TeacherQueryFilter, ordering []core.DBOrdering) ([]TeacherRecord, error) {
	return svc.repo.QueryTeacherRecords(ctx, filter, core.FilterOrdering(ordering, TeacherOrderingFields))
}

func (svc *service) TeacherStats(ctx context.Context, filter *TeacherQueryFilter) (Stats, error) {
	recs, err := svc.repo.QueryTeacherRecords(ctx, filter, nil)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, rec := range recs {
		stats.Add(rec.Status)
	}
	return stats, nil
}
