package timetable

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/user"
)

var ErrNotFound = core.NewNotFoundError("timetable")

type (
	Repository interface {
		// SaveTimetable inserts `tt` or replaces the timetable of the same (Kind, OwnerKey).
		SaveTimetable(ctx context.Context, tt Timetable, exec ...core.DBExecutor) (Timetable, error)
		GetTimetable(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Timetable, error)
		QueryTimetables(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Timetable, error)
		DeleteTimetable(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Save(ctx context.Context, st SaveTimetable) (Timetable, error)
		GetByID(ctx context.Context, id string) (Timetable, error)
		GetByOwner(ctx context.Context, kind, ownerKey string) (Timetable, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Timetable, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo        Repository
		teacherRepo teacher.Repository
		broker      core.EventBroker
		logger      core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, teacherRepo teacher.Repository, broker core.EventBroker, logger core.Logger) Service {
	return &service{
		repo:        repo,
		teacherRepo: teacherRepo,
		broker:      broker,
		logger:      logger,
	}
}

func (svc *service) audience(tt Timetable) []string {
	if tt.Kind == KindTeacher {
		return []string{user.RoleAdmin, user.RoleTeacher}
	}
	return nil // class timetables concern everyone
}

// Save validates the owner and upserts its timetable.
func (svc *service) Save(ctx context.Context, st SaveTimetable) (Timetable, error) {
	ownerName := st.OwnerKey
	if st.Kind == KindTeacher {
		t, err := svc.teacherRepo.GetTeacher(ctx, teacher.GetFilter{ID: st.OwnerKey})
		if err != nil {
			if errors.Cause(err) == teacher.ErrNotFound {
				return Timetable{}, core.NewValidationError(nil, core.FieldError{Field: "owner_key", Error: "teacher not found"})
			}
			return Timetable{}, errors.Wrap(err, "finding teacher")
		}
		ownerName = t.Name
		for i := range st.Entries {
			st.Entries[i].TeacherID = t.ID
			st.Entries[i].TeacherName = t.Name
		}
	} else {
		for i := range st.Entries {
			st.Entries[i].ClassName = st.OwnerKey
		}
	}

	now := core.NowFunc().UTC()
	tt := Timetable{
		ID:        core.NewID(),
		Kind:      st.Kind,
		OwnerKey:  st.OwnerKey,
		OwnerName: ownerName,
		Entries:   st.Entries,
		CreatedAt: now,
		UpdatedAt: now,
	}
	SortEntries(tt.Entries)

	tt, err := svc.repo.SaveTimetable(ctx, tt)
	if err != nil {
		return Timetable{}, errors.Wrap(err, "saving timetable")
	}
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicTimetable, core.ActionUpdated, tt.ID, tt, svc.audience(tt)...))
	return tt, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Timetable, error) {
	return svc.repo.GetTimetable(ctx, GetFilter{ID: id})
}

func (svc *service) GetByOwner(ctx context.Context, kind, ownerKey string) (Timetable, error) {
	return svc.repo.GetTimetable(ctx, GetFilter{Kind: kind, OwnerKey: ownerKey})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Timetable, error) {
	return svc.repo.QueryTimetables(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
}

func (svc *service) Delete(ctx context.Context, id string) error {
	tt, err := svc.repo.GetTimetable(ctx, GetFilter{ID: id})
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteTimetable(ctx, tt.ID); err != nil {
		return err
	}
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicTimetable, core.ActionDeleted, tt.ID, nil, svc.audience(tt)...))
	return nil
}
