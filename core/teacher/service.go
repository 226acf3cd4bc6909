package teacher

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("teacher")
	ErrEmployeeIDExists = errors.New("a teacher with this employee ID already exists")
)

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		GetTeacher(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Teacher, error)
		// QueryTeachers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Teacher.Name, Teacher.Email or Teacher.EmployeeID.
		QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error
		CountTeachers(ctx context.Context, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nt NewTeacher) (Teacher, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error)
		GetByID(ctx context.Context, id string) (Teacher, error)
		GetByUserID(ctx context.Context, userID string) (Teacher, error)
		Update(ctx context.Context, t Teacher, ut UpdateTeacher) (Teacher, error)
		Delete(ctx context.Context, id string) error
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
		tx     core.TxRunner
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, tx core.TxRunner) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
		tx:     tx,
	}
}

// nextEmployeeID generates the first free `EMP-<n>` identifier.
func (svc *service) nextEmployeeID(ctx context.Context, exec core.DBExecutor) (string, error) {
	count, err := svc.repo.CountTeachers(ctx, exec)
	if err != nil {
		return "", err
	}
	for n := count + 1; ; n++ {
		empID := fmt.Sprintf("EMP-%03d", n)
		if _, err = svc.repo.GetTeacher(ctx, GetFilter{EmployeeID: empID}, exec); errors.Cause(err) == ErrNotFound {
			return empID, nil
		} else if err != nil {
			return "", err
		}
	}
}

// Create creates the teacher and their login account, all or nothing.
func (svc *service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	var (
		t   Teacher
		acc user.User
	)
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		empID := nt.EmployeeID
		if empID == "" {
			var err error
			if empID, err = svc.nextEmployeeID(ctx, exec); err != nil {
				return errors.Wrap(err, "generating employee ID")
			}
		} else if _, err := svc.repo.GetTeacher(ctx, GetFilter{EmployeeID: empID}, exec); err == nil {
			return core.NewValidationError(ErrEmployeeIDExists, core.FieldError{Field: "employee_id", Error: ErrEmployeeIDExists.Error()})
		} else if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "checking employee ID")
		}

		var err error
		acc, err = svc.usrSvc.CreateAccount(ctx, user.NewAccount{Name: nt.Name, Email: nt.Email, Role: user.RoleTeacher}, exec)
		if err != nil {
			return errors.Wrap(err, "creating teacher account")
		}

		now := core.NowFunc().UTC()
		t, err = svc.repo.CreateTeacher(ctx, Teacher{
			ID:            core.NewID(),
			UserID:        acc.ID,
			Name:          nt.Name,
			Email:         nt.Email,
			EmployeeID:    empID,
			Department:    nt.Department,
			Subject:       nt.Subject,
			Qualification: nt.Qualification,
			Phone:         nt.Phone,
			Address:       nt.Address,
			DateOfBirth:   nt.DateOfBirth,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, exec)
		return errors.Wrap(err, "creating teacher")
	})
	if err != nil {
		return Teacher{}, err
	}
	svc.usrSvc.SendWelcomeMails(acc)
	return t, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
}

func (svc *service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{UserID: userID})
}

func (svc *service) Update(ctx context.Context, t Teacher, ut UpdateTeacher) (Teacher, error) {
	t.Name = ut.Name
	t.Department = ut.Department
	t.Subject = ut.Subject
	t.Qualification = ut.Qualification
	t.Phone = ut.Phone
	t.Address = ut.Address
	t.DateOfBirth = ut.DateOfBirth
	t.UpdatedAt = core.NowFunc().UTC()

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if ut.IsActive != nil && *ut.IsActive != t.IsActive {
			t.IsActive = *ut.IsActive
			if err := svc.usrSvc.SetActive(ctx, t.UserID, t.IsActive, exec); err != nil && errors.Cause(err) != user.ErrNotFound {
				return errors.Wrap(err, "updating teacher account")
			}
		}
		var err error
		t, err = svc.repo.UpdateTeacher(ctx, t, exec)
		return err
	})
	if err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// Delete removes the teacher and deactivates their login account.
func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		t, err := svc.repo.GetTeacher(ctx, GetFilter{ID: id}, exec)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteTeacher(ctx, t.ID, exec); err != nil {
			return errors.Wrap(err, "deleting teacher")
		}
		if err = svc.usrSvc.SetActive(ctx, t.UserID, false, exec); err != nil && errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "deactivating teacher account")
		}
		return nil
	})
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	teachers, err := svc.repo.QueryTeachers(ctx, &QueryFilter{}, nil)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(teachers)}
	depts := make(map[string]struct{})
	for _, t := range teachers {
		if t.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if t.Department != "" {
			depts[t.Department] = struct{}{}
		}
	}
	stats.Departments = len(depts)
	return stats, nil
}
