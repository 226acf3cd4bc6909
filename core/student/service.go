package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/parent"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("student")
	ErrRollNumberExists  = errors.New("a student with this roll number already exists in this class")
	errParentEmailInUse  = "this email belongs to an account that is not a parent"
	errStudentEmailInUse = "a user with this email already exists"
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.Name, Student.Email or Student.RollNumber.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
		// CheckRollNumber returns ErrRollNumberExists when another student of `class` holds `rollNumber`.
		CheckRollNumber(ctx context.Context, class, rollNumber, excludedID string, exec ...core.DBExecutor) error
		UnlinkParent(ctx context.Context, parentID string, exec ...core.DBExecutor) error
	}

	// AttendanceRater computes the attendance percentage of students.
	AttendanceRater interface {
		Percentages(ctx context.Context, studentIDs ...string) (map[string]float64, error)
	}

	Service interface {
		CheckRollNumber(ctx context.Context, class, rollNumber string, excludedID ...string) error
		Create(ctx context.Context, ns NewStudent, createdBy user.User) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByUserID(ctx context.Context, userID string) (Student, error)
		Children(ctx context.Context, parentID string) ([]Student, error)
		// ActiveStudents returns the roster of `class` (every class when empty).
		ActiveStudents(ctx context.Context, class string) ([]Student, error)
		Update(ctx context.Context, s Student, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, id string) error
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo      Repository
		usrSvc    user.Service
		parentSvc parent.Service
		rater     AttendanceRater
		tx        core.TxRunner
		broker    core.EventBroker
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrSvc user.Service,
	parentSvc parent.Service,
	rater AttendanceRater,
	tx core.TxRunner,
	broker core.EventBroker,
	logger core.Logger,
) Service {
	return &service{
		repo:      repo,
		usrSvc:    usrSvc,
		parentSvc: parentSvc,
		rater:     rater,
		tx:        tx,
		broker:    broker,
		logger:    logger,
	}
}

func (svc *service) CheckRollNumber(ctx context.Context, class, rollNumber string, excludedID ...string) error {
	var excl string
	if len(excludedID) > 0 {
		excl = excludedID[0]
	}
	return rollNumberError(svc.repo.CheckRollNumber(ctx, class, rollNumber, excl))
}

// rollNumberError reports a taken roll number as a roll_number field error.
func rollNumberError(err error) error {
	if err != nil && errors.Cause(err) == ErrRollNumberExists {
		return core.NewValidationError(err, core.FieldError{Field: "roll_number", Error: ErrRollNumberExists.Error()})
	}
	return err
}

// Create creates the student, their login account and, when needed, their parent's account, all or nothing.
func (svc *service) Create(ctx context.Context, ns NewStudent, createdBy user.User) (Student, error) {
	var (
		s        Student
		accounts []user.User
	)
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		acc, err := svc.usrSvc.CreateAccount(ctx, user.NewAccount{Name: ns.Name, Email: ns.Email, Role: user.RoleStudent}, exec)
		if err != nil {
			if vErr, ok := errors.Cause(err).(*core.ValidationError); ok && len(vErr.Fields) > 0 {
				return core.NewValidationError(err, core.FieldError{Field: "email", Error: errStudentEmailInUse})
			}
			return errors.Wrap(err, "creating student account")
		}
		accounts = append(accounts, acc)

		now := core.NowFunc().UTC()
		s = Student{
			ID:          core.NewID(),
			UserID:      acc.ID,
			Name:        ns.Name,
			Email:       ns.Email,
			Class:       ns.Class,
			RollNumber:  ns.RollNumber,
			Gender:      ns.Gender,
			Phone:       ns.Phone,
			Address:     ns.Address,
			DateOfBirth: ns.DateOfBirth,
			ParentName:  ns.ParentName,
			ParentEmail: ns.ParentEmail,
			ParentPhone: ns.ParentPhone,
			Status:      ns.Status,
			CreatedBy:   createdBy.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if ns.ParentEmail != "" {
			p, pAcc, err := svc.linkParent(ctx, ns, exec)
			if err != nil {
				return err
			}
			s.ParentID = p.ID
			s.ParentName = p.Name
			if pAcc.ID != "" {
				accounts = append(accounts, pAcc)
			}
		}

		s, err = svc.repo.CreateStudent(ctx, s, exec)
		return rollNumberError(errors.Wrap(err, "creating student"))
	})
	if err != nil {
		return Student{}, err
	}

	svc.usrSvc.SendWelcomeMails(accounts...)
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicStudent, core.ActionCreated, s.ID, s, user.RoleAdmin, user.RoleTeacher))
	return s, nil
}

// linkParent finds the parent owning `ns.ParentEmail`, or opens their account.
// The returned account is empty when the parent already existed.
func (svc *service) linkParent(ctx context.Context, ns NewStudent, exec core.DBExecutor) (parent.Parent, user.User, error) {
	parentErr := core.NewValidationError(nil, core.FieldError{Field: "parent_email", Error: errParentEmailInUse})
	if ns.ParentEmail == ns.Email {
		return parent.Parent{}, user.User{}, parentErr
	}

	pUsr, err := svc.usrSvc.GetByEmail(ctx, ns.ParentEmail)
	switch {
	case err == nil:
		if !pUsr.IsParent() {
			return parent.Parent{}, user.User{}, parentErr
		}
		p, err := svc.parentSvc.GetByUserID(ctx, pUsr.ID, exec)
		if err != nil {
			return parent.Parent{}, user.User{}, errors.Wrap(err, "finding parent by user ID")
		}
		return p, user.User{}, nil
	case errors.Cause(err) == user.ErrNotFound:
		return svc.parentSvc.CreateInTx(ctx, parent.NewParent{
			Name:         ns.ParentName,
			Email:        ns.ParentEmail,
			Phone:        ns.ParentPhone,
			Relationship: "Guardian",
		}, exec)
	default:
		return parent.Parent{}, user.User{}, errors.Wrap(err, "finding parent user by email")
	}
}

func (svc *service) withAttendance(ctx context.Context, students ...Student) ([]Student, error) {
	if svc.rater == nil || len(students) == 0 {
		return students, nil
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	rates, err := svc.rater.Percentages(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "computing attendance")
	}
	for i := range students {
		students[i].Attendance = rates[students[i].ID]
	}
	return students, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
	if err != nil {
		return nil, err
	}
	return svc.withAttendance(ctx, students...)
}

func (svc *service) get(ctx context.Context, filter GetFilter) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, filter)
	if err != nil {
		return Student{}, err
	}
	students, err := svc.withAttendance(ctx, s)
	if err != nil {
		return Student{}, err
	}
	return students[0], nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.get(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.get(ctx, GetFilter{UserID: userID})
}

func (svc *service) Children(ctx context.Context, parentID string) ([]Student, error) {
	if parentID == "" {
		return []Student{}, nil
	}
	return svc.Query(ctx, &QueryFilter{ParentID: parentID}, []core.DBOrdering{{Field: "name", Ascending: true}})
}

func (svc *service) ActiveStudents(ctx context.Context, class string) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx, &QueryFilter{Class: class}, []core.DBOrdering{{Field: "roll_number", Ascending: true}})
	if err != nil {
		return nil, err
	}
	active := make([]Student, 0, len(students))
	for _, s := range students {
		if s.IsActive() {
			active = append(active, s)
		}
	}
	return active, nil
}

func (svc *service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	s.Name = us.Name
	s.Class = us.Class
	s.RollNumber = us.RollNumber
	s.Gender = us.Gender
	s.Phone = us.Phone
	s.Address = us.Address
	s.DateOfBirth = us.DateOfBirth
	s.ParentPhone = us.ParentPhone
	s.Status = us.Status
	s.UpdatedAt = core.NowFunc().UTC()

	s, err := svc.repo.UpdateStudent(ctx, s)
	if err != nil {
		return Student{}, rollNumberError(err)
	}
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicStudent, core.ActionUpdated, s.ID, s, user.RoleAdmin, user.RoleTeacher, s.UserID))
	students, err := svc.withAttendance(ctx, s)
	if err != nil {
		return Student{}, err
	}
	return students[0], nil
}

// Delete removes the student and deactivates their login account.
func (svc *service) Delete(ctx context.Context, id string) error {
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		s, err := svc.repo.GetStudent(ctx, GetFilter{ID: id}, exec)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteStudent(ctx, s.ID, exec); err != nil {
			return errors.Wrap(err, "deleting student")
		}
		if s.UserID == "" {
			return nil
		}
		if err = svc.usrSvc.SetActive(ctx, s.UserID, false, exec); err != nil && errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "deactivating student account")
		}
		return nil
	})
	if err != nil {
		return err
	}
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicStudent, core.ActionDeleted, id, nil, user.RoleAdmin, user.RoleTeacher))
	return nil
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	students, err := svc.Query(ctx, &QueryFilter{}, nil)
	if err != nil {
		return Stats{}, err
	}

	var (
		stats Stats
		total float64
	)
	stats.Total = len(students)
	for _, s := range students {
		switch s.Status {
		case StatusActive:
			stats.Active++
		case StatusInactive:
			stats.Inactive++
		case StatusWarning:
			stats.Warning++
		case StatusGraduated:
			stats.Graduated++
		}
		total += s.Attendance
	}
	if stats.Total > 0 {
		stats.AvgAttendance = core.Percent(total, float64(stats.Total)*100)
	}
	return stats, nil
}
