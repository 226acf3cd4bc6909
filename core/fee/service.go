package fee

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("fee")
	ErrAlreadyPaid     = errors.New("this fee is already paid")
	ErrExceedsBalance  = errors.New("amount exceeds the remaining balance")
	ErrAmountBelowPaid = errors.New("amount cannot be less than the amount already paid")
)

type (
	Repository interface {
		CreateFee(ctx context.Context, f Fee, exec ...core.DBExecutor) (Fee, error)
		GetFee(ctx context.Context, id string, exec ...core.DBExecutor) (Fee, error)
		// QueryFees applies AND operation on available QueryFilter fields.
		QueryFees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Fee, error)
		// UpdateFee applies `mutate` to the current state of the fee and saves it, atomically.
		// Concurrent updates of the same fee are serialized. New payments are appended.
		UpdateFee(ctx context.Context, id string, mutate func(f *Fee) error, exec ...core.DBExecutor) (Fee, error)
		DeleteFee(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nf NewFee) (Fee, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error)
		GetByID(ctx context.Context, id string) (Fee, error)
		Update(ctx context.Context, id string, uf UpdateFee) (Fee, error)
		Pay(ctx context.Context, id string, np NewPayment, by user.User) (Fee, error)
		Delete(ctx context.Context, id string) error
		Overdue(ctx context.Context) ([]Fee, error)
		Stats(ctx context.Context, filter *QueryFilter) (Stats, error)
		// SendReminders emails the parent (or the student) of every overdue fee and returns the number of emails sent.
		SendReminders(ctx context.Context) (int, error)
	}

	service struct {
		repo        Repository
		studentRepo student.Repository
		parentRepo  student.ParentFinder
		mailSvc     core.EmailService
		broker      core.EventBroker
		logger      core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	studentRepo student.Repository,
	parentRepo student.ParentFinder,
	mailSvc core.EmailService,
	broker core.EventBroker,
	logger core.Logger,
) Service {
	return &service{
		repo:        repo,
		studentRepo: studentRepo,
		parentRepo:  parentRepo,
		mailSvc:     mailSvc,
		broker:      broker,
		logger:      logger,
	}
}

// publish notifies the admins, the student and their parent.
func (svc *service) publish(ctx context.Context, action string, f Fee) {
	audience := append([]string{user.RoleAdmin}, student.Audience(ctx, svc.studentRepo, svc.parentRepo, f.StudentID)...)
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicFee, action, f.ID, f, audience...))
}

func (svc *service) Create(ctx context.Context, nf NewFee) (Fee, error) {
	s, err := svc.studentRepo.GetStudent(ctx, student.GetFilter{ID: nf.StudentID})
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Fee{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return Fee{}, errors.Wrap(err, "finding student")
	}

	now := core.NowFunc().UTC()
	f := Fee{
		ID:           core.NewID(),
		StudentID:    s.ID,
		StudentName:  s.Name,
		StudentClass: s.Class,
		FeeType:      nf.FeeType,
		Description:  nf.Description,
		Amount:       nf.Amount,
		DueDate:      nf.DueDate,
		Payments:     []Payment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.Recalculate()

	if f, err = svc.repo.CreateFee(ctx, f); err != nil {
		return Fee{}, errors.Wrap(err, "creating fee")
	}
	f.SetOverdue(core.Today())
	svc.publish(ctx, core.ActionCreated, f)
	return f, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error) {
	today := core.Today()
	filter.Today = today
	fees, err := svc.repo.QueryFees(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
	if err != nil {
		return nil, err
	}
	for i := range fees {
		fees[i].SetOverdue(today)
	}
	return fees, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Fee, error) {
	f, err := svc.repo.GetFee(ctx, id)
	if err != nil {
		return Fee{}, err
	}
	f.SetOverdue(core.Today())
	return f, nil
}

func (svc *service) Update(ctx context.Context, id string, uf UpdateFee) (Fee, error) {
	f, err := svc.repo.UpdateFee(ctx, id, func(f *Fee) error {
		if uf.FeeType != "" {
			f.FeeType = uf.FeeType
		}
		if uf.Description != "" {
			f.Description = uf.Description
		}
		if uf.DueDate != "" {
			f.DueDate = uf.DueDate
		}
		if uf.Amount != nil {
			if *uf.Amount < f.PaidAmount {
				return core.NewValidationError(ErrAmountBelowPaid, core.FieldError{Field: "amount", Error: ErrAmountBelowPaid.Error()})
			}
			f.Amount = *uf.Amount
		}
		f.Recalculate()
		f.UpdatedAt = core.NowFunc().UTC()
		return nil
	})
	if err != nil {
		return Fee{}, err
	}
	f.SetOverdue(core.Today())
	svc.publish(ctx, core.ActionUpdated, f)
	return f, nil
}

// Pay records a payment. Concurrent payments of the same fee never exceed its amount.
func (svc *service) Pay(ctx context.Context, id string, np NewPayment, by user.User) (Fee, error) {
	f, err := svc.repo.UpdateFee(ctx, id, func(f *Fee) error {
		if f.Status == StatusPaid {
			return core.NewValidationError(ErrAlreadyPaid)
		}
		if np.Amount > f.RemainingAmount {
			return core.NewValidationError(ErrExceedsBalance, core.FieldError{Field: "amount", Error: ErrExceedsBalance.Error()})
		}
		now := core.NowFunc().UTC()
		f.Payments = append(f.Payments, Payment{
			ID:            core.NewID(),
			FeeID:         f.ID,
			Amount:        np.Amount,
			PaymentMethod: np.PaymentMethod,
			TransactionID: np.TransactionID,
			PaidBy:        by.ID,
			PaidAt:        now,
		})
		f.Recalculate()
		f.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Fee{}, err
	}
	f.SetOverdue(core.Today())
	svc.publish(ctx, core.ActionPaid, f)
	return f, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	f, err := svc.repo.GetFee(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteFee(ctx, f.ID); err != nil {
		return err
	}
	svc.publish(ctx, core.ActionDeleted, f)
	return nil
}

// Overdue lists the overdue fees, oldest due date first.
func (svc *service) Overdue(ctx context.Context) ([]Fee, error) {
	overdue := true
	return svc.Query(ctx, &QueryFilter{Overdue: &overdue}, []core.DBOrdering{{Field: "due_date", Ascending: true}})
}

func (svc *service) Stats(ctx context.Context, filter *QueryFilter) (Stats, error) {
	fees, err := svc.Query(ctx, filter, nil)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(fees), nil
}

func (svc *service) SendReminders(ctx context.Context) (int, error) {
	fees, err := svc.Overdue(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying overdue fees")
	}

	students := make(map[string]student.Student)
	msgs := make([]*core.EmailMessage, 0, len(fees))
	for _, f := range fees {
		s, ok := students[f.StudentID]
		if !ok {
			if s, err = svc.studentRepo.GetStudent(ctx, student.GetFilter{ID: f.StudentID}); err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					continue
				}
				return 0, errors.Wrap(err, "finding student")
			}
			students[s.ID] = s
		}

		to := mail.Address{Name: s.ParentName, Address: s.ParentEmail}
		if to.Address == "" {
			to = mail.Address{Name: s.Name, Address: s.Email}
		}
		if to.Address == "" {
			continue
		}
		if to.Name == "" {
			to.Name = s.Name
		}

		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{to},
			Subject:      "Overdue fee reminder",
			TemplateName: "fee_reminder",
			TemplateData: map[string]interface{}{
				"Name":        to.Name,
				"StudentName": s.Name,
				"Class":       s.Class,
				"FeeType":     f.FeeType,
				"Amount":      f.Amount,
				"Remaining":   f.RemainingAmount,
				"DueDate":     f.DueDate,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return len(msgs), nil
}
