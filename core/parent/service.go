package parent

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var ErrNotFound = core.NewNotFoundError("parent")

type (
	Repository interface {
		CreateParent(ctx context.Context, p Parent, exec ...core.DBExecutor) (Parent, error)
		GetParent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Parent, error)
		QueryParents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Parent, error)
		UpdateParent(ctx context.Context, p Parent, exec ...core.DBExecutor) (Parent, error)
		DeleteParent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// ChildrenUnlinker detaches the children of a deleted parent.
	ChildrenUnlinker interface {
		UnlinkParent(ctx context.Context, parentID string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, np NewParent) (Parent, error)
		// CreateInTx opens the parent's account and profile within the caller's unit of work.
		// The caller welcomes the returned account once committed.
		CreateInTx(ctx context.Context, np NewParent, exec core.DBExecutor) (Parent, user.User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Parent, error)
		GetByID(ctx context.Context, id string) (Parent, error)
		GetByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Parent, error)
		Update(ctx context.Context, p Parent, up UpdateParent) (Parent, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo     Repository
		usrSvc   user.Service
		unlinker ChildrenUnlinker
		tx       core.TxRunner
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, unlinker ChildrenUnlinker, tx core.TxRunner) Service {
	return &service{
		repo:     repo,
		usrSvc:   usrSvc,
		unlinker: unlinker,
		tx:       tx,
	}
}

func (svc *service) Create(ctx context.Context, np NewParent) (Parent, error) {
	var (
		p   Parent
		acc user.User
	)
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		p, acc, err = svc.CreateInTx(ctx, np, exec)
		return err
	})
	if err != nil {
		return Parent{}, err
	}
	svc.usrSvc.SendWelcomeMails(acc)
	return p, nil
}

func (svc *service) CreateInTx(ctx context.Context, np NewParent, exec core.DBExecutor) (Parent, user.User, error) {
	acc, err := svc.usrSvc.CreateAccount(ctx, user.NewAccount{Name: np.Name, Email: np.Email, Role: user.RoleParent}, exec)
	if err != nil {
		return Parent{}, user.User{}, errors.Wrap(err, "creating parent account")
	}

	now := core.NowFunc().UTC()
	p, err := svc.repo.CreateParent(ctx, Parent{
		ID:           core.NewID(),
		UserID:       acc.ID,
		Name:         np.Name,
		Email:        np.Email,
		Phone:        np.Phone,
		Address:      np.Address,
		Relationship: np.Relationship,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, exec)
	if err != nil {
		return Parent{}, user.User{}, errors.Wrap(err, "creating parent")
	}
	return p, acc, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Parent, error) {
	return svc.repo.QueryParents(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
}

func (svc *service) GetByID(ctx context.Context, id string) (Parent, error) {
	return svc.repo.GetParent(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Parent, error) {
	return svc.repo.GetParent(ctx, GetFilter{UserID: userID}, exec...)
}

func (svc *service) Update(ctx context.Context, p Parent, up UpdateParent) (Parent, error) {
	p.Name = up.Name
	p.Phone = up.Phone
	p.Address = up.Address
	p.Relationship = up.Relationship
	p.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateParent(ctx, p)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		p, err := svc.repo.GetParent(ctx, GetFilter{ID: id}, exec)
		if err != nil {
			return err
		}
		if err = svc.unlinker.UnlinkParent(ctx, p.ID, exec); err != nil {
			return errors.Wrap(err, "unlinking children")
		}
		if err = svc.repo.DeleteParent(ctx, p.ID, exec); err != nil {
			return errors.Wrap(err, "deleting parent")
		}
		return errors.Wrap(svc.usrSvc.SetActive(ctx, p.UserID, false, exec), "deactivating parent account")
	})
}
