package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
)

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

var feeOrdering = map[string]comparator[fee.Fee]{
	"student_name":     func(a, b fee.Fee) int { return cmpString(a.StudentName, b.StudentName) },
	"fee_type":         func(a, b fee.Fee) int { return cmpString(a.FeeType, b.FeeType) },
	"amount":           func(a, b fee.Fee) int { return cmpFloat(a.Amount, b.Amount) },
	"remaining_amount": func(a, b fee.Fee) int { return cmpFloat(a.RemainingAmount, b.RemainingAmount) },
	"status":           func(a, b fee.Fee) int { return cmpString(a.Status, b.Status) },
	"due_date":         func(a, b fee.Fee) int { return cmpString(a.DueDate, b.DueDate) },
	"created_at":       func(a, b fee.Fee) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

// cloneFee detaches the payments of `f` from the stored row.
func cloneFee(f fee.Fee) fee.Fee {
	f.Payments = append([]fee.Payment{}, f.Payments...)
	return f
}

func (repo *feeRepository) CreateFee(_ context.Context, f fee.Fee, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.fee.Lock()
	defer repo.db.fee.Unlock()

	f = cloneFee(f)
	repo.db.fee.rows[f.ID] = f
	return cloneFee(f), nil
}

func (repo *feeRepository) GetFee(_ context.Context, id string, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.fee.RLock()
	defer repo.db.fee.RUnlock()

	if f, ok := repo.db.fee.rows[id]; ok {
		return cloneFee(f), nil
	}
	return fee.Fee{}, fee.ErrNotFound
}

func (repo *feeRepository) QueryFees(_ context.Context, filter *fee.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]fee.Fee, error) {
	repo.db.fee.RLock()
	defer repo.db.fee.RUnlock()

	if filter == nil {
		filter = &fee.QueryFilter{}
	}
	fees := repo.db.fee.filter(func(f fee.Fee) bool {
		if filter.StudentIDs != nil && !core.ContainsString(filter.StudentIDs, f.StudentID) {
			return false
		}
		if filter.Class != "" && f.StudentClass != filter.Class {
			return false
		}
		if filter.Status != "" && f.Status != filter.Status {
			return false
		}
		if filter.Overdue != nil {
			f.SetOverdue(filter.Today)
			if f.Overdue != *filter.Overdue {
				return false
			}
		}
		return true
	})
	for i := range fees {
		fees[i] = cloneFee(fees[i])
	}

	sortRows(fees, ordering, feeOrdering, func(a, b fee.Fee) int { return cmpTime(b.CreatedAt, a.CreatedAt) })
	return fees, nil
}

func (repo *feeRepository) UpdateFee(_ context.Context, id string, mutate func(f *fee.Fee) error, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.fee.Lock()
	defer repo.db.fee.Unlock()

	orig, ok := repo.db.fee.rows[id]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	f := cloneFee(orig)
	if err := mutate(&f); err != nil {
		return fee.Fee{}, err
	}
	f.ID = orig.ID
	f.CreatedAt = orig.CreatedAt
	repo.db.fee.rows[id] = cloneFee(f)
	return f, nil
}

func (repo *feeRepository) DeleteFee(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.fee.Lock()
	defer repo.db.fee.Unlock()

	if _, ok := repo.db.fee.rows[id]; !ok {
		return fee.ErrNotFound
	}
	delete(repo.db.fee.rows, id)
	return nil
}
