package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
)

const (
	feeColumns = `id, student_id, student_name, student_class, fee_type, description, amount, paid_amount,
	remaining_amount, status, due_date, created_at, updated_at`
	paymentColumns = `id, fee_id, amount, payment_method, transaction_id, paid_by, paid_at`
)

type feeRow struct {
	ID              string    `db:"id"`
	StudentID       string    `db:"student_id"`
	StudentName     string    `db:"student_name"`
	StudentClass    string    `db:"student_class"`
	FeeType         string    `db:"fee_type"`
	Description     string    `db:"description"`
	Amount          float64   `db:"amount"`
	PaidAmount      float64   `db:"paid_amount"`
	RemainingAmount float64   `db:"remaining_amount"`
	Status          string    `db:"status"`
	DueDate         string    `db:"due_date"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type paymentRow struct {
	ID            string    `db:"id"`
	FeeID         string    `db:"fee_id"`
	Amount        float64   `db:"amount"`
	PaymentMethod string    `db:"payment_method"`
	TransactionID string    `db:"transaction_id"`
	PaidBy        string    `db:"paid_by"`
	PaidAt        time.Time `db:"paid_at"`
}

func toFeeRow(f fee.Fee) feeRow {
	return feeRow{
		ID:              f.ID,
		StudentID:       f.StudentID,
		StudentName:     f.StudentName,
		StudentClass:    f.StudentClass,
		FeeType:         f.FeeType,
		Description:     f.Description,
		Amount:          f.Amount,
		PaidAmount:      f.PaidAmount,
		RemainingAmount: f.RemainingAmount,
		Status:          f.Status,
		DueDate:         f.DueDate,
		CreatedAt:       f.CreatedAt.UTC(),
		UpdatedAt:       f.UpdatedAt.UTC(),
	}
}

func (row feeRow) fee(payments []fee.Payment) fee.Fee {
	if payments == nil {
		payments = []fee.Payment{}
	}
	return fee.Fee{
		ID:              row.ID,
		StudentID:       row.StudentID,
		StudentName:     row.StudentName,
		StudentClass:    row.StudentClass,
		FeeType:         row.FeeType,
		Description:     row.Description,
		Amount:          row.Amount,
		PaidAmount:      row.PaidAmount,
		RemainingAmount: row.RemainingAmount,
		Status:          row.Status,
		DueDate:         row.DueDate,
		Payments:        payments,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

type feeRepository struct {
	repository
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{repository{db: db}}
}

func insertPayment(ctx context.Context, ext sqlx.ExtContext, p fee.Payment) error {
	p.PaidAt = p.PaidAt.UTC()
	err := namedExec(ctx, ext, `
		INSERT INTO payment (`+paymentColumns+`)
		VALUES (:id, :fee_id, :amount, :payment_method, :transaction_id, :paid_by, :paid_at)`,
		paymentRow(p))
	return errors.Wrap(err, "inserting payment")
}

// payments loads the payments of `feeIDs`, grouped by fee, in payment order.
func payments(ctx context.Context, ext sqlx.ExtContext, feeIDs ...string) (map[string][]fee.Payment, error) {
	var rows []paymentRow
	err := selectAll(ctx, ext, &rows,
		`SELECT `+paymentColumns+` FROM payment WHERE fee_id = ANY(?) ORDER BY paid_at ASC`,
		pq.StringArray(feeIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	byFee := make(map[string][]fee.Payment, len(feeIDs))
	for _, row := range rows {
		p := fee.Payment(row)
		p.PaidAt = p.PaidAt.UTC()
		byFee[row.FeeID] = append(byFee[row.FeeID], p)
	}
	return byFee, nil
}

func (repo *feeRepository) CreateFee(ctx context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		err := namedExec(ctx, ext, `
			INSERT INTO fee (`+feeColumns+`)
			VALUES (:id, :student_id, :student_name, :student_class, :fee_type, :description, :amount, :paid_amount,
				:remaining_amount, :status, :due_date, :created_at, :updated_at)`,
			toFeeRow(f))
		if err != nil {
			return errors.Wrap(err, "inserting fee")
		}
		for _, p := range f.Payments {
			if err := insertPayment(ctx, ext, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fee.Fee{}, err
	}
	return f, nil
}

func (repo *feeRepository) getFee(ctx context.Context, ext sqlx.ExtContext, id string, forUpdate bool) (fee.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM fee WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row feeRow
	if err := get(ctx, ext, &row, query, id); err != nil {
		return fee.Fee{}, trapNoRows(err, fee.ErrNotFound, "getting fee")
	}
	byFee, err := payments(ctx, ext, id)
	if err != nil {
		return fee.Fee{}, err
	}
	return row.fee(byFee[id]), nil
}

func (repo *feeRepository) GetFee(ctx context.Context, id string, exec ...core.DBExecutor) (fee.Fee, error) {
	return repo.getFee(ctx, repo.ext(exec), id, false)
}

func (repo *feeRepository) QueryFees(ctx context.Context, filter *fee.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]fee.Fee, error) {
	var w where
	if filter != nil {
		if filter.StudentIDs != nil {
			w.add("student_id = ANY(?)", pq.StringArray(filter.StudentIDs))
		}
		if filter.Class != "" {
			w.add("student_class = ?", filter.Class)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.Overdue != nil {
			if *filter.Overdue {
				w.add("(status <> ? AND due_date < ?)", fee.StatusPaid, filter.Today)
			} else {
				w.add("(status = ? OR due_date >= ?)", fee.StatusPaid, filter.Today)
			}
		}
	}

	ext := repo.ext(exec)
	var rows []feeRow
	query := `SELECT ` + feeColumns + ` FROM fee` + w.String() + orderBy(ordering, "created_at DESC", nil)
	if err := selectAll(ctx, ext, &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying fees")
	}
	if len(rows) == 0 {
		return []fee.Fee{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	byFee, err := payments(ctx, ext, ids...)
	if err != nil {
		return nil, err
	}
	fees := make([]fee.Fee, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, row.fee(byFee[row.ID]))
	}
	return fees, nil
}

func (repo *feeRepository) UpdateFee(ctx context.Context, id string, mutate func(f *fee.Fee) error, exec ...core.DBExecutor) (fee.Fee, error) {
	var updated fee.Fee
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		orig, err := repo.getFee(ctx, ext, id, true)
		if err != nil {
			return err
		}
		known := make(map[string]struct{}, len(orig.Payments))
		for _, p := range orig.Payments {
			known[p.ID] = struct{}{}
		}

		f := orig
		f.Payments = append([]fee.Payment{}, orig.Payments...)
		if err = mutate(&f); err != nil {
			return err
		}
		f.ID, f.CreatedAt = orig.ID, orig.CreatedAt

		_, err = execute(ctx, ext, `
			UPDATE fee SET
				fee_type = ?, description = ?, amount = ?, paid_amount = ?, remaining_amount = ?, status = ?,
				due_date = ?, updated_at = ?
			WHERE id = ?`,
			f.FeeType, f.Description, f.Amount, f.PaidAmount, f.RemainingAmount, f.Status,
			f.DueDate, f.UpdatedAt.UTC(), f.ID)
		if err != nil {
			return errors.Wrap(err, "updating fee")
		}
		for _, p := range f.Payments {
			if _, ok := known[p.ID]; ok {
				continue
			}
			if err = insertPayment(ctx, ext, p); err != nil {
				return err
			}
		}
		updated = f
		return nil
	})
	if err != nil {
		return fee.Fee{}, err
	}
	return updated, nil
}

func (repo *feeRepository) DeleteFee(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM fee WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	if n == 0 {
		return fee.ErrNotFound
	}
	return nil
}
