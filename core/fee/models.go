package fee

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Statuses
const (
	StatusPending = "Pending"
	StatusPartial = "Partial"
	StatusPaid    = "Paid"
)

// Payment methods
const (
	MethodCash         = "Cash"
	MethodCard         = "Card"
	MethodBankTransfer = "BankTransfer"
	MethodOnline       = "Online"
	MethodCheque       = "Cheque"
)

type Fee struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	StudentName     string    `json:"student_name"`
	StudentClass    string    `json:"student_class"`
	FeeType         string    `json:"fee_type"`
	Description     string    `json:"description"`
	Amount          float64   `json:"amount"`
	PaidAmount      float64   `json:"paid_amount"`
	RemainingAmount float64   `json:"remaining_amount"`
	Status          string    `json:"status"`
	Overdue         bool      `json:"overdue"`  // computed
	DueDate         string    `json:"due_date"` // YYYY-MM-DD
	Payments        []Payment `json:"payments"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

type Payment struct {
	ID            string    `json:"id"`
	FeeID         string    `json:"fee_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID string    `json:"transaction_id"`
	PaidBy        string    `json:"paid_by"`
	PaidAt        time.Time `json:"paid_at"` // UTC
}

// Recalculate derives the remaining amount and the status from the amount and the payments.
func (f *Fee) Recalculate() {
	var paid float64
	for _, p := range f.Payments {
		paid += p.Amount
	}
	f.PaidAmount = core.RoundMoney(paid)
	f.Amount = core.RoundMoney(f.Amount)
	f.RemainingAmount = core.RoundMoney(f.Amount - f.PaidAmount)
	switch {
	case f.PaidAmount >= f.Amount:
		f.Status = StatusPaid
		f.RemainingAmount = 0
	case f.PaidAmount > 0:
		f.Status = StatusPartial
	default:
		f.Status = StatusPending
	}
}

// SetOverdue flags a fee that is not Paid past its due date.
func (f *Fee) SetOverdue(today string) {
	f.Overdue = f.Status != StatusPaid && f.DueDate < today
}

type NewFee struct {
	StudentID   string  `json:"student_id" validate:"required"`
	FeeType     string  `json:"fee_type" validate:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	DueDate     string  `json:"due_date" validate:"required,isodate"`
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	nf.StudentID = core.CleanString(nf.StudentID)
	nf.FeeType = core.CleanString(nf.FeeType)
	nf.Description = core.CleanString(nf.Description)
	nf.DueDate = core.CleanString(nf.DueDate)
	nf.Amount = core.RoundMoney(nf.Amount)
	return validate.Struct(nf)
}

// UpdateFee holds the editable fields of a Fee. Empty fields keep their current value.
type UpdateFee struct {
	FeeType     string   `json:"fee_type"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount" validate:"omitempty,gt=0"`
	DueDate     string   `json:"due_date" validate:"omitempty,isodate"`
}

func (uf *UpdateFee) Validate(validate *validator.Validate) error {
	uf.FeeType = core.CleanString(uf.FeeType)
	uf.Description = core.CleanString(uf.Description)
	uf.DueDate = core.CleanString(uf.DueDate)
	if uf.Amount != nil {
		amount := core.RoundMoney(*uf.Amount)
		uf.Amount = &amount
	}
	return validate.Struct(uf)
}

type NewPayment struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=Cash Card BankTransfer Online Cheque"`
	TransactionID string  `json:"transaction_id"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Amount = core.RoundMoney(np.Amount)
	np.TransactionID = core.CleanString(np.TransactionID)
	return validate.Struct(np)
}

type QueryFilter struct {
	StudentIDs []string `query:"student_id"`
	Class      string   `query:"class"`
	Status     string   `query:"status"`
	Overdue    *bool    `query:"overdue"`
	Today      string   `query:"-"` // reference date of Overdue; set by the service
}

func (qf *QueryFilter) Clean() {
	qf.StudentIDs = core.CleanStrings(qf.StudentIDs)
	qf.Class = core.CleanString(qf.Class)
	qf.Status = core.CleanString(qf.Status)
}

type Stats struct {
	Total           int     `json:"total"`
	Paid            int     `json:"paid"`
	Partial         int     `json:"partial"`
	Pending         int     `json:"pending"`
	Overdue         int     `json:"overdue"`
	TotalAmount     float64 `json:"total_amount"`
	CollectedAmount float64 `json:"collected_amount"`
	PendingAmount   float64 `json:"pending_amount"`
	CollectionRate  float64 `json:"collection_rate"`
}

// ComputeStats aggregates `fees`; their Overdue flag must be set.
func ComputeStats(fees []Fee) Stats {
	var stats Stats
	for _, f := range fees {
		stats.Total++
		switch f.Status {
		case StatusPaid:
			stats.Paid++
		case StatusPartial:
			stats.Partial++
		default:
			stats.Pending++
		}
		if f.Overdue {
			stats.Overdue++
		}
		stats.TotalAmount += f.Amount
		stats.CollectedAmount += f.PaidAmount
		stats.PendingAmount += f.RemainingAmount
	}
	stats.TotalAmount = core.RoundMoney(stats.TotalAmount)
	stats.CollectedAmount = core.RoundMoney(stats.CollectedAmount)
	stats.PendingAmount = core.RoundMoney(stats.PendingAmount)
	stats.CollectionRate = core.Percent(stats.CollectedAmount, stats.TotalAmount)
	return stats
}

// OrderingFields maps the orderable json fields to their columns.
var OrderingFields = map[string]string{
	"student_name":     "student_name",
	"fee_type":         "fee_type",
	"amount":           "amount",
	"remaining_amount": "remaining_amount",
	"status":           "status",
	"due_date":         "due_date",
	"created_at":       "created_at",
}
