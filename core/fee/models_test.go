package fee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFee_Recalculate(t *testing.T) {
	tests := []struct {
		name          string
		amount        float64
		payments      []float64
		wantStatus    string
		wantPaid      float64
		wantRemaining float64
	}{
		{name: "no payment", amount: 100, wantStatus: StatusPending, wantRemaining: 100},
		{name: "partial", amount: 100, payments: []float64{10.1, 20.2}, wantStatus: StatusPartial, wantPaid: 30.3, wantRemaining: 69.7},
		{name: "paid", amount: 100, payments: []float64{40, 60}, wantStatus: StatusPaid, wantPaid: 100},
		{name: "amount lowered below paid", amount: 50, payments: []float64{60}, wantStatus: StatusPaid, wantPaid: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Fee{Amount: tt.amount}
			for _, p := range tt.payments {
				f.Payments = append(f.Payments, Payment{Amount: p})
			}
			f.Recalculate()
			assert.Equal(t, tt.wantStatus, f.Status)
			assert.Equal(t, tt.wantPaid, f.PaidAmount)
			assert.Equal(t, tt.wantRemaining, f.RemainingAmount)
		})
	}
}

func TestFee_SetOverdue(t *testing.T) {
	today := "2026-05-10"
	tests := []struct {
		name    string
		fee     Fee
		overdue bool
	}{
		{name: "due yesterday", fee: Fee{Status: StatusPending, DueDate: "2026-05-09"}, overdue: true},
		{name: "due today", fee: Fee{Status: StatusPartial, DueDate: today}},
		{name: "due tomorrow", fee: Fee{Status: StatusPending, DueDate: "2026-05-11"}},
		{name: "paid late", fee: Fee{Status: StatusPaid, DueDate: "2026-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fee.SetOverdue(today)
			assert.Equal(t, tt.overdue, tt.fee.Overdue)
		})
	}
}

func TestComputeStats(t *testing.T) {
	fees := []Fee{
		{Status: StatusPaid, Amount: 100, PaidAmount: 100},
		{Status: StatusPartial, Amount: 200, PaidAmount: 50, RemainingAmount: 150, Overdue: true},
		{Status: StatusPending, Amount: 100, RemainingAmount: 100},
	}
	assert.Equal(t, Stats{
		Total:           3,
		Paid:            1,
		Partial:         1,
		Pending:         1,
		Overdue:         1,
		TotalAmount:     400,
		CollectedAmount: 150,
		PendingAmount:   250,
		CollectionRate:  37.5,
	}, ComputeStats(fees))

	assert.Equal(t, Stats{}, ComputeStats(nil))
}
