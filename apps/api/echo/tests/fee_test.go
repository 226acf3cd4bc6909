package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_feeApi_payments(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	pUsr := testutil.CreateUser(t, repos.User, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	p := testutil.CreateParent(t, repos.Parent, pUsr)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", p.ID)
	otherUsr := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)

	adminToken := getToken(t, conf, admin)
	parentToken := getToken(t, conf, pUsr)

	due := time.Now().UTC().AddDate(0, 1, 0).Format(core.DateLayout)
	req, rec := newAuthRequest(http.MethodPost, "/api/fees", adminToken, marchallObj(t, fee.NewFee{
		StudentID: hero.ID,
		FeeType:   "Tuition",
		Amount:    1000,
		DueDate:   due,
	}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var f fee.Fee
	decode(t, rec, &f)
	assert.Equal(t, fee.StatusPending, f.Status)
	assert.Equal(t, 1000.0, f.RemainingAmount)
	assert.Equal(t, "10A", f.StudentClass)

	pay := func(token string, amount float64) (int, fee.Fee) {
		req, rec := newAuthRequest(http.MethodPost, "/api/fees/"+f.ID+"/payments", token, marchallObj(t, fee.NewPayment{
			Amount:        amount,
			PaymentMethod: fee.MethodCash,
		}))
		app.ServeHTTP(rec, req)
		var res fee.Fee
		if rec.Code == http.StatusOK {
			decode(t, rec, &res)
		}
		return rec.Code, res
	}

	t.Run("stranger cannot pay", func(t *testing.T) {
		code, _ := pay(getToken(t, conf, otherUsr), 100)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("partial payment by parent", func(t *testing.T) {
		code, res := pay(parentToken, 400.55)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, fee.StatusPartial, res.Status)
		assert.Equal(t, 400.55, res.PaidAmount)
		assert.Equal(t, 599.45, res.RemainingAmount)
		assert.Len(t, res.Payments, 1)
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		code, _ := pay(adminToken, 600)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("pays the balance", func(t *testing.T) {
		code, res := pay(adminToken, 599.45)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, fee.StatusPaid, res.Status)
		assert.Equal(t, 0.0, res.RemainingAmount)
		assert.False(t, res.Overdue)
	})

	t.Run("already paid", func(t *testing.T) {
		code, _ := pay(adminToken, 1)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("amount below paid rejected", func(t *testing.T) {
		amount := 10.0
		req, rec := newAuthRequest(http.MethodPut, "/api/fees/"+f.ID, adminToken, marchallObj(t, fee.UpdateFee{Amount: &amount}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_feeApi_overdue(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", "")
	adminToken := getToken(t, conf, admin)

	past := time.Now().UTC().AddDate(0, 0, -3).Format(core.DateLayout)
	future := time.Now().UTC().AddDate(0, 0, 3).Format(core.DateLayout)
	for _, due := range []string{past, future} {
		req, rec := newAuthRequest(http.MethodPost, "/api/fees", adminToken, marchallObj(t, fee.NewFee{
			StudentID: hero.ID,
			FeeType:   "Tuition",
			Amount:    50,
			DueDate:   due,
		}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	req, rec := newAuthRequest(http.MethodGet, "/api/fees/overdue", adminToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var fees []fee.Fee
	decode(t, rec, &fees)
	require.Len(t, fees, 1)
	assert.Equal(t, past, fees[0].DueDate)
	assert.True(t, fees[0].Overdue)

	req, rec = newAuthRequest(http.MethodGet, "/api/fees/stats", adminToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats fee.Stats
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 100.0, stats.TotalAmount)

	t.Run("student only sees own fees", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/fees", getToken(t, conf, heroUsr))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var fees []fee.Fee
		decode(t, rec, &fees)
		assert.Len(t, fees, 2)
	})
}
