package fee_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	dummydb "github.com/trezcool/campus/storage/database/dummy"
	"github.com/trezcool/campus/testutil"
)

func TestService_Pay_concurrent(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(io.Discard, conf, logsvc.ComponentAPI)
	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	studentRepo := dummydb.NewStudentRepository(db)
	svc := fee.NewService(dummydb.NewFeeRepository(db), studentRepo, dummydb.NewParentRepository(db), emailsvc.NewConsoleServiceMock(conf, logger), eventsvc.NewInMemBroker(), logger)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	heroUsr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, studentRepo, heroUsr, "10A", "1", "")

	ctx := context.Background()
	f, err := svc.Create(ctx, fee.NewFee{StudentID: hero.ID, FeeType: "Tuition", Amount: 100, DueDate: "2030-01-01"})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Pay(ctx, f.ID, fee.NewPayment{Amount: 20, PaymentMethod: fee.MethodCash}, admin)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs++
				return
			}
			oks++
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, oks)
	assert.Equal(t, 5, errs)

	f, err = svc.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPaid, f.Status)
	assert.Equal(t, 100.0, f.PaidAmount)
	assert.Len(t, f.Payments, 5)
}
