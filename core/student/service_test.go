package student_test

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	dummydb "github.com/trezcool/campus/storage/database/dummy"
	"github.com/trezcool/campus/testutil"
)

func TestService_rollNumberConflicts(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(io.Discard, conf, logsvc.ComponentAPI)
	db, err := dummydb.Open()
	require.NoError(t, err)
	repos := shared.DummyRepos(db)
	svcs := shared.NewServices(conf, logger, repos, emailsvc.NewConsoleServiceMock(conf, logger), eventsvc.NewInMemBroker())

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", "")

	assertRollNumberError := func(t *testing.T, err error) {
		t.Helper()
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "roll_number", vErr.Fields[0].Field)
	}

	ctx := context.Background()
	t.Run("create", func(t *testing.T) {
		_, err := svcs.Student.Create(ctx, student.NewStudent{
			Name: "Clone", Email: "clone@test.cd", Class: "10A", RollNumber: "1",
		}, admin)
		assertRollNumberError(t, err)

		// the student account is rolled back with the student
		_, err = svcs.User.GetByEmail(ctx, "clone@test.cd")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		sidekickUsr := testutil.CreateUser(t, repos.User, "Sidekick", "sidekick", "sidekick@test.cd", "", []string{user.RoleStudent}, true)
		sidekick := testutil.CreateStudent(t, repos.Student, sidekickUsr, "10A", "2", "")

		_, err := svcs.Student.Update(ctx, sidekick, student.UpdateStudent{Name: sidekick.Name, Class: "10A", RollNumber: "1"})
		assertRollNumberError(t, err)

		s, err := svcs.Student.Update(ctx, sidekick, student.UpdateStudent{Name: sidekick.Name, Class: "10B", RollNumber: "1"})
		require.NoError(t, err)
		assert.Equal(t, "10B", s.Class)
	})
}
