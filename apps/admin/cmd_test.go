package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	dummydb "github.com/trezcool/campus/storage/database/dummy"
	"github.com/trezcool/campus/testutil"
)

var repos shared.Repos

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(io.Discard, conf, logsvc.ComponentAdmin)

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	repos = shared.DummyRepos(db)

	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()
	svcs := shared.NewServices(conf, logger, repos, emailsvc.NewConsoleServiceMock(conf, logger), eventsvc.NewInMemBroker())

	// start CLI
	var out bytes.Buffer
	return &commandLine{
		usrRepo: repos.User,
		feeSvc:  svcs.Fee,
		out:     &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	existing := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "old", []string{user.RoleTeacher}, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd", "-role", "janitor"}, extra: extra{pwd: "pwd"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "new admin", args: []string{"adduser", "-username", "Boss", "-email", "boss@test.cd", "-name", "The Boss"}, extra: extra{pwd: "pwd"}},
		{name: "existing user", args: []string{"adduser", "-username", existing.Username, "-email", existing.Email, "-role", "admin"}, extra: extra{pwd: "new"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	boss, err := repos.User.GetUser(ctx, user.GetFilter{Username: "boss"})
	require.NoError(t, err)
	assert.Equal(t, "The Boss", boss.Name)
	assert.Equal(t, "boss@test.cd", boss.Email)
	assert.True(t, boss.IsAdmin())
	assert.True(t, boss.Active())
	assert.NoError(t, boss.CheckPassword("pwd"))

	refreshed, err := repos.User.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.True(t, refreshed.IsAdmin())
	assert.True(t, refreshed.IsTeacher())
	assert.True(t, refreshed.Active())
	assert.NoError(t, refreshed.CheckPassword("new"))
	assert.Equal(t, "Teacher", refreshed.Name)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, repos.User, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := repos.User.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				if pwd := tt.extra.(extra).pwd; refreshedUsr.CheckPassword(pwd) != nil {
					t.Errorf("password %q not set", pwd)
				}
			}
		})
	}
}

func Test_commandLine_feeReminders(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", "")

	now := time.Now().UTC()
	for i, due := range []time.Time{now.AddDate(0, 0, -5), now.AddDate(0, 0, 5)} {
		f := fee.Fee{
			ID:        core.NewID(),
			StudentID: hero.ID,
			FeeType:   fmt.Sprintf("Tuition %d", i),
			Amount:    100,
			DueDate:   due.Format(core.DateLayout),
			CreatedAt: now,
			UpdatedAt: now,
		}
		f.Recalculate()
		_, err := repos.Fee.CreateFee(ctx, f)
		require.NoError(t, err)
	}

	require.NoError(t, cli.run([]string{"admin", "feereminders"}))
	assert.Equal(t, "1 reminder(s) sent\n", out.String())

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, hero.Email, sent[0].To[0].Address)
	assert.Equal(t, "fee_reminder", sent[0].TemplateName)
}
