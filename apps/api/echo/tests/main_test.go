package tests

import (
	"fmt"
	"io"
	"os"
	"testing"

	. "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	dummydb "github.com/trezcool/campus/storage/database/dummy"
)

var (
	conf   *core.Config
	db     *dummydb.DB
	repos  shared.Repos
	broker *eventsvc.InMemBroker
	app    Server

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	var err error

	conf = core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(io.Discard, conf, logsvc.ComponentAPI)

	// set up DB & repos
	if db, err = dummydb.Open(); err != nil {
		fmt.Printf("dummydb.Open(): %v", err)
		os.Exit(1)
	}
	repos = shared.DummyRepos(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	broker = eventsvc.NewInMemBroker()
	svcs := shared.NewServices(conf, logger, repos, mailSvc, broker)

	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	// set up server
	app = newServer(conf, logger, svcs)

	os.Exit(m.Run())
}

func newServer(conf *core.Config, logger core.Logger, svcs *shared.Services, checks ...map[string]HealthCheck) Server {
	validate, translator := shared.NewValidator()
	deps := ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Services:       svcs,
		Broker:         broker,
		DisableReqLogs: true,
	}
	if len(checks) > 0 {
		deps.HealthChecks = checks[0]
	}
	return NewServer(deps)
}

// resetDB empties every table and forgets the emails sent so far.
func resetDB(t *testing.T) {
	t.Helper()
	db.Flush()
	emailsvc.ResetSentMessages()
}
