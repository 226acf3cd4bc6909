package main

import (
	"fmt"
	"os"

	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	emailsvc "github.com/trezcool/campus/services/email"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stderr, conf, logsvc.ComponentAdmin)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	repos := shared.PostgresRepos(sqlxrepos.Open(db))
	core.ParseEmailTemplates(conf, logger)
	svcs := shared.NewServices(conf, logger, repos, emailsvc.NewService(conf, logger), eventsvc.NewInMemBroker())

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: repos.User,
		feeSvc:  svcs.Fee,
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
