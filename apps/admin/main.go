package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
	logsvc "github.com/Capstone-Portal-Project/capstone-portal-project-sub000/services/logger"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/storage/database"
	boiledrepos "github.com/Capstone-Portal-Project/capstone-portal-project-sub000/storage/database/sqlboiler"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf)

	// set up DB
	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	preference.InitValidators(validate, translator)
	prefRepo := boiledrepos.NewPreferenceRepository(db, boiledrepos.WithAdvisoryLocks(conf.Database.AdvisoryLocks))

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db.DB,
		prefSvc: preference.NewService(prefRepo, validate, logger, conf),
		out:     os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
