package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
	emailsvc "github.com/eduflick/backend/services/email"
	logsvc "github.com/eduflick/backend/services/logger"
	"github.com/eduflick/backend/storage/database"
	"github.com/eduflick/backend/storage/database/sqlstore"
)

func main() {
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	if err := core.ParseEmailTemplates(); err != nil {
		std.Fatal(err)
	}

	// set up DB
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		std.Fatal(err)
	}

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)

	mailer := emailsvc.NewService(conf, std, logger)

	// start CLI
	cli := commandLine{
		db:         db,
		engine:     conf.Database.Engine,
		svc:        enrollment.NewService(sqlstore.NewEnrollmentRepository(db), mailer, logger, conf),
		mailer:     mailer,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
