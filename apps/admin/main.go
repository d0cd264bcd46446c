package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
	logsvc "github.com/trezcool/edudesk/services/logger"
	"github.com/trezcool/edudesk/storage/database"
	"github.com/trezcool/edudesk/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), validate),
		out:    os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()

	if err != nil {
		if err != errHelp {
			if fldErrs, ok := core.FieldErrors(err, translator); ok {
				for field, msg := range fldErrs {
					log.Printf("error: %s: %s", field, msg)
				}
			} else {
				log.Printf("error: %v", err)
			}
		}
		os.Exit(1)
	}
}
