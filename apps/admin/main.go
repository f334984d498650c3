package main

import (
	"context"
	"log"
	"os"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/user"
	logsvc "github.com/innovalab/center/services/logger"
	"github.com/innovalab/center/storage/database"
	"github.com/innovalab/center/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(false)

	// set up DB
	ctx := context.Background()
	errAndDie(database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), nil /* no mails */, appLogger, nil),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
