package main

import (
	"log"
	"os"

	"github.com/gleeworld/gleeworld/core"
	logsvc "github.com/gleeworld/gleeworld/services/logger"
	"github.com/gleeworld/gleeworld/storage/database"
	sqlxrepos "github.com/gleeworld/gleeworld/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	rollbar := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	rollbar.Enable(!conf.Debug)
	logger = rollbar

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:      db.DB,
		members: sqlxrepos.NewMemberRepository(db),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
