package main

import (
	"context"

	"github.com/gleeworld/gleeworld/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(context.Background(), cli.db, args[0], args[1:]...)
}
