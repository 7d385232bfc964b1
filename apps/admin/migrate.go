package main

import (
	"context"

	"github.com/eduflick/backend/storage/database"
)

var gooseRunFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(context.Background(), cli.db, cli.engine, args[0], args[1:]...)
}
