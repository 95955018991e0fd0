package main

import (
	"errors"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/trezcool/asistencia/storage/database"
)

var gooseRunFunc database.GooseRunFunc = goose.Run // mockable

var errNoSQL = errors.New("migrations need the postgres storage (sqlx or gorm on postgres)")

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, version, ...) against the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.repos.SQL == nil {
		return errNoSQL
	}
	return database.RunMigrations(gooseRunFunc, cli.repos.SQL, args[0], args[1:]...)
}
