package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/edudesk/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return runMigrationsFunc(cmd.Context(), cli.db, args[0], args[1:]...)
		},
	}
}
