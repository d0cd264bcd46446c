package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) deleteUserCmd() *cobra.Command {
	var uname string

	cmd := &cobra.Command{
		Use:   "deleteuser",
		Short: "Delete a user along with its student or teacher profile and their records.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			usr, err := cli.usrSvc.GetByUsername(cmd.Context(), uname)
			if err != nil {
				return err
			}
			if _, err := cli.usrSvc.Delete(cmd.Context(), usr.ID); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %q deleted\n", usr.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username.")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
