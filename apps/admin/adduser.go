package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/edudesk/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var uname, name, email, role string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update it if the username is taken. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := user.ParseRole(role)
			if err != nil {
				return err
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, created, err := cli.addUser(cmd.Context(), user.NewUser{
				Username: uname,
				Name:     name,
				Email:    email,
				Role:     r,
				Password: pwd,
			})
			if err != nil {
				return err
			}
			action := "updated"
			if created {
				action = "created"
			}
			fmt.Fprintf(cli.out, "user %q %s (%s)\n", usr.Username, action, usr.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username.")
	cmd.Flags().StringVar(&name, "name", "", "The user's full name.")
	cmd.Flags().StringVar(&email, "email", "", "The user's email address.")
	cmd.Flags().StringVar(&role, "role", "", "One of "+roleNames()+".")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

// addUser updates or creates a user.User, reporting whether it was created.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) (user.User, bool, error) {
	orig, err := cli.usrSvc.GetByUsername(ctx, nu.Username)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		usr, err := cli.usrSvc.Create(ctx, nu)
		return usr, true, err
	case err != nil:
		return user.User{}, false, err
	}

	active := true
	usr, err := cli.usrSvc.Update(ctx, orig, user.UpdateUser{
		Name:     nu.Name,
		Email:    nu.Email,
		Role:     nu.Role,
		IsActive: &active,
		Password: nu.Password,
	})
	return usr, false, err
}
