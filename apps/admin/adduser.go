package main

import (
	"context"
	"fmt"

	"github.com/innovalab/center/core/user"
)

// addUser creates a student. With isAdmin it creates an admin, or promotes an existing user and resets their password.
func (cli *commandLine) addUser(names, surnames, email, pwd string, isAdmin bool) error {
	ctx := context.Background()

	var usr user.User
	var err error
	if isAdmin {
		usr, err = cli.usrSvc.AddAdmin(ctx, names, surnames, email, pwd)
	} else {
		usr, err = cli.usrSvc.CreateStudent(ctx, names, surnames, email, pwd)
	}
	if err != nil {
		return err
	}
	fmt.Printf("user %d (%s) saved with role %q\n", usr.ID, usr.Email, usr.Role)
	return nil
}
