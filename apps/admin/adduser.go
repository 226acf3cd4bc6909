package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var cliRoles = map[string]string{
	"admin":   user.RoleAdminOwner,
	"teacher": user.RoleTeacher,
	"parent":  user.RoleParent,
	"student": user.RoleStudent,
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd, role string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := core.NowFunc().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        core.NewID(),
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	if !core.ContainsString(usr.Roles, role) {
		usr.Roles = append(usr.Roles, role)
	}
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
