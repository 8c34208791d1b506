package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
)

var errUnknownRole = errors.New("unknown role")

// addUser updates or creates an active member.Member
func (cli *commandLine) addUser(name, email, pwd, role string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if !core.StringInSlice(role, member.AllRoles) {
		return errors.Wrap(errUnknownRole, role)
	}

	m, err := cli.members.GetMemberByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != member.ErrNotFound {
			return err
		}
		now := core.NowFunc()
		m = member.Member{
			ID:        uuid.New().String(),
			Email:     email,
			Status:    member.StatusActive,
			CreatedAt: now,
		}
	}

	m.FullName = name
	m.AddRole(role)
	if isAdmin {
		m.AddRole(member.RoleAdmin)
	}
	m.SetActive(true)
	if err = m.SetPassword(pwd); err != nil {
		return err
	}
	m.UpdatedAt = core.NowFunc()

	if exists {
		_, err = cli.members.UpdateMember(ctx, m)
	} else {
		_, err = cli.members.CreateMember(ctx, m)
	}
	return err
}
