package main

import (
	"context"

	"github.com/gleeworld/gleeworld/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	m, err := cli.members.GetMemberByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err := m.SetPassword(pwd); err != nil {
		return err
	}
	m.ForcePasswordChange = false
	m.UpdatedAt = core.NowFunc()
	if _, err := cli.members.UpdateMember(ctx, m); err != nil {
		return err
	}
	return nil
}
