package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
)

func (cli *commandLine) listMembers(role, status string) error {
	filter := &member.QueryFilter{Status: core.CleanString(status, true /* lower */)}
	if role = core.CleanString(role, true /* lower */); role != "" {
		filter.Roles = []string{role}
	}
	members, err := cli.members.QueryMembers(context.Background(), filter, []core.DBOrdering{{Field: "full_name", Ascending: true}})
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Name", "Email", "Voice", "Class", "Roles", "Active"})
	for _, m := range members {
		class := ""
		if m.ClassYear != 0 {
			class = fmt.Sprint(m.ClassYear)
		}
		active := "yes"
		if !m.Active() {
			active = "no"
		}
		tw.AppendRow(table.Row{m.FullName, m.Email, m.VoicePart, class, strings.Join(m.Roles, " "), active})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(members)})
	fmt.Fprintln(cli.out, tw.Render())
	return nil
}
