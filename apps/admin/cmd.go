package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/gleeworld/gleeworld/core/member"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB // nil in tests
	members member.Repository
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                            - run a database migration command (up, down, status, redo, ...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-admin] [-role ROLE] - create or update a member; the password is prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                           - reset a member's password")
	fmt.Fprintln(cli.out, "  members [-role ROLE] [-status STATUS]                - list members")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The member's full name.")
	addUserEmail := addUserCmd.String("email", "", "The member's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role.")
	addUserRole := addUserCmd.String("role", member.RoleMember, "The member's role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The member's email. The password will be prompted next.")

	membersCmd := flag.NewFlagSet("members", flag.ContinueOnError)
	membersRole := membersCmd.String("role", "", "Only list members with this role.")
	membersStatus := membersCmd.String("status", "", "Only list members with this status.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, membersCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, *addUserRole, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "members":
		if err := membersCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.listMembers(*membersRole, *membersStatus)

	default:
		cli.printUsage()
		return errHelp
	}
}
