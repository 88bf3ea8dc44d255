package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/scolarite/apps/shared"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	app *shared.App
	out io.Writer
}

func (cli *commandLine) printUsage() {
	cli.println("Usage:")
	cli.println("  adduser -name NAME -username USERNAME [-email EMAIL] [-role admin|teacher|student] [-profile ID] - create or update a user")
	cli.println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	cli.println("  createdb - create the database and its user if they do not exist")
	cli.println("  migrate [up|up-by-one|down|redo] - migrate the database (default up)")
	cli.println("  seed [COLLECTION...] - reset collections to the default data (all if none given)")
	cli.println("  schedule - schedule every pending plan")
	cli.println("  conflicts - print the conflict report")
	cli.println("  export -what plans|timetable|grades [-format csv|xlsx|pdf] [-o FILE] - export records")
}

func (cli *commandLine) println(a ...interface{}) {
	_, _ = fmt.Fprintln(cli.out, a...)
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := cli.flagSet("adduser")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "", "One of admin, teacher or student.")
	addUserProfile := addUserCmd.String("profile", "", "The teacher or student id of the user.")

	resetPasswordCmd := cli.flagSet("resetpassword")
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	exportCmd := cli.flagSet("export")
	exportWhat := exportCmd.String("what", "", "What to export: plans, timetable or grades.")
	exportFormat := exportCmd.String("format", "csv", "Export format: csv, xlsx or pdf.")
	exportOut := exportCmd.String("o", "", "Output file. Defaults to a dated file in the current directory.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if strings.TrimSpace(*addUserUname) == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, *addUserRole, *addUserProfile)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "createdb":
		return cli.createDB()

	case "migrate":
		return cli.migrate(args[2:])

	case "seed":
		return cli.seed(args[2:])

	case "schedule":
		return cli.schedule()

	case "conflicts":
		return cli.conflicts()

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *exportWhat == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportWhat, *exportFormat, *exportOut)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
