package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aconbere/sssync/internal/sssync/repo"
	"github.com/aconbere/sssync/internal/termcolor"
)

func runMigration(r *repo.Repo, args []string, cw *termcolor.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sssync migration {list|show} [<id>]")
		return 1
	}

	switch args[0] {
	case "list":
		migrations, err := r.MigrationList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		for _, m := range migrations {
			fmt.Printf("%d\t%s\t%s\t%s\n", m.ID, m.Kind, m.RemoteName, stateColor(cw, string(m.State)))
		}
		return 0

	case "show":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: sssync migration show <id>")
			return 1
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid migration id %q\n", args[1])
			return 1
		}
		m, transfers, err := r.MigrationShow(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		fmt.Printf("migration %d: %s %s (%s) — %s\n", m.ID, m.Kind, m.RemoteName, m.RemoteKind, stateColor(cw, string(m.State)))
		for _, t := range transfers {
			fmt.Printf("  %s\t%s\n", t.ObjectHash, stateColor(cw, string(t.State)))
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "error: unknown migration subcommand %q\n", args[0])
		return 1
	}
}

func stateColor(cw *termcolor.Writer, state string) string {
	switch state {
	case "complete":
		return cw.Green(state)
	case "failed":
		return cw.Red(state)
	case "running", "waiting":
		return cw.Yellow(state)
	default:
		return state
	}
}
