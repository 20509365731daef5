package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/aconbere/sssync/internal/sssync/repo"
	"github.com/aconbere/sssync/internal/termcolor"
)

func runBranch(r *repo.Repo, args []string, cw *termcolor.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sssync branch {add|switch|set|show|list} [<name>] [<hash>]")
		return 1
	}

	switch args[0] {
	case "add":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: sssync branch add <name>")
			return 1
		}
		if err := r.BranchAdd(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		return 0

	case "switch":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: sssync branch switch <name>")
			return 1
		}
		if err := r.BranchSwitch(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		return 0

	case "set":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: sssync branch set <name> <hash>")
			return 1
		}
		if err := r.BranchSet(args[1], args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		return 0

	case "show":
		head, err := r.Head()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		fmt.Println(head)
		return 0

	case "list":
		branches, err := r.BranchList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		head, err := r.Head()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
		for _, b := range branches {
			if b.Name == head {
				fmt.Printf("* %s\n", cw.Green(b.Name))
			} else {
				fmt.Printf("  %s\n", b.Name)
			}
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "error: unknown branch subcommand %q\n", args[0])
		return 1
	}
}
