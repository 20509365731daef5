package main

import (
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/repo"
	"github.com/aconbere/sssync/internal/termcolor"
)

func runDiff(r *repo.Repo, args []string, cw *termcolor.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sssync diff <hash>")
		return 1
	}
	diff, err := r.Diff(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	for _, f := range diff.Additions {
		fmt.Printf("%s %s\n", cw.Green("A"), f.Path)
	}
	for _, f := range diff.Changes {
		fmt.Printf("%s %s\n", cw.Yellow("M"), f.Path)
	}
	for _, f := range diff.Deletions {
		fmt.Printf("%s %s\n", cw.Red("D"), f.Path)
	}
	return 0
}
