package main

import (
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/repo"
)

func runReset(r *repo.Repo, args []string) int {
	hard := false
	for _, arg := range args {
		if arg == "--hard" {
			hard = true
			continue
		}
		fmt.Fprintf(os.Stderr, "error: unknown option: %q\n", arg)
		return 1
	}

	if err := r.Reset(hard); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	return 0
}
