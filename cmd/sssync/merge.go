package main

import (
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/repo"
)

func runMerge(r *repo.Repo, args []string) int {
	useRemote := false
	var branch string

	for _, arg := range args {
		if arg == "--remote" {
			useRemote = true
			continue
		}
		branch = arg
	}

	if branch == "" {
		fmt.Fprintln(os.Stderr, "usage: sssync merge <branch> [--remote]")
		return 1
	}

	commit, err := r.Merge(branch, useRemote)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	fmt.Printf("merged, HEAD now at %s\n", commit.Hash)
	return 0
}
