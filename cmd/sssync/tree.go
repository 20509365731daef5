package main

import (
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/repo"
)

func runTree(r *repo.Repo, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sssync tree <hash>")
		return 1
	}
	tree, err := r.Tree(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	for _, f := range tree {
		fmt.Printf("%s: %s\n", f.Path, f.FileHash)
	}
	return 0
}
