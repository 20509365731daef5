package main

import (
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/repo"
)

func runInit(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sssync init <path>")
		return 1
	}
	path := args[0]

	if err := os.MkdirAll(path, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}

	r, err := repo.Init(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	defer r.Close()

	fmt.Printf("initialized empty repository in %s\n", path)
	return 0
}
