package main

import (
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/repo"
)

func runCheckout(r *repo.Repo, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sssync checkout <hash>")
		return 1
	}
	if err := r.Checkout(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	return 0
}
