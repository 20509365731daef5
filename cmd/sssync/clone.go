package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/migration"
	"github.com/aconbere/sssync/internal/sssync/repo"
	"github.com/pterm/pterm"
)

func runClone(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: sssync clone <url> <path>")
		return 1
	}
	url, destination := args[0], args[1]

	remote := metadb.Remote{Name: "origin", Kind: inferRemoteKind(url), Location: url}

	spinner, _ := pterm.DefaultSpinner.Start("cloning...")
	cloned, err := repo.Clone(context.Background(), remote, repo.DefaultBranch, destination, migration.Config{})
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	defer cloned.Close()
	if spinner != nil {
		spinner.Success("clone complete")
	}

	fmt.Printf("cloned into %s\n", destination)
	return 0
}
