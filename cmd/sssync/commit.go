package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/aconbere/sssync/internal/sssync/commitengine"
	"github.com/aconbere/sssync/internal/sssync/repo"
)

func runCommit(r *repo.Repo, args []string) int {
	var message, author string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-m", "--message":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "error: -m requires a value")
				return 1
			}
			i++
			message = args[i]
		case "--author":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --author requires a value")
				return 1
			}
			i++
			author = args[i]
		default:
			fmt.Fprintf(os.Stderr, "error: unknown option: %q\n", args[i])
			return 1
		}
	}

	if message == "" {
		fmt.Fprintln(os.Stderr, "usage: sssync commit -m <message> [--author <name>]")
		return 1
	}
	if author == "" {
		author = resolveAuthor()
	}

	c, err := r.Commit(message, author)
	if err != nil {
		if errors.Is(err, commitengine.ErrNothingToCommit) {
			fmt.Println("nothing to commit")
			return 0
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}

	fmt.Printf("committed %s\n", c.Hash)
	return 0
}

// resolveAuthor falls back from SSSYNC_AUTHOR to the OS user, matching the
// "no config file" ambient-stack rule: nothing is persisted, it is
// re-derived at every invocation.
func resolveAuthor() string {
	if v := os.Getenv("SSSYNC_AUTHOR"); v != "" {
		return v
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
