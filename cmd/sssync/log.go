package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/repo"
	"github.com/aconbere/sssync/internal/termcolor"
)

// runLog renders the commit chain reachable from a branch name (default),
// a commit hash (--hash), or a remote mirror's same-named branch (--remote).
func runLog(r *repo.Repo, args []string, cw *termcolor.Writer) int {
	byHash := false
	byRemote := false
	var name string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--hash":
			byHash = true
		case "--branch":
			// default resolution mode, accepted for symmetry with --hash/--remote
		case "--remote":
			byRemote = true
		default:
			name = args[i]
		}
	}

	if byRemote {
		return runLogRemote(r, name, cw)
	}

	if name == "" {
		head, err := r.Head()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
		name = head
	}

	log, err := r.Log(name, byHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	printLog(log, cw)
	return 0
}

func runLogRemote(r *repo.Repo, remoteName string, cw *termcolor.Writer) int {
	branches, err := r.RemoteBranches(remoteName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	head, err := r.Head()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	for _, b := range branches {
		if b.Name == head {
			log, err := mirrorLog(r, remoteName, b.Hash)
			if err != nil {
				fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
				return 1
			}
			printLog(log, cw)
			return 0
		}
	}
	fmt.Fprintf(os.Stderr, "fatal: remote %q has no branch named %q\n", remoteName, head)
	return 1
}

func mirrorLog(r *repo.Repo, remoteName, headHash string) ([]metadb.Commit, error) {
	remote, err := r.DB.GetRemote(remoteName)
	if err != nil {
		return nil, err
	}
	mirror, err := metadb.Open(r.L.RemoteMirrorPath(remote.Name))
	if err != nil {
		return nil, err
	}
	defer mirror.Close()
	return mirror.GetChildren(headHash)
}

func printLog(log []metadb.Commit, cw *termcolor.Writer) {
	for _, c := range log {
		fmt.Printf("%s %s\n", cw.Yellow("commit"), cw.Yellow(c.Hash))
		fmt.Printf("Author: %s\n", c.Author)
		fmt.Printf("Date:   %s\n", time.Unix(c.CreatedUnixTimestamp, 0).UTC().Format(time.RFC1123))
		fmt.Println()
		fmt.Printf("    %s\n", c.Message)
		fmt.Println()
	}
}
