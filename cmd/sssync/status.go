package main

import (
	"fmt"

	"github.com/aconbere/sssync/internal/sssync/repo"
	"github.com/aconbere/sssync/internal/termcolor"
)

func runStatus(r *repo.Repo, _ []string, cw *termcolor.Writer) int {
	st, err := r.Status()
	if err != nil {
		fmt.Printf("fatal: %v\n", err)
		return 1
	}

	fmt.Printf("On branch %s\n", cw.Green(st.RefName))
	if st.Head == nil {
		fmt.Println("No commits yet")
	}

	if len(st.StagedAdditions) > 0 || len(st.StagedDeletions) > 0 {
		fmt.Println("Changes staged for commit:")
		for _, c := range st.StagedAdditions {
			fmt.Printf("\t%s %s\n", cw.Green("new file:"), c.Path)
		}
		for _, c := range st.StagedDeletions {
			fmt.Printf("\t%s   %s\n", cw.Green("deleted:"), c.Path)
		}
		fmt.Println()
	}

	if len(st.StagedButChanged) > 0 || len(st.StagedButDeleted) > 0 || len(st.StagedButAdded) > 0 {
		fmt.Println("Staging stale relative to working tree:")
		for _, c := range st.StagedButChanged {
			fmt.Printf("\t%s %s\n", cw.Yellow("modified since staged:"), c.Path)
		}
		for _, c := range st.StagedButDeleted {
			fmt.Printf("\t%s  %s\n", cw.Yellow("deleted since staged:"), c.Path)
		}
		for _, c := range st.StagedButAdded {
			fmt.Printf("\t%s    %s\n", cw.Yellow("re-added since staged:"), c.Path)
		}
		fmt.Println()
	}

	if len(st.UnstagedAdditions) > 0 || len(st.UnstagedDeletions) > 0 {
		fmt.Println("Changes not staged for commit:")
		for _, e := range st.UnstagedAdditions {
			fmt.Printf("\t%s %s\n", cw.Red("new file:"), e.Path)
		}
		for _, f := range st.UnstagedDeletions {
			fmt.Printf("\t%s   %s\n", cw.Red("deleted:"), f.Path)
		}
		fmt.Println()
	}

	if !st.HasUncommittedChanges() {
		fmt.Println("nothing to commit, working tree clean")
	}
	return 0
}
