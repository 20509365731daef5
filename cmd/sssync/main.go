package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/aconbere/sssync/internal/cli"
	"github.com/aconbere/sssync/internal/sssync/repo"
	"github.com/aconbere/sssync/internal/termcolor"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	gf, args := parseGlobalFlags(os.Args[1:])

	for _, a := range args {
		if a == "--version" {
			printVersion()
			os.Exit(0)
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	})))

	cw := termcolor.NewWriter(os.Stdout, gf.colorMode)

	app := cli.NewApp("sssync", version)
	app.Stderr = os.Stderr

	// r is declared here and assigned after dispatch determines the matched
	// command needs it (NeedsRepo). Closures capture the pointer, which is
	// populated before they execute.
	var r *repo.Repo

	app.Register(&cli.Command{
		Name:      "init",
		Summary:   "Create a new repository",
		Usage:     "sssync init <path>",
		Examples:  []string{"sssync init .", "sssync init ./assets"},
		Run:       func(args []string) int { return runInit(args) },
	})

	app.Register(&cli.Command{
		Name:      "add",
		Summary:   "Stage a file or directory",
		Usage:     "sssync add <path>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runAdd(r, args) },
	})

	app.Register(&cli.Command{
		Name:      "commit",
		Summary:   "Commit staged changes",
		Usage:     "sssync commit -m <message> [--author <name>]",
		Examples:  []string{`sssync commit -m "first"`},
		NeedsRepo: true,
		Run:       func(args []string) int { return runCommit(r, args) },
	})

	app.Register(&cli.Command{
		Name:      "status",
		Summary:   "Show the three-way working tree status",
		Usage:     "sssync status",
		NeedsRepo: true,
		Run:       func(args []string) int { return runStatus(r, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "reset",
		Summary:   "Clear staging, optionally restoring tracked files",
		Usage:     "sssync reset [--hard]",
		NeedsRepo: true,
		Run:       func(args []string) int { return runReset(r, args) },
	})

	app.Register(&cli.Command{
		Name:      "log",
		Summary:   "Show the commit log reachable from a branch, hash, or remote",
		Usage:     "sssync log [--hash|--branch|--remote] <name>",
		Examples:  []string{"sssync log --branch main", "sssync log --hash abc123"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runLog(r, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "tree",
		Summary:   "Print a commit's flattened tree",
		Usage:     "sssync tree <hash>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runTree(r, args) },
	})

	app.Register(&cli.Command{
		Name:      "diff",
		Summary:   "Print the diff between a commit and its parent",
		Usage:     "sssync diff <hash>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runDiff(r, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "checkout",
		Summary:   "Move the current branch's ref to a commit and update the working tree",
		Usage:     "sssync checkout <hash>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runCheckout(r, args) },
	})

	app.Register(&cli.Command{
		Name:      "branch",
		Summary:   "Manage local branches",
		Usage:     "sssync branch {add|switch|set|show|list} [<name>] [<hash>]",
		Examples:  []string{"sssync branch add feature", "sssync branch switch feature", "sssync branch list"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runBranch(r, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "merge",
		Summary:   "Fast-forward the current branch onto a source branch",
		Usage:     "sssync merge <branch> [--remote]",
		NeedsRepo: true,
		Run:       func(args []string) int { return runMerge(r, args) },
	})

	app.Register(&cli.Command{
		Name:     "clone",
		Summary:  "Clone a remote repository into a new directory",
		Usage:    "sssync clone <url> <path>",
		Examples: []string{"sssync clone s3://bucket/prefix ./assets"},
		Run:      func(args []string) int { return runClone(args) },
	})

	app.Register(&cli.Command{
		Name:    "remote",
		Summary: "Manage remotes and sync with them",
		Usage:   "sssync remote {add|list|init|push|fetch|remove|locate|branches} [<args>]",
		Examples: []string{
			"sssync remote add origin s3://bucket/prefix",
			"sssync remote push origin",
		},
		NeedsRepo: true,
		Run:       func(args []string) int { return runRemote(r, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "migration",
		Summary:   "Inspect migrations",
		Usage:     "sssync migration {list|show} [<id>]",
		NeedsRepo: true,
		Run:       func(args []string) int { return runMigration(r, args, cw) },
	})

	app.Register(&cli.Command{
		Name:    "version",
		Summary: "Show version information",
		Usage:   "sssync version",
		Run:     func([]string) int { printVersion(); return 0 },
	})

	if len(args) > 0 {
		cmd := app.Lookup(args[0])
		if cmd != nil && cmd.NeedsRepo {
			var err error
			r, err = repo.Open(".")
			if err != nil {
				fmt.Fprintf(os.Stderr, "sssync: %v\n", err)
				os.Exit(1)
			}
		}
	}

	code := app.Run(args, cw)
	if r != nil {
		r.Close()
	}
	os.Exit(code)
}

func logLevel() slog.Level {
	switch os.Getenv("SSSYNC_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printVersion() {
	fmt.Printf("sssync %s\n", version)
	fmt.Printf("  commit:     %s\n", commit)
	fmt.Printf("  built:      %s\n", buildDate)
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
