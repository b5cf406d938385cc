// sqlite-engine is a shell for a single-table database file.
//
// Usage:
//
//	sqlite-engine <filename>                        # open or create filename
//	sqlite-engine -config engine.toml <filename>    # settings from a TOML file
//	sqlite-engine -log-level debug <filename>       # override the log level
//
// Commands, one per line:
//
//	insert <id> <username> <email>
//	select [id]
//	update, delete    accepted, no effect
//	.btree            print the tree
//	.help
//	.exit             save and quit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/ynnekF/sqlite-engine/config"
	"github.com/ynnekF/sqlite-engine/executor"
	"github.com/ynnekF/sqlite-engine/internal/logger"
	"github.com/ynnekF/sqlite-engine/session"
	"github.com/ynnekF/sqlite-engine/table"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("sqlite-engine", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configFlag := flags.String("config", "", "TOML config file")
	levelFlag := flags.String("log-level", "", "log level: debug, info, warn, error")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: sqlite-engine [-config file] [-log-level level] <filename>")
		return 1
	}
	filename := flags.Arg(0)

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	if *levelFlag != "" {
		cfg.Log.Level = *levelFlag
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}

	log, closer, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closer.Close()

	db, err := table.Open(filename, table.Options{MaxPages: cfg.Storage.MaxPages, Logger: log})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	opt := session.Options{Log: log}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		opt.Prompt = cfg.Session.Prompt
	}

	err = session.New(executor.New(db, log), stdin, stdout, opt).Run(context.Background())
	if err != nil {
		log.WithError(err).Error("session ended")
		fmt.Fprintf(stderr, "error: %v\n", err)
		// the tree may be half updated; keep the file as last saved
		db.Abort()
		return 1
	}
	if err = db.Close(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
