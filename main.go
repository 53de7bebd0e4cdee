package main

import (
	"context"
	"fmt"
	"log"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	flag "github.com/ogier/pflag"

	"github.com/pganalyze/pgindexrebuild/config"
	"github.com/pganalyze/pgindexrebuild/runner"
	"github.com/pganalyze/pgindexrebuild/util"
)

const defaultConfigFile = "/etc/pgindexrebuild.conf"

type cliOptions struct {
	configFilename  string
	database        string
	allDatabases    bool
	user            string
	host            string
	port            int
	dryRun          bool
	minBloat        string
	alwaysDropFirst bool
	superSlimMode   bool
	repairInvalid   bool
	exclude         string
	noConcurrently  bool
	tablespaces     string
	lockFile        string
	logSyslog       bool
	noLogSyslog     bool
	logStdout       bool
	noLogStdout     bool
	quiet           bool
	verbose         bool
}

func parseFlags() cliOptions {
	var opts cliOptions

	flag.StringVarP(&opts.configFilename, "config", "c", defaultConfigFile, "Specify alternative path for config file")
	flag.StringVarP(&opts.database, "database", "d", "", "PostgreSQL database name, several can be given separated by commas")
	flag.BoolVarP(&opts.allDatabases, "all-databases", "a", false, "Run on all databases")
	flag.StringVarP(&opts.user, "user", "U", "", "PostgreSQL database user")
	flag.StringVar(&opts.host, "host", "", "PostgreSQL server host")
	flag.IntVar(&opts.port, "port", 0, "PostgreSQL server port")
	flag.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Dry run, don't do any processing")
	flag.StringVar(&opts.minBloat, "min-bloat", "", "Don't rebuild indexes with less than this much bloat (default: 8KB)")
	flag.BoolVar(&opts.alwaysDropFirst, "always-drop-first", false, "Drop the index first, then build a new one. Useful when the disk is too full for a second copy. THIS WILL DEGRADE DATABASE PERFORMANCE!")
	flag.BoolVar(&opts.superSlimMode, "super-slim-mode", false, "Same as --always-drop-first")
	flag.BoolVar(&opts.repairInvalid, "repair-invalid", false, "Also rebuild indexes that are marked invalid")
	flag.StringVar(&opts.exclude, "exclude", "", "Indexes to leave alone, separated by commas, each either \"index\" or \"database.index\"")
	flag.BoolVar(&opts.noConcurrently, "no-concurrently", false, "Build indexes without CONCURRENTLY, blocking writes to the table")
	flag.StringVar(&opts.tablespaces, "tablespace", "", "Tablespaces to build new indexes in, in order of preference, separated by commas")
	flag.StringVar(&opts.lockFile, "lock-file", "", "Use PATH as a lock file. If the lock cannot be acquired immediately, exit without changing anything")
	flag.BoolVar(&opts.logSyslog, "log-syslog", false, "Log to syslog (default)")
	flag.BoolVar(&opts.noLogSyslog, "no-log-syslog", false, "Don't log to syslog")
	flag.BoolVar(&opts.logStdout, "log-stdout", false, "Log to stdout (default)")
	flag.BoolVar(&opts.noLogStdout, "no-log-stdout", false, "Don't log to stdout")
	flag.BoolVarP(&opts.quiet, "quiet", "q", false, "Same as --no-log-stdout")
	flag.BoolVarP(&opts.verbose, "verbose", "v", false, "Outputs additional debugging information")
	flag.Parse()

	return opts
}

// applyFlags overrides the configuration with every flag given on the
// command line
func applyFlags(conf *config.Config, opts cliOptions) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "database":
			conf.DbName = opts.database
		case "all-databases":
			conf.DbAllNames = opts.allDatabases
		case "user":
			conf.DbUsername = opts.user
		case "host":
			conf.DbHost = opts.host
		case "port":
			conf.DbPort = opts.port
		case "dry-run":
			conf.DryRun = opts.dryRun
		case "min-bloat":
			conf.MinBloat = opts.minBloat
		case "always-drop-first", "super-slim-mode":
			conf.AlwaysDropFirst = opts.alwaysDropFirst || opts.superSlimMode
		case "repair-invalid":
			conf.RepairInvalid = opts.repairInvalid
		case "exclude":
			conf.ExcludeIndexes = config.SplitList(opts.exclude)
		case "no-concurrently":
			conf.BuildConcurrently = !opts.noConcurrently
		case "tablespace":
			conf.Tablespaces = config.SplitList(opts.tablespaces)
		case "lock-file":
			conf.LockFile = opts.lockFile
		case "log-syslog":
			conf.LogSyslog = opts.logSyslog
		case "no-log-syslog":
			conf.LogSyslog = !opts.noLogSyslog
		case "log-stdout":
			conf.LogStdout = opts.logStdout
		case "no-log-stdout":
			conf.LogStdout = !opts.noLogStdout
		case "quiet":
			conf.LogStdout = !opts.quiet
		case "verbose":
			conf.Verbose = opts.verbose
		}
	})
}

func main() {
	opts := parseFlags()

	logger := &util.Logger{Destination: log.New(os.Stderr, "", log.LstdFlags), Verbose: opts.verbose}

	conf, err := config.Read(logger, opts.configFilename)
	if err != nil {
		logger.PrintError("Config Error: %s", err)
		os.Exit(1)
	}
	applyFlags(conf, opts)

	logger.Verbose = conf.Verbose
	logger.Quiet = !conf.LogStdout
	if conf.LogStdout {
		logger.Destination = log.New(os.Stdout, "", log.LstdFlags)
	}
	if conf.LogSyslog {
		writer, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "pgindexrebuild")
		if err != nil {
			logger.PrintWarning("Could not connect to syslog, continuing without it: %s", err)
		} else {
			defer writer.Close()
			logger.Syslog = writer
		}
	}

	if err = conf.Finalize(); err != nil {
		logger.PrintError("Config Error: %s", err)
		os.Exit(1)
	}

	if conf.LockFile != "" {
		lockFile, ok, err := util.TryLockFile(conf.LockFile)
		if err != nil {
			logger.PrintError("Could not open lock file %s, exiting without doing anything: %s", conf.LockFile, err)
			os.Exit(1)
		}
		if !ok {
			logger.PrintInfo("Another instance of pgindexrebuild is running! Could not get a lock on %s. Exiting.", conf.LockFile)
			return
		}
		defer lockFile.Close()
		logger.PrintVerbose("Acquired a lock on %s, other instances of pgindexrebuild will not run", conf.LockFile)
	}

	runID := uuid.New()
	logger.PrintInfo("Starting run %s", runID)
	if conf.DbURL != "" {
		logger.PrintVerbose("Connecting to %s", conf.GetDbURLRedacted())
	}
	if conf.AlwaysDropFirst {
		logger.PrintWarning("Running in super slim mode. Indexes will be dropped and database performance will degrade")
	} else {
		logger.PrintInfo("Running in normal mode. Old, bloated index will be kept around.")
	}
	if conf.DryRun {
		logger.PrintInfo("Running in dry-run mode, no changes will be made")
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.PrintWarning("Received %s, stopping", sig)
		cancel()
	}()

	connector := runner.PostgresConnector{Config: conf, Logger: logger}
	ledger, err := runner.Run(ctx, conf, logger, connector)
	cancel()

	summary := fmt.Sprintf("%d rebuilt, %d rolled back, %d skipped", ledger.Committed(), ledger.RolledBack(), ledger.Skipped())
	if conf.DryRun {
		logger.PrintInfo("Finish. Dry run, no changes were made (%s) [run %s]", summary, runID)
	} else {
		logger.PrintInfo("Finish. Saved %s in total (%s) [run %s]", util.FormatBytes(ledger.TotalBytes()), summary, runID)
	}

	if err != nil {
		logger.PrintError("Error: %s", err)
		os.Exit(1)
	}
}
