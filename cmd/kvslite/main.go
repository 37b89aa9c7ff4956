package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/kvslite/internal/cli"
	"github.com/julianstephens/kvslite/internal/config"
	"github.com/julianstephens/kvslite/internal/kvslite"
	"github.com/julianstephens/kvslite/internal/logger"
)

var (
	version = "kvslite v0.1.0"
)

type LogOpts struct {
	Level  string `help:"Logging level (debug, info, warn, error); defaults to the config value" envvar:"KVSLITE_LOG_LEVEL"`
	Debug  bool   `help:"Enable debug logging (overrides --level)"                              envvar:"KVSLITE_DEBUG"`
	Stream bool   `help:"Log to stdout/stderr instead of the log file"                          envvar:"KVSLITE_LOG_STREAM"`
}

type CLI struct {
	DB     string `help:"Database directory" default:"./kvslite-data" envvar:"KVSLITE_DB" type:"path"`
	NoSync bool   `help:"Skip fsync after each write"                  envvar:"KVSLITE_NO_SYNC"`

	Init   cli.InitCmd   `cmd:"" help:"Initialize a new database"`
	Get    cli.GetCmd    `cmd:"" help:"Get a value by key"`
	Put    cli.PutCmd    `cmd:"" help:"Put a key-value pair"`
	Del    cli.DelCmd    `cmd:"" help:"Delete a key"`
	Keys   cli.KeysCmd   `cmd:"" help:"List live keys"`
	Stats  cli.StatsCmd  `cmd:"" help:"Display database statistics"`
	Doctor cli.DoctorCmd `cmd:"" help:"Check log integrity without modifying it"`

	LogOpts LogOpts          `embed:"" prefix:"log-" help:"Logging options"`
	Version kong.VersionFlag `help:"Show version information" short:"V"`
}

func createLogger(opts LogOpts, dbPath string) (logger.Logger, error) {
	cfg, err := config.LoadOrDefault(dbPath)
	if err != nil {
		return nil, err
	}

	levelName := cfg.LogLevel
	if opts.Level != "" {
		levelName = opts.Level
	}
	if opts.Debug {
		levelName = "debug"
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	if opts.Stream {
		return logger.NewConsoleLogger(level), nil
	}

	logDir := cfg.LogDir
	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir = filepath.Join(homeDir, kvslite.DefaultAppDir, kvslite.DefaultLogDir)
	}
	fileLogger, err := logger.NewFileLogger(logger.FileConfig{
		Dir:        logDir,
		FileName:   kvslite.DefaultLogFileName,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}, level)
	if err != nil {
		return nil, err
	}

	// Console output is limited to warnings so command output stays readable.
	return logger.NewMultiLogger(fileLogger, logger.NewConsoleLogger(max(level, logger.LevelWarn))), nil
}

func main() {
	cliApp := &CLI{}
	ctx := kong.Parse(cliApp,
		kong.Name("kvslite"),
		kong.Description("An append-only key-value store"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	lg, err := createLogger(cliApp.LogOpts, cliApp.DB)
	if err != nil {
		ctx.FatalIfErrorf(err)
	}

	err = ctx.Run(&cli.Globals{
		DBPath: cliApp.DB,
		NoSync: cliApp.NoSync,
		Logger: lg,
	})

	if c, ok := lg.(logger.Closeable); ok {
		_ = c.Close()
	}

	switch {
	case err == nil:
	case errors.Is(err, cli.ErrKeyNotFound):
		os.Exit(1)
	case errors.Is(err, cli.ErrUnhealthy):
		os.Exit(3)
	default:
		ctx.FatalIfErrorf(err)
	}
}
