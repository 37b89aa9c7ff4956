package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/go-utils/cliutil"
	"github.com/julianstephens/go-utils/generic"
	"github.com/julianstephens/go-utils/jsonutil"

	"github.com/julianstephens/kvslite/internal/config"
	"github.com/julianstephens/kvslite/internal/kvslite/db"
	"github.com/julianstephens/kvslite/internal/kvslite/wal"
	"github.com/julianstephens/kvslite/internal/logger"
)

var (
	// ErrKeyNotFound is returned by get when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnhealthy is returned by doctor when the log has an invalid tail.
	ErrUnhealthy = errors.New("log has an invalid tail")
)

// Globals carries the flags shared by every command.
type Globals struct {
	DBPath string
	NoSync bool
	Logger logger.Logger
	Out    io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) log() logger.Logger {
	if g.Logger == nil {
		return logger.NoOpLogger{}
	}
	return g.Logger
}

func (g *Globals) open() (*db.DB, error) {
	cfg, err := config.LoadOrDefault(g.DBPath)
	if err != nil {
		return nil, err
	}
	opts := cfg.Options()
	if g.NoSync {
		opts.SyncOnWrite = false
	}
	return db.Open(g.DBPath, opts, g.log())
}

func closeDB(d *db.DB, err *error) {
	if cerr := d.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// InitCmd creates a database directory with an empty log and a default config.
type InitCmd struct{}

func (c *InitCmd) Run(g *Globals) (err error) {
	if _, err := config.Create(g.DBPath); err != nil {
		if !errors.Is(err, config.ErrConfigAlreadyExists) {
			return err
		}
		g.log().Info("config already present", "path", config.Path(g.DBPath))
	}

	d, err := g.open()
	if err != nil {
		return err
	}
	defer closeDB(d, &err)

	_, err = fmt.Fprintf(g.out(), "initialized %s\n", g.DBPath)
	return err
}

// GetCmd prints the value stored under a key.
type GetCmd struct {
	Key string `arg:"" help:"Key to retrieve"`
}

func (c *GetCmd) Run(g *Globals) (err error) {
	d, err := g.open()
	if err != nil {
		return err
	}
	defer closeDB(d, &err)

	value, found, err := d.Get([]byte(c.Key))
	if err != nil {
		return err
	}
	if !found {
		cliutil.PrintError(fmt.Sprintf("key %q not found", c.Key))
		return ErrKeyNotFound
	}

	_, err = fmt.Fprintln(g.out(), string(value))
	return err
}

// PutCmd stores a key-value pair.
type PutCmd struct {
	Key   string `arg:"" help:"Key to store"`
	Value string `arg:"" help:"Value to store"`
}

func (c *PutCmd) Run(g *Globals) (err error) {
	d, err := g.open()
	if err != nil {
		return err
	}
	defer closeDB(d, &err)

	return d.Put([]byte(c.Key), []byte(c.Value))
}

// DelCmd deletes a key. Deleting an absent key succeeds.
type DelCmd struct {
	Key string `arg:"" help:"Key to delete"`
}

func (c *DelCmd) Run(g *Globals) (err error) {
	d, err := g.open()
	if err != nil {
		return err
	}
	defer closeDB(d, &err)

	return d.Delete([]byte(c.Key))
}

// KeysCmd lists live keys in ascending order.
type KeysCmd struct{}

func (c *KeysCmd) Run(g *Globals) (err error) {
	d, err := g.open()
	if err != nil {
		return err
	}
	defer closeDB(d, &err)

	keys, err := d.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := fmt.Fprintln(g.out(), string(k)); err != nil {
			return err
		}
	}
	return nil
}

// StatsCmd displays key and log statistics.
type StatsCmd struct {
	JSON bool `help:"Print statistics as JSON" name:"json"`
}

func (c *StatsCmd) Run(g *Globals) (err error) {
	d, err := g.open()
	if err != nil {
		return err
	}
	defer closeDB(d, &err)

	stats, err := d.Stats()
	if err != nil {
		return err
	}

	if c.JSON {
		data, err := jsonutil.Marshal(stats)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(g.out(), string(data))
		return err
	}

	_, err = fmt.Fprintf(g.out(),
		"keys: %d\nlog_size: %d\nrecords: %d\ntail: %s\ndiscarded_bytes: %d\n",
		stats.KeyCount, stats.LogSize, stats.Recovery.Records,
		stats.Recovery.TailStatus, stats.Recovery.DiscardedBytes,
	)
	return err
}

// DoctorCmd scans the log without opening the database for writing.
type DoctorCmd struct{}

func (c *DoctorCmd) Run(g *Globals) error {
	stats, err := wal.Inspect(g.DBPath, g.log())
	if err != nil {
		return err
	}

	status := generic.If(stats.Clean(), "ok", "damaged")
	if _, err := fmt.Fprintf(g.out(),
		"status: %s\nrecords: %d (put %d, delete %d)\nlogical_size: %d\nphysical_size: %d\ntail: %s\n",
		status, stats.Records, stats.Puts, stats.Deletes,
		stats.LogicalSize, stats.PhysicalSize, stats.TailStatus,
	); err != nil {
		return err
	}

	if stats.Clean() {
		return nil
	}
	if _, err := fmt.Fprintf(g.out(), "discarded_bytes: %d\ncause: %v\n", stats.DiscardedBytes, stats.Cause); err != nil {
		return err
	}
	return ErrUnhealthy
}
