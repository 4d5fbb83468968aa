// Command ntag424ctl is an operator CLI around the ntag424 secure
// messaging driver: authenticate, read/write application data, inspect
// and change file settings, roll keys, and run basic diagnostics
// against a connected NTAG-424 DNA tag.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ntag424dna/hostdriver/internal/config"
	"github.com/ntag424dna/hostdriver/ntag424"
	"github.com/ntag424dna/hostdriver/transport"
)

const version = "0.1.0"

var (
	cfgPath    string
	verbose    bool
	logFormat  string
	readerFlag int

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "ntag424ctl",
	Short:   "NTAG-424 DNA secure-messaging driver CLI",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml (defaults next to the executable, then cwd)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().IntVarP(&readerFlag, "reader", "r", -1, "PC/SC reader index (overrides config runtime.reader_index)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}
}

func loadConfig() error {
	path := cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultPath("config.yaml")
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	cfg = c
	slog.Debug("config loaded", "path", path)
	return nil
}

// readerIndex returns the effective reader index: the --reader flag
// when set, else config.runtime.reader_index.
func readerIndex() int {
	if readerFlag >= 0 {
		return readerFlag
	}
	return *cfg.Runtime.ReaderIndex
}

// connectAndSelect opens the PC/SC connection, builds an Engine around
// it, and selects the given application file before returning.
func connectAndSelect(file ntag424.FileID) (*transport.Connection, *ntag424.Engine, error) {
	conn, err := transport.Connect(readerIndex())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to reader: %w", err)
	}
	slog.Info("connected", "reader", conn.Reader())

	eng := ntag424.New(conn)
	if err := eng.SelectFile(file); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("select file: %w", err)
	}
	return conn, eng, nil
}

// connectOnly opens the PC/SC connection without selecting any
// application file, for PICC-level diagnostics like GetVersion.
func connectOnly() (*transport.Connection, error) {
	conn, err := transport.Connect(readerIndex())
	if err != nil {
		return nil, fmt.Errorf("connect to reader: %w", err)
	}
	slog.Info("connected", "reader", conn.Reader())
	return conn, nil
}

// loadSlotKey resolves and loads the .hex key configured for slot.
func loadSlotKey(slot byte) ([]byte, error) {
	if slot == 0 {
		return ntag424.LoadKeyHexFile(cfg.Keys.MasterKeyFile)
	}
	path, ok := cfg.Keys.SlotKeyFiles[fmt.Sprintf("%d", slot)]
	if !ok || path == "" {
		return nil, fmt.Errorf("no key file configured for slot %d", slot)
	}
	return ntag424.LoadKeyHexFile(path)
}

func fileIDFromFlag(name string) (ntag424.FileID, error) {
	switch name {
	case "cc":
		return ntag424.FileCC, nil
	case "ndef":
		return ntag424.FileNDEF, nil
	case "proprietary":
		return ntag424.FileProprietary, nil
	default:
		return 0, fmt.Errorf("unknown --file %q (want cc, ndef, or proprietary)", name)
	}
}
