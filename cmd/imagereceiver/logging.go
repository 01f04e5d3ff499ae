package main

import (
	"io"
	"log/slog"
	"os"

	dnssdlog "github.com/brutella/dnssd/log"
)

// setupLogging installs the default slog logger. Logs go to path when it is
// set (the TUI owns the terminal), otherwise to stderr.
func setupLogging(path string, verbose bool) (io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// dnssd logs every probe through its own loggers
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		out, closer = f, f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
