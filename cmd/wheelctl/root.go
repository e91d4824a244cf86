package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"finitefield.org/wheel-of-life/internal/platform/observability"
	"finitefield.org/wheel-of-life/internal/platform/requestctx"
	"finitefield.org/wheel-of-life/internal/state"
	"finitefield.org/wheel-of-life/internal/wheel"
)

type rootOptions struct {
	logLevel string
	state    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "wheelctl",
		Short: "Render Wheel of Life charts and reports offline",
		Long: `wheelctl reads a saved Wheel of Life state blob (the JSON stored per
session, or exported from /api/state) and renders the same chart and PDF
report the web app produces.

A missing or unreadable state file falls back to an empty wheel with a warning.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCLILogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(requestctx.WithLogger(cmd.Context(), logger))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.state, "state", "", "state blob file (- for stdin; empty for a blank wheel)")

	cmd.AddCommand(newChartCmd(opts), newReportCmd(opts), newStateCmd(opts))
	return cmd
}

// newCLILogger logs human-readable lines to w so stdout stays clean for output.
func newCLILogger(w io.Writer, level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// loadState reads the state blob at path. Absence and corruption degrade to
// defaults; only other I/O failures are errors.
func loadState(ctx context.Context, cmd *cobra.Command, path string, c *wheel.Catalog) (wheel.State, error) {
	logger := observability.FromContext(ctx)
	if path == "" {
		return wheel.NewState(), nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("state file not found; using defaults", zap.String("path", path))
		return wheel.NewState(), nil
	}
	if err != nil {
		return wheel.State{}, fmt.Errorf("read state: %w", err)
	}

	s, err := state.Decode(data, c)
	if err != nil {
		logger.Warn("state: discarding unreadable blob", zap.String("path", path), zap.Error(err))
	}
	return s, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// toStdout reports whether an --output value selects stdout.
func toStdout(path string) bool { return path == "" || path == "-" }

// openOutput returns stdout for "" or "-", otherwise creates path.
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if toStdout(path) {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// closeOutput closes out and returns the first of err and the close error.
// On failure a created file is removed so no partial output is left behind.
func closeOutput(out io.WriteCloser, err error) error {
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	if err != nil {
		if f, ok := out.(*os.File); ok {
			_ = os.Remove(f.Name())
		}
	}
	return err
}
