package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// logLevelAnnotation overrides the default --loglevel of a command
const logLevelAnnotation = "labelord/default-loglevel"

// enumValue is a string flag restricted to a fixed set of values
type enumValue struct {
	allowed []string
	value   string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(def string, allowed ...string) *enumValue {
	return &enumValue{allowed: allowed, value: def}
}

func (e *enumValue) String() string {
	return e.value
}

func (e *enumValue) Set(s string) error {
	for _, allowed := range e.allowed {
		if s == allowed {
			e.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
}

func (e *enumValue) Type() string {
	return "string"
}

func registerLoggingFlags(flags *pflag.FlagSet) {
	flags.Var(newEnumValue("warn", "debug", "info", "warn", "error"), "loglevel", "set the log level (debug, info, warn, error)")
	flags.Var(newEnumValue("text", "text", "json"), "logformat", "set the log format (text, json)")
}

// newLogger builds the diagnostic logger from the logging flags. Commands
// may carry a logLevelAnnotation to change the default level.
func newLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	name := cmd.Flag("loglevel").Value.String()
	if def, ok := cmd.Annotations[logLevelAnnotation]; ok && !cmd.Flags().Changed("loglevel") {
		name = def
	}
	level, err := parseLevel(name)
	if err != nil {
		return nil, err
	}
	return buildLogger(cmd.Flag("logformat").Value.String(), level, w)
}

func buildLogger(format string, level slog.Level, w io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}

func parseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", name)
	}
}
