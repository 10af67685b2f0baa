// Command dgbatch checks D-Genies batch files and builds their submission
// payload.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dgenies/batchdsl/pkgs/config"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitDiagnostics      = 3
)

// DebugEnvVar turns on debug logging like --debug
const DebugEnvVar = "DGBATCH_DEBUG"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds what every subcommand shares
type app struct {
	configPath string
	debug      bool
	noColor    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "dgbatch",
		Short:         "Check D-Genies batch files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(stderr, a.debug || os.Getenv(DebugEnvVar) != "")
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Environment file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		a.checkCommand(),
		a.watchCommand(),
		a.planCommand(),
		a.toolsCommand(),
	)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if err != errDiagnostics {
		formatError(stderr, err, a.useColor(stderr))
	}
	return exitCode(err)
}

// newLogger writes bare key=value records: no time, no level
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 && (attr.Key == slog.TimeKey || attr.Key == slog.LevelKey) {
				return slog.Attr{}
			}
			return attr
		},
	}))
}

func (a *app) environment() (*config.Environment, error) {
	env, err := config.Resolve(a.configPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("environment loaded", "source", env.Source, "version", env.Version, "tools", env.Tools.Len())
	return env, nil
}
