package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgenies/batchdsl/pkgs/engine"
	"github.com/dgenies/batchdsl/pkgs/errors"
	"github.com/dgenies/batchdsl/pkgs/plan"
	"github.com/dgenies/batchdsl/pkgs/report"
	"github.com/dgenies/batchdsl/pkgs/tools"
	"github.com/dgenies/batchdsl/pkgs/watch"
)

// uploadFlags are shared by the commands that check file references
type uploadFlags struct {
	dir   string
	names []string
}

func (u *uploadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&u.dir, "uploads", "u", "", "Directory holding the uploaded files")
	cmd.Flags().StringSliceVar(&u.names, "uploaded", nil, "Name of an uploaded file (repeatable)")
}

// files merges the upload directory listing with the names given by flag
func (u *uploadFlags) files() ([]string, error) {
	listed, err := watch.ListUploads(u.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(listed)+len(u.names))
	var all []string
	for _, name := range append(listed, u.names...) {
		if !seen[name] {
			seen[name] = true
			all = append(all, name)
		}
	}
	sort.Strings(all)
	return all, nil
}

// readInput reads the batch from a file, or from stdin for "-"
func (a *app) readInput(path string) (text, name string, err error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", errors.NewInputError("failed to read batch from stdin", err)
		}
		return string(data), "<stdin>", nil
	}
	text, err = watch.ReadBatch(path)
	return text, path, err
}

// validate loads the environment and runs one pass over the batch at path
func (a *app) validate(path string, uploads *uploadFlags) (engine.Result, string, error) {
	env, err := a.environment()
	if err != nil {
		return engine.Result{}, "", err
	}
	text, name, err := a.readInput(path)
	if err != nil {
		return engine.Result{}, "", err
	}
	files, err := uploads.files()
	if err != nil {
		return engine.Result{}, "", err
	}
	return engine.Validate(text, env, files, engine.WithLogger(a.logger)), name, nil
}

func (a *app) checkCommand() *cobra.Command {
	var (
		uploads uploadFlags
		format  report.Format
	)
	cmd := &cobra.Command{
		Use:   "check [flags] FILE|-",
		Short: "Validate a batch file and report its diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, name, err := a.validate(args[0], &uploads)
			if err != nil {
				return err
			}
			opts := report.Options{Filename: name, Color: a.useColor(a.stdout)}
			if err := report.Write(a.stdout, res, format, opts); err != nil {
				return err
			}
			if res.HasErrors() {
				return errDiagnostics
			}
			return nil
		},
	}
	uploads.register(cmd)
	cmd.Flags().Var(&format, "format", "Output format: text, json or cbor")
	return cmd
}

func (a *app) watchCommand() *cobra.Command {
	var uploads string
	cmd := &cobra.Command{
		Use:   "watch [flags] FILE",
		Short: "Validate a batch file again every time it or the uploads change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" {
				return &cliError{
					Code:    ExitInvalidArguments,
					Message: "watch needs a batch file, not stdin",
					Hint:    "use 'dgbatch check -' for piped input",
				}
			}
			env, err := a.environment()
			if err != nil {
				return err
			}
			renderer := report.NewRenderer(a.stdout, report.Options{Filename: args[0], Color: a.useColor(a.stdout)})
			return watch.Run(cmd.Context(), watch.Options{
				BatchFile: args[0],
				UploadDir: uploads,
				Env:       env,
				Logger:    a.logger,
				OnResult: func(res engine.Result) {
					if err := renderer.Render(res); err != nil {
						a.logger.Warn("failed to write report", "error", err)
					}
				},
			})
		},
	}
	cmd.Flags().StringVarP(&uploads, "uploads", "u", "", "Directory holding the uploaded files")
	return cmd
}

func (a *app) planCommand() *cobra.Command {
	var (
		uploads uploadFlags
		req     plan.Request
	)
	cmd := &cobra.Command{
		Use:   "plan [flags] FILE|-",
		Short: "Print the submission payload of a valid batch file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, name, err := a.validate(args[0], &uploads)
			if err != nil {
				return err
			}
			payload, err := plan.Build(res, req)
			if err != nil {
				if res.HasErrors() {
					opts := report.Options{Filename: name, Color: a.useColor(a.stderr)}
					if werr := report.Write(a.stderr, res, report.FormatText, opts); werr != nil {
						return werr
					}
				}
				return err
			}
			a.logger.Debug("payload built", "jobs", payload.NbJobs, "session", payload.SessionID)
			return payload.Write(a.stdout)
		},
	}
	uploads.register(cmd)
	cmd.Flags().StringVar(&req.IDJob, "id-job", "", "Job identifier of the batch")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email notified when the jobs end")
	cmd.Flags().StringVar(&req.SessionID, "session", "", "Upload session id (generated when empty)")
	_ = cmd.MarkFlagRequired("id-job")
	return cmd
}

func (a *app) toolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the aligners and options of the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment()
			if err != nil {
				return err
			}
			limit := "no job limit"
			if env.MaxJobs > 0 {
				limit = fmt.Sprintf("at most %d jobs per batch", env.MaxJobs)
			}
			fmt.Fprintf(a.stdout, "environment %s (%s), %s\n\n", env.Source, env.Version, limit)

			def, _ := env.Tools.Default()
			for _, tool := range env.Tools.List() {
				writeTool(a.stdout, tool, tool == def)
			}
			fmt.Fprintln(a.stdout, "\n* default option")
			return nil
		},
	}
}

func writeTool(w io.Writer, tool *tools.Tool, isDefault bool) {
	var notes []string
	if isDefault {
		notes = append(notes, "default")
	}
	if tool.AllVsAll {
		notes = append(notes, "all vs all")
	}
	line := fmt.Sprintf("%s  %s", tool.Name, tool.Label)
	if len(notes) > 0 {
		line += " (" + strings.Join(notes, ", ") + ")"
	}
	fmt.Fprintln(w, line)

	for _, group := range tool.Groups {
		entries := make([]string, len(group.Entries))
		for i, e := range group.Entries {
			entries[i] = e.Name
			if e.Default {
				entries[i] += "*"
			}
		}
		name := group.Name
		if group.Exclusive {
			name += " (exclusive)"
		}
		fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(entries, ", "))
	}
}
