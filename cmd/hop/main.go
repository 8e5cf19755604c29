package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/hop/internal/config"
	herrors "github.com/pbaille/hop/internal/errors"
	"github.com/pbaille/hop/internal/finder"
	"github.com/pbaille/hop/internal/logging"
	"github.com/pbaille/hop/internal/output"
	"github.com/pbaille/hop/internal/shell"
)

var (
	configFile string
	verbosity  int
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one hop invocation and returns its exit code
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return herrors.ExitOK
	}
	// no match is reported through the exit code only
	if herrors.CodeOf(err) != herrors.NoMatch {
		fmt.Fprintf(stderr, "hop: %v\n", err)
		if hint := herrors.Hint(err); hint != "" {
			fmt.Fprintf(stderr, "hint: %s\n", hint)
		}
	}
	return herrors.ExitCode(err)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hop",
		Short:         "Jump to frecent directories by fuzzy name",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/hop/config.toml)")
	pf.String("data-dir", "", "directory holding the history database")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-file", "", "also append logs to this file")
	pf.CountVarP(&verbosity, "verbose", "v", "more logging, repeatable")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(removeCmd())
	rootCmd.AddCommand(pruneCmd())
	rootCmd.AddCommand(rescaleCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// env is what every command gets after flags are parsed
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	close  func()
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	level := logging.LevelFromVerbosity(logging.LevelFromString(cfg.LogLevel), verbosity)
	logger, closer, err := logging.Open(level, cfg.LogFile)
	if err != nil {
		return nil, herrors.New(herrors.InvalidConfig, "cannot open log file", err).WithPath(cfg.LogFile)
	}
	logger.Debug("loaded config", "data_dir", cfg.DataDir, "command", cmd.Name())

	return &env{cfg: cfg, logger: logger, close: func() { closer.Close() }}, nil
}

func getFinder(cmd *cobra.Command) (*finder.Finder, func(), error) {
	e, err := loadEnv(cmd)
	if err != nil {
		return nil, nil, err
	}
	f, err := finder.Open(e.cfg, e.logger)
	if err != nil {
		e.close()
		return nil, nil, err
	}
	return f, func() {
		f.Close()
		e.close()
	}, nil
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Record a visit to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			f, err := finder.Open(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer f.Close()

			if _, err := f.Add(cmd.Context(), args[0]); err != nil {
				// a bad path must never break the shell hook
				if herrors.CodeOf(err) == herrors.InvalidPath {
					e.logger.Warn("skipping path", "path", args[0], "error", err)
					return nil
				}
				return err
			}
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		all     bool
		exclude []string
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Print the best matching directory",
		Long: "Print the best matching directory for the query, or every match with -a.\n" +
			"Query words are fragments matched in order against path components.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, done, err := getFinder(cmd)
			if err != nil {
				return err
			}
			defer done()

			results, err := f.Search(cmd.Context(), strings.Join(args, " "), finder.SearchOptions{
				Exclude: exclude,
				All:     all,
			})
			if err != nil {
				return err
			}
			return output.Paths(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "print every match, best first")
	cmd.Flags().StringArrayVarP(&exclude, "exclude", "e", nil, "never return this path (repeatable)")
	return cmd
}

func initCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:       "init <bash|zsh|fish>",
		Short:     "Print the shell integration script",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := shell.Parse(args[0])
			if err != nil {
				return err
			}
			bin, err := os.Executable()
			if err != nil {
				bin = "hop"
			}
			return shell.Render(cmd.OutOrStdout(), sh, shell.Options{Binary: bin, Command: name})
		},
	}

	cmd.Flags().StringVar(&name, "cmd", shell.DefaultCommand, "name of the jump function")
	return cmd
}

func listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known directories, most frecent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, done, err := getFinder(cmd)
			if err != nil {
				return err
			}
			defer done()

			entries, err := f.List(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return output.JSON(w, entries)
			}
			styled := false
			if file, ok := w.(*os.File); ok {
				styled = output.IsTerminal(file)
			}
			return output.Table(w, entries, time.Now(), styled)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON lines")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Forget a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, done, err := getFinder(cmd)
			if err != nil {
				return err
			}
			defer done()

			removed, err := f.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.ErrOrStderr(), "hop: %s is not tracked\n", args[0])
			}
			return nil
		},
	}
}

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Forget directories that no longer exist or are excluded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, done, err := getFinder(cmd)
			if err != nil {
				return err
			}
			defer done()

			n, err := f.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries\n", n)
			return nil
		},
	}
}

func rescaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescale",
		Short: "Divide every visit count by the rescale factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, done, err := getFinder(cmd)
			if err != nil {
				return err
			}
			defer done()
			return f.Rescale(cmd.Context())
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			f, err := finder.Open(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.Check(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", e.cfg.StorePath())
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			out, err := e.cfg.Encode()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
