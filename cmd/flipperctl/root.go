package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flipperdevices/flipper-debug-go/internal/appconfig"
	"github.com/flipperdevices/flipper-debug-go/internal/config"
	"github.com/flipperdevices/flipper-debug-go/internal/controller"
	"github.com/flipperdevices/flipper-debug-go/internal/lifecycle"
	"github.com/flipperdevices/flipper-debug-go/internal/maintenance"
	"github.com/flipperdevices/flipper-debug-go/internal/models"
	"github.com/flipperdevices/flipper-debug-go/internal/notify"
	"github.com/flipperdevices/flipper-debug-go/internal/uiloop"
)

// Shared CLI flags
type globalFlags struct {
	cfgFile   string
	configDir string
	store     string
	verbose   bool
}

// newRootCmd configures the root command with all subcommands and flags.
func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "flipperctl",
		Short:         "Inspect and edit Flipper debug settings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			lvl := slog.LevelWarn
			if g.verbose {
				lvl = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
		},
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&g.cfgFile, "config", "", "daemon config file (default: search flipperd.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.configDir, "config-dir", "", "settings directory (default: from config)")
	rootCmd.PersistentFlags().StringVar(&g.store, "store", "", "store backend: json or sqlite (default: from config)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(listCmd(g))
	rootCmd.AddCommand(getCmd(g))
	rootCmd.AddCommand(setCmd(g))
	rootCmd.AddCommand(backupCmd(g))

	return rootCmd
}

// openStore resolves the store the daemon would use, honouring flag overrides.
func (g *globalFlags) openStore() (config.Store, string, error) {
	cfg, err := appconfig.Load(g.cfgFile)
	if err != nil {
		return nil, "", err
	}
	dir, backend := cfg.ConfigDir, cfg.Store
	if g.configDir != "" {
		dir = g.configDir
	}
	if g.store != "" {
		backend = g.store
	}
	if backend == config.BackendMemory {
		return nil, "", fmt.Errorf("the memory store is not shared with the daemon")
	}
	store, err := config.Open(backend, dir)
	if err != nil {
		return nil, "", err
	}
	return store, dir, nil
}

func listCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every debug option",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := g.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Load()
			if err != nil {
				return err
			}
			vals := st.Values()
			keys := make([]string, 0, len(vals))
			for o := range vals {
				keys = append(keys, string(o))
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-42s %v\n", k, vals[models.Option(k)])
			}
			return nil
		},
	}
}

func getCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <option>",
		Short: "Print one debug option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := models.ParseOption(args[0])
			if err != nil {
				return err
			}
			store, _, err := g.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Load()
			if err != nil {
				return err
			}
			v, _ := st.Get(opt)
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func setCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <option> <true|false>",
		Short: "Change one debug option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := models.ParseOption(args[0])
			if err != nil {
				return err
			}
			v, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("value must be true or false: %w", err)
			}
			store, _, err := g.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return setOption(cmd.Context(), store, cmd.OutOrStdout(), opt, v)
		},
	}
}

// setOption runs the change through the settings controller so the CLI
// follows the same update and notification rules as the daemon.
func setOption(ctx context.Context, store config.Store, out io.Writer, opt models.Option, v bool) error {
	err := withController(ctx, store, out, func(ctrl *controller.Controller) error {
		return ctrl.SetOption(opt, v)
	})
	if err != nil {
		return err
	}

	st, err := store.Load()
	if err != nil {
		return err
	}
	got, _ := st.Get(opt)
	fmt.Fprintf(out, "%s = %v\n", opt, got)
	return nil
}

// withController calls fn with a controller over store whose notifications
// print to out, then waits for the tasks fn started.
func withController(ctx context.Context, store config.Store, out io.Writer, fn func(*controller.Controller) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	loop := uiloop.New()
	go loop.Run(loopCtx)

	var failed error
	scope := lifecycle.NewScope(ctx, func(task string, err error) { failed = fmt.Errorf("%s: %w", task, err) })
	ctrl := controller.New(scope, controller.Deps{
		Store:    store,
		Notifier: printNotifier{out: out},
		UI:       loop,
	})
	err := fn(ctrl)
	scope.Wait()
	scope.Close()
	if err != nil {
		return err
	}
	return failed
}

// printNotifier shows notifications as plain output lines.
type printNotifier struct{ out io.Writer }

func (p printNotifier) Show(msg models.MessageID, d models.Duration) {
	fmt.Fprintf(p.out, "note: %s\n", notify.Text(msg))
}

func backupCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage settings snapshots",
	}

	backups := func() (*maintenance.Service, config.Store, error) {
		store, dir, err := g.openStore()
		if err != nil {
			return nil, nil, err
		}
		return maintenance.New(store, filepath.Join(dir, "backups"), 0), store, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Snapshot the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := backups()
			if err != nil {
				return err
			}
			defer store.Close()
			snap, err := svc.Backup()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := backups()
			if err != nil {
				return err
			}
			defer store.Close()
			snaps, err := svc.List()
			if err != nil {
				return err
			}
			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", s.Name, s.Size)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the settings with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := backups()
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()
			err = withController(cmd.Context(), store, out, func(ctrl *controller.Controller) error {
				svc.SetApplier(ctrl)
				_, err := svc.Restore(cmd.Context(), args[0])
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "restored %s\n", args[0])
			return nil
		},
	})

	return cmd
}
