// Package main provides the CLI entrypoint for leetboard.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/leetboard/internal/config"
	"github.com/verte-zerg/leetboard/internal/facet"
	"github.com/verte-zerg/leetboard/internal/leetify"
	"github.com/verte-zerg/leetboard/internal/logging"
	"github.com/verte-zerg/leetboard/internal/model"
	"github.com/verte-zerg/leetboard/internal/refresh"
	"github.com/verte-zerg/leetboard/internal/snapshot"
	"github.com/verte-zerg/leetboard/internal/stats"
	"github.com/verte-zerg/leetboard/internal/statsui"
	"github.com/verte-zerg/leetboard/internal/store"
)

const (
	defaultHistoryLast = 20
	timeLayout         = "2006-01-02 15:04"
)

var (
	settings config.Settings

	logLevel  string
	logFormat string

	refreshRate    float64
	refreshTimeout time.Duration

	trackLabel string

	showPlayers []string
	showWidth   int
	showColor   bool

	dashboardPlayers []string
	dashboardFacets  []string
	dashboardColor   bool

	historyLast   int
	historyLatest bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "leetboard",
		Short:             "Leetify stats dashboard for a group of players",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: loadSettings,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "log format (console, json)")

	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newTrackCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newFacetsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	resolved, err := config.Resolve(fileCfg, env)
	if err != nil {
		return err
	}
	applyStringFlag(cmd, "log-level", &resolved.LogLevel, &logLevel)
	applyStringFlag(cmd, "log-format", &resolved.LogFormat, &logFormat)
	if err := resolved.Validate(); err != nil {
		return err
	}
	settings = resolved

	logging.Init(logging.Config{Level: settings.LogLevel, Format: settings.LogFormat, Output: os.Stderr})
	logging.Debug().
		Str("data_dir", settings.DataDir).
		Str("db", settings.DBPath).
		Str("base_url", settings.BaseURL).
		Msg("settings resolved")
	return nil
}

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh [steam-id...]",
		Short: "Fetch and store profiles for the given or all tracked players",
		RunE:  runRefreshCmd,
	}
	cmd.Flags().Float64Var(&refreshRate, "rate", config.DefaultRate, "maximum requests per second")
	cmd.Flags().DurationVar(&refreshTimeout, "timeout", config.DefaultTimeout, "per-request timeout")
	return cmd
}

func runRefreshCmd(cmd *cobra.Command, args []string) error {
	applyFloatConfig(cmd, "rate", &refreshRate, &settings.Rate)
	applyDurationConfig(cmd, "timeout", &refreshTimeout, &settings.Timeout)
	if refreshRate <= 0 {
		return fmt.Errorf("--rate must be > 0")
	}
	if refreshTimeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if err := settings.RequireAPIKey(); err != nil {
		return err
	}

	st, err := store.Open(settings.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ids, err := parseIdentities(args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		ids, err = trackedIdentities(ctx, st)
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		logErrln("No players tracked. Add one with: leetboard track add <steam-id>")
		return fmt.Errorf("no players to refresh")
	}

	client := leetify.New(leetify.Config{
		BaseURL: settings.BaseURL,
		APIKey:  settings.APIKey,
		Timeout: refreshTimeout,
	})
	refresher := refresh.New(client, snapshot.Open(settings.DataDir), refresh.Options{
		Rate:    refreshRate,
		History: st,
	})
	summary := refresher.Run(ctx, ids)
	if err := writeSummary(cmd.OutOrStdout(), summary); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if summary.Succeeded() == 0 {
		return fmt.Errorf("all %d refreshes failed", len(summary.Results))
	}
	return nil
}

func writeSummary(w io.Writer, summary refresh.Summary) error {
	for _, r := range summary.Results {
		var line string
		if r.Outcome == refresh.Succeeded {
			line = fmt.Sprintf("ok      %d  %s", r.Identity, r.DisplayName)
		} else {
			line = fmt.Sprintf("failed  %d  %s: %v", r.Identity, r.Outcome, r.Err)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d of %d players refreshed\n", summary.Succeeded(), len(summary.Results))
	return err
}

// trackedIdentities merges config ids with the tracked list.
func trackedIdentities(ctx context.Context, st *store.Store) ([]int64, error) {
	tracked, err := st.ListTracked(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked players: %w", err)
	}
	ids := append([]int64{}, settings.Players...)
	for _, p := range tracked {
		ids = append(ids, p.Identity)
	}
	ids = lo.Uniq(ids)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func parseIdentities(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseIdentity(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return lo.Uniq(ids), nil
}

// parseIdentity accepts Steam64, Steam3 and Steam2 forms.
func parseIdentity(value string) (int64, error) {
	value = strings.TrimSpace(value)
	sid := steamid.New(value)
	if !sid.Valid() {
		return 0, fmt.Errorf("invalid steam id %q", value)
	}
	return sid.Int64(), nil
}

func newTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage tracked players",
	}
	add := &cobra.Command{
		Use:   "add <steam-id>...",
		Short: "Track players",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTrackAddCmd,
	}
	add.Flags().StringVar(&trackLabel, "label", "", "note shown in track list")
	remove := &cobra.Command{
		Use:   "remove <steam-id>...",
		Short: "Stop tracking players",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTrackRemoveCmd,
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List tracked players",
		Args:  cobra.NoArgs,
		RunE:  runTrackListCmd,
	}
	cmd.AddCommand(add, remove, list)
	return cmd
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	st, err := store.Open(settings.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return fn(context.Background(), st)
}

func runTrackAddCmd(cmd *cobra.Command, args []string) error {
	ids, err := parseIdentities(args)
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		for _, id := range ids {
			if err := st.TrackPlayer(ctx, model.TrackedPlayer{Identity: id, Label: trackLabel}); err != nil {
				return fmt.Errorf("failed to track %d: %w", id, err)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "tracking %d\n", id); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	})
}

func runTrackRemoveCmd(cmd *cobra.Command, args []string) error {
	ids, err := parseIdentities(args)
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		for _, id := range ids {
			removed, err := st.UntrackPlayer(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to untrack %d: %w", id, err)
			}
			if !removed {
				if lo.Contains(settings.Players, id) {
					logErrf("%d is listed in %s; remove it there\n", id, config.DefaultConfigPath())
				} else {
					logErrf("%d was not tracked\n", id)
				}
				continue
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "stopped tracking %d\n", id); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	})
}

func runTrackListCmd(cmd *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		tracked, err := st.ListTracked(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tracked players: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, id := range settings.Players {
			if _, err := fmt.Fprintf(out, "%d  (config)\n", id); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		for _, p := range tracked {
			line := fmt.Sprintf("%d  added %s", p.Identity, p.AddedAt.Local().Format(timeLayout))
			if p.Label != "" {
				line += "  " + p.Label
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if len(tracked) == 0 && len(settings.Players) == 0 {
			logErrln("No players tracked. Add one with: leetboard track add <steam-id>")
		}
		return nil
	})
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [facet...]",
		Short: "Print facet tables and charts",
		RunE:  runShowCmd,
	}
	cmd.Flags().StringSliceVar(&showPlayers, "players", nil, "comma-separated display names (default: all)")
	cmd.Flags().IntVar(&showWidth, "width", 0, "output width (default: terminal width)")
	cmd.Flags().BoolVar(&showColor, "color", false, "force colored output")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	if showWidth < 0 {
		return fmt.Errorf("--width must be >= 0")
	}
	cfg := model.ShowConfig{
		Facets:  args,
		Players: statsui.ParsePlayers(strings.Join(showPlayers, ",")),
		Width:   showWidth,
		Color:   showColor,
	}
	facets, err := facet.Resolve(cfg.Facets)
	if err != nil {
		return err
	}
	report, err := stats.BuildReport(snapshot.Open(settings.DataDir), facets)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings() {
		logErrf("warning: %s\n", w)
	}
	if len(report.Records) == 0 {
		logErrln("No player records found. Run: leetboard refresh")
		return nil
	}

	out := cmd.OutOrStdout()
	for i, view := range report.Select(cfg.Players).Views {
		if i > 0 {
			if _, err := fmt.Fprintln(out, ""); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if err := stats.RenderFacet(out, view, cfg.Width, cfg.Color); err != nil {
			return fmt.Errorf("failed to render %s: %w", view.Facet.Key, err)
		}
	}
	return nil
}

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE:  runDashboardCmd,
	}
	cmd.Flags().StringSliceVar(&dashboardPlayers, "players", nil, "comma-separated display names (default: all)")
	cmd.Flags().StringSliceVar(&dashboardFacets, "facets", nil, "comma-separated facet keys (default: all)")
	cmd.Flags().BoolVar(&dashboardColor, "color", true, "colored charts")
	return cmd
}

func runDashboardCmd(_ *cobra.Command, _ []string) error {
	cfg := model.ShowConfig{
		Facets:  dashboardFacets,
		Players: statsui.ParsePlayers(strings.Join(dashboardPlayers, ",")),
		Color:   dashboardColor,
	}
	facets, err := facet.Resolve(cfg.Facets)
	if err != nil {
		return err
	}
	ui := statsui.NewModel(snapshot.Open(settings.DataDir), facets, cfg)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show refresh attempts",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", defaultHistoryLast, "number of attempts to show (0 for all)")
	cmd.Flags().BoolVar(&historyLatest, "latest", false, "show only the latest attempt per player")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		var attempts []model.RefreshAttempt
		var err error
		if historyLatest {
			attempts, err = st.LatestAttempts(ctx)
		} else {
			attempts, err = st.ListAttempts(ctx, historyLast)
		}
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(attempts) == 0 {
			logErrln("No refresh attempts recorded yet.")
			return nil
		}
		return writeAttempts(cmd.OutOrStdout(), attempts)
	})
}

func writeAttempts(w io.Writer, attempts []model.RefreshAttempt) error {
	for _, a := range attempts {
		status := "ok"
		if !a.OK {
			status = "error: " + a.Error
		}
		name := a.DisplayName
		if name == "" {
			name = "-"
		}
		if _, err := fmt.Fprintf(w, "%s  %d  %s  %s\n", a.AttemptedAt.Local().Format(timeLayout), a.Identity, name, status); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newFacetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "List available facets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range facet.All() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", f.Key, f.Title); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		// The config file may be the thing that is broken.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE:              runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// applyStringFlag copies an explicitly set flag over a resolved setting.
func applyStringFlag(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = strings.ToLower(strings.TrimSpace(*value))
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target, value *time.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# leetboard configuration
# Uncomment a value to enable it. Environment variables override config
# values and CLI flags override both. The API key is read from
# LEETIFY_API_KEY (a .env file in the working directory also works).

[api]
# base-url = %q
# timeout = %q             # Per-request timeout
# rate = %.1f                # Maximum requests per second

[players]
# ids = [76561197960265728] # Steam64 ids refreshed besides "leetboard track add"

[storage]
# data-dir = %q

[log]
# level = %q             # trace, debug, info, warn, error, disabled
# format = %q         # console or json
`,
		config.DefaultBaseURL,
		config.DefaultTimeout.String(),
		config.DefaultRate,
		config.DefaultDataDir(),
		config.DefaultLogLevel,
		config.DefaultLogFormat,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
