// Package main provides the CLI entrypoint for samplecat.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/samplecat/internal/browse"
	"github.com/verte-zerg/samplecat/internal/catalog"
	"github.com/verte-zerg/samplecat/internal/config"
	"github.com/verte-zerg/samplecat/internal/model"
	"github.com/verte-zerg/samplecat/internal/report"
	"github.com/verte-zerg/samplecat/internal/resolver"
	"github.com/verte-zerg/samplecat/internal/store"
	"github.com/verte-zerg/samplecat/internal/vocab"
	"github.com/verte-zerg/samplecat/internal/watch"
)

const (
	defaultLogLevel = "info"
	defaultWorkers  = 4
	defaultDebounce = 500 * time.Millisecond
)

var (
	logLevel string
	dbPath   string

	resolvePeriods []string
	resolveFormat  string

	scanPeriods []string
	scanWorkers int

	listType   string
	listClass  string
	listPrefix string

	showFormat string

	watchPeriods  []string
	watchWorkers  int
	watchDebounce time.Duration
)

// app holds what every command needs once flags and config are applied.
var app struct {
	dataRoot string
	logger   *log.Logger
	fileCfg  config.FileConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var rerr *resolver.Error
		if !errors.As(err, &rerr) {
			// Resolver failures were already reported as diagnostics.
			logErrf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "samplecat",
		Short:             "Locate and catalog analysis samples",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "diagnostic level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "catalog database path")

	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newPeriodsCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func setup(cmd *cobra.Command, _ []string) error {
	root, err := config.DataRoot()
	if err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Catalog.DB)
	applyIntConfig(cmd, "workers", &scanWorkers, fileCfg.Catalog.Workers)
	applyIntConfig(cmd, "workers", &watchWorkers, fileCfg.Catalog.Workers)

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level value: %w", err)
	}
	app.dataRoot = root
	app.fileCfg = fileCfg
	app.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "samplecat",
		Level:  level,
	})
	return nil
}

func newResolver() *resolver.Resolver {
	return resolver.New(resolver.Config{
		Root:      app.dataRoot,
		Constants: app.fileCfg.Constants,
		Logger:    app.logger,
	})
}

func openStore() (*store.Store, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close catalog: %v\n", cerr)
	}
}

func newPrinter(cmd *cobra.Command) *report.Printer {
	out := cmd.OutOrStdout()
	return report.NewPrinter(out, report.IsTerminal(out))
}

// periodsFlag returns nil unless the flag was given, so that an absent
// filter and an explicitly empty one stay distinct. Labels are matched
// exactly against the period table.
func periodsFlag(cmd *cobra.Command, name string, values []string) []string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <sample>",
		Short: "Resolve one sample and print it",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolveCmd,
	}
	cmd.Flags().StringSliceVarP(&resolvePeriods, "period", "p", nil, "restrict recorded data to these periods")
	cmd.Flags().StringVar(&resolveFormat, "format", string(report.FormatText), "output format (text, json, yaml)")
	return cmd
}

func runResolveCmd(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(resolveFormat)
	if err != nil {
		return err
	}
	sample, err := newResolver().Resolve(args[0], resolver.Options{
		Periods: periodsFlag(cmd, "period", resolvePeriods),
	})
	if err != nil {
		return err
	}
	return newPrinter(cmd).Sample(sample, format)
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Resolve every sample under DATAROOT into the catalog",
		Args:  cobra.NoArgs,
		RunE:  runScanCmd,
	}
	cmd.Flags().StringSliceVarP(&scanPeriods, "period", "p", nil, "restrict recorded data to these periods")
	cmd.Flags().IntVar(&scanWorkers, "workers", defaultWorkers, "concurrent resolutions")
	return cmd
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	if scanWorkers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	cat := catalog.New(newResolver(), st, app.logger, scanWorkers)
	summary, err := cat.Scan(cmd.Context(), periodsFlag(cmd, "period", scanPeriods))
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}
	return newPrinter(cmd).ScanSummary(summary)
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged samples",
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
	addFilterFlags(cmd)
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&listType, "type", "", "datatype filter (DATA or MC)")
	cmd.Flags().StringVar(&listClass, "class", "", "class filter (SIGNAL or BACKGROUND)")
	cmd.Flags().StringVar(&listPrefix, "prefix", "", "sample name prefix")
}

func catalogFilter() (model.CatalogFilter, error) {
	filter := model.CatalogFilter{Prefix: listPrefix}
	if listType != "" {
		dt, ok := vocab.ParseDataType(strings.ToUpper(listType))
		if !ok {
			return filter, fmt.Errorf("unknown --type %q: %s", listType, vocab.DescribeKnown("datatypes", vocab.DataTypeLabels()))
		}
		filter.DataType = &dt
	}
	if listClass != "" {
		ct, ok := vocab.ParseClassType(strings.ToUpper(listClass))
		if !ok {
			return filter, fmt.Errorf("unknown --class %q: %s", listClass, vocab.DescribeKnown("classes", vocab.ClassLabels()))
		}
		filter.ClassType = &ct
	}
	return filter, nil
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	filter, err := catalogFilter()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	entries, err := st.ListSamples(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list samples: %w", err)
	}
	counts, err := st.FileCounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count files: %w", err)
	}
	return newPrinter(cmd).Catalog(entries, counts)
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <sample>",
		Short: "Show a cataloged sample and its files",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCmd,
	}
	cmd.Flags().StringVar(&showFormat, "format", string(report.FormatText), "output format (text, json, yaml)")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(showFormat)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	entry, err := st.GetSample(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	return newPrinter(cmd).Entry(entry, format)
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <sample>",
		Short: "Remove a sample from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  runRmCmd,
	}
}

func runRmCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.DeleteSample(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}
	app.logger.Info("removed sample from catalog", "sample", args[0])
	return nil
}

func newPeriodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List data-taking periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return newPrinter(cmd).Periods(vocab.Periods())
		},
	}
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the catalog in sync with DATAROOT",
		Args:  cobra.NoArgs,
		RunE:  runWatchCmd,
	}
	cmd.Flags().StringSliceVarP(&watchPeriods, "period", "p", nil, "restrict recorded data to these periods")
	cmd.Flags().IntVar(&watchWorkers, "workers", defaultWorkers, "concurrent resolutions for the initial scan")
	cmd.Flags().DurationVar(&watchDebounce, "debounce", defaultDebounce, "quiet time before a changed sample is re-resolved")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	if watchWorkers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	if watchDebounce <= 0 {
		return fmt.Errorf("--debounce must be > 0")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	periods := periodsFlag(cmd, "period", watchPeriods)
	cat := catalog.New(newResolver(), st, app.logger, watchWorkers)
	summary, err := cat.Scan(cmd.Context(), periods)
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}
	if err := newPrinter(cmd).ScanSummary(summary); err != nil {
		return err
	}

	w := watch.New(app.dataRoot, func(ctx context.Context, sample string) error {
		return cat.Refresh(ctx, sample, periods)
	}, app.logger, watchDebounce)
	return w.Run(cmd.Context())
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog interactively",
		Args:  cobra.NoArgs,
		RunE:  runBrowseCmd,
	}
	addFilterFlags(cmd)
	return cmd
}

func runBrowseCmd(_ *cobra.Command, _ []string) error {
	filter, err := catalogFilter()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	program := tea.NewProgram(browse.NewModel(st, filter), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
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

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# samplecat configuration
# Uncomment a value to enable it. CLI flags override config values.
# The sample root always comes from the %s environment variable.

[catalog]
# db = %q
# workers = %d            # Concurrent resolutions during scans

[log]
# level = %q           # debug, info, warn or error

[constants]
# Named values usable in <weight> expressions, e.g. <weight>xsec*lumi</weight>
# lumi = 35.2
# xsec = 1.1e3
`,
		config.DataRootEnv,
		config.DefaultDBPath(),
		defaultWorkers,
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
