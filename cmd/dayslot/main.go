package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tj/go-naturaldate"

	"github.com/christopherklint97/dayslot/internal/calendar"
	"github.com/christopherklint97/dayslot/internal/config"
	"github.com/christopherklint97/dayslot/internal/export"
	"github.com/christopherklint97/dayslot/internal/msgraph"
	"github.com/christopherklint97/dayslot/internal/planner"
	"github.com/christopherklint97/dayslot/internal/scheduler"
	"github.com/christopherklint97/dayslot/internal/slot"
	"github.com/christopherklint97/dayslot/internal/store"
	"github.com/christopherklint97/dayslot/internal/tui"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "dayslot",
	Short: "Plan your day in ordered, stretchable time slots",
	Long:  "dayslot keeps an ordered list of things to do each day and lays them out across the day, honoring fixed start times and fixed lengths.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlan,
}

var planCmd = &cobra.Command{
	Use:   "plan [date]",
	Short: "Edit a day's plan interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlan,
}

var showCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Print a day's computed slots",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow today's plan and announce each new slot",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running watcher",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var importCmd = &cobra.Command{
	Use:   "import [ics-source|graph] [date]",
	Short: "Add a day's calendar events as fixed slots",
	Long:  "import reads an iCalendar URL or file, or Outlook when the source is \"graph\" (defaulting to calendar.source), and places each event on the date as a slot with a fixed start and length.",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runImport,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Manage calendar access",
}

var calendarAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in to Microsoft Graph to import Outlook events",
	Args:  cobra.NoArgs,
	RunE:  runCalendarAuth,
}

var exportCmd = &cobra.Command{
	Use:   "export [date]",
	Short: "Print a day's computed slots as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Manage activities shared across days",
}

var activityAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register an activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityAdd,
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities",
	Args:  cobra.NoArgs,
	RunE:  runActivityList,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs")
	exportCmd.Flags().Bool("schema", false, "Print the JSON Schema of the export instead")

	calendarCmd.AddCommand(calendarAuthCmd)
	activityCmd.AddCommand(activityAddCmd)
	activityCmd.AddCommand(activityListCmd)

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg     *config.Config
	db      *store.DB
	planner *planner.Planner
	logger  *slog.Logger
	logFile io.Closer
}

func (a *app) Close() {
	a.db.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, logFile, err := newLogger()
	if err != nil {
		return nil, err
	}

	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	templates, err := planner.CompileTemplates(cfg.Templates)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &app{
		cfg:     cfg,
		db:      db,
		planner: planner.New(db, window, templates, logger.With("component", "planner")),
		logger:  logger,
		logFile: logFile,
	}, nil
}

// newLogger writes to a file next to the config; the terminal belongs to
// the TUI.
func newLogger() (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, fmt.Errorf("creating config directory: %w", err)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "dayslot.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

func (a *app) tracker() *scheduler.Tracker {
	var notifier scheduler.Notifier
	if a.cfg.Notifications.Enabled {
		notifier = scheduler.DesktopNotifier{}
	}
	taskFile, err := a.cfg.CurrentTaskPath()
	if err != nil {
		a.logger.Warn("resolving current task file", "error", err)
		taskFile = ""
	}
	t := scheduler.NewTracker(notifier, taskFile, a.logger.With("component", "tracker"))
	t.ShareWith(a.db)
	return t
}

// parseDate accepts YYYY-MM-DD or an expression like "tomorrow". No
// argument means today.
func parseDate(args []string, idx int) (time.Time, error) {
	now := time.Now()
	if len(args) <= idx {
		return planner.Midnight(now), nil
	}
	return parseDateAt(args[idx], now)
}

func parseDateAt(s string, now time.Time) (time.Time, error) {
	if s == "today" {
		return planner.Midnight(now), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	t, err := naturaldate.Parse(s, now, naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	if t.Equal(now) {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return planner.Midnight(t), nil
}

// importArgs splits the import arguments into a calendar source and the
// remaining date arguments. A lone argument is a date when a source is
// configured and it reads as one.
func importArgs(args []string, configured string, now time.Time) (string, []string) {
	switch len(args) {
	case 0:
		return configured, nil
	case 1:
		if configured != "" {
			if _, err := parseDateAt(args[0], now); err == nil {
				return configured, args
			}
		}
		return args[0], nil
	}
	return args[0], args[1:]
}

func runPlan(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args, 0)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := a.planner.Load(date)
	if err != nil {
		return err
	}

	m := tui.NewApp(a.planner, day, tui.Options{
		DefaultLength: a.cfg.DefaultLength(),
		PollInterval:  a.cfg.PollInterval(),
		Tracker:       a.tracker(),
		Activities:    a.db,
		Logger:        a.logger.With("component", "tui"),
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args, 0)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.planner.Slots(date)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n\n", date.Format("Monday 2006-01-02"))
	if len(results) == 0 {
		fmt.Println("No slots planned.")
		return nil
	}

	for _, r := range results {
		line := fmt.Sprintf("%s-%s  %-24s %s", slot.FormatClock(r.Start), slot.FormatClock(r.End()), r.Source.Name, r.Length)
		if r.Feasibility != slot.OK {
			line += "  (" + r.Feasibility.String() + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("Watching today's plan (every %s)\n", a.cfg.PollInterval())
	w := scheduler.NewWatcher(a.planner, a.tracker(), a.cfg.PollInterval(), a.logger.With("component", "watcher"))
	return w.Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := scheduler.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to dayslot (PID %d)\n", pid)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	source, dateArgs := importArgs(args, a.cfg.Calendar.Source, time.Now())
	if source == "" {
		return errors.New("no calendar source given and calendar.source is not configured")
	}

	date, err := parseDate(dateArgs, 0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	events, err := a.calendarSource(source).Events(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	day, err := a.planner.Load(date)
	if err != nil {
		return err
	}

	placed := 0
	for _, req := range calendar.ToRequests(events, date) {
		if act, err := a.db.EnsureActivity(req.Name); err == nil {
			req.ActivityID = act.ID
		} else {
			a.logger.Warn("resolving activity", "name", req.Name, "error", err)
		}

		ok, err := a.planner.Edit(day, func(l *slot.List) bool { return l.Place(req) })
		if err != nil {
			return err
		}
		if ok {
			placed++
		}
	}

	fmt.Printf("Imported %d of %d events into %s\n", placed, len(events), store.DayKey(date))
	return nil
}

func (a *app) calendarSource(source string) calendar.Source {
	if source == "graph" {
		g := a.cfg.Calendar.Graph
		logger := a.logger.With("component", "msgraph")
		return msgraph.NewClient(msgraph.NewAuth(g.ClientID, g.TenantID, a.db, logger), logger)
	}
	return calendar.File{Location: source}
}

func runCalendarAuth(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	g := a.cfg.Calendar.Graph
	if g.ClientID == "" {
		return errors.New("calendar.graph.client_id is not configured, run 'dayslot config' to set it")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	auth := msgraph.NewAuth(g.ClientID, g.TenantID, a.db, a.logger.With("component", "msgraph"))
	dc, err := auth.StartDeviceCodeFlow(ctx)
	if err != nil {
		return err
	}
	fmt.Println(dc.Message)

	if err := auth.SignIn(ctx, dc); err != nil {
		return err
	}

	fmt.Println("Signed in. Use 'dayslot import graph' or set calendar.source = \"graph\".")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if schema, _ := cmd.Flags().GetBool("schema"); schema {
		out, err := export.Schema()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	date, err := parseDate(args, 0)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.planner.Slots(date)
	if err != nil {
		return err
	}

	out, err := export.Marshal(export.FromResults(date, a.planner.Window(), results))
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runActivityAdd(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	act, err := a.db.EnsureActivity(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", act.ID, act.Name)
	return nil
}

func runActivityList(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	acts, err := a.db.ListActivities()
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		fmt.Println("No activities yet.")
		return nil
	}
	for _, act := range acts {
		fmt.Printf("%s  %s\n", act.ID, act.Name)
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	editorPath, err := exec.LookPath(editor)
	if err != nil {
		fmt.Printf("Could not find editor. Config file is at: %s\n", configPath)
		return nil
	}
	process, err := os.StartProcess(editorPath, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
