package tui

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/christopherklint97/dayslot/internal/planner"
	"github.com/christopherklint97/dayslot/internal/scheduler"
	"github.com/christopherklint97/dayslot/internal/slot"
	"github.com/christopherklint97/dayslot/internal/store"
)

// ActivityStore resolves slot names to stable activity IDs.
type ActivityStore interface {
	EnsureActivity(name string) (*store.Activity, error)
}

type Options struct {
	DefaultLength time.Duration
	PollInterval  time.Duration
	Tracker       *scheduler.Tracker // nil disables tracking
	Activities    ActivityStore      // nil leaves activity IDs untouched
	Logger        *slog.Logger
}

type tickMsg time.Time

type App struct {
	planner *planner.Planner
	opts    Options
	logger  *slog.Logger

	day    *planner.Day
	row    int
	col    column
	edit   editModel
	status string
	errMsg string

	now func() time.Time
}

func NewApp(p *planner.Planner, day *planner.Day, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.DefaultLength <= 0 {
		opts.DefaultLength = time.Hour
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &App{
		planner: p,
		opts:    opts,
		logger:  logger,
		day:     day,
		edit:    newEditModel(),
		now:     time.Now,
	}
}

func (a *App) Init() tea.Cmd {
	a.observe()
	return a.tick()
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.opts.PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		a.observe()
		return a, a.tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.edit.active {
			return a.updateEditing(msg)
		}
		return a.updateNavigating(msg)
	}

	if a.edit.active {
		var cmd tea.Cmd
		a.edit, cmd = a.edit.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.edit = a.edit.close()
		return a, nil
	case "enter":
		req, ok := a.day.Requests.At(a.row)
		a.edit = a.edit.close()
		if !ok {
			return a, nil
		}
		fn, err := a.edit.apply(a.row, req, a.reference())
		if err != nil {
			a.status = err.Error()
			return a, nil
		}
		if a.edit.field == colName {
			fn = a.withActivity(fn)
		}
		a.apply(fn)
		return a, nil
	}

	var cmd tea.Cmd
	a.edit, cmd = a.edit.Update(msg)
	return a, cmd
}

func (a *App) updateNavigating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.status = ""
	n := a.day.Requests.Len()

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Up):
		if a.row > 0 {
			a.row--
		}
	case key.Matches(msg, keys.Down):
		if a.row < n-1 {
			a.row++
		}
	case key.Matches(msg, keys.Left):
		if a.col > 0 {
			a.col--
		}
	case key.Matches(msg, keys.Right):
		if a.col < numColumns-1 {
			a.col++
		}
	case key.Matches(msg, keys.Insert):
		req := slot.NewRequest(slot.DefaultName, a.opts.DefaultLength)
		a.apply(func(l *slot.List) bool { return l.Insert(a.row, req) })
	case key.Matches(msg, keys.Delete):
		row := a.row
		if n > 0 && a.apply(func(l *slot.List) bool { return l.Remove(row) }) && a.row >= a.day.Requests.Len() {
			a.row = max(0, a.day.Requests.Len()-1)
		}
	case key.Matches(msg, keys.SwapUp):
		row := a.row
		if row > 0 && a.apply(func(l *slot.List) bool { return l.Swap(row, row-1) }) {
			a.row--
		}
	case key.Matches(msg, keys.SwapDown):
		row := a.row
		if row < n-1 && a.apply(func(l *slot.List) bool { return l.Swap(row, row+1) }) {
			a.row++
		}
	case key.Matches(msg, keys.BeginNow):
		row, start := a.row, slot.SinceMidnight(a.now())
		if n == 0 {
			break
		}
		a.apply(func(l *slot.List) bool { return l.SetStart(row, start) })
	case key.Matches(msg, keys.PrevDay):
		a.switchDay(-1)
	case key.Matches(msg, keys.NextDay):
		a.switchDay(1)
	case key.Matches(msg, keys.Edit):
		return a.startEdit()
	}
	return a, nil
}

func (a *App) startEdit() (tea.Model, tea.Cmd) {
	req, ok := a.day.Requests.At(a.row)
	if !ok {
		return a, nil
	}
	row := a.row

	switch a.col {
	case colStart:
		if req.HasFixedStart {
			a.apply(func(l *slot.List) bool { return l.UnsetStart(row) })
			return a, nil
		}
	case colLength:
		req.FixedLength = !req.FixedLength
		a.apply(func(l *slot.List) bool { return l.Replace(row, req) })
		return a, nil
	}

	var cmd tea.Cmd
	a.edit, cmd = a.edit.open(a.col, req)
	return a, cmd
}

// apply runs fn against the day and reports whether it was accepted.
func (a *App) apply(fn func(*slot.List) bool) bool {
	changed, err := a.planner.Edit(a.day, fn)
	if err != nil {
		a.errMsg = err.Error()
		a.logger.Error("saving edit", "error", err)
		return changed
	}
	if !changed {
		a.status = "edit rejected: fixed starts must stay in order"
		return false
	}
	a.errMsg = ""
	a.observe()
	return true
}

func (a *App) withActivity(fn func(*slot.List) bool) func(*slot.List) bool {
	if a.opts.Activities == nil {
		return fn
	}
	row := a.row
	return func(l *slot.List) bool {
		if !fn(l) {
			return false
		}
		req, _ := l.At(row)
		act, err := a.opts.Activities.EnsureActivity(req.Name)
		if err != nil {
			a.logger.Warn("resolving activity", "name", req.Name, "error", err)
			return true
		}
		if act.ID != req.ActivityID {
			req.ActivityID = act.ID
			l.Replace(row, req)
		}
		return true
	}
}

func (a *App) switchDay(delta int) {
	day, err := a.planner.Load(a.day.Date.AddDate(0, 0, delta))
	if err != nil {
		a.errMsg = err.Error()
		return
	}
	a.day = day
	a.row = min(a.row, max(0, day.Requests.Len()-1))
}

// reference is the moment relative start expressions are resolved against:
// now on today's plan, the default day start on any other date.
func (a *App) reference() time.Time {
	now := a.now()
	if planner.Midnight(now).Equal(a.day.Date) {
		return now
	}
	return a.day.Date.Add(a.planner.Window().Start)
}

func (a *App) observe() {
	if a.opts.Tracker == nil {
		return
	}
	now := a.now()
	today, err := a.planner.Load(now)
	if err != nil {
		a.logger.Error("loading today", "error", err)
		return
	}
	a.opts.Tracker.Observe(today.Slots(a.planner.Window()), now)
}

func (a *App) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("dayslot " + a.day.Date.Format("Monday 2006-01-02")))
	sb.WriteString("\n")

	w := a.planner.Window()
	sb.WriteString(subtitleStyle.Render(fmt.Sprintf("day %s-%s", slot.FormatClock(w.Start), slot.FormatClock(w.End()))))
	sb.WriteString("\n\n")

	header := fmt.Sprintf("   %-24s %-7s %-10s %-10s", columnNames[colName], columnNames[colStart], columnNames[colRequested], columnNames[colLength])
	sb.WriteString(dimStyle.Render(header))
	sb.WriteString("\n")

	results := a.day.Slots(w)
	now := a.now()
	cur, hasCur := a.day.Current(w, now)

	if len(results) == 0 {
		sb.WriteString(dimStyle.Render("   no slots, press i to insert one"))
		sb.WriteString("\n")
	}

	for i, r := range results {
		marker := "   "
		if hasCur && r == cur {
			marker = currentStyle.Render("🕐 ")
		}

		cells := []string{
			fmt.Sprintf("%-24s", truncate(r.Source.Name, 24)),
			fmt.Sprintf("%-7s", slot.FormatClock(r.Start)),
			fmt.Sprintf("%-10s", formatLength(r.Source.Length)),
			fmt.Sprintf("%-10s", formatLength(r.Length)),
		}
		for c := range cells {
			style := cellStyle(r, column(c))
			if i == a.row && column(c) == a.col {
				style = highlightStyle.Inherit(style)
			}
			cells[c] = style.Render(cells[c])
		}

		line := marker + strings.Join(cells, " ")
		if r.Feasibility != slot.OK {
			line += " " + warningStyle.Render("⚠ "+r.Feasibility.String())
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if a.edit.active {
		sb.WriteString("\n")
		sb.WriteString(a.edit.View())
		sb.WriteString("\n")
	}
	if a.status != "" {
		sb.WriteString("\n")
		sb.WriteString(warningStyle.Render(a.status))
		sb.WriteString("\n")
	}
	if a.errMsg != "" {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("Error: ") + a.errMsg)
		sb.WriteString("\n")
	}

	var help []string
	for _, b := range keys.help() {
		h := b.Help()
		help = append(help, h.Key+": "+h.Desc)
	}
	sb.WriteString(helpStyle.Render(strings.Join(help, " • ")))

	return boxStyle.Render(sb.String())
}

func cellStyle(r slot.Result, c column) lipgloss.Style {
	switch {
	case c == colStart && r.Source.HasFixedStart:
		return fixedStyle
	case c == colLength && r.Source.FixedLength:
		return fixedStyle
	}
	return plainStyle
}

func formatLength(d time.Duration) string {
	d = d.Round(time.Minute)
	h, m := int(d/time.Hour), int(d%time.Hour/time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Day returns the day currently shown.
func (a *App) Day() *planner.Day {
	return a.day
}
