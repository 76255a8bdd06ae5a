package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tj/go-naturaldate"

	"github.com/christopherklint97/dayslot/internal/slot"
)

type column int

const (
	colName column = iota
	colStart
	colRequested
	colLength
	numColumns
)

var columnNames = []string{"Name", "Start", "Requested", "Length"}

// editModel is the one-line prompt used to change a field of a request.
type editModel struct {
	textInput textinput.Model
	field     column
	active    bool
}

func newEditModel() editModel {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40

	return editModel{textInput: ti}
}

func (m editModel) open(field column, req slot.Request) (editModel, tea.Cmd) {
	m.field = field
	m.active = true
	switch field {
	case colName:
		m.textInput.SetValue(req.Name)
		m.textInput.Placeholder = "Name"
	case colStart:
		m.textInput.SetValue("")
		m.textInput.Placeholder = "HH:MM or e.g. \"in 20 minutes\""
	case colRequested:
		m.textInput.SetValue(strconv.Itoa(int(req.Length / time.Minute)))
		m.textInput.Placeholder = "Minutes"
	}
	m.textInput.CursorEnd()
	return m, m.textInput.Focus()
}

func (m editModel) close() editModel {
	m.active = false
	m.textInput.Blur()
	return m
}

func (m editModel) Update(msg tea.Msg) (editModel, tea.Cmd) {
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// apply turns the prompt's value into an edit of the request at idx. ref is
// the moment relative expressions are resolved against.
func (m editModel) apply(idx int, req slot.Request, ref time.Time) (func(*slot.List) bool, error) {
	value := strings.TrimSpace(m.textInput.Value())

	switch m.field {
	case colName:
		if value == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		req.Name = value
		return func(l *slot.List) bool { return l.Replace(idx, req) }, nil

	case colStart:
		start, err := parseStart(value, ref)
		if err != nil {
			return nil, err
		}
		return func(l *slot.List) bool { return l.SetStart(idx, start) }, nil

	case colRequested:
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < 0 {
			return nil, fmt.Errorf("invalid minutes %q", value)
		}
		req.Length = time.Duration(minutes) * time.Minute
		return func(l *slot.List) bool { return l.Replace(idx, req) }, nil
	}

	return nil, fmt.Errorf("column %s is not editable", columnNames[m.field])
}

// parseStart accepts a clock time or a natural-language expression such as
// "in 2 hours", resolved against ref.
func parseStart(value string, ref time.Time) (time.Duration, error) {
	if d, err := slot.ParseClock(value); err == nil {
		return d, nil
	}
	t, err := naturaldate.Parse(value, ref, naturaldate.WithDirection(naturaldate.Future))
	if err != nil || t.Equal(ref) {
		return 0, fmt.Errorf("unrecognized start %q", value)
	}
	return slot.SinceMidnight(t), nil
}

func (m editModel) View() string {
	return fmt.Sprintf("%s %s", dimStyle.Render(columnNames[m.field]+":"), m.textInput.View())
}
