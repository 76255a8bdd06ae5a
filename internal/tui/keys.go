package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Insert   key.Binding
	Delete   key.Binding
	SwapUp   key.Binding
	SwapDown key.Binding
	BeginNow key.Binding
	Edit     key.Binding
	PrevDay  key.Binding
	NextDay  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "move")),
	Down:     key.NewBinding(key.WithKeys("j", "down")),
	Left:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/l", "column")),
	Right:    key.NewBinding(key.WithKeys("l", "right")),
	Insert:   key.NewBinding(key.WithKeys("i", "insert"), key.WithHelp("i", "insert")),
	Delete:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
	SwapUp:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r/f", "swap up/down")),
	SwapDown: key.NewBinding(key.WithKeys("f")),
	BeginNow: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "begin now")),
	Edit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
	PrevDay:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n/m", "prev/next day")),
	NextDay:  key.NewBinding(key.WithKeys("m")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Up, k.Left, k.Insert, k.Delete, k.SwapUp, k.BeginNow, k.Edit, k.PrevDay, k.Quit}
}
