package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	moveUp   key.Binding
	moveDown key.Binding
	lastUp   key.Binding
	remove   key.Binding
	shuffle  key.Binding
	fairness key.Binding
	next     key.Binding
	loop     key.Binding
	add      key.Binding
	imports  key.Binding
	clear    key.Binding
	enter    key.Binding
	back     key.Binding
	yes      key.Binding
	no       key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		moveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		moveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		lastUp:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "last to front")),
		remove:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "remove")),
		shuffle:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		fairness: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fairness")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		loop:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "loop")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		imports:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import")),
		clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.remove, k.shuffle, k.fairness, k.next, k.add, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.moveUp, k.moveDown, k.lastUp},
		{k.remove, k.shuffle, k.fairness, k.next, k.loop},
		{k.add, k.imports, k.clear, k.quit},
	}
}
