package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytq/internal/formatter"
	"github.com/desertthunder/ytq/internal/models"
)

var _ list.Item = entryItem{}

// entryItem wraps a queue [formatter.Row] to implement [list.Item].
type entryItem struct {
	row     formatter.Row
	playing bool
}

func newEntryItems(entries []models.Entry, playing bool) []list.Item {
	rows := formatter.Rows(entries)
	items := make([]list.Item, len(rows))
	for i, row := range rows {
		items[i] = entryItem{row: row, playing: playing && i == 0}
	}
	return items
}

func (i entryItem) FilterValue() string { return i.row.Entry.Info.Title }

func (i entryItem) Title() string {
	prefix := fmt.Sprintf("%d.", i.row.Position)
	if i.playing {
		prefix = "▶"
	}
	return fmt.Sprintf("%s %s", prefix, i.row.Entry.Info.Title)
}

func (i entryItem) Description() string {
	e := i.row.Entry
	length := formatter.FormatDuration(e.Info.LengthSeconds)
	if e.Info.IsLive {
		length = "LIVE"
	}
	desc := fmt.Sprintf("%s • added by %s", length, e.AddedBy.DisplayName)
	if !i.playing && i.row.Position > 0 {
		desc = fmt.Sprintf("%s • in %s", desc, formatter.FormatDuration(i.row.ETASeconds))
	}
	return desc
}
