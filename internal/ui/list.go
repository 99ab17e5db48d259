package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tunesync/internal/formatter"
	"github.com/desertthunder/tunesync/internal/tasks"
)

var (
	_ list.Item = targetItem{}
)

// targetItem wraps [tasks.Target] to implement [list.Item].
type targetItem struct {
	target tasks.Target
}

func (i targetItem) FilterValue() string { return i.target.Name() }
func (i targetItem) Title() string       { return i.target.Name() }
func (i targetItem) Description() string {
	songs := i.target.Songs()
	var total time.Duration
	for _, s := range songs {
		total += s.Duration
	}

	desc := fmt.Sprintf("%s • %d songs", i.target.Kind, len(songs))
	if total > 0 {
		desc = fmt.Sprintf("%s • %s", desc, formatter.FormatDuration(total))
	}
	return desc
}
