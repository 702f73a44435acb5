// Package dashboard renders an administrator session in the terminal.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/webitel/admin-notify-service/internal/client/inbox"
	"github.com/webitel/admin-notify-service/internal/client/stream"
)

const (
	payloadWidth = 72
	refreshEvery = time.Second
)

type Dashboard struct {
	box    *inbox.Inbox
	status *Status
	title  string

	header  *widgets.Paragraph
	list    *widgets.List
	footer  *widgets.Paragraph
	grid    *ui.Grid
	records []inbox.Record
	dirty   chan struct{}
}

func New(box *inbox.Inbox, status *Status, title string) *Dashboard {
	return &Dashboard{
		box:    box,
		status: status,
		title:  title,
		dirty:  make(chan struct{}, 1),
	}
}

// Run owns the terminal until ctx ends or the user quits.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer ui.Close()

	d.layout()
	cancel := d.box.Subscribe(func(inbox.Snapshot) { d.markDirty() })
	defer cancel()
	d.status.onChange(d.markDirty)
	defer d.status.onChange(nil)

	d.render()

	events := ui.PollEvents()
	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.dirty:
		case <-ticker.C:
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "j", "<Down>":
				d.list.ScrollDown()
			case "k", "<Up>":
				d.list.ScrollUp()
			case "<Enter>":
				if i := d.list.SelectedRow; i >= 0 && i < len(d.records) {
					d.box.MarkRead(d.records[i].Event.ID)
				}
			case "a":
				d.box.MarkAllRead()
			case "<Resize>":
				r := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, r.Width, r.Height)
				ui.Clear()
			}
		}
		d.render()
	}
}

func (d *Dashboard) markDirty() {
	select {
	case d.dirty <- struct{}{}:
	default:
	}
}

func (d *Dashboard) layout() {
	d.header = widgets.NewParagraph()
	d.header.Title = d.title

	d.list = widgets.NewList()
	d.list.Title = "Notifications"
	d.list.SelectedRowStyle = ui.NewStyle(ui.ColorYellow)
	d.list.WrapText = false

	d.footer = widgets.NewParagraph()
	d.footer.Border = false
	d.footer.Text = "j/k move  enter mark read  a mark all read  q quit"

	d.grid = ui.NewGrid()
	w, h := ui.TerminalDimensions()
	d.grid.SetRect(0, 0, w, h)
	d.grid.Set(
		ui.NewRow(0.15, d.header),
		ui.NewRow(0.78, d.list),
		ui.NewRow(0.07, d.footer),
	)
}

func (d *Dashboard) render() {
	state, warning := d.status.Get()
	d.records = d.box.Records()

	d.header.Text = HeaderText(state, warning, d.box.Unread(), len(d.records))
	rows := make([]string, len(d.records))
	for i, rec := range d.records {
		rows[i] = FormatRecord(rec)
	}
	d.list.Rows = rows
	if d.list.SelectedRow >= len(rows) {
		d.list.SelectedRow = max(len(rows)-1, 0)
	}
	ui.Render(d.grid)
}

// HeaderText summarises connection state and the unread badge.
func HeaderText(state stream.State, warning stream.Warning, unread, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s](%s)   unread: [%d](mod:bold)   total: %d", state, stateStyle(state), unread, total)
	if warning.Active {
		fmt.Fprintf(&b, "\n[notifications unavailable after %d attempts, still retrying](fg:red)", warning.Attempts)
	}
	return b.String()
}

func stateStyle(s stream.State) string {
	switch s {
	case stream.StateOpen:
		return "fg:green"
	case stream.StateClosed:
		return "fg:red"
	default:
		return "fg:yellow"
	}
}

// FormatRecord renders one list row; unread rows are bold.
func FormatRecord(rec inbox.Record) string {
	if rec.Event == nil {
		return ""
	}
	payload := strings.Join(strings.Fields(string(rec.Event.Payload)), " ")
	if r := []rune(payload); len(r) > payloadWidth {
		payload = string(r[:payloadWidth-1]) + "…"
	}
	// markup brackets inside the payload would be parsed as styles
	payload = strings.NewReplacer("[", "(", "]", ")").Replace(payload)

	line := fmt.Sprintf("%s  %-19s  %s",
		rec.ReceivedAt.Local().Format("15:04:05"),
		rec.Event.Kind,
		payload,
	)
	if rec.Read {
		return "  " + line
	}
	return "[* " + line + "](mod:bold)"
}
