// Package tui renders the live connection-stats panel in the terminal.
// It is a read-only presentation consumer: it samples the orchestrator's
// merged view once a second and never mutates dashboard state.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/gamepulse/admin-sync-service/internal/service"
)

const historySize = 120

type Panel struct {
	logger *slog.Logger
	orch   *service.Orchestrator

	history []float64
}

func NewPanel(logger *slog.Logger, orch *service.Orchestrator) *Panel {
	return &Panel{
		logger: logger,
		orch:   orch,
	}
}

// Run blocks until the user quits (q / Ctrl-C) or ctx is cancelled.
func (p *Panel) Run(ctx context.Context) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("tui: init terminal: %w", err)
	}
	defer ui.Close()

	status := widgets.NewParagraph()
	status.Title = "Channel"

	live := widgets.NewParagraph()
	live.Title = "Live Games"

	presence := widgets.NewParagraph()
	presence.Title = "Presence"

	spark := widgets.NewSparkline()
	spark.LineColor = ui.ColorGreen
	sparkGroup := widgets.NewSparklineGroup(spark)
	sparkGroup.Title = "Live Games (last 2m)"

	layout := func() {
		w, h := ui.TerminalDimensions()
		status.SetRect(0, 0, w, 3)
		live.SetRect(0, 3, w/2, 8)
		presence.SetRect(w/2, 3, w, 8)
		sparkGroup.SetRect(0, 8, w, h-1)
	}
	layout()

	render := func() {
		state := p.orch.ConnectionState()
		if state.Connected() {
			status.Text = fmt.Sprintf("[connected](fg:green)  client=%s", state.ClientID)
		} else {
			status.Text = fmt.Sprintf("[%s](fg:red)  realtime degraded, polling only", state.Status)
		}

		activity, ok := p.orch.Activity()
		if !ok {
			live.Text = "waiting for first poll..."
			presence.Text = ""
		} else {
			live.Text = fmt.Sprintf("\n   %d in progress", activity.LiveGames)
			presence.Text = fmt.Sprintf(
				"users online:  %d\nsessions:      %d\nscorekeepers:  %d",
				activity.UsersOnline, activity.ActiveSessions, activity.ActiveScorekeeperUsers,
			)
			p.history = append(p.history, float64(activity.LiveGames))
			if len(p.history) > historySize {
				p.history = p.history[len(p.history)-historySize:]
			}
		}
		spark.Data = p.history
		ui.Render(status, live, presence, sparkGroup)
	}
	render()

	events := ui.PollEvents()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				layout()
				render()
			}
		case <-ticker.C:
			render()
		}
	}
}
