package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/strrl/chat-history/internal/chats"
)

// Message types for async operations
type (
	// ListLoadedMsg carries the outcome of one controller load
	ListLoadedMsg struct {
		Outcome chats.LoadOutcome
	}

	// MoreRequestedMsg is the pager asking for the next chunk. Done is
	// closed once the chunk is on screen.
	MoreRequestedMsg struct {
		Done chan struct{}
	}

	// FacetResolvedMsg signals that a preview or creation date arrived
	FacetResolvedMsg struct{}

	// ReloadMsg asks for a fresh load, e.g. after a host event
	ReloadMsg struct{}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// loadCmd runs one controller load
func loadCmd(ctx context.Context, ctrl *chats.Controller, req chats.LoadRequest) tea.Cmd {
	return func() tea.Msg {
		outcome, ok := <-ctrl.LoadAsync(ctx, req)
		if !ok {
			outcome = chats.LoadOutcome{Err: ctx.Err()}
		}
		return ListLoadedMsg{Outcome: outcome}
	}
}

// waitForMore blocks until the pager requests more items
func waitForMore(ch <-chan MoreRequestedMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// waitForFacet blocks until a cache applied a facet
func waitForFacet(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return FacetResolvedMsg{}
	}
}

// waitForReload blocks until a host event asks for a reload
func waitForReload(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return ReloadMsg{}
	}
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// notify wakes a waiter without blocking; one pending wake-up is enough
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
