package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Spinner represents a loading spinner
type Spinner struct {
	frames []string
	frame  int
}

// NewSpinner creates a new spinner
func NewSpinner() *Spinner {
	return &Spinner{
		frames: []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"},
	}
}

// Next advances the spinner to the next frame
func (s *Spinner) Next() {
	s.frame = (s.frame + 1) % len(s.frames)
}

// View returns the current spinner frame
func (s *Spinner) View() string {
	return s.frames[s.frame]
}

// LoadingIndicator is a spinner with a message, shown in the status line
// while a load is in flight
type LoadingIndicator struct {
	spinner *Spinner
	message string
	active  bool
}

// NewLoadingIndicator creates an idle indicator
func NewLoadingIndicator() *LoadingIndicator {
	return &LoadingIndicator{spinner: NewSpinner()}
}

// Start shows the indicator with message
func (l *LoadingIndicator) Start(message string) {
	l.message = message
	l.active = true
}

// Stop hides the indicator
func (l *LoadingIndicator) Stop() {
	l.active = false
}

// Active reports whether the indicator is shown
func (l *LoadingIndicator) Active() bool {
	return l.active
}

// Tick advances the spinner animation
func (l *LoadingIndicator) Tick() {
	l.spinner.Next()
}

// View renders the loading indicator, empty when idle
func (l *LoadingIndicator) View() string {
	if !l.active {
		return ""
	}
	spinnerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212"))

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	return fmt.Sprintf("%s %s",
		spinnerStyle.Render(l.spinner.View()),
		messageStyle.Render(l.message))
}
