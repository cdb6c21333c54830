// Package view tracks which screen the desk is showing and which report is
// active in the preview.
package view

import (
	"errors"
	"fmt"
	"sync"

	"oprdesk/pkg/domain"
)

// Mode is one of the three screens.
type Mode string

const (
	ModeForm      Mode = "form"
	ModeDashboard Mode = "dashboard"
	ModePreview   Mode = "preview"
)

var (
	// ErrNoActiveReport is returned when preview is requested without a report.
	ErrNoActiveReport = errors.New("preview requires an active report")
	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("unknown view mode")
)

// ParseMode resolves a wire name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeForm, ModeDashboard, ModePreview:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// State is a copy of the controller state.
type State struct {
	Mode   Mode           `json:"mode"`
	Active *domain.Report `json:"active,omitempty"`
}

// Controller is a small state machine over Mode. It starts in ModeForm.
type Controller struct {
	mu     sync.RWMutex
	mode   Mode
	active *domain.Report
}

// NewController returns a controller showing the form.
func NewController() *Controller { return &Controller{mode: ModeForm} }

// State returns the current mode and active report.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := State{Mode: c.mode}
	if c.active != nil {
		r := c.active.Clone()
		st.Active = &r
	}
	return st
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Navigate switches to mode. Entering ModePreview without an active report
// is refused and leaves the mode unchanged.
func (c *Controller) Navigate(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == ModePreview && c.active == nil {
		return ErrNoActiveReport
	}
	c.mode = mode
	return nil
}

// Created moves to the dashboard after a successful submit.
func (c *Controller) Created() {
	c.mu.Lock()
	c.mode = ModeDashboard
	c.mu.Unlock()
}

// Preview makes report active and shows it.
func (c *Controller) Preview(report domain.Report) {
	r := report.Clone()
	c.mu.Lock()
	c.active = &r
	c.mode = ModePreview
	c.mu.Unlock()
}

// Back leaves the preview for the dashboard. The active report is kept so a
// later Navigate(ModePreview) shows it again.
func (c *Controller) Back() {
	c.mu.Lock()
	if c.mode == ModePreview {
		c.mode = ModeDashboard
	}
	c.mu.Unlock()
}

// Forget clears the active report if it is id. A controller previewing it
// falls back to the dashboard.
func (c *Controller) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.ID != id {
		return
	}
	c.active = nil
	if c.mode == ModePreview {
		c.mode = ModeDashboard
	}
}
