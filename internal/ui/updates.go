package ui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/events"
	"github.com/rovshanmuradov/lp-tracker/internal/pnl"
)

const defaultUpdateBuffer = 256

// UpdateSender forwards engine events to the UI without ever blocking the
// publisher. Messages that do not fit in the buffer are dropped and counted.
type UpdateSender struct {
	msgChan        chan tea.Msg
	sentUpdates    atomic.Uint64
	droppedUpdates atomic.Uint64
	logger         *zap.Logger
	subs           []events.Subscription
}

// NewUpdateSender creates a new non-blocking update sender
func NewUpdateSender(bufferSize int, logger *zap.Logger) *UpdateSender {
	if bufferSize <= 0 {
		bufferSize = defaultUpdateBuffer
	}
	return &UpdateSender{
		msgChan: make(chan tea.Msg, bufferSize),
		logger:  logger.Named("ui_updates"),
	}
}

// SendUpdate sends a message to UI without blocking
func (us *UpdateSender) SendUpdate(msg tea.Msg) {
	select {
	case us.msgChan <- msg:
		us.sentUpdates.Add(1)
	default:
		us.droppedUpdates.Add(1)
	}
}

// Subscribe forwards every event type the dashboard renders from bus.
func (us *UpdateSender) Subscribe(bus *events.Bus) {
	for _, t := range []events.EventType{
		events.PortfolioUpdated,
		events.PositionValuated,
		events.PositionFailed,
		events.PositionClosed,
		events.RefreshStarted,
		events.RefreshCompleted,
	} {
		us.subs = append(us.subs, bus.SubscribeFunc(t, us.handle))
	}
}

func (us *UpdateSender) handle(_ context.Context, event events.Event) error {
	if msg := eventToMsg(event); msg != nil {
		us.SendUpdate(msg)
	}
	return nil
}

// Listen returns a tea.Cmd that waits for the next forwarded message
func (us *UpdateSender) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-us.msgChan
	}
}

// GetStats returns current statistics
func (us *UpdateSender) GetStats() (sent, dropped uint64) {
	return us.sentUpdates.Load(), us.droppedUpdates.Load()
}

// Close unsubscribes from the bus and logs the delivery statistics
func (us *UpdateSender) Close() {
	for _, sub := range us.subs {
		sub.Unsubscribe()
	}
	us.subs = nil

	sent, dropped := us.GetStats()
	if dropped > 0 {
		us.logger.Warn("UI update statistics",
			zap.Uint64("sent", sent),
			zap.Uint64("dropped", dropped))
	}
}

// eventToMsg translates an engine event into a dashboard message.
func eventToMsg(event events.Event) tea.Msg {
	switch e := event.(type) {
	case pnl.PortfolioUpdatedEvent:
		return PortfolioMsg{Summary: e.Summary}
	case pnl.PositionValuatedEvent:
		return PositionValuatedMsg{Pool: e.Valuation.PoolAddress.String()}
	case pnl.PositionFailedEvent:
		return PositionFailedMsg{Pool: e.PoolAddress, Error: e.Error}
	case pnl.PositionClosedEvent:
		return PositionClosedMsg{Pool: e.PoolAddress}
	case pnl.RefreshStartedEvent:
		return RefreshStartedMsg{CycleID: e.CycleID, Positions: e.Positions}
	case pnl.RefreshCompletedEvent:
		return RefreshCompletedMsg{
			CycleID:   e.CycleID,
			Succeeded: e.Succeeded,
			Failed:    e.Failed,
			Duration:  e.Duration,
		}
	default:
		return nil
	}
}
