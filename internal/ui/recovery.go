package ui

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// RecoveryHandler restarts the UI after a panic, up to maxRestarts times
type RecoveryHandler struct {
	logger       *zap.Logger
	restartDelay time.Duration
	maxRestarts  int
	restartCount int
	mu           sync.Mutex
	program      *tea.Program
	createUI     func() (tea.Model, []tea.ProgramOption)
	run          func(*tea.Program) error
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(logger *zap.Logger, createUI func() (tea.Model, []tea.ProgramOption)) *RecoveryHandler {
	return &RecoveryHandler{
		logger:       logger.Named("ui_recovery"),
		restartDelay: 2 * time.Second,
		maxRestarts:  5,
		createUI:     createUI,
		run: func(p *tea.Program) error {
			_, err := p.Run()
			return err
		},
	}
}

// RunWithRecovery runs the UI until it exits normally or crashes too often
func (rh *RecoveryHandler) RunWithRecovery() error {
	for {
		err := rh.runUI()
		if err == nil {
			return nil
		}

		rh.mu.Lock()
		rh.restartCount++
		count := rh.restartCount
		rh.mu.Unlock()

		if count > rh.maxRestarts {
			return fmt.Errorf("UI crashed too many times (%d), giving up: %w", rh.maxRestarts, err)
		}

		rh.logger.Error("UI crashed, will restart",
			zap.Error(err),
			zap.Int("restart_count", count),
			zap.Duration("delay", rh.restartDelay))

		time.Sleep(rh.restartDelay)
	}
}

// runUI runs one program instance, converting a panic into an error
func (rh *RecoveryHandler) runUI() (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			err = fmt.Errorf("UI panic: %v", r)
			rh.logger.Error("UI panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(stack)))
		}
	}()

	model, opts := rh.createUI()
	program := tea.NewProgram(model, opts...)

	rh.mu.Lock()
	rh.program = program
	rh.mu.Unlock()

	if err := rh.run(program); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// Stop asks the running program to quit
func (rh *RecoveryHandler) Stop() {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	if rh.program != nil {
		rh.program.Quit()
		rh.program = nil
	}
}

// RestartCount returns the number of restarts
func (rh *RecoveryHandler) RestartCount() int {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	return rh.restartCount
}
