package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type emptyModel struct{}

func (emptyModel) Init() tea.Cmd                       { return nil }
func (emptyModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return emptyModel{}, tea.Quit }
func (emptyModel) View() string                        { return "" }

func newTestRecovery(t *testing.T, run func(*tea.Program) error) *RecoveryHandler {
	rh := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		return emptyModel{}, []tea.ProgramOption{tea.WithoutSignalHandler()}
	})
	rh.restartDelay = time.Millisecond
	rh.maxRestarts = 3
	rh.run = run
	return rh
}

func TestRecoveryHandler_NormalExit(t *testing.T) {
	rh := newTestRecovery(t, func(*tea.Program) error { return nil })

	require.NoError(t, rh.RunWithRecovery())
	assert.Equal(t, 0, rh.RestartCount())
}

func TestRecoveryHandler_RestartsAfterPanic(t *testing.T) {
	runs := 0
	rh := newTestRecovery(t, func(*tea.Program) error {
		runs++
		if runs <= 2 {
			panic("render failed")
		}
		return nil
	})

	require.NoError(t, rh.RunWithRecovery())
	assert.Equal(t, 3, runs)
	assert.Equal(t, 2, rh.RestartCount())
}

func TestRecoveryHandler_GivesUp(t *testing.T) {
	boom := errors.New("terminal gone")
	rh := newTestRecovery(t, func(*tea.Program) error { return boom })

	err := rh.RunWithRecovery()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, rh.RestartCount())
}
