package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appevents "github.com/rescp17/imageReceiver/internal/app_events"
	receiverEvent "github.com/rescp17/imageReceiver/internal/app_events/receiver"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

type fakeApp struct {
	msgs  chan tea.Msg
	stats transfer.StatsSnapshot
}

func (f *fakeApp) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
func (f *fakeApp) UIMessages() <-chan tea.Msg    { return f.msgs }
func (f *fakeApp) Stats() transfer.StatsSnapshot { return f.stats }

func newTestModel() receiverModel {
	app := &fakeApp{msgs: make(chan tea.Msg, 1), stats: transfer.StatsSnapshot{FramesReceived: 7}}
	return newReceiverModel(context.Background(), app, ListenInfo{Transport: "udp", Address: ":9000", OutputDir: "out"})
}

func update(t *testing.T, m receiverModel, msg tea.Msg) receiverModel {
	t.Helper()
	next, _ := m.Update(msg)
	rm, ok := next.(receiverModel)
	require.True(t, ok)
	return rm
}

func TestReceiverModel_SessionLifecycle(t *testing.T) {
	m := newTestModel()
	assert.Contains(t, m.View(), "Waiting for an image")
	assert.Contains(t, m.View(), "udp on :9000")
	assert.Contains(t, m.View(), "frames 7")

	m = update(t, m, receiverEvent.SessionStartedMsg{SessionID: "s1", DeclaredSize: 1000})
	assert.Equal(t, receivingImage, m.state)

	m = update(t, m, receiverEvent.ProgressMsg{Progress: transfer.Progress{
		SessionID: "s1", ReceivedPackets: 1, ExpectedPackets: 2, ReceivedBytes: 500, DeclaredSize: 1000,
	}})
	assert.Contains(t, m.View(), "1/2 packets")

	// Progress from another session is ignored.
	m = update(t, m, receiverEvent.ProgressMsg{Progress: transfer.Progress{SessionID: "old", ReceivedPackets: 9}})
	assert.Equal(t, 1, m.current.ReceivedPackets)

	m = update(t, m, receiverEvent.GapsMsg{SessionID: "s1", Missing: []int{1}})
	assert.Contains(t, m.View(), "waiting for 1 missing packets [1]")

	m = update(t, m, receiverEvent.ImageReadyMsg{
		Result: transfer.ReconstructionResult{SessionID: "s1", Outcome: transfer.OutcomeTimedOut, Bytes: make([]byte, 1000), MissingIndices: []int{1}},
		Path:   "out/image_0001_20240101_120000.jpg",
	})
	assert.Equal(t, awaitingImage, m.state)
	view := m.View()
	assert.Contains(t, view, "image_0001_20240101_120000.jpg")
	assert.Contains(t, view, "timed_out, 1 missing")
}

func TestReceiverModel_RecentListIsCapped(t *testing.T) {
	m := newTestModel()
	for i := 0; i < recentLimit+3; i++ {
		m = update(t, m, receiverEvent.ImageReadyMsg{Result: transfer.ReconstructionResult{Outcome: transfer.OutcomeCompleted}})
	}
	assert.Len(t, m.recent, recentLimit)
	assert.Contains(t, m.View(), "(not saved)")
}

func TestReceiverModel_ErrorAndStatus(t *testing.T) {
	m := newTestModel()
	m = update(t, m, appevents.ErrorMsg{Err: errors.New("disk full")})
	assert.Contains(t, m.View(), "disk full")

	m = update(t, m, appevents.StatusUpdateMsg{Message: "hello"})
	assert.Equal(t, "hello", m.status)
}

func TestReceiverModel_QuitCancelsRun(t *testing.T) {
	m := newTestModel()
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, stopping, m.state)
	assert.Error(t, m.ctx.Err(), "quitting cancels the receiver context")

	next, cmd := m.Update(appDoneMsg{err: nil})
	require.NotNil(t, cmd)
	assert.NoError(t, next.(receiverModel).runErr)
}
