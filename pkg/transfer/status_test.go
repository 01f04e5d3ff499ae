package transfer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected string
	}{
		{PhaseIdle, "idle"},
		{PhaseReceiving, "receiving"},
		{PhaseComplete, "complete"},
		{Phase(999), "unknown"},
	}

	for _, test := range tests {
		if got := test.phase.String(); got != test.expected {
			t.Errorf("Phase(%d).String() = %q, want %q", test.phase, got, test.expected)
		}
	}
}

func TestPhase_CanTransitionTo(t *testing.T) {
	assert.True(t, PhaseIdle.CanTransitionTo(PhaseReceiving))
	assert.True(t, PhaseReceiving.CanTransitionTo(PhaseComplete))
	assert.True(t, PhaseComplete.CanTransitionTo(PhaseIdle))

	assert.False(t, PhaseIdle.CanTransitionTo(PhaseComplete))
	assert.False(t, PhaseReceiving.CanTransitionTo(PhaseIdle))
	assert.False(t, PhaseComplete.CanTransitionTo(PhaseReceiving))
	assert.False(t, Phase(999).CanTransitionTo(PhaseIdle))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		name     string
		degraded bool
	}{
		{OutcomeCompleted, "completed", false},
		{OutcomeTimedOut, "timed_out", true},
		{OutcomeTransportClosed, "transport_closed", true},
		{OutcomeSuperseded, "superseded", true},
		{OutcomeShutdown, "shutdown", true},
		{Outcome(42), "unknown", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.outcome.String())
		assert.Equal(t, tt.degraded, tt.outcome.Degraded(), tt.name)
	}
}

func TestProgress_Percentage(t *testing.T) {
	assert.Equal(t, 0.0, Progress{}.Percentage())
	assert.Equal(t, 50.0, Progress{ReceivedBytes: 500, DeclaredSize: 1000}.Percentage())
	assert.Equal(t, 100.0, Progress{ReceivedBytes: 1500, DeclaredSize: 1000}.Percentage())
}

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession(500)
	assert.False(t, s.Receiving())
	assert.Equal(t, PhaseIdle, s.Phase)

	now := time.Now()
	s.Begin(1000, now)
	assert.True(t, s.Receiving())
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, now, s.StartedAt)

	firstID := s.ID
	s.Buffer.OnDataPacket(1, []byte{1, 2, 3})
	s.Duplicates = 2

	var policy CompletionPolicy
	info := s.Info(policy)
	assert.Equal(t, firstID, info.ID)
	assert.Equal(t, PhaseReceiving, info.Phase)
	assert.Equal(t, []int{0}, info.Missing)
	assert.Equal(t, 2, info.Duplicates)
	assert.Equal(t, Progress{SessionID: firstID, ReceivedPackets: 1, ExpectedPackets: 2, ReceivedBytes: 3, DeclaredSize: 1000}, info.Progress)

	s.Clear()
	assert.False(t, s.Receiving())
	assert.Empty(t, s.ID)
	assert.Equal(t, 0, s.Buffer.Len())
	assert.Equal(t, 0, s.Duplicates)

	s.Begin(10, now)
	assert.NotEqual(t, firstID, s.ID, "every session gets a fresh ID")
}

func TestStatistics(t *testing.T) {
	s := NewStatistics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.FrameReceived()
			s.DuplicatePacket()
		}()
	}
	wg.Wait()

	s.MalformedFrame()
	s.IgnoredFrame()
	s.OutOfRange()
	s.Oversized()
	s.SessionStarted()
	s.SessionFinished(false)
	s.SessionFinished(true)

	snap := s.Snapshot()
	assert.Equal(t, StatsSnapshot{
		FramesReceived:    10,
		MalformedFrames:   1,
		IgnoredFrames:     1,
		DuplicatePackets:  10,
		OutOfRangePackets: 1,
		OversizedPackets:  1,
		SessionsStarted:   1,
		SessionsCompleted: 1,
		SessionsDegraded:  1,
	}, snap)

	s.Reset()
	assert.Equal(t, StatsSnapshot{}, s.Snapshot())
}
