package transfer

import "sync/atomic"

// Statistics counts what the receiver has seen. Counters are atomic so the
// UI and log reporters may read them while frames are being processed.
type Statistics struct {
	framesReceived    atomic.Uint64
	malformedFrames   atomic.Uint64
	ignoredFrames     atomic.Uint64
	duplicatePackets  atomic.Uint64
	outOfRangePackets atomic.Uint64
	oversizedPackets  atomic.Uint64
	sessionsStarted   atomic.Uint64
	sessionsCompleted atomic.Uint64
	sessionsDegraded  atomic.Uint64
}

// StatsSnapshot is a plain copy of Statistics.
type StatsSnapshot struct {
	FramesReceived    uint64 `json:"frames_received"`
	MalformedFrames   uint64 `json:"malformed_frames"`
	IgnoredFrames     uint64 `json:"ignored_frames"`
	DuplicatePackets  uint64 `json:"duplicate_packets"`
	OutOfRangePackets uint64 `json:"out_of_range_packets"`
	OversizedPackets  uint64 `json:"oversized_packets"`
	SessionsStarted   uint64 `json:"sessions_started"`
	SessionsCompleted uint64 `json:"sessions_completed"`
	SessionsDegraded  uint64 `json:"sessions_degraded"`
}

func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) FrameReceived()   { s.framesReceived.Add(1) }
func (s *Statistics) MalformedFrame()  { s.malformedFrames.Add(1) }
func (s *Statistics) IgnoredFrame()    { s.ignoredFrames.Add(1) }
func (s *Statistics) DuplicatePacket() { s.duplicatePackets.Add(1) }
func (s *Statistics) OutOfRange()      { s.outOfRangePackets.Add(1) }
func (s *Statistics) Oversized()       { s.oversizedPackets.Add(1) }
func (s *Statistics) SessionStarted()  { s.sessionsStarted.Add(1) }

// SessionFinished counts a finalize, split by whether it was degraded.
func (s *Statistics) SessionFinished(degraded bool) {
	if degraded {
		s.sessionsDegraded.Add(1)
		return
	}
	s.sessionsCompleted.Add(1)
}

// Snapshot returns the current counter values.
func (s *Statistics) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesReceived:    s.framesReceived.Load(),
		MalformedFrames:   s.malformedFrames.Load(),
		IgnoredFrames:     s.ignoredFrames.Load(),
		DuplicatePackets:  s.duplicatePackets.Load(),
		OutOfRangePackets: s.outOfRangePackets.Load(),
		OversizedPackets:  s.oversizedPackets.Load(),
		SessionsStarted:   s.sessionsStarted.Load(),
		SessionsCompleted: s.sessionsCompleted.Load(),
		SessionsDegraded:  s.sessionsDegraded.Load(),
	}
}

// Reset zeroes every counter.
func (s *Statistics) Reset() {
	s.framesReceived.Store(0)
	s.malformedFrames.Store(0)
	s.ignoredFrames.Store(0)
	s.duplicatePackets.Store(0)
	s.outOfRangePackets.Store(0)
	s.oversizedPackets.Store(0)
	s.sessionsStarted.Store(0)
	s.sessionsCompleted.Store(0)
	s.sessionsDegraded.Store(0)
}
