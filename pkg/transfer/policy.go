package transfer

// CompletionPolicy decides, from a buffer's state alone, whether an image is
// complete and which packets are still missing. It holds no state.
type CompletionPolicy struct{}

// EffectiveExpected returns the packet count completion is judged against:
// the end marker's count when known, otherwise an estimate from the declared
// size, otherwise 0 (unknown).
func (CompletionPolicy) EffectiveExpected(b *ReassemblyBuffer) int {
	if n := b.ExpectedPacketCount(); n > 0 {
		return n
	}
	return b.estimate()
}

// IsComplete reports whether every index in [0, expected) is present.
// Indices at or beyond expected are abnormal but do not block completion.
// With no usable count or size, completion can never be declared.
func (p CompletionPolicy) IsComplete(b *ReassemblyBuffer) bool {
	expected := p.EffectiveExpected(b)
	if expected == 0 {
		return false
	}
	if b.Len() < expected {
		return false
	}
	for i := 0; i < expected; i++ {
		if !b.Has(i) {
			return false
		}
	}
	return true
}

// MissingIndices lists the indices in [0, expected) not yet received, in
// ascending order. It is empty while the expected count is unknown.
func (p CompletionPolicy) MissingIndices(b *ReassemblyBuffer) []int {
	expected := p.EffectiveExpected(b)
	missing := []int{}
	for i := 0; i < expected; i++ {
		if !b.Has(i) {
			missing = append(missing, i)
		}
	}
	return missing
}

// OutOfRange lists received indices at or beyond the expected count, in
// ascending order.
func (p CompletionPolicy) OutOfRange(b *ReassemblyBuffer) []int {
	expected := p.EffectiveExpected(b)
	if expected == 0 {
		return []int{}
	}
	out := []int{}
	for _, idx := range b.Indices() {
		if idx >= expected {
			out = append(out, idx)
		}
	}
	return out
}
