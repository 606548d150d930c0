package chat

// Transcript is the ordered, append-only sequence of message entries for a
// single session. All mutation happens under the owning session's turn
// lock, so there is never more than one writer.
type Transcript struct {
	entries []Message
}

// NewTranscript creates a transcript holding only the given seed entry.
func NewTranscript(seed Message) *Transcript {
	return &Transcript{entries: []Message{seed}}
}

// RestoreTranscript rebuilds a transcript from persisted entries.
func RestoreTranscript(entries []Message) *Transcript {
	t := &Transcript{entries: make([]Message, len(entries))}
	copy(t.entries, entries)
	return t
}

// Append adds one entry to the end of the sequence.
func (t *Transcript) Append(msg Message) {
	t.entries = append(t.entries, msg)
}

// Snapshot returns a copy of the current sequence in insertion order.
func (t *Transcript) Snapshot() []Message {
	out := make([]Message, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Last returns a copy of the final n entries, or all of them if fewer.
func (t *Transcript) Last(n int) []Message {
	if n > len(t.entries) {
		n = len(t.entries)
	}
	out := make([]Message, n)
	copy(out, t.entries[len(t.entries)-n:])
	return out
}

// Reset replaces the entire sequence with a single seed entry.
func (t *Transcript) Reset(seed Message) {
	t.entries = []Message{seed}
}
