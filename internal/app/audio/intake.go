// Package audio holds the per-session intake buffer and response player.
package audio

// Intake accumulates inbound audio frames for one session until the
// transport signals end of utterance.
type Intake struct {
	buf       []byte
	recording bool
}

func NewIntake() *Intake {
	return &Intake{}
}

// AppendChunk concatenates a frame into the accumulator and marks the
// session as recording.
func (i *Intake) AppendChunk(chunk []byte) {
	i.buf = append(i.buf, chunk...)
	i.recording = true
}

// Flush returns the accumulated utterance and clears the buffer.
func (i *Intake) Flush() []byte {
	out := i.buf
	i.buf = nil
	i.recording = false
	return out
}

func (i *Intake) Recording() bool {
	return i.recording
}

func (i *Intake) Len() int {
	return len(i.buf)
}
