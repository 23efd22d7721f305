package audio

import (
	"context"
	"sync"
)

// Player tracks whether synthesized audio is being played for a session
// and can cancel the in-flight synthesis/playback task. Begin/End are
// called by the playback goroutine, Interrupt by the session worker, so
// the flag and cancel func are guarded.
type Player struct {
	mu       sync.Mutex
	speaking bool
	cancel   context.CancelFunc
}

func NewPlayer() *Player {
	return &Player{}
}

// Begin marks the session as speaking and returns a context the playback
// task must run under; Interrupt cancels it.
func (p *Player) Begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	p.mu.Lock()
	// a previous turn still holding the flag is superseded
	if p.cancel != nil {
		p.cancel()
	}
	p.speaking = true
	p.cancel = cancel
	p.mu.Unlock()

	return ctx
}

// End clears the speaking flag once playback finishes normally.
func (p *Player) End() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.speaking = false
	p.mu.Unlock()
}

// Interrupt cancels any in-flight playback and forces the speaking flag
// off immediately. Idempotent when nothing is playing.
func (p *Player) Interrupt() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.speaking = false
	p.mu.Unlock()
}

func (p *Player) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}
