// Package orchestrator wires the dialogue machine to its collaborators:
// sessions, audio intake and playback, speech services, the language
// model, and the pharmacy store.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tkc-cmd/rxvoice/internal/app/audio"
	"github.com/tkc-cmd/rxvoice/internal/app/druginfo"
	"github.com/tkc-cmd/rxvoice/internal/app/session"
	"github.com/tkc-cmd/rxvoice/internal/config"
	"github.com/tkc-cmd/rxvoice/internal/domain"
	"github.com/tkc-cmd/rxvoice/internal/observability"
)

// Disclaimer is the mandated first assistant turn of every session.
const Disclaimer = "I'm an automated pharmacy assistant and can't provide medical diagnoses. In emergencies call your local emergency number. How can I help you today?"

// actor bundles the per-session pieces the orchestrator drives. Its mutex
// serializes all event processing for the session: transport callbacks and
// async completions lock it before touching the session, so events apply
// one at a time in arrival order.
type actor struct {
	mu     sync.Mutex
	sess   *domain.Session
	intake *audio.Intake
	player *audio.Player

	// speakSeq identifies the latest assistant turn so a finished playback
	// task only clears the speaking flag if it is still the current one.
	speakSeq uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// Orchestrator routes session events through the dialogue machine and runs
// the resulting actions. One instance serves all sessions.
type Orchestrator struct {
	cfg      *config.Config
	registry *session.Registry
	store    domain.PharmacyStore
	llm      domain.LanguageModel
	stt      domain.Transcriber
	tts      domain.Synthesizer
	notifier domain.Notifier
	guides   *druginfo.Service

	now func() time.Time

	mu     sync.Mutex
	actors map[domain.SessionID]*actor
}

func New(
	cfg *config.Config,
	store domain.PharmacyStore,
	llm domain.LanguageModel,
	stt domain.Transcriber,
	tts domain.Synthesizer,
	notifier domain.Notifier,
) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		llm:      llm,
		stt:      stt,
		tts:      tts,
		notifier: notifier,
		guides:   druginfo.NewService(),
		now:      time.Now,
		actors:   make(map[domain.SessionID]*actor),
	}
	o.registry = session.NewRegistry(cfg.SessionTimeout, cfg.SweepInterval, o.onEvict)
	return o
}

// Registry exposes the session registry for the sweeper and health checks.
func (o *Orchestrator) Registry() *session.Registry {
	return o.registry
}

// SessionSnapshot is a consistent copy of the session fields transports
// render.
type SessionSnapshot struct {
	ID               domain.SessionID
	State            domain.DialogueState
	IdentityVerified bool
	Closed           bool
	CreatedAt        time.Time
	History          []domain.ConversationTurn
}

// Snapshot copies the renderable session fields under the session's lock.
// Background transcription and playback mutate the session under the same
// lock, so readers must not follow the registry's pointer directly.
func (o *Orchestrator) Snapshot(id domain.SessionID) (SessionSnapshot, error) {
	a, err := o.actor(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	hist := make([]domain.ConversationTurn, len(a.sess.History))
	copy(hist, a.sess.History)
	return SessionSnapshot{
		ID:               a.sess.ID,
		State:            a.sess.State,
		IdentityVerified: a.sess.IdentityVerified,
		Closed:           a.sess.Closed,
		CreatedAt:        a.sess.CreatedAt,
		History:          hist,
	}, nil
}

// OnSessionStart registers a new session and speaks the disclaimer as the
// first assistant turn. An empty id gets a generated one.
func (o *Orchestrator) OnSessionStart(ctx context.Context, id domain.SessionID) (domain.SessionID, error) {
	sess, err := o.registry.Create(id)
	if err != nil {
		return "", fmt.Errorf("starting session: %w", err)
	}

	actorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	actorCtx = observability.WithSessionID(actorCtx, string(sess.ID))

	a := &actor{
		sess:   sess,
		intake: audio.NewIntake(),
		player: audio.NewPlayer(),
		ctx:    actorCtx,
		cancel: cancel,
	}

	o.mu.Lock()
	o.actors[sess.ID] = a
	o.mu.Unlock()

	o.notifier.NotifySessionStarted(sess.ID)

	a.mu.Lock()
	o.speak(a, Disclaimer)
	a.mu.Unlock()

	observability.LoggerFromContext(actorCtx).Info("session started")
	return sess.ID, nil
}

// OnAudioChunk buffers an inbound audio frame. A frame arriving while the
// assistant is speaking is a barge-in: playback is interrupted before the
// frame is appended.
func (o *Orchestrator) OnAudioChunk(id domain.SessionID, chunk []byte) error {
	a, err := o.actor(id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess.IsSpeaking {
		o.interruptLocked(a)
	}

	wasRecording := a.intake.Recording()
	a.intake.AppendChunk(chunk)
	a.sess.IsRecording = true
	o.registry.Touch(id)

	if !wasRecording {
		o.notifier.NotifyRecording(id, true)
	}
	return nil
}

// OnEndOfUtterance flushes the intake buffer and hands the utterance to
// the transcriber. Transcription runs off the actor lock; its completion
// is dropped if a newer utterance has been flushed in the meantime.
func (o *Orchestrator) OnEndOfUtterance(id domain.SessionID) error {
	a, err := o.actor(id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	wasRecording := a.intake.Recording()
	buf := a.intake.Flush()
	a.sess.IsRecording = false
	if wasRecording {
		o.notifier.NotifyRecording(id, false)
	}
	o.registry.Touch(id)

	if len(buf) < o.cfg.MinUtteranceBytes {
		o.speak(a, "Sorry, I didn't catch that. Could you say it again?")
		return nil
	}

	a.sess.UtteranceSeq++
	seq := a.sess.UtteranceSeq
	o.notifier.NotifyProcessing(id, true)

	go o.transcribe(a, seq, buf)
	return nil
}

func (o *Orchestrator) transcribe(a *actor, seq uint64, buf []byte) {
	log := observability.LoggerFromContext(a.ctx)

	ctx, cancel := context.WithTimeout(a.ctx, 15*time.Second)
	defer cancel()

	tr, err := o.stt.Transcribe(ctx, buf)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		return
	}
	if seq != a.sess.UtteranceSeq {
		log.Info("dropping stale transcription", "seq", seq, "current", a.sess.UtteranceSeq)
		o.notifier.NotifyProcessing(a.sess.ID, false)
		return
	}

	if err != nil {
		log.Error("transcription failed", "error", err)
		o.speak(a, fallbackUtterance(a.sess.State))
		o.notifier.NotifyProcessing(a.sess.ID, false)
		return
	}

	o.processUserInput(a, tr.Text)
	o.notifier.NotifyProcessing(a.sess.ID, false)
}

// OnTextInput processes typed input, bypassing audio and transcription.
// It also invalidates any transcription still in flight.
func (o *Orchestrator) OnTextInput(id domain.SessionID, text string) error {
	a, err := o.actor(id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess.IsSpeaking {
		o.interruptLocked(a)
	}

	// typed input replaces whatever audio was mid-capture
	if a.intake.Recording() {
		a.intake.Flush()
		a.sess.IsRecording = false
		o.notifier.NotifyRecording(id, false)
	}

	a.sess.UtteranceSeq++
	o.registry.Touch(id)
	o.processUserInput(a, text)
	return nil
}

// OnInterrupt stops any in-flight playback. No dialogue transition occurs;
// interrupting when nothing is playing is a no-op.
func (o *Orchestrator) OnInterrupt(id domain.SessionID) error {
	a, err := o.actor(id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess.IsSpeaking {
		o.interruptLocked(a)
	}
	return nil
}

// OnSessionEnd tears the session down and releases its resources.
func (o *Orchestrator) OnSessionEnd(id domain.SessionID, reason string) error {
	a, err := o.actor(id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.player.Interrupt()
	a.cancel()
	a.mu.Unlock()

	o.mu.Lock()
	delete(o.actors, id)
	o.mu.Unlock()
	o.registry.Remove(id)

	o.notifier.NotifySessionEnded(id, reason)
	observability.LoggerFromContext(a.ctx).Info("session ended", "reason", reason)
	return nil
}

// onEvict handles registry timeout eviction. The registry has already
// dropped the session, so only actor teardown and notification remain.
func (o *Orchestrator) onEvict(id domain.SessionID) {
	o.mu.Lock()
	a, ok := o.actors[id]
	if ok {
		delete(o.actors, id)
	}
	o.mu.Unlock()

	if !ok {
		return
	}

	a.mu.Lock()
	a.player.Interrupt()
	a.cancel()
	a.mu.Unlock()

	o.notifier.NotifySessionEnded(id, "timeout")
}

func (o *Orchestrator) actor(id domain.SessionID) (*actor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	a, ok := o.actors[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return a, nil
}

// interruptLocked cancels playback and clears the speaking flag. Caller
// holds the actor lock.
func (o *Orchestrator) interruptLocked(a *actor) {
	a.player.Interrupt()
	a.sess.IsSpeaking = false
	o.notifier.NotifyInterrupted(a.sess.ID)
	o.notifier.NotifySpeaking(a.sess.ID, false)
}

// speak records an assistant turn and starts synthesis/playback for it.
// Caller holds the actor lock.
func (o *Orchestrator) speak(a *actor, text string) {
	turn := a.sess.AppendTurn(domain.RoleAssistant, text, o.now())
	o.notifier.NotifyTranscript(a.sess.ID, turn)

	a.sess.IsSpeaking = true
	o.notifier.NotifySpeaking(a.sess.ID, true)

	a.speakSeq++
	seq := a.speakSeq
	playCtx := a.player.Begin(a.ctx)

	go o.play(a, seq, playCtx, text)
}

// play synthesizes and delivers one assistant turn. It runs off the actor
// lock; an interrupt cancels its context at any point.
func (o *Orchestrator) play(a *actor, seq uint64, ctx context.Context, text string) {
	audioBytes, err := o.tts.Synthesize(ctx, text)

	if err == nil && ctx.Err() == nil {
		o.notifier.NotifyAudio(a.sess.ID, audioBytes)
	} else if err != nil && ctx.Err() == nil {
		observability.LoggerFromContext(a.ctx).Error("synthesis failed", "error", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// a newer turn or an interrupt owns the flag now
	if seq != a.speakSeq || !a.sess.IsSpeaking {
		return
	}
	a.player.End()
	a.sess.IsSpeaking = false
	o.notifier.NotifySpeaking(a.sess.ID, false)
}
