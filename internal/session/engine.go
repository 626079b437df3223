// Package session implements the per-connection protocol engine: the
// handshake, the message-type state machine, conversation bookkeeping,
// and the finalize-on-close sequencing. One engine serves exactly one
// connection and is driven by that connection's read loop, so nothing in
// here locks except the close guard.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/chat-relay/backend/internal/metrics"
	"github.com/zhouzirui/chat-relay/backend/internal/model/convo"
	"github.com/zhouzirui/chat-relay/backend/internal/model/wire"
	"github.com/zhouzirui/chat-relay/backend/internal/service/ai"
	"github.com/zhouzirui/chat-relay/backend/internal/service/analysis"
)

// DefaultTypingDelay paces TextMode replies so the typing indicator is
// visible before the answer lands. UX only, never a correctness concern.
const DefaultTypingDelay = 750 * time.Millisecond

// State is the engine's main lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateActive
	StateClosing
)

// Mode is the reply sub-mode while active.
type Mode int

const (
	ModeText Mode = iota
	ModeVoice
)

// Sender delivers outbound frames to the client. Implementations must be
// safe to call after the connection closed (sends become no-ops) and from
// the deferred typing timer.
type Sender interface {
	SendEvent(ev wire.Outbound)
	SendBinary(data []byte)
}

// TenantStore is the session's handle to its tenant's document store.
type TenantStore interface {
	ProjectID() string
	Write(ctx context.Context, collection, id string, record any) error
}

// TenantResolver resolves a credential bundle to a shared tenant store
// handle, constructing at most one handle per tenant process-wide.
type TenantResolver interface {
	Resolve(ctx context.Context, bundle json.RawMessage) (TenantStore, error)
}

// Completer produces one assistant reply over an ordered turn history.
type Completer interface {
	Complete(ctx context.Context, turns []convo.Turn) (string, error)
}

// Transcriber converts one utterance of raw audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Synthesizer renders reply text as audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Analyzer derives the structured post-session summary.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) analysis.Outcome
}

// Deps bundles the collaborators every session shares. Nil collaborators
// degrade the corresponding feature instead of crashing: completion and
// transcription behave like collaborator failures, synthesis and analysis
// are skipped.
type Deps struct {
	Tenants       TenantResolver
	Completer     Completer
	Transcriber   Transcriber
	Synthesizer   Synthesizer
	Analyzer      Analyzer
	LogCollection string
	TypingDelay   time.Duration
}

// Engine drives one connection through the session protocol.
type Engine struct {
	deps   Deps
	sender Sender
	id     string
	origin string

	state     State
	mode      Mode
	tenant    TenantStore
	voice     string
	language  string
	startedAt time.Time
	convo     *convo.Conversation
	audio     AudioAssembly

	violated  bool
	closeOnce sync.Once
}

// New builds an engine for one freshly accepted connection.
func New(deps Deps, sender Sender, id, origin string) *Engine {
	if deps.TypingDelay <= 0 {
		deps.TypingDelay = DefaultTypingDelay
	}
	if deps.LogCollection == "" {
		deps.LogCollection = "chat_logs"
	}

	return &Engine{
		deps:   deps,
		sender: sender,
		id:     id,
		origin: origin,
		state:  StateUnauthenticated,
		mode:   ModeText,
		convo:  convo.New(),
	}
}

// HandleFrame processes one inbound frame. A non-nil error means the
// connection must be terminated immediately; all recoverable conditions
// are absorbed here.
func (e *Engine) HandleFrame(ctx context.Context, frame wire.Frame) error {
	switch e.state {
	case StateClosing:
		// Terminal; late frames are dropped regardless of content.
		return nil
	case StateUnauthenticated:
		return e.handleHandshake(ctx, frame)
	}

	switch frame.Kind {
	case wire.FrameAudio:
		if err := e.audio.Append(frame.Audio); err != nil {
			e.violated = true
			return err
		}
		return nil
	case wire.FrameControl:
		return e.handleControl(ctx, frame.Control)
	}
	return nil
}

// handleHandshake enforces that the very first inbound message is a valid
// INIT_SESSION and seeds the conversation on success.
func (e *Engine) handleHandshake(ctx context.Context, frame wire.Frame) error {
	if frame.Kind != wire.FrameControl || frame.Control == nil {
		e.violated = true
		return fmt.Errorf("%w: first message must be a control message", ErrProtocolViolation)
	}

	msg := frame.Control
	if msg.Type != wire.TypeInitSession {
		e.violated = true
		return fmt.Errorf("%w: first message must be %s, got %q", ErrProtocolViolation, wire.TypeInitSession, msg.Type)
	}
	if len(msg.CredentialBundle) == 0 {
		e.violated = true
		return fmt.Errorf("%w: handshake missing credential bundle", ErrProtocolViolation)
	}

	store, err := e.deps.Tenants.Resolve(ctx, msg.CredentialBundle)
	if err != nil {
		metrics.CollaboratorFailure("tenant")
		return fmt.Errorf("tenant resolution failed: %w", err)
	}

	e.tenant = store
	e.voice = msg.Config.VoiceID
	e.language = msg.Config.Language
	e.startedAt = time.Now().UTC()

	e.convo.Append(convo.RoleSystem, ai.BuildSystemPrompt(msg.Config, msg.PageContext))
	welcome := ai.WelcomeMessage(msg.Config, msg.IsProactive)
	e.convo.Append(convo.RoleAssistant, welcome)
	e.sender.SendEvent(wire.Outbound{Type: wire.EventAIResponse, Text: welcome})

	e.state = StateActive
	e.mode = ModeText
	metrics.SessionStarted()
	log.Printf("[session] id=%s handshake complete project=%s origin=%s proactive=%t",
		e.id, store.ProjectID(), e.origin, msg.IsProactive)
	return nil
}

// handleControl dispatches an active-state control message. Control is
// nil when the text frame did not parse as JSON; after the handshake that
// is treated like an unrecognized type.
func (e *Engine) handleControl(ctx context.Context, msg *wire.Inbound) error {
	if msg == nil {
		metrics.UnknownMessage()
		return nil
	}

	switch msg.Type {
	case wire.TypeTextMessage:
		transcript := strings.TrimSpace(msg.Text)
		if transcript == "" {
			return nil
		}
		e.reply(ctx, transcript)
	case wire.TypeInitVoice:
		e.mode = ModeVoice
	case wire.TypeEndVoice:
		e.mode = ModeText
	case wire.TypeEndOfStream:
		e.handleEndOfStream(ctx)
	default:
		metrics.UnknownMessage()
	}
	return nil
}

// handleEndOfStream transcribes the accumulated utterance, if any. The
// assembly is reset whether or not a transcript comes back.
func (e *Engine) handleEndOfStream(ctx context.Context) {
	if e.audio.Len() == 0 {
		return
	}
	audio := e.audio.Flush()

	if e.deps.Transcriber == nil {
		metrics.CollaboratorFailure("transcription")
		log.Printf("[session] id=%s dropped utterance: transcription unavailable", e.id)
		return
	}

	text, err := e.deps.Transcriber.Transcribe(ctx, audio, e.language)
	if err != nil {
		// Only this utterance is lost; the session continues.
		metrics.CollaboratorFailure("transcription")
		log.Printf("[session] id=%s transcription failed: %v", e.id, err)
		return
	}

	transcript := strings.TrimSpace(text)
	if transcript == "" {
		return
	}

	e.sender.SendEvent(wire.Outbound{Type: wire.EventUserTranscript, Text: transcript})
	e.reply(ctx, transcript)
}

// reply runs the common reply pipeline for a non-empty transcript: append
// the user turn, request a completion, append and deliver the assistant
// turn according to the current sub-mode.
func (e *Engine) reply(ctx context.Context, transcript string) {
	e.convo.Append(convo.RoleUser, transcript)

	if e.deps.Completer == nil {
		metrics.CollaboratorFailure("completion")
		log.Printf("[session] id=%s dropped turn: completion unavailable", e.id)
		return
	}

	answer, err := e.deps.Completer.Complete(ctx, e.convo.Snapshot())
	if err != nil {
		// Fatal for this turn's reply; a fabricated answer would be worse
		// than silence.
		metrics.CollaboratorFailure("completion")
		log.Printf("[session] id=%s completion failed: %v", e.id, err)
		return
	}

	e.convo.Append(convo.RoleAssistant, answer)

	if e.mode == ModeVoice {
		e.sender.SendEvent(wire.Outbound{Type: wire.EventAIResponsePendingAudio, Text: answer})
		e.speakReply(ctx, answer)
		return
	}

	e.sender.SendEvent(wire.Outbound{Type: wire.EventAIIsTyping})
	time.AfterFunc(e.deps.TypingDelay, func() {
		e.sender.SendEvent(wire.Outbound{Type: wire.EventAIResponse, Text: answer})
	})
}

// speakReply synthesizes the reply and streams it as a binary frame.
// Synthesis failure is swallowed: the client already holds the text.
func (e *Engine) speakReply(ctx context.Context, text string) {
	if e.deps.Synthesizer == nil {
		return
	}

	audio, err := e.deps.Synthesizer.Synthesize(ctx, text, e.voice)
	if err != nil {
		metrics.CollaboratorFailure("synthesis")
		log.Printf("[session] id=%s synthesis failed: %v", e.id, err)
		return
	}
	if len(audio) == 0 {
		return
	}
	e.sender.SendBinary(audio)
}

// Close transitions to the terminal state and, at most once, finalizes a
// loggable conversation. Sessions terminated by a protocol violation are
// never logged. The ctx must outlive the connection: finalize keeps
// running after the transport is gone.
func (e *Engine) Close(ctx context.Context) {
	e.closeOnce.Do(func() {
		prior := e.state
		e.state = StateClosing

		if e.violated {
			log.Printf("[session] id=%s closed after protocol violation", e.id)
			return
		}
		if prior != StateActive || !e.convo.Loggable() {
			return
		}
		e.finalize(ctx)
	})
}
