package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"vibelog/internal/domain"
)

// Engine is the draft orchestrator for a single conversation: it interprets
// user turns, drives the state machine, and calls out to the generation,
// persistence, and publishing collaborators. One engine instance serves one
// conversation; turns are processed strictly sequentially.
type Engine struct {
	mu sync.Mutex

	id        string
	state     *State
	generator domain.DraftGenerator
	posts     domain.PostStore
	publisher domain.RemotePublisher
	history   domain.HistoryStore // optional
	logger    *slog.Logger

	threadMode bool
}

// EngineConfig holds the collaborators and tuning for one conversation engine.
type EngineConfig struct {
	ConversationID string
	Generator      domain.DraftGenerator
	Posts          domain.PostStore
	Publisher      domain.RemotePublisher
	History        domain.HistoryStore // nil disables persistence
	Logger         *slog.Logger
	ThreadMode     bool // split the full text into a thread instead of a single teaser tweet
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		id:         cfg.ConversationID,
		state:      NewState(),
		generator:  cfg.Generator,
		posts:      cfg.Posts,
		publisher:  cfg.Publisher,
		history:    cfg.History,
		logger:     cfg.Logger,
		threadMode: cfg.ThreadMode,
	}
}

// State exposes the conversation state for status inspection and tests.
func (e *Engine) State() *State { return e.state }

// ProcessInput resolves one user turn: interpretation, dispatch, response.
// Every branch appends exactly one assistant message and returns its text,
// so the return value always matches the last history entry.
func (e *Engine) ProcessInput(ctx context.Context, text string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return e.respond(ctx, "I didn't catch that. "+e.suggestions())
	}

	e.record(ctx, e.state.AddMessage("user", text))

	cmd := Parse(text)
	e.logger.Debug("turn interpreted",
		"conversation", e.id,
		"type", cmd.Type,
		"confidence", cmd.Confidence,
		"phase", e.state.Phase(),
	)

	if cmd.Confidence < ConfidenceThreshold {
		return e.respond(ctx, "I'm not sure what you mean. "+e.suggestions())
	}

	switch cmd.Type {
	case domain.CommandGenerate:
		return e.handleGenerate(ctx, cmd.Intent)
	case domain.CommandEdit:
		return e.handleEdit(ctx, cmd.Intent)
	case domain.CommandRegenerate:
		return e.handleRegenerate(ctx)
	case domain.CommandPublish:
		return e.handlePublish(ctx)
	case domain.CommandApprove:
		return e.handleApprove(ctx)
	case domain.CommandCancel:
		return e.handleCancel(ctx)
	default:
		return e.respond(ctx, "I'm not sure what you mean. "+e.suggestions())
	}
}

func (e *Engine) handleGenerate(ctx context.Context, intent string) string {
	// Already in editing: the transition is rejected by the table and the
	// fresh generation replaces the draft in place.
	_ = e.state.StartGenerating()

	draft, err := e.generator.Generate(ctx, intent)
	if err != nil {
		return e.generationFailed(ctx, err)
	}

	e.state.UpdateContent(domain.Draft{
		Title:       draft.Title,
		Teaser:      draft.Teaser,
		Content:     draft.FullContent,
		FullContent: draft.FullContent,
	})
	_ = e.state.StartEditing()

	return e.respond(ctx, fmt.Sprintf(
		"Your draft %q is ready.\n\n%s\n\nTell me what to change, or say \"publish\" when you're happy with it.",
		draft.Title, draft.Teaser,
	))
}

func (e *Engine) handleEdit(ctx context.Context, intent string) string {
	if e.state.Phase() != domain.PhaseEditing {
		e.state.SetError("edit requested outside editing phase")
		return e.respond(ctx, "There's no draft to edit yet. Ask me to write something first, e.g. \"write a post about ...\".")
	}

	current := e.state.Draft()
	instruction := fmt.Sprintf("%s\n\nHere is the current draft to revise:\n\n%s", intent, current.FullContent)

	draft, err := e.generator.Generate(ctx, instruction)
	if err != nil {
		return e.generationFailed(ctx, err)
	}

	e.state.UpdateContent(domain.Draft{
		Title:       draft.Title,
		Teaser:      draft.Teaser,
		Content:     draft.FullContent,
		FullContent: draft.FullContent,
	})
	_ = e.state.StartEditing()

	return e.respond(ctx, fmt.Sprintf(
		"Done, I've updated the draft.\n\n%s\n\nAnything else, or shall I publish it?",
		draft.Teaser,
	))
}

// generationFailed is the shared failure path for generate and edit: record
// the error, land the user back in editing when a prior draft exists so they
// are not stranded in a dead phase, and surface the message.
func (e *Engine) generationFailed(ctx context.Context, err error) string {
	msg := fmt.Sprintf("I couldn't write that: %s. Your previous draft (if any) is untouched, so try rephrasing.", err.Error())
	e.state.SetError(msg)
	if !e.state.Draft().Empty() {
		_ = e.state.StartEditing()
	}
	return e.respond(ctx, msg)
}

func (e *Engine) handleRegenerate(ctx context.Context) string {
	e.state.ResetContent()
	return e.respond(ctx, "Okay, clean slate. What should the post be about?")
}

func (e *Engine) handlePublish(ctx context.Context) string {
	draft := e.state.Draft()
	if draft.Empty() {
		e.state.SetError("publish requested with no content")
		return e.respond(ctx, "There's nothing to publish yet. Ask me to write something first.")
	}

	_ = e.state.StartPublishing()

	saved, err := e.posts.SavePost(ctx, draft)
	if err != nil {
		msg := fmt.Sprintf("I couldn't save the post: %s. Your draft is safe, say \"publish\" to try again.", err.Error())
		e.state.SetError(msg)
		_ = e.state.StartEditing()
		return e.respond(ctx, msg)
	}
	e.state.UpdateContent(domain.Draft{ID: saved.ID, PublicURL: saved.PublicURL})

	thread := BuildThread(draft, saved.PublicURL, e.threadMode)

	var result domain.PublishResult
	if len(thread) == 1 {
		result, err = e.publisher.PostSingle(ctx, thread[0])
	} else {
		result, err = e.publisher.PostThread(ctx, thread)
	}
	if err != nil {
		msg := fmt.Sprintf("Publishing failed: %s. You're back in editing, say \"publish\" to retry.", err.Error())
		if errors.Is(err, domain.ErrSessionExpired) {
			msg = "Your publishing session has expired. Run `vibelog login` to sign in again, then say \"publish\"."
		}
		e.state.SetError(msg)
		_ = e.state.StartEditing()
		return e.respond(ctx, msg)
	}

	link := result.ThreadURL
	if link == "" {
		link = saved.PublicURL
	}
	return e.respond(ctx, fmt.Sprintf("Published! Read it here: %s", link))
}

func (e *Engine) handleApprove(ctx context.Context) string {
	if e.state.Phase() != domain.PhaseEditing {
		return e.respond(ctx, "There's nothing to approve right now.")
	}
	return e.handlePublish(ctx)
}

func (e *Engine) handleCancel(ctx context.Context) string {
	e.state.Reset()
	return e.respond(ctx, "No problem, I've dropped that. Just tell me when you want to start a new post.")
}

// respond appends the assistant message, persists it, and returns its text.
func (e *Engine) respond(ctx context.Context, text string) string {
	e.record(ctx, e.state.AddMessage("assistant", text))
	return text
}

// record persists a message when a history store is configured. Persistence
// failures are logged, never surfaced: losing a transcript line must not
// break the turn.
func (e *Engine) record(ctx context.Context, msg domain.Message) {
	if e.history == nil {
		return
	}
	if err := e.history.AddMessage(ctx, e.id, msg); err != nil {
		e.logger.Warn("failed to persist message", "conversation", e.id, "err", err)
	}
}

// suggestions enumerates example phrasings relevant to the current phase.
func (e *Engine) suggestions() string {
	switch e.state.Phase() {
	case domain.PhaseEditing:
		return "Try: \"make it shorter\", \"change the tone\", \"publish it\", or \"start over\"."
	case domain.PhasePublishing:
		return "Try: \"approve\" to confirm, or \"cancel\" to stop."
	default:
		return "Try: \"write a post about my morning routine\" or \"create a vibelog about ...\"."
	}
}
