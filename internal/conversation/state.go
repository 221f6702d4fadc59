package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vibelog/internal/domain"
)

// validTransitions is the explicit allow-list of phase changes. Returning to
// generating is deliberately absent: that only happens through the explicit
// regenerate path (ResetContent) or a full Reset.
var validTransitions = map[domain.Phase][]domain.Phase{
	domain.PhaseGenerating: {domain.PhaseEditing},
	domain.PhaseEditing:    {domain.PhasePublishing},
	domain.PhasePublishing: {domain.PhaseEditing},
}

// IsValidTransition reports whether moving from one phase to another is
// allowed by the transition table.
func IsValidTransition(from, to domain.Phase) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// State holds the single authoritative draft, phase, and message history for
// one conversation. It is not safe for concurrent use; the engine serializes
// turns.
type State struct {
	phase    domain.Phase
	draft    domain.Draft
	messages []domain.Message
	lastErr  string
}

func NewState() *State {
	return &State{phase: domain.PhaseGenerating}
}

// transition moves to the target phase if the allow-list permits it.
// An illegal transition leaves the phase untouched and records a
// retrievable error.
func (s *State) transition(to domain.Phase) error {
	if s.phase == to {
		return nil
	}
	if !IsValidTransition(s.phase, to) {
		err := fmt.Errorf("invalid phase transition: %s -> %s", s.phase, to)
		s.lastErr = err.Error()
		return err
	}
	s.phase = to
	return nil
}

func (s *State) StartGenerating() error { return s.transition(domain.PhaseGenerating) }
func (s *State) StartEditing() error    { return s.transition(domain.PhaseEditing) }
func (s *State) StartPublishing() error { return s.transition(domain.PhasePublishing) }

// ResetContent is the explicit regenerate path: it clears the working draft
// and returns to generating, bypassing the transition table. Any already
// published prior draft is discarded here, not deleted from storage.
func (s *State) ResetContent() {
	s.draft = domain.Draft{}
	s.phase = domain.PhaseGenerating
	s.lastErr = ""
}

// Reset returns the conversation to its initial state from any phase.
// Message history is retained: reset clears state, not the transcript.
func (s *State) Reset() {
	s.draft = domain.Draft{}
	s.phase = domain.PhaseGenerating
	s.lastErr = ""
}

// AddMessage appends an immutable message to the history and returns it.
func (s *State) AddMessage(role, content string) domain.Message {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// RestoreMessages seeds the history from persisted records, oldest first.
func (s *State) RestoreMessages(msgs []domain.Message) {
	s.messages = append(s.messages[:0], msgs...)
}

// UpdateContent merges non-empty fields of update into the working draft.
// Partial update semantics keep fields populated by different collaborators
// (text, persistence id, public link) from clobbering each other.
func (s *State) UpdateContent(update domain.Draft) {
	if update.ID != "" {
		s.draft.ID = update.ID
	}
	if update.Title != "" {
		s.draft.Title = update.Title
	}
	if update.Content != "" {
		s.draft.Content = update.Content
	}
	if update.Teaser != "" {
		s.draft.Teaser = update.Teaser
	}
	if update.FullContent != "" {
		s.draft.FullContent = update.FullContent
	}
	if update.PublicURL != "" {
		s.draft.PublicURL = update.PublicURL
	}
}

// SetError records an error for retrieval via Err. The state machine does
// not append error messages to the history itself; callers pair every
// SetError with an assistant message so the error is also visible in the
// transcript.
func (s *State) SetError(text string) {
	s.lastErr = text
}

func (s *State) Err() string         { return s.lastErr }
func (s *State) Phase() domain.Phase { return s.phase }
func (s *State) Draft() domain.Draft { return s.draft }

// Messages returns a copy of the history in append order.
func (s *State) Messages() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
