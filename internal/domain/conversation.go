package domain

import "time"

// Phase is the conversation's current stage in the generate/edit/publish lifecycle.
type Phase string

const (
	PhaseGenerating Phase = "generating"
	PhaseEditing    Phase = "editing"
	PhasePublishing Phase = "publishing"
)

// CommandType classifies a parsed user turn.
type CommandType string

const (
	CommandGenerate   CommandType = "generate"
	CommandEdit       CommandType = "edit"
	CommandRegenerate CommandType = "regenerate"
	CommandPublish    CommandType = "publish"
	CommandApprove    CommandType = "approve"
	CommandCancel     CommandType = "cancel"
	CommandUnknown    CommandType = "unknown"
)

// ParsedCommand is the interpreter's reading of one user turn.
// It is transient: produced per turn, never persisted.
type ParsedCommand struct {
	Type       CommandType
	Intent     string  // the original user text
	Confidence float64 // 0..1
}

// Message is one entry in a conversation's history. Messages are
// append-only and never mutated after creation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Draft is the in-progress content object being iterated on in conversation.
// Field updates merge: collaborators populating different fields (text,
// persistence id, public link) must not clobber each other.
type Draft struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Teaser      string `json:"teaser"`
	FullContent string `json:"fullContent"`
	PublicURL   string `json:"publicUrl,omitempty"`
}

// Empty reports whether the draft has no generated text yet.
func (d Draft) Empty() bool {
	return d.FullContent == "" && d.Content == ""
}
