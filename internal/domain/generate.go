package domain

import "context"

// GeneratedDraft is what the draft-generation collaborator returns for one
// prompt: structured post text plus a best-effort language guess.
type GeneratedDraft struct {
	Title            string
	Teaser           string
	FullContent      string
	DetectedLanguage string
}

// DraftGenerator turns a free-form prompt into a structured draft.
// Any error is treated as recoverable by the caller; implementations only
// need to guarantee a human-readable message.
type DraftGenerator interface {
	Generate(ctx context.Context, prompt string) (GeneratedDraft, error)
}

// SavedPost is the durable record created for a draft before remote posting.
type SavedPost struct {
	ID        string
	PublicURL string
}

// PostStore persists published drafts and issues their public URLs. It is
// called once per publish attempt, before remote posting, so a publish
// leaves a durable record even if remote posting ultimately fails.
type PostStore interface {
	SavePost(ctx context.Context, draft Draft) (SavedPost, error)
}
