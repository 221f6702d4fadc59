package conversation

import (
	"context"
	"log/slog"
	"sync"

	"vibelog/internal/domain"
)

const restoreHistoryLimit = 50

// Registry vends one engine per active conversation. It is the single call
// site that owns engine instances; there is no package-level singleton.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine

	generator domain.DraftGenerator
	posts     domain.PostStore
	publisher domain.RemotePublisher
	history   domain.HistoryStore
	logger    *slog.Logger

	threadMode bool
}

// RegistryConfig holds the shared collaborators handed to every engine.
type RegistryConfig struct {
	Generator  domain.DraftGenerator
	Posts      domain.PostStore
	Publisher  domain.RemotePublisher
	History    domain.HistoryStore
	Logger     *slog.Logger
	ThreadMode bool
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		engines:    make(map[string]*Engine),
		generator:  cfg.Generator,
		posts:      cfg.Posts,
		publisher:  cfg.Publisher,
		history:    cfg.History,
		logger:     cfg.Logger,
		threadMode: cfg.ThreadMode,
	}
}

// Get returns the engine for a conversation, creating it on first use and
// seeding it with persisted history when available.
func (r *Registry) Get(ctx context.Context, convID string) *Engine {
	r.mu.RLock()
	eng, ok := r.engines[convID]
	r.mu.RUnlock()
	if ok {
		return eng
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if eng, ok := r.engines[convID]; ok {
		return eng
	}

	eng = NewEngine(EngineConfig{
		ConversationID: convID,
		Generator:      r.generator,
		Posts:          r.posts,
		Publisher:      r.publisher,
		History:        r.history,
		Logger:         r.logger,
		ThreadMode:     r.threadMode,
	})

	if r.history != nil {
		if err := r.history.CreateConversation(ctx, domain.Conversation{ID: convID, Title: "New conversation"}); err != nil {
			r.logger.Warn("failed to create conversation record", "conversation", convID, "err", err)
		}
		if msgs, err := r.history.GetMessages(ctx, convID, restoreHistoryLimit); err == nil && len(msgs) > 0 {
			eng.State().RestoreMessages(msgs)
		}
	}

	r.engines[convID] = eng
	r.logger.Info("conversation engine created", "conversation", convID)
	return eng
}

// Remove discards a conversation's engine so the next turn starts fresh.
// The persisted transcript, if any, is deleted with it.
func (r *Registry) Remove(ctx context.Context, convID string) {
	r.mu.Lock()
	delete(r.engines, convID)
	r.mu.Unlock()

	if r.history != nil {
		if err := r.history.DeleteConversation(ctx, convID); err != nil {
			r.logger.Warn("failed to delete conversation", "conversation", convID, "err", err)
		}
	}
}
