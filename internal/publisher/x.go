package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"vibelog/internal/domain"
)

// statusIDPattern extracts the numeric post id from a permalink of the form
// .../status/{id}. The permalink shape is the only stable contract point for
// id extraction; a UI change breaks extraction but not posting.
var statusIDPattern = regexp.MustCompile(`/status/(\d+)`)

// sessionSource supplies verified, authenticated automation handles.
// Satisfied by *Manager; tests script their own.
type sessionSource interface {
	Authenticated(ctx context.Context, accountID string) (Automation, context.CancelFunc, error)
	Login(ctx context.Context, accountID string, creds domain.Credentials) error
}

// XWeb implements domain.RemotePublisher against the X web UI. There is no
// documented API contract: compose-surface selectors, a submit affordance,
// and the permalink pattern are all it relies on.
type XWeb struct {
	sessions sessionSource
	sel      Selectors
	account  string
	retry    retryPolicy
	logger   *slog.Logger
}

type XWebConfig struct {
	Sessions  *Manager
	Selectors Selectors
	Account   string // handle without the leading @
	Logger    *slog.Logger
}

func NewXWeb(cfg XWebConfig) *XWeb {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &XWeb{
		sessions: cfg.Sessions,
		sel:      cfg.Selectors,
		account:  cfg.Account,
		retry:    newRetryPolicy(cfg.Logger),
		logger:   cfg.Logger,
	}
}

// Login acquires a fresh session for the configured account.
func (p *XWeb) Login(ctx context.Context, creds domain.Credentials) error {
	return p.sessions.Login(ctx, p.account, creds)
}

// PostSingle publishes one tweet. Posting success is signalled by the
// composer disappearing; id extraction afterwards is best-effort and its
// failure does not fail the post.
func (p *XWeb) PostSingle(ctx context.Context, tweet domain.Tweet) (domain.PublishResult, error) {
	a, cancel, err := p.sessions.Authenticated(ctx, p.account)
	if err != nil {
		return failure(err), err
	}
	defer cancel()

	if err := p.retry.do(ctx, "post tweet", func() error {
		return p.compose(ctx, a, tweet.Text)
	}); err != nil {
		return failure(err), err
	}

	result := domain.PublishResult{Success: true}
	id, err := p.latestPostID(ctx, a)
	if err != nil {
		p.logger.Warn("post id extraction failed", "account", p.account, "err", err)
	} else if id != "" {
		result.PostIDs = []string{id}
		result.ThreadURL = p.statusURL(id)
	}
	return result, nil
}

// PostThread publishes an ordered thread: the anchor tweet first, then each
// subsequent tweet as a reply on the anchor's thread view. The thread is
// successful once the anchor is live; a reply that never succeeds after
// retries fails the whole call, with the already-posted ids reported so the
// caller can reconcile the partial thread.
func (p *XWeb) PostThread(ctx context.Context, thread []domain.Tweet) (domain.PublishResult, error) {
	if len(thread) == 0 {
		err := fmt.Errorf("thread must contain at least one tweet")
		return failure(err), err
	}
	if len(thread) > domain.MaxThreadLen {
		err := fmt.Errorf("thread too long: %d tweets (max %d)", len(thread), domain.MaxThreadLen)
		return failure(err), err
	}

	a, cancel, err := p.sessions.Authenticated(ctx, p.account)
	if err != nil {
		return failure(err), err
	}
	defer cancel()

	if err := p.retry.do(ctx, "post thread anchor", func() error {
		return p.compose(ctx, a, thread[0].Text)
	}); err != nil {
		return failure(err), err
	}

	anchorID, err := p.latestPostID(ctx, a)
	if err != nil || anchorID == "" {
		// The anchor is live but without its permalink the replies cannot
		// be attached.
		err = fmt.Errorf("thread anchor posted but its permalink could not be located")
		return failure(err), err
	}

	ids := []string{anchorID}
	anchorURL := p.statusURL(anchorID)

	for i, tweet := range thread[1:] {
		text := tweet.Text
		if err := p.retry.do(ctx, "post reply", func() error {
			return p.reply(ctx, a, anchorURL, text)
		}); err != nil {
			res := domain.PublishResult{
				Success:   false,
				PostIDs:   ids,
				ThreadURL: anchorURL,
				Error:     err.Error(),
			}
			return res, fmt.Errorf("reply %d of %d: %w", i+2, len(thread), err)
		}

		// Best-effort: one reply's missing id must not abort the rest.
		id, err := p.latestPostID(ctx, a)
		if err != nil {
			p.logger.Warn("reply id extraction failed", "index", i+2, "err", err)
			continue
		}
		if id != "" {
			ids = append(ids, id)
		}
	}

	return domain.PublishResult{Success: true, PostIDs: ids, ThreadURL: anchorURL}, nil
}

// compose opens the compose surface, fills it, submits, and waits for the
// composer to disappear.
func (p *XWeb) compose(ctx context.Context, a Automation, text string) error {
	if err := a.Navigate(ctx, p.sel.ComposeURL); err != nil {
		return fmt.Errorf("open composer: %w", err)
	}
	if err := a.WaitVisible(ctx, p.sel.ComposeBox); err != nil {
		return fmt.Errorf("composer did not appear: %w", err)
	}
	if err := a.Fill(ctx, p.sel.ComposeBox, text); err != nil {
		return fmt.Errorf("fill composer: %w", err)
	}
	if err := a.Click(ctx, p.sel.PostButton); err != nil {
		return fmt.Errorf("submit post: %w", err)
	}
	if err := a.WaitHidden(ctx, p.sel.ComposeBox); err != nil {
		return fmt.Errorf("composer did not close after submit: %w", err)
	}
	return nil
}

// reply opens the reply affordance on the anchor thread view and submits.
func (p *XWeb) reply(ctx context.Context, a Automation, anchorURL, text string) error {
	if err := a.Navigate(ctx, anchorURL); err != nil {
		return fmt.Errorf("open thread view: %w", err)
	}
	if err := a.WaitVisible(ctx, p.sel.ReplyButton); err != nil {
		return fmt.Errorf("reply affordance did not appear: %w", err)
	}
	if err := a.Click(ctx, p.sel.ReplyButton); err != nil {
		return fmt.Errorf("open reply composer: %w", err)
	}
	if err := a.WaitVisible(ctx, p.sel.ComposeBox); err != nil {
		return fmt.Errorf("reply composer did not appear: %w", err)
	}
	if err := a.Fill(ctx, p.sel.ComposeBox, text); err != nil {
		return fmt.Errorf("fill reply: %w", err)
	}
	if err := a.Click(ctx, p.sel.PostButton); err != nil {
		return fmt.Errorf("submit reply: %w", err)
	}
	if err := a.WaitHidden(ctx, p.sel.ComposeBox); err != nil {
		return fmt.Errorf("reply composer did not close after submit: %w", err)
	}
	return nil
}

// latestPostID reads the newest item's permalink off the account's own
// timeline.
func (p *XWeb) latestPostID(ctx context.Context, a Automation) (string, error) {
	profileURL := p.sel.BaseURL + "/" + p.account
	if err := a.Navigate(ctx, profileURL); err != nil {
		return "", fmt.Errorf("open profile: %w", err)
	}
	if err := a.WaitVisible(ctx, p.sel.TimelineItem); err != nil {
		return "", fmt.Errorf("timeline did not load: %w", err)
	}

	js := fmt.Sprintf(`(() => {
		const item = document.querySelector(%q);
		if (!item) return '';
		const link = item.querySelector("a[href*='/status/']");
		return link ? link.href : '';
	})()`, p.sel.TimelineItem)

	href, err := a.EvalString(ctx, js)
	if err != nil {
		return "", fmt.Errorf("read permalink: %w", err)
	}

	m := statusIDPattern.FindStringSubmatch(href)
	if m == nil {
		return "", nil
	}
	return m[1], nil
}

func (p *XWeb) statusURL(id string) string {
	return fmt.Sprintf("%s/%s/status/%s", p.sel.BaseURL, p.account, id)
}

func failure(err error) domain.PublishResult {
	return domain.PublishResult{Success: false, Error: err.Error()}
}
