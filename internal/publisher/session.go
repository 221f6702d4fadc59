package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vibelog/internal/domain"
)

// Manager acquires, restores, and expires authenticated sessions for the
// publishing target. Credentials pass through the interactive login flow
// once and survive only as an encrypted cookie blob in the session store.
//
// Concurrent publishes for the same account are not serialized here; callers
// must not run two publishes against one account at a time.
type Manager struct {
	store   domain.SessionStore
	browser Factory
	sel     Selectors
	logger  *slog.Logger
}

type ManagerConfig struct {
	Store     domain.SessionStore
	Browser   Factory
	Selectors Selectors
	Logger    *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		store:   cfg.Store,
		browser: cfg.Browser,
		sel:     cfg.Selectors,
		logger:  cfg.Logger,
	}
}

// Login drives the interactive login flow, waits for the authenticated
// landing surface, and persists the captured cookies encrypted.
func (m *Manager) Login(ctx context.Context, accountID string, creds domain.Credentials) error {
	a, cancel, err := m.browser(ctx)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer cancel()

	m.logger.Info("starting login flow", "account", accountID)

	if err := a.Navigate(ctx, m.sel.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := a.WaitVisible(ctx, m.sel.UsernameInput); err != nil {
		return fmt.Errorf("login form did not appear: %w", err)
	}
	if err := a.Fill(ctx, m.sel.UsernameInput, creds.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := a.Click(ctx, m.sel.NextButton); err != nil {
		return fmt.Errorf("advance login flow: %w", err)
	}
	if err := a.WaitVisible(ctx, m.sel.PasswordInput); err != nil {
		return fmt.Errorf("password form did not appear: %w", err)
	}
	if err := a.Fill(ctx, m.sel.PasswordInput, creds.Secret); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := a.Click(ctx, m.sel.LoginButton); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	// Arrival at the authenticated landing surface is the success signal.
	if err := a.WaitVisible(ctx, m.sel.HomeMarker); err != nil {
		return fmt.Errorf("login did not reach the home timeline (wrong credentials or challenge?): %w", err)
	}

	cookies, err := a.ExportCookies(ctx)
	if err != nil {
		return fmt.Errorf("capture session cookies: %w", err)
	}
	if err := m.store.Put(ctx, accountID, domain.Session{Cookies: cookies, CapturedAt: time.Now()}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.logger.Info("login succeeded", "account", accountID, "cookies", len(cookies))
	return nil
}

// Authenticated returns a live automation handle with the stored session
// applied and verified. When no session exists, the stored one is past its
// TTL, or the target redirects back to its login page, the stored blob is
// discarded and domain.ErrSessionExpired is returned.
func (m *Manager) Authenticated(ctx context.Context, accountID string) (Automation, context.CancelFunc, error) {
	sess, err := m.store.Get(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, nil, domain.ErrSessionExpired
	}

	a, cancel, err := m.browser(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open browser: %w", err)
	}

	if err := a.ImportCookies(ctx, sess.Cookies); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("apply session cookies: %w", err)
	}
	if err := a.Navigate(ctx, m.sel.HomeURL); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("reach home timeline: %w", err)
	}

	if err := a.WaitVisible(ctx, m.sel.HomeMarker); err != nil {
		loc, _ := a.CurrentURL(ctx)
		cancel()
		if strings.Contains(loc, m.sel.LoginPagePath) {
			m.logger.Info("stored session rejected by target, deleting", "account", accountID)
			if derr := m.store.Delete(ctx, accountID); derr != nil {
				m.logger.Warn("failed to delete rejected session", "account", accountID, "err", derr)
			}
			return nil, nil, domain.ErrSessionExpired
		}
		return nil, nil, fmt.Errorf("verify session: %w", err)
	}

	return a, cancel, nil
}

// HasValidSession reports whether a stored, unexpired session exists. It
// checks the store only; the session may still be rejected by the target.
func (m *Manager) HasValidSession(ctx context.Context, accountID string) bool {
	sess, err := m.store.Get(ctx, accountID)
	return err == nil && sess != nil
}

// Logout discards the stored session for an account.
func (m *Manager) Logout(ctx context.Context, accountID string) error {
	return m.store.Delete(ctx, accountID)
}
