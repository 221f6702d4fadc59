package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"vibelog/internal/domain"
	"vibelog/internal/publisher"
)

const waitTimeout = 30 * time.Second

// Bridge manages headless Chrome instances for web automation.
type Bridge struct {
	profileDir string
	headless   bool
	logger     *slog.Logger
}

// BridgeConfig holds configuration for the browser bridge.
type BridgeConfig struct {
	ProfileDir string // Chrome user data directory (persists cookies/sessions)
	Headless   bool   // Run headless (true) or with visible UI (false)
	Logger     *slog.Logger
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		cfg.ProfileDir = filepath.Join(home, ".vibelog", "chrome-profiles", "default")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bridge{
		profileDir: cfg.ProfileDir,
		headless:   cfg.Headless,
		logger:     cfg.Logger,
	}
}

// NewTab opens a fresh Chrome tab backed by the bridge's profile. The caller
// MUST call cancel() when done. NewTab satisfies publisher.Factory.
func (b *Bridge) NewTab(parentCtx context.Context) (publisher.Automation, context.CancelFunc, error) {
	if err := os.MkdirAll(b.profileDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create profile dir %s: %w", b.profileDir, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(b.profileDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)

	if b.headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancelAll := func() {
		taskCancel()
		allocCancel()
	}

	// Spin up the browser process now so failures surface here rather than
	// on the first action.
	if err := chromedp.Run(taskCtx); err != nil {
		cancelAll()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}

	b.logger.Debug("browser tab opened", "profile", b.profileDir, "headless", b.headless)
	return &tab{ctx: taskCtx, logger: b.logger}, cancelAll, nil
}

// tab implements publisher.Automation on a single chromedp context.
type tab struct {
	ctx    context.Context
	logger *slog.Logger
}

// byOpt picks the query mode per selector. Selectors starting with "//" are
// XPath, everything else is a CSS query.
func byOpt(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (t *tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, waitTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (t *tab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

func (t *tab) WaitVisible(ctx context.Context, selector string) error {
	return t.run(ctx, chromedp.WaitVisible(selector, byOpt(selector)))
}

func (t *tab) WaitHidden(ctx context.Context, selector string) error {
	return t.run(ctx, chromedp.WaitNotVisible(selector, byOpt(selector)))
}

func (t *tab) Click(ctx context.Context, selector string) error {
	return t.run(ctx,
		chromedp.WaitVisible(selector, byOpt(selector)),
		chromedp.Click(selector, byOpt(selector)),
	)
}

// Fill clicks the target first and types via key events. X's composer is a
// contenteditable, not an input, so SetValue does not work on it.
func (t *tab) Fill(ctx context.Context, selector, text string) error {
	return t.run(ctx,
		chromedp.WaitVisible(selector, byOpt(selector)),
		chromedp.Click(selector, byOpt(selector)),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.SendKeys(selector, text, byOpt(selector)),
	)
}

func (t *tab) EvalString(ctx context.Context, js string) (string, error) {
	var out string
	if err := t.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return "", err
	}
	return out, nil
}

func (t *tab) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (t *tab) ExportCookies(ctx context.Context) ([]domain.Cookie, error) {
	var raw []*network.Cookie
	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("export cookies: %w", err)
	}

	cookies := make([]domain.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, domain.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

func (t *tab) ImportCookies(ctx context.Context, cookies []domain.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}

	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("import cookies: %w", err)
	}
	t.logger.Debug("session cookies applied", "count", len(cookies))
	return nil
}
