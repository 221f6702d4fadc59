package publisher

import (
	"context"

	"vibelog/internal/domain"
)

// Automation is the narrow surface the publisher needs from a live browser
// tab. The real implementation is a chromedp bridge; tests substitute a
// scripted fake.
type Automation interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	WaitHidden(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string) error
	EvalString(ctx context.Context, js string) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	ExportCookies(ctx context.Context) ([]domain.Cookie, error)
	ImportCookies(ctx context.Context, cookies []domain.Cookie) error
}

// Factory opens a fresh automation context. The returned cancel func closes
// the underlying tab and must always be called.
type Factory func(ctx context.Context) (Automation, context.CancelFunc, error)
