package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"vibelog/internal/domain"
)

// fakeAutomation is a scripted browser tab. Each posted tweet bumps postSeq
// so successive permalink reads return fresh status ids.
type fakeAutomation struct {
	postSeq     int
	failFills   int // fail the first N Fill calls
	failEval    bool
	failEvalAt  int // fail only the Nth EvalString call, 1-based
	evalBlank   bool
	evalCalls   int
	navigations []string
	fills       []string
	clicks      []string

	cookies []domain.Cookie
}

func (f *fakeAutomation) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakeAutomation) WaitVisible(context.Context, string) error { return nil }
func (f *fakeAutomation) WaitHidden(context.Context, string) error  { return nil }

func (f *fakeAutomation) Click(_ context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeAutomation) Fill(_ context.Context, _ string, text string) error {
	if f.failFills > 0 {
		f.failFills--
		return errors.New("element detached")
	}
	f.fills = append(f.fills, text)
	f.postSeq++
	return nil
}

func (f *fakeAutomation) EvalString(context.Context, string) (string, error) {
	f.evalCalls++
	if f.failEval || f.evalCalls == f.failEvalAt {
		return "", errors.New("script threw")
	}
	if f.evalBlank {
		return "", nil
	}
	return fmt.Sprintf("https://x.com/amelie/status/%d", 1000+f.postSeq), nil
}

func (f *fakeAutomation) CurrentURL(context.Context) (string, error) {
	return "https://x.com/home", nil
}

func (f *fakeAutomation) ExportCookies(context.Context) ([]domain.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeAutomation) ImportCookies(_ context.Context, cookies []domain.Cookie) error {
	f.cookies = cookies
	return nil
}

// fakeSessions hands out a fixed automation handle.
type fakeSessions struct {
	tab     *fakeAutomation
	err     error
	authed  int
	cancels int
}

func (s *fakeSessions) Authenticated(context.Context, string) (Automation, context.CancelFunc, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	s.authed++
	return s.tab, func() { s.cancels++ }, nil
}

func (s *fakeSessions) Login(context.Context, string, domain.Credentials) error { return nil }

func newTestXWeb(sessions sessionSource) *XWeb {
	p := &XWeb{
		sessions: sessions,
		sel:      DefaultSelectors(),
		account:  "amelie",
		retry:    newRetryPolicy(slog.New(slog.NewTextHandler(io.Discard, nil))),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	p.retry.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestPostSingle(t *testing.T) {
	tab := &fakeAutomation{}
	sessions := &fakeSessions{tab: tab}
	p := newTestXWeb(sessions)

	res, err := p.PostSingle(context.Background(), domain.Tweet{Text: "hello timeline"})
	if err != nil {
		t.Fatalf("PostSingle() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, want true: %+v", res)
	}
	if len(res.PostIDs) != 1 || res.PostIDs[0] != "1001" {
		t.Fatalf("PostIDs = %v, want [1001]", res.PostIDs)
	}
	if want := "https://x.com/amelie/status/1001"; res.ThreadURL != want {
		t.Fatalf("ThreadURL = %q, want %q", res.ThreadURL, want)
	}
	if len(tab.fills) != 1 || tab.fills[0] != "hello timeline" {
		t.Fatalf("fills = %v", tab.fills)
	}
	if sessions.cancels != 1 {
		t.Fatalf("cancels = %d, want 1: tab must be closed", sessions.cancels)
	}
}

func TestPostSingleRetriesTransientFailure(t *testing.T) {
	tab := &fakeAutomation{failFills: 2}
	p := newTestXWeb(&fakeSessions{tab: tab})

	res, err := p.PostSingle(context.Background(), domain.Tweet{Text: "persistence pays"})
	if err != nil {
		t.Fatalf("PostSingle() error = %v, want success on third attempt", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, want true")
	}
}

func TestPostSingleIDExtractionIsBestEffort(t *testing.T) {
	tab := &fakeAutomation{failEval: true}
	p := newTestXWeb(&fakeSessions{tab: tab})

	res, err := p.PostSingle(context.Background(), domain.Tweet{Text: "hi"})
	if err != nil {
		t.Fatalf("PostSingle() error = %v: id extraction must not fail the post", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, want true")
	}
	if len(res.PostIDs) != 0 {
		t.Fatalf("PostIDs = %v, want empty", res.PostIDs)
	}
}

func TestPostSingleSessionExpired(t *testing.T) {
	p := newTestXWeb(&fakeSessions{err: domain.ErrSessionExpired})

	res, err := p.PostSingle(context.Background(), domain.Tweet{Text: "hi"})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("PostSingle() error = %v, want ErrSessionExpired", err)
	}
	if res.Success {
		t.Fatal("Success = true, want false")
	}
}

func TestPostThreadBounds(t *testing.T) {
	tooLong := make([]domain.Tweet, domain.MaxThreadLen+1)
	for i := range tooLong {
		tooLong[i] = domain.Tweet{Text: fmt.Sprintf("tweet %d", i+1)}
	}

	tests := []struct {
		name   string
		thread []domain.Tweet
	}{
		{"empty", nil},
		{"too long", tooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{tab: &fakeAutomation{}}
			p := newTestXWeb(sessions)

			res, err := p.PostThread(context.Background(), tt.thread)
			if err == nil {
				t.Fatal("PostThread() = nil, want error")
			}
			if res.Success {
				t.Fatal("Success = true, want false")
			}
			if sessions.authed != 0 {
				t.Fatal("invalid thread must be rejected before opening a session")
			}
		})
	}
}

func TestPostThread(t *testing.T) {
	tab := &fakeAutomation{}
	p := newTestXWeb(&fakeSessions{tab: tab})

	thread := []domain.Tweet{
		{Text: "1/3 the anchor"},
		{Text: "2/3 the middle"},
		{Text: "3/3 the close"},
	}
	res, err := p.PostThread(context.Background(), thread)
	if err != nil {
		t.Fatalf("PostThread() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false: %+v", res)
	}
	if len(res.PostIDs) != 3 {
		t.Fatalf("PostIDs = %v, want 3 ids", res.PostIDs)
	}
	if res.PostIDs[0] != "1001" {
		t.Fatalf("anchor id = %q, want 1001", res.PostIDs[0])
	}
	if want := "https://x.com/amelie/status/1001"; res.ThreadURL != want {
		t.Fatalf("ThreadURL = %q, want %q", res.ThreadURL, want)
	}
	if len(tab.fills) != 3 {
		t.Fatalf("fills = %v, want all three tweets composed", tab.fills)
	}
	// Replies are composed on the anchor's thread view.
	var replyNavs int
	for _, u := range tab.navigations {
		if u == res.ThreadURL {
			replyNavs++
		}
	}
	if replyNavs < 2 {
		t.Fatalf("navigations = %v, want reply composition on the anchor view", tab.navigations)
	}
}

// A reply whose id read-back fails is still live; the thread succeeds and
// the missing id is simply absent from the result.
func TestPostThreadReplyIDExtractionIsBestEffort(t *testing.T) {
	tab := &fakeAutomation{failEvalAt: 2}
	p := newTestXWeb(&fakeSessions{tab: tab})

	thread := []domain.Tweet{
		{Text: "anchor"},
		{Text: "reply one"},
		{Text: "reply two"},
	}
	res, err := p.PostThread(context.Background(), thread)
	if err != nil {
		t.Fatalf("PostThread() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false: %+v", res)
	}
	if len(tab.fills) != 3 {
		t.Fatalf("fills = %v, all three tweets must be posted", tab.fills)
	}
	if len(res.PostIDs) != 2 {
		t.Fatalf("PostIDs = %v, want anchor plus the one extractable reply", res.PostIDs)
	}
	if res.PostIDs[0] != "1001" || res.PostIDs[1] != "1003" {
		t.Fatalf("PostIDs = %v, want [1001 1003]", res.PostIDs)
	}
}

func TestPostThreadAnchorPermalinkRequired(t *testing.T) {
	tab := &fakeAutomation{evalBlank: true}
	p := newTestXWeb(&fakeSessions{tab: tab})

	thread := []domain.Tweet{{Text: "anchor"}, {Text: "reply"}}
	res, err := p.PostThread(context.Background(), thread)
	if err == nil {
		t.Fatal("PostThread() = nil, want error when the anchor permalink is missing")
	}
	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if !strings.Contains(err.Error(), "permalink") {
		t.Fatalf("error = %v, want permalink failure", err)
	}
	if len(tab.fills) != 1 {
		t.Fatalf("fills = %v, replies must not be attempted without the anchor permalink", tab.fills)
	}
}

func TestPostThreadReportsPartialIDsOnReplyFailure(t *testing.T) {
	// The anchor and first reply post fine, then every Fill fails so the
	// second reply exhausts its retries.
	tab := &fakeAutomation{}
	fills := 0
	failing := &gatedAutomation{inner: tab, shouldFail: func() bool {
		fills++
		return fills > 2
	}}
	p := newTestXWeb(&staticSessions{tab: failing})

	thread := []domain.Tweet{{Text: "anchor"}, {Text: "reply one"}, {Text: "reply two"}}
	res, err := p.PostThread(context.Background(), thread)
	if err == nil {
		t.Fatal("PostThread() = nil, want error after reply retries exhausted")
	}
	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if len(res.PostIDs) != 2 {
		t.Fatalf("PostIDs = %v, want the two ids that did post", res.PostIDs)
	}
	if res.Error == "" {
		t.Fatal("Error field empty, want failure detail for reconciliation")
	}
}

// gatedAutomation fails Fill on demand while delegating everything else.
type gatedAutomation struct {
	inner      *fakeAutomation
	shouldFail func() bool
}

func (g *gatedAutomation) Navigate(ctx context.Context, url string) error {
	return g.inner.Navigate(ctx, url)
}
func (g *gatedAutomation) WaitVisible(ctx context.Context, s string) error {
	return g.inner.WaitVisible(ctx, s)
}
func (g *gatedAutomation) WaitHidden(ctx context.Context, s string) error {
	return g.inner.WaitHidden(ctx, s)
}
func (g *gatedAutomation) Click(ctx context.Context, s string) error { return g.inner.Click(ctx, s) }
func (g *gatedAutomation) Fill(ctx context.Context, s, text string) error {
	if g.shouldFail() {
		return errors.New("element detached")
	}
	return g.inner.Fill(ctx, s, text)
}
func (g *gatedAutomation) EvalString(ctx context.Context, js string) (string, error) {
	return g.inner.EvalString(ctx, js)
}
func (g *gatedAutomation) CurrentURL(ctx context.Context) (string, error) {
	return g.inner.CurrentURL(ctx)
}
func (g *gatedAutomation) ExportCookies(ctx context.Context) ([]domain.Cookie, error) {
	return g.inner.ExportCookies(ctx)
}
func (g *gatedAutomation) ImportCookies(ctx context.Context, c []domain.Cookie) error {
	return g.inner.ImportCookies(ctx, c)
}

type staticSessions struct{ tab Automation }

func (s *staticSessions) Authenticated(context.Context, string) (Automation, context.CancelFunc, error) {
	return s.tab, func() {}, nil
}

func (s *staticSessions) Login(context.Context, string, domain.Credentials) error { return nil }
