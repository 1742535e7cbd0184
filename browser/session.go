// backend/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/openharvest/portal/backend/config"
)

// ErrDisabled is returned by NewSession when browser automation is not
// configured. Callers skip browser-backed work instead of failing.
var ErrDisabled = errors.New("browser automation is not enabled")

// Session is one headless-browser session. Discovery acquires a single
// session per pass and threads it through every strategy that needs a
// rendered page; strategies never assume ambient global browser state.
//
// Every JSON response the page fetches in the background is captured as a
// side channel, independent of what gets rendered.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc

	mu       sync.Mutex
	captured map[string][]byte
}

// NewSession starts a headless browser. Returns ErrDisabled when the
// config does not enable automation.
func NewSession(parent context.Context) (*Session, error) {
	cfg := config.AppConfig.Browser
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(config.AppConfig.HTTP.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:      browserCtx,
		cancels:  []context.CancelFunc{cancelBrowser, cancelAlloc},
		captured: make(map[string][]byte),
	}

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	s.listenForResponses()

	log.Println("Browser: Headless session started")
	return s, nil
}

// listenForResponses installs the passive network capture: any response
// with a JSON content type and a data-looking URL gets its body stored
// for later identifier extraction.
func (s *Session) listenForResponses() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		if !strings.Contains(strings.ToLower(resp.Response.MimeType), "json") {
			return
		}
		if !looksDataRelated(resp.Response.URL) {
			return
		}
		requestID := resp.RequestID
		url := resp.Response.URL
		// The body is only retrievable once loading finished; fetching it
		// inside the listener callback would deadlock the event loop.
		go func() {
			c := chromedp.FromContext(s.ctx)
			body, err := network.GetResponseBody(requestID).Do(cdp.WithExecutor(s.ctx, c.Target))
			if err != nil {
				return
			}
			s.mu.Lock()
			s.captured[url] = body
			s.mu.Unlock()
		}()
	})
}

// looksDataRelated guesses whether a background request is part of the
// portal's data API rather than assets or analytics.
func looksDataRelated(url string) bool {
	lower := strings.ToLower(url)
	for _, hint := range []string{"api", "dataset", "package", "search", "catalog", "data"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Navigate loads a page and waits for the document body, bounded by the
// configured navigation timeout.
func (s *Session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.ctx, config.AppConfig.Browser.NavTimeout)
	defer cancel()
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// ScrollToBottom scrolls the window to the bottom and pauses long enough
// for an infinite-scroll listing to append the next batch.
func (s *Session) ScrollToBottom() error {
	ctx, cancel := context.WithTimeout(s.ctx, config.AppConfig.Browser.NavTimeout)
	defer cancel()
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(config.AppConfig.Discovery.ScrollPause),
	); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// HTML returns the current rendered DOM.
func (s *Session) HTML() (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, config.AppConfig.Browser.NavTimeout)
	defer cancel()
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read rendered DOM: %w", err)
	}
	return html, nil
}

// DrainCaptured hands over everything the passive capture collected so
// far and resets the buffer.
func (s *Session) DrainCaptured() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.captured
	s.captured = make(map[string][]byte)
	return out
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}
