// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paywall retrieves full text for journal papers through an
// EZproxy-style institutional proxy. One Accessor owns the authenticated
// session for a run: a single login serves many fetches, session refresh
// is serialized, and terminal authentication failures disable the
// accessor for the rest of the run without aborting other sources.
package paywall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Kind classifies an access failure. Each failure is reported per paper
// and never aborts the pipeline.
type Kind string

const (
	CredentialsMissing  Kind = "credentials_missing"
	CredentialsRejected Kind = "credentials_rejected"
	ProxyUnreachable    Kind = "proxy_unreachable"
	ContentNotFound     Kind = "content_not_found"
	Timeout             Kind = "timeout"
)

// AccessError is a classified paywall failure.
type AccessError struct {
	Kind Kind
	Err  error
}

func (e *AccessError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// KindOf returns the failure kind when err is an AccessError.
func KindOf(err error) (Kind, bool) {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// session states.
type state int

const (
	stateUnauthenticated state = iota
	stateAuthenticated
	stateDisabled
)

// Accessor resolves paywalled URLs through the institutional proxy.
// Concurrent fetches share a valid session; refresh is serialized behind
// the mutex so only one authentication is ever in flight.
type Accessor struct {
	cfg    types.PaywallConfig
	client *http.Client
	log    zerolog.Logger

	mu       sync.Mutex
	state    state
	authedAt time.Time
	terminal *AccessError // set once the accessor is disabled for the run

	// now is stubbed in tests to drive session expiry.
	now func() time.Time
}

// New builds an Accessor. Missing configuration (no proxy URL or no
// credentials) yields an accessor that is disabled from the start: every
// Resolve returns CredentialsMissing and journal full text is skipped
// with a logged reason rather than a crash.
func New(cfg types.PaywallConfig, log zerolog.Logger) *Accessor {
	jar, _ := cookiejar.New(nil)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}

	a := &Accessor{
		cfg:    cfg,
		client: &http.Client{Jar: jar, Timeout: timeout},
		log:    log.With().Str("component", "paywall").Logger(),
		now:    time.Now,
	}
	if cfg.ProxyURL == "" || cfg.Username == "" || cfg.Password == "" {
		a.state = stateDisabled
		a.terminal = &AccessError{Kind: CredentialsMissing, Err: errors.New("proxy URL or credentials not configured")}
		log.Info().Msg("paywall access disabled: credentials not configured")
	}
	return a
}

// Enabled reports whether the accessor can still attempt fetches.
func (a *Accessor) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state != stateDisabled
}

// Resolve fetches the full text behind candidate's PDF URL (falling back
// to the abstract URL) through the proxy. Failures are AccessErrors,
// classified per the failure taxonomy.
func (a *Accessor) Resolve(ctx context.Context, candidate types.CandidatePaper) ([]byte, error) {
	target := candidate.PDFURL
	if target == "" {
		target = candidate.AbstractURL
	}
	if target == "" {
		return nil, &AccessError{Kind: ContentNotFound, Err: fmt.Errorf("candidate %s has no access URL", candidate.Identity)}
	}

	if err := a.ensureSession(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.RewriteURL(target), nil)
	if err != nil {
		return nil, &AccessError{Kind: ContentNotFound, Err: err}
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &AccessError{Kind: ContentNotFound, Err: fmt.Errorf("HTTP 404 for %s", target)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// The proxy dropped our session mid-run; force re-auth next call.
		a.expireSession()
		return nil, &AccessError{Kind: CredentialsRejected, Err: fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)}
	case resp.StatusCode != http.StatusOK:
		return nil, &AccessError{Kind: ContentNotFound, Err: fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return data, nil
}

// RewriteURL routes a publisher URL through the proxy's login redirect
// ("https://login.ezproxy.example.edu/login?url=<target>").
func (a *Accessor) RewriteURL(target string) string {
	return strings.TrimSuffix(a.cfg.ProxyURL, "/") + "/login?url=" + url.QueryEscape(target)
}

// ensureSession authenticates if the session is missing or expired.
// Unauthenticated → Authenticating → Authenticated, with expiry looping
// back through Authenticating. Only one goroutine authenticates at a
// time; the rest wait and reuse the fresh session.
func (a *Accessor) ensureSession(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case stateDisabled:
		return a.terminal
	case stateAuthenticated:
		if a.now().Sub(a.authedAt) < a.cfg.SessionTTL {
			return nil
		}
		a.log.Debug().Msg("proxy session expired, re-authenticating")
	}

	if err := a.login(ctx); err != nil {
		if kind, _ := KindOf(err); kind == CredentialsRejected || kind == ProxyUnreachable {
			// Terminal for the run's remaining paywalled fetches.
			a.state = stateDisabled
			a.terminal = err.(*AccessError)
			a.log.Warn().Err(err).Msg("paywall access disabled for this run")
		}
		return err
	}

	a.state = stateAuthenticated
	a.authedAt = a.now()
	return nil
}

// login posts the institutional credentials to the proxy login form.
// Callers hold the mutex.
func (a *Accessor) login(ctx context.Context) error {
	form := url.Values{
		"user": {a.cfg.Username},
		"pass": {a.cfg.Password},
	}
	loginURL := strings.TrimSuffix(a.cfg.ProxyURL, "/") + "/login"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &AccessError{Kind: ProxyUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AccessError{Kind: CredentialsRejected, Err: fmt.Errorf("proxy rejected credentials (HTTP %d)", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &AccessError{Kind: ProxyUnreachable, Err: fmt.Errorf("proxy login returned HTTP %d", resp.StatusCode)}
	}

	a.log.Info().Msg("authenticated with institutional proxy")
	return nil
}

// expireSession forces re-authentication on the next fetch.
func (a *Accessor) expireSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == stateAuthenticated {
		a.state = stateUnauthenticated
	}
}

// classifyTransport maps a transport error to Timeout or ProxyUnreachable.
func classifyTransport(err error) *AccessError {
	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &AccessError{Kind: Timeout, Err: err}
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return &AccessError{Kind: Timeout, Err: err}
	}
	return &AccessError{Kind: ProxyUnreachable, Err: err}
}
