// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paywall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// proxyServer fakes an EZproxy-style endpoint: POST /login authenticates,
// GET /login?url=<target> serves content for logged-in sessions.
type proxyServer struct {
	*httptest.Server

	mu        sync.Mutex
	logins    int
	fetches   int
	rejectAll bool
	content   []byte
}

func newProxyServer() *proxyServer {
	p := &proxyServer{content: []byte("%PDF paywalled content")}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if r.Method == http.MethodPost && r.URL.Path == "/login" {
			p.logins++
			if p.rejectAll {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.FormValue("user") != "alice" || r.FormValue("pass") != "s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "ezproxy", Value: "session"})
			return
		}

		if r.Method == http.MethodGet && r.URL.Path == "/login" {
			p.fetches++
			if c, err := r.Cookie("ezproxy"); err != nil || c.Value != "session" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			target := r.URL.Query().Get("url")
			if strings.Contains(target, "missing") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(p.content)
			return
		}

		w.WriteHeader(http.StatusBadRequest)
	}))
	return p
}

func testConfig(proxyURL string) types.PaywallConfig {
	return types.PaywallConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		ProxyURL:   proxyURL,
		Username:   "alice",
		Password:   "s3cret",
		SessionTTL: 30 * time.Minute,
	}
}

func journalCandidate(pdfURL string) types.CandidatePaper {
	return types.CandidatePaper{
		Identity:   "nature:10.1038/x",
		Title:      "Paywalled paper",
		SourceKind: types.SourceJournal,
		SourceName: "Nature",
		PDFURL:     pdfURL,
	}
}

func TestResolveSharesOneSession(t *testing.T) {
	proxy := newProxyServer()
	defer proxy.Close()

	a := New(testConfig(proxy.URL), zerolog.Nop())
	if !a.Enabled() {
		t.Fatal("accessor should be enabled")
	}

	for i := 0; i < 3; i++ {
		body, err := a.Resolve(context.Background(), journalCandidate("https://publisher.example/p.pdf"))
		if err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
		if string(body) != "%PDF paywalled content" {
			t.Fatalf("body = %q", body)
		}
	}

	if proxy.logins != 1 {
		t.Errorf("logins = %d, want 1 (session shared across fetches)", proxy.logins)
	}
	if proxy.fetches != 3 {
		t.Errorf("fetches = %d, want 3", proxy.fetches)
	}
}

func TestResolveReauthenticatesAfterTTL(t *testing.T) {
	proxy := newProxyServer()
	defer proxy.Close()

	a := New(testConfig(proxy.URL), zerolog.Nop())

	current := time.Now()
	a.now = func() time.Time { return current }

	if _, err := a.Resolve(context.Background(), journalCandidate("https://publisher.example/p.pdf")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	current = current.Add(31 * time.Minute)
	if _, err := a.Resolve(context.Background(), journalCandidate("https://publisher.example/p.pdf")); err != nil {
		t.Fatalf("Resolve after expiry: %v", err)
	}

	if proxy.logins != 2 {
		t.Errorf("logins = %d, want 2 (re-auth after TTL)", proxy.logins)
	}
}

func TestRejectedCredentialsDisableAccessor(t *testing.T) {
	proxy := newProxyServer()
	defer proxy.Close()
	proxy.rejectAll = true

	a := New(testConfig(proxy.URL), zerolog.Nop())

	_, err := a.Resolve(context.Background(), journalCandidate("https://publisher.example/p.pdf"))
	if kind, ok := KindOf(err); !ok || kind != CredentialsRejected {
		t.Fatalf("err = %v, want CredentialsRejected", err)
	}
	if a.Enabled() {
		t.Error("accessor should be disabled after rejected credentials")
	}

	// Later papers fail fast without touching the proxy again.
	before := proxy.logins
	_, err = a.Resolve(context.Background(), journalCandidate("https://publisher.example/q.pdf"))
	if kind, _ := KindOf(err); kind != CredentialsRejected {
		t.Errorf("err = %v", err)
	}
	if proxy.logins != before {
		t.Errorf("disabled accessor performed a login")
	}
}

func TestMissingCredentialsDisableFromStart(t *testing.T) {
	a := New(types.PaywallConfig{ProxyURL: "https://proxy.example"}, zerolog.Nop())
	if a.Enabled() {
		t.Fatal("accessor should start disabled without credentials")
	}
	_, err := a.Resolve(context.Background(), journalCandidate("https://publisher.example/p.pdf"))
	if kind, ok := KindOf(err); !ok || kind != CredentialsMissing {
		t.Fatalf("err = %v, want CredentialsMissing", err)
	}
}

func TestResolveContentNotFound(t *testing.T) {
	proxy := newProxyServer()
	defer proxy.Close()

	a := New(testConfig(proxy.URL), zerolog.Nop())
	_, err := a.Resolve(context.Background(), journalCandidate("https://publisher.example/missing.pdf"))
	if kind, ok := KindOf(err); !ok || kind != ContentNotFound {
		t.Fatalf("err = %v, want ContentNotFound", err)
	}
	if !a.Enabled() {
		t.Error("a missing paper must not disable the accessor")
	}
}

func TestResolveProxyUnreachable(t *testing.T) {
	proxy := newProxyServer()
	proxy.Close() // immediately, so the port refuses connections

	a := New(testConfig(proxy.URL), zerolog.Nop())
	_, err := a.Resolve(context.Background(), journalCandidate("https://publisher.example/p.pdf"))
	if kind, ok := KindOf(err); !ok || kind != ProxyUnreachable {
		t.Fatalf("err = %v, want ProxyUnreachable", err)
	}
	if a.Enabled() {
		t.Error("unreachable proxy should disable the accessor for the run")
	}
}

func TestRewriteURL(t *testing.T) {
	a := New(testConfig("https://login.ezproxy.example.edu/"), zerolog.Nop())
	got := a.RewriteURL("https://www.nature.com/articles/x?a=1&b=2")
	want := "https://login.ezproxy.example.edu/login?url=https%3A%2F%2Fwww.nature.com%2Farticles%2Fx%3Fa%3D1%26b%3D2"
	if got != want {
		t.Errorf("RewriteURL = %q, want %q", got, want)
	}
}
