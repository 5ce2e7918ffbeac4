package access_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	access "github.com/beraterhub/access-go"
	"github.com/beraterhub/access-go/credential"
	"github.com/beraterhub/access-go/fake"
)

func TestNewClient_RequiresBaseURL(t *testing.T) {
	store, _ := credential.NewStore("anon")
	if _, err := access.NewClient(access.Config{}, store); err == nil {
		t.Fatal("NewClient() expected error when BaseURL is empty")
	}
}

func TestNewClient_RequiresStore(t *testing.T) {
	if _, err := access.NewClient(access.Config{BaseURL: "https://api.example.com"}, nil); err == nil {
		t.Fatal("NewClient() expected error when store is nil")
	}
}

func TestNewClient_RejectsNonHTTPScheme(t *testing.T) {
	store, _ := credential.NewStore("anon")
	for _, u := range []string{"ftp://api.example.com", "api.example.com", "grpc://localhost:9000"} {
		if _, err := access.NewClient(access.Config{BaseURL: u}, store); err == nil {
			t.Errorf("NewClient(%q) expected error", u)
		}
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	store, _ := credential.NewStore("anon")
	c, err := access.NewClient(access.Config{BaseURL: "https://api.example.com/"}, store)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.Config().Timeout != access.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Config().Timeout, access.DefaultTimeout)
	}
	if c.Credentials() != store {
		t.Error("Credentials() should return the store passed to NewClient")
	}
}

func TestNewClient_CustomTimeout(t *testing.T) {
	store, _ := credential.NewStore("anon")
	c, err := access.NewClient(access.Config{BaseURL: "https://api.example.com", Timeout: 3 * time.Second}, store)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.Config().Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", c.Config().Timeout)
	}
}

func TestCatalog_Scopes(t *testing.T) {
	privileged := map[string]bool{
		"create-berater": true,
		"create-review":  true,
		"create-qr-code": true,
		"get-analytics":  true,
	}
	ops := access.Catalog()
	if len(ops) != 11 {
		t.Fatalf("Catalog() has %d entries, want 11", len(ops))
	}
	for _, op := range ops {
		want := credential.Anonymous
		if privileged[op.Name] {
			want = credential.UserToken
		}
		if op.Scope != want {
			t.Errorf("%s %s scope = %s, want %s", op.Method, op.Path, op.Scope, want)
		}
	}
}

func TestCatalog_Endpoints(t *testing.T) {
	got := []struct {
		name, method, path string
		scope              credential.Kind
	}{
		{access.OpGetAnalytics.Name(), access.OpGetAnalytics.Method(), access.OpGetAnalytics.Path(), access.OpGetAnalytics.Scope()},
		{access.OpGetOffers.Name(), access.OpGetOffers.Method(), access.OpGetOffers.Path(), access.OpGetOffers.Scope()},
		{access.OpCreateReview.Name(), access.OpCreateReview.Method(), access.OpCreateReview.Path(), access.OpCreateReview.Scope()},
	}
	want := []struct {
		name, method, path string
		scope              credential.Kind
	}{
		{"get-analytics", http.MethodGet, "/analytics/overview", credential.UserToken},
		{"get-offers", http.MethodGet, "/offers/{category}", credential.Anonymous},
		{"create-review", http.MethodPost, "/reviews", credential.UserToken},
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("endpoint %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestInvoke_ZeroEndpoint(t *testing.T) {
	s := fake.NewServer()
	defer s.Close()
	c, _ := newClient(t, s)

	_, err := access.Invoke(context.Background(), c, access.Endpoint[access.NoBody, []access.Offer]{}, access.NoBody{})
	if err == nil {
		t.Fatal("Invoke() with a zero endpoint expected error")
	}
	if access.KindOf(err) != 0 {
		t.Errorf("zero endpoint error should be a misuse error, got kind %s", access.KindOf(err))
	}
	if n := len(s.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestErrors_IsAndKind(t *testing.T) {
	err := error(&access.Error{Kind: access.KindUnauthorized, Op: "get-analytics", Status: 401, Message: "invalid token"})
	wrapped := errors.Join(errors.New("context"), err)

	if !errors.Is(wrapped, access.ErrUnauthorized) {
		t.Error("errors.Is(wrapped, ErrUnauthorized) = false")
	}
	if errors.Is(wrapped, access.ErrUnavailable) {
		t.Error("errors.Is(wrapped, ErrUnavailable) = true")
	}
	if access.KindOf(wrapped) != access.KindUnauthorized {
		t.Errorf("KindOf = %s", access.KindOf(wrapped))
	}
	if access.KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain) should be 0")
	}
	if !strings.Contains(err.Error(), "get-analytics") || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrors_Retryable(t *testing.T) {
	tests := []struct {
		kind access.ErrorKind
		want bool
	}{
		{access.KindInvalidCredentials, false},
		{access.KindInvalidSecondFactor, false},
		{access.KindUnauthenticated, false},
		{access.KindUnauthorized, false},
		{access.KindBadRequest, false},
		{access.KindUnavailable, true},
	}
	for _, tt := range tests {
		if got := access.Retryable(&access.Error{Kind: tt.kind}); got != tt.want {
			t.Errorf("Retryable(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestErrors_UserMessage(t *testing.T) {
	unavailable := access.UserMessage(&access.Error{Kind: access.KindUnavailable})
	for _, word := range []string{"password", "code", "credential"} {
		if strings.Contains(strings.ToLower(unavailable), word) {
			t.Errorf("Unavailable message %q mentions %q", unavailable, word)
		}
	}

	bad := access.UserMessage(&access.Error{Kind: access.KindBadRequest, Message: "rating must be at least 1"})
	if bad != "rating must be at least 1" {
		t.Errorf("BadRequest message = %q, want server detail", bad)
	}
	if access.UserMessage(&access.Error{Kind: access.KindBadRequest}) == "" {
		t.Error("BadRequest without detail should still have a message")
	}
	if access.UserMessage(errors.New("x")) == "" {
		t.Error("unclassified error should still have a message")
	}
}
