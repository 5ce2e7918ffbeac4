package access

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExpandPath(t *testing.T) {
	tests := []struct {
		pattern string
		args    []string
		want    string
		wantErr string
	}{
		{"/berater", nil, "/berater", ""},
		{"/berater/{id}", []string{"b1"}, "/berater/b1", ""},
		{"/offers/{category}", []string{"internet-tv"}, "/offers/internet-tv", ""},
		{"/chat/{sessionId}", []string{"a/b c"}, "/chat/a%2Fb%20c", ""},
		{"/offers/{category}", []string{" strom "}, "/offers/strom", ""},
		{"/offers/{category}", nil, "", "category is required"},
		{"/offers/{category}", []string{""}, "", "category is required"},
		{"/berater", []string{"extra"}, "", "too many path arguments"},
	}
	for _, tt := range tests {
		got, err := expandPath(tt.pattern, tt.args)
		if tt.wantErr != "" {
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("expandPath(%q, %v) error = %v, want %q", tt.pattern, tt.args, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("expandPath(%q, %v) error: %v", tt.pattern, tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("expandPath(%q, %v) = %q, want %q", tt.pattern, tt.args, got, tt.want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusBadRequest, KindBadRequest},
		{http.StatusNotFound, KindBadRequest},
		{http.StatusConflict, KindBadRequest},
		{http.StatusTooManyRequests, KindBadRequest},
		{http.StatusInternalServerError, KindUnavailable},
		{http.StatusBadGateway, KindUnavailable},
		{http.StatusServiceUnavailable, KindUnavailable},
		{http.StatusMultipleChoices, KindUnavailable},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestLoginOperationsMapRejections(t *testing.T) {
	if opLoginPrimary.rejected != KindInvalidCredentials {
		t.Errorf("login-primary rejection = %s", opLoginPrimary.rejected)
	}
	if opLoginVerify.rejected != KindInvalidSecondFactor {
		t.Errorf("login-verify rejection = %s", opLoginVerify.rejected)
	}
}

func TestServerMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{``, ""},
		{`{"error":"berater not found"}`, "berater not found"},
		{`{"message":"rating out of range","error":"Bad Request"}`, "rating out of range"},
		{"plain failure\n", "plain failure"},
	}
	for _, tt := range tests {
		if got := serverMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("serverMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}

	long := strings.Repeat("x", 500)
	if got := serverMessage([]byte(long)); len(got) != 200 {
		t.Errorf("long body truncated to %d chars, want 200", len(got))
	}

	umlauts := strings.Repeat("ä", 300)
	got := serverMessage([]byte(umlauts))
	if !utf8.ValidString(got) || utf8.RuneCountInString(got) != 200 {
		t.Errorf("multi-byte body truncated to %d runes (valid UTF-8: %v), want 200", utf8.RuneCountInString(got), utf8.ValidString(got))
	}
}

func TestCheckPayload_FieldNames(t *testing.T) {
	c := &Client{validate: newValidator()}
	err := c.checkPayload(ReviewInput{BeraterID: "b1", Rating: 9, Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "rating must be at most 5") {
		t.Errorf("checkPayload() error = %v", err)
	}
	if err := c.checkPayload(NoBody{}); err != nil {
		t.Errorf("checkPayload(NoBody) error: %v", err)
	}
}
