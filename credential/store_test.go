package credential_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/beraterhub/access-go/credential"
)

func TestNewStore_RequiresAnonymousKey(t *testing.T) {
	_, err := credential.NewStore("")
	if !errors.Is(err, credential.ErrNoAnonymousKey) {
		t.Fatalf("NewStore(\"\") error = %v, want ErrNoAnonymousKey", err)
	}
}

func TestStore_Anonymous(t *testing.T) {
	s, err := credential.NewStore("anon-key")
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	anon := s.Anonymous()
	if anon.Kind != credential.Anonymous {
		t.Errorf("Kind = %v, want Anonymous", anon.Kind)
	}
	if anon.Header() != "Bearer anon-key" {
		t.Errorf("Header() = %q, want %q", anon.Header(), "Bearer anon-key")
	}
}

func TestStore_BeginAndSession(t *testing.T) {
	s, _ := credential.NewStore("anon-key")

	if _, ok := s.Session(); ok {
		t.Fatal("Session() should be absent before Begin")
	}

	if err := s.Begin(credential.NewSession("tok-1", credential.RoleAdmin, time.Time{})); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	sess, ok := s.Session()
	if !ok {
		t.Fatal("Session() should be present after Begin")
	}
	if sess.Role != credential.RoleAdmin || sess.Token.Value != "tok-1" {
		t.Errorf("Session() = %+v", sess)
	}
}

func TestStore_BeginRejectsEmptyToken(t *testing.T) {
	s, _ := credential.NewStore("anon-key")
	if err := s.Begin(credential.Session{Role: credential.RoleAdmin}); err == nil {
		t.Fatal("Begin() expected error for a session without token")
	}
}

func TestStore_InvalidateOnlyMatchingToken(t *testing.T) {
	var reasons []credential.Reason
	s, _ := credential.NewStore("anon-key", credential.WithInvalidationHook(func(_ credential.Session, r credential.Reason) {
		reasons = append(reasons, r)
	}))

	_ = s.Begin(credential.NewSession("old", credential.RoleAdmin, time.Time{}))
	_ = s.Begin(credential.NewSession("new", credential.RoleAdmin, time.Time{}))

	if s.Invalidate("old") {
		t.Error("Invalidate(old) should not remove the newer session")
	}
	if _, ok := s.Session(); !ok {
		t.Fatal("newer session should survive a stale rejection")
	}
	if !s.Invalidate("new") {
		t.Error("Invalidate(new) should remove the active session")
	}
	if _, ok := s.Session(); ok {
		t.Error("Session() should be absent after Invalidate")
	}

	want := []credential.Reason{credential.ReasonReplaced, credential.ReasonRejected}
	if len(reasons) != len(want) {
		t.Fatalf("hook reasons = %v, want %v", reasons, want)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Errorf("reasons[%d] = %q, want %q", i, reasons[i], want[i])
		}
	}
}

func TestStore_ExpiredSessionIsCleared(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var got credential.Reason
	s, _ := credential.NewStore("anon-key",
		credential.WithClock(func() time.Time { return now }),
		credential.WithInvalidationHook(func(_ credential.Session, r credential.Reason) { got = r }),
	)

	_ = s.Begin(credential.NewSession("tok", credential.RoleAdmin, now.Add(time.Minute)))
	if _, ok := s.Session(); !ok {
		t.Fatal("session should be valid before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := s.Session(); ok {
		t.Fatal("session should be absent after expiry")
	}
	if got != credential.ReasonExpired {
		t.Errorf("hook reason = %q, want %q", got, credential.ReasonExpired)
	}
}

func TestStore_Clear(t *testing.T) {
	calls := 0
	s, _ := credential.NewStore("anon-key", credential.WithInvalidationHook(func(credential.Session, credential.Reason) { calls++ }))

	s.Clear()
	if calls != 0 {
		t.Errorf("Clear() on empty slot fired hook %d times", calls)
	}

	_ = s.Begin(credential.NewSession("tok", credential.RoleBerater, time.Time{}))
	s.Clear()
	if _, ok := s.Session(); ok {
		t.Error("Session() should be absent after Clear")
	}
	if calls != 1 {
		t.Errorf("hook calls = %d, want 1", calls)
	}
}

func TestStore_ConcurrentInvalidate(t *testing.T) {
	s, _ := credential.NewStore("anon-key")
	_ = s.Begin(credential.NewSession("tok", credential.RoleAdmin, time.Time{}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	removed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Invalidate("tok") {
				mu.Lock()
				removed++
				mu.Unlock()
			}
			s.Session()
		}()
	}
	wg.Wait()

	if removed != 1 {
		t.Errorf("Invalidate succeeded %d times, want exactly 1", removed)
	}
}

type memPersister struct {
	saved   *credential.Session
	deletes int
}

func (m *memPersister) Load(context.Context) (*credential.Session, error) { return m.saved, nil }

func (m *memPersister) Save(_ context.Context, s credential.Session) error {
	m.saved = &s
	return nil
}

func (m *memPersister) Delete(context.Context) error {
	m.saved = nil
	m.deletes++
	return nil
}

func TestStore_PersisterWriteThrough(t *testing.T) {
	p := &memPersister{}
	s, _ := credential.NewStore("anon-key", credential.WithPersister(p))

	_ = s.Begin(credential.NewSession("tok", credential.RoleAdmin, time.Time{}))
	if p.saved == nil || p.saved.Token.Value != "tok" {
		t.Fatalf("persisted session = %+v, want token tok", p.saved)
	}

	s.Clear()
	if p.saved != nil || p.deletes != 1 {
		t.Errorf("persister after Clear: saved=%v deletes=%d", p.saved, p.deletes)
	}
}

func TestStore_Restore(t *testing.T) {
	sess := credential.NewSession("tok", credential.RoleAdmin, time.Now().Add(time.Hour))
	p := &memPersister{saved: &sess}
	s, _ := credential.NewStore("anon-key", credential.WithPersister(p))

	ok, err := s.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if !ok {
		t.Fatal("Restore() = false, want true")
	}
	got, present := s.Session()
	if !present || got.Token.Value != "tok" {
		t.Errorf("Session() after Restore = %+v, %v", got, present)
	}
}

func TestStore_RestoreDropsExpired(t *testing.T) {
	sess := credential.NewSession("tok", credential.RoleAdmin, time.Now().Add(-time.Hour))
	p := &memPersister{saved: &sess}
	s, _ := credential.NewStore("anon-key", credential.WithPersister(p))

	ok, err := s.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if ok {
		t.Error("Restore() should not restore an expired session")
	}
	if p.deletes != 1 {
		t.Errorf("expired persisted session should be deleted, deletes=%d", p.deletes)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    credential.Role
		wantErr bool
	}{
		{"admin", credential.RoleAdmin, false},
		{" Berater ", credential.RoleBerater, false},
		{"CUSTOMER", credential.RoleCustomer, false},
		{"root", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := credential.ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSession_Enrich(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-42",
		"role": "admin",
		"exp":  exp.Unix(),
		"iat":  time.Now().Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	sess := credential.NewSession(signed, "", time.Time{}).Enrich()
	if sess.UserID != "user-42" {
		t.Errorf("UserID = %q, want user-42", sess.UserID)
	}
	if sess.Role != credential.RoleAdmin {
		t.Errorf("Role = %q, want admin", sess.Role)
	}
	if !sess.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, exp)
	}
}

func TestSession_EnrichOpaqueToken(t *testing.T) {
	sess := credential.NewSession("opaque-token", credential.RoleBerater, time.Time{})
	got := sess.Enrich()
	if got.Role != credential.RoleBerater || !got.ExpiresAt.IsZero() {
		t.Errorf("Enrich() changed opaque session: %+v", got)
	}
}
