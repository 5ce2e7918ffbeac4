package access

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/beraterhub/access-go/credential"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// maxMessageRunes caps a plain-text server message.
const maxMessageRunes = 200

type response struct {
	status int
	body   []byte
}

// call runs one operation end to end: resolve the credential, validate and
// encode the payload, send, then classify. It never retries.
func (c *Client) call(ctx context.Context, op operation, req any, args []string, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		}
		c.recorder.ObserveRequest(op.name, outcome, time.Since(start))
	}()

	cred, err := c.resolve(op)
	if err != nil {
		return err
	}

	path, err := expandPath(op.path, args)
	if err != nil {
		return &Error{Kind: KindBadRequest, Op: op.name, Message: err.Error()}
	}
	if err := c.checkPayload(req); err != nil {
		return &Error{Kind: KindBadRequest, Op: op.name, Message: err.Error()}
	}

	var body []byte
	if op.method != http.MethodGet {
		if _, empty := req.(NoBody); !empty {
			body, err = json.Marshal(req)
			if err != nil {
				return &Error{Kind: KindBadRequest, Op: op.name, Message: "encode payload", Err: err}
			}
		}
	}

	res, err := c.send(ctx, op.method, path, cred, body)
	if err != nil {
		c.logger.Warn("request failed", "operation", op.name, "error", err)
		return &Error{Kind: KindUnavailable, Op: op.name, Err: err}
	}

	c.logger.Debug("request completed",
		"operation", op.name,
		"status", res.status,
		"duration", time.Since(start),
	)

	if res.status >= 200 && res.status < 300 {
		if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(res.body, out); err != nil {
			return &Error{Kind: KindUnavailable, Op: op.name, Status: res.status, Message: "malformed response", Err: err}
		}
		return nil
	}

	kind := classifyStatus(res.status)
	if kind == KindUnauthorized {
		kind = op.rejected
	}
	if kind == KindUnauthorized && cred.Kind == credential.UserToken {
		if c.store.Invalidate(cred.Value) {
			c.recorder.ObserveSessionInvalidated(string(credential.ReasonRejected))
			c.logger.Info("session invalidated after rejection", "operation", op.name, "status", res.status)
		}
	}
	return &Error{Kind: kind, Op: op.name, Status: res.status, Message: serverMessage(res.body)}
}

// resolve selects the credential op requires. A privileged operation without
// an active session fails before any network I/O.
func (c *Client) resolve(op operation) (credential.Credential, error) {
	switch op.scope {
	case credential.Anonymous:
		return c.store.Anonymous(), nil
	case credential.UserToken:
		sess, ok := c.store.Session()
		if !ok {
			return credential.Credential{}, &Error{Kind: KindUnauthenticated, Op: op.name, Message: "no active session"}
		}
		return sess.Token, nil
	default:
		return credential.Credential{}, fmt.Errorf("access: %s: unsupported credential kind %v", op.name, op.scope)
	}
}

// send issues the request. Concurrent identical anonymous reads share one
// round trip when they carry the same request ID and no write has completed
// since the shared request started; each waiter still honours its own context.
func (c *Client) send(ctx context.Context, method, path string, cred credential.Credential, body []byte) (*response, error) {
	if method != http.MethodGet {
		defer c.writes.Add(1)
		return c.roundTrip(ctx, method, path, cred, body)
	}
	if cred.Kind != credential.Anonymous {
		return c.roundTrip(ctx, method, path, cred, body)
	}

	key := fmt.Sprintf("%d %s %s %s", c.writes.Load(), method, path, RequestIDFromContext(ctx))
	ch := c.reads.DoChan(key, func() (any, error) {
		return c.roundTrip(context.WithoutCancel(ctx), method, path, cred, nil)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*response), nil
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, cred credential.Credential, body []byte) (*response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", cred.Header())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set(HeaderRequestID, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// serverMessage extracts the error text from a failure body.
func serverMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}
	msg := []rune(string(body))
	if len(msg) > maxMessageRunes {
		msg = msg[:maxMessageRunes]
	}
	return strings.TrimSpace(string(msg))
}
