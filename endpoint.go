package access

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/beraterhub/access-go/credential"
)

// operation is the static description of one backend call.
type operation struct {
	name   string
	method string
	path   string // pattern, "{...}" segments are filled from call arguments
	scope  credential.Kind

	// rejected is the kind a 401/403 maps to.
	rejected ErrorKind
}

// Endpoint is a member of the closed operation catalog. Its request and
// response types and its required credential are fixed at declaration; values
// can only be declared inside this package.
type Endpoint[Req, Resp any] struct {
	op operation
}

// Name returns the catalog name of the operation.
func (e Endpoint[Req, Resp]) Name() string { return e.op.name }

// Method returns the HTTP method.
func (e Endpoint[Req, Resp]) Method() string { return e.op.method }

// Path returns the path pattern.
func (e Endpoint[Req, Resp]) Path() string { return e.op.path }

// Scope returns the credential kind the operation requires.
func (e Endpoint[Req, Resp]) Scope() credential.Kind { return e.op.scope }

func public(name, method, path string) operation {
	return operation{name: name, method: method, path: path, scope: credential.Anonymous, rejected: KindUnauthorized}
}

func privileged(name, method, path string) operation {
	return operation{name: name, method: method, path: path, scope: credential.UserToken, rejected: KindUnauthorized}
}

// The operation catalog.
var (
	OpSignup           = Endpoint[SignupRequest, User]{public("signup", http.MethodPost, "/auth/signup")}
	OpListBerater      = Endpoint[NoBody, []Berater]{public("get-berater", http.MethodGet, "/berater")}
	OpGetBerater       = Endpoint[NoBody, Berater]{public("get-berater", http.MethodGet, "/berater/{id}")}
	OpCreateBerater    = Endpoint[BeraterInput, Berater]{privileged("create-berater", http.MethodPost, "/berater")}
	OpCreateReview     = Endpoint[ReviewInput, Review]{privileged("create-review", http.MethodPost, "/reviews")}
	OpSaveChatMessage  = Endpoint[ChatMessageInput, Ack]{public("save-chat-message", http.MethodPost, "/chat/messages")}
	OpGetChatHistory   = Endpoint[NoBody, []ChatMessage]{public("get-chat-history", http.MethodGet, "/chat/{sessionId}")}
	OpCreateQRCode     = Endpoint[QRCodeInput, QRCode]{privileged("create-qr-code", http.MethodPost, "/qr-codes")}
	OpGetAnalytics     = Endpoint[NoBody, Analytics]{privileged("get-analytics", http.MethodGet, "/analytics/overview")}
	OpGetOffers        = Endpoint[NoBody, []Offer]{public("get-offers", http.MethodGet, "/offers/{category}")}
	OpInitializeSystem = Endpoint[NoBody, InitResult]{public("initialize-system", http.MethodPost, "/init")}
)

// Login endpoints. 401/403 mean the submitted factor was wrong, not that the
// caller's credential was rejected.
var (
	opLoginPrimary = operation{
		name: "login-primary", method: http.MethodPost, path: "/auth/login",
		scope: credential.Anonymous, rejected: KindInvalidCredentials,
	}
	opLoginVerify = operation{
		name: "login-verify", method: http.MethodPost, path: "/auth/verify",
		scope: credential.Anonymous, rejected: KindInvalidSecondFactor,
	}
)

// OperationInfo describes a catalog entry.
type OperationInfo struct {
	Name   string
	Method string
	Path   string
	Scope  credential.Kind
}

// Catalog lists every operation the client can invoke.
func Catalog() []OperationInfo {
	ops := []operation{
		OpSignup.op, OpListBerater.op, OpGetBerater.op, OpCreateBerater.op,
		OpCreateReview.op, OpSaveChatMessage.op, OpGetChatHistory.op,
		OpCreateQRCode.op, OpGetAnalytics.op, OpGetOffers.op, OpInitializeSystem.op,
	}
	out := make([]OperationInfo, len(ops))
	for i, op := range ops {
		out[i] = OperationInfo{Name: op.name, Method: op.method, Path: op.path, Scope: op.scope}
	}
	return out
}

var errUnknownEndpoint = errors.New("access: endpoint is not part of the operation catalog")

// Invoke performs e with payload req. args fill the "{...}" segments of the
// path pattern in order. Expected failures are returned as *Error.
func Invoke[Req, Resp any](ctx context.Context, c *Client, e Endpoint[Req, Resp], req Req, args ...string) (Resp, error) {
	var out Resp
	if e.op.name == "" {
		return out, errUnknownEndpoint
	}
	err := c.call(ctx, e.op, req, args, &out)
	return out, err
}

// expandPath fills "{...}" segments of pattern with escaped args.
func expandPath(pattern string, args []string) (string, error) {
	segments := strings.Split(pattern, "/")
	n := 0
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		name := strings.Trim(seg, "{}")
		if n >= len(args) {
			return "", errors.New(name + " is required")
		}
		arg := strings.TrimSpace(args[n])
		if arg == "" {
			return "", errors.New(name + " is required")
		}
		segments[i] = url.PathEscape(arg)
		n++
	}
	if n != len(args) {
		return "", errors.New("too many path arguments")
	}
	return strings.Join(segments, "/"), nil
}
