package access

import (
	"context"
	"strings"

	"github.com/beraterhub/access-go/credential"
)

// SubmitPrimary sends username and password to the primary authentication
// endpoint under the anonymous credential. On acceptance it returns the
// pending-second-factor challenge; a rejection is KindInvalidCredentials.
//
// Most callers drive this through login.Flow rather than directly.
func (c *Client) SubmitPrimary(ctx context.Context, username, password string) (Challenge, error) {
	var ch Challenge
	err := c.call(ctx, opLoginPrimary, loginRequest{Username: username, Password: password}, nil, &ch)
	if err != nil {
		return Challenge{}, err
	}
	if ch.Token == "" {
		return Challenge{}, &Error{Kind: KindUnavailable, Op: opLoginPrimary.name, Message: "response missing pending token"}
	}
	return ch, nil
}

// VerifySecondFactor exchanges the challenge and the one-time code for a
// session. A rejected code is KindInvalidSecondFactor. The session is not
// installed in the credential store; that is the login flow's job.
func (c *Client) VerifySecondFactor(ctx context.Context, ch Challenge, code string) (credential.Session, error) {
	var vr verifyResponse
	err := c.call(ctx, opLoginVerify, verifyRequest{PendingToken: ch.Token, Code: code}, nil, &vr)
	if err != nil {
		return credential.Session{}, err
	}
	if vr.AccessToken == "" {
		return credential.Session{}, &Error{Kind: KindUnavailable, Op: opLoginVerify.name, Message: "response missing access token"}
	}

	var role credential.Role
	if strings.TrimSpace(vr.Role) != "" {
		r, err := credential.ParseRole(vr.Role)
		if err != nil {
			return credential.Session{}, &Error{Kind: KindUnavailable, Op: opLoginVerify.name, Message: "unexpected role", Err: err}
		}
		role = r
	}

	sess := credential.NewSession(vr.AccessToken, role, vr.ExpiresAt)
	sess.UserID = vr.UserID
	sess = sess.Enrich()
	if sess.Role == "" {
		return credential.Session{}, &Error{Kind: KindUnavailable, Op: opLoginVerify.name, Message: "response missing role"}
	}
	return sess, nil
}
