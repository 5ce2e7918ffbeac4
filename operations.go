package access

import "context"

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	u, err := Invoke(ctx, c, OpSignup, req)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListBerater returns all advisors.
func (c *Client) ListBerater(ctx context.Context) ([]Berater, error) {
	return Invoke(ctx, c, OpListBerater, NoBody{})
}

// GetBerater returns one advisor.
func (c *Client) GetBerater(ctx context.Context, id string) (*Berater, error) {
	b, err := Invoke(ctx, c, OpGetBerater, NoBody{}, id)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBerater creates an advisor record. Requires a session.
func (c *Client) CreateBerater(ctx context.Context, in BeraterInput) (*Berater, error) {
	b, err := Invoke(ctx, c, OpCreateBerater, in)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateReview posts a review. Requires a session. Not idempotent: callers
// must not blindly retry an Unavailable result.
func (c *Client) CreateReview(ctx context.Context, in ReviewInput) (*Review, error) {
	r, err := Invoke(ctx, c, OpCreateReview, in)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveChatMessage stores one chat message.
func (c *Client) SaveChatMessage(ctx context.Context, in ChatMessageInput) (*Ack, error) {
	a, err := Invoke(ctx, c, OpSaveChatMessage, in)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetChatHistory returns the messages of a chat session, oldest first.
func (c *Client) GetChatHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	return Invoke(ctx, c, OpGetChatHistory, NoBody{}, sessionID)
}

// CreateQRCode creates a QR code descriptor for an advisor. Requires a session.
func (c *Client) CreateQRCode(ctx context.Context, in QRCodeInput) (*QRCode, error) {
	q, err := Invoke(ctx, c, OpCreateQRCode, in)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetAnalytics returns the admin overview. Requires a session.
func (c *Client) GetAnalytics(ctx context.Context) (*Analytics, error) {
	a, err := Invoke(ctx, c, OpGetAnalytics, NoBody{})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetOffers returns the offers of a category such as "internet-tv".
func (c *Client) GetOffers(ctx context.Context, category string) ([]Offer, error) {
	return Invoke(ctx, c, OpGetOffers, NoBody{}, category)
}

// InitializeSystem triggers backend initialization.
func (c *Client) InitializeSystem(ctx context.Context) (*InitResult, error) {
	r, err := Invoke(ctx, c, OpInitializeSystem, NoBody{})
	if err != nil {
		return nil, err
	}
	return &r, nil
}
