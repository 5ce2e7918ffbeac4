package fake

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	access "github.com/beraterhub/access-go"
	"github.com/beraterhub/access-go/credential"
)

func (b *Backend) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), b.record(), b.outage())

	public := r.Group("", b.auth(credential.Anonymous))
	public.POST("/auth/signup", b.signup)
	public.POST("/auth/login", b.login)
	public.POST("/auth/verify", b.verifyCode)
	public.GET("/berater", b.listBerater)
	public.GET("/berater/:id", b.getBerater)
	public.POST("/chat/messages", b.saveChatMessage)
	public.GET("/chat/:sessionId", b.chatHistory)
	public.GET("/offers/:category", b.getOffers)
	public.POST("/init", b.initialize)

	private := r.Group("", b.auth(credential.UserToken))
	private.POST("/berater", b.createBerater)
	private.POST("/reviews", b.createReview)
	private.POST("/qr-codes", b.createQRCode)
	private.GET("/analytics/overview", b.analytics)

	return r
}

// bind decodes and validates the JSON body into v. On failure the response
// is already written.
func (b *Backend) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return false
	}
	if err := b.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s failed %s", verrs[0].Field(), verrs[0].Tag())})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (b *Backend) signup(c *gin.Context) {
	var req access.SignupRequest
	if !b.bind(c, &req) {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Email]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	acc := &account{
		user: access.User{
			ID:        uuid.NewString(),
			Email:     req.Email,
			Name:      req.Name,
			Role:      req.Role,
			CreatedAt: b.now(),
		},
		hash: hash,
		code: DefaultCode,
	}
	b.accounts[req.Email] = acc
	c.JSON(http.StatusCreated, acc.user)
}

func (b *Backend) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[req.Username]
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token := uuid.NewString()
	expires := b.now().Add(b.pendingTTL)
	b.mu.Lock()
	b.pending[token] = &pendingLogin{username: req.Username, expiresAt: expires}
	b.mu.Unlock()

	c.JSON(http.StatusOK, access.Challenge{Token: token, ExpiresAt: expires})
}

func (b *Backend) verifyCode(c *gin.Context) {
	var req struct {
		PendingToken string `json:"pendingToken"`
		Code         string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[req.PendingToken]
	if !ok || b.now().After(p.expiresAt) {
		delete(b.pending, req.PendingToken)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired pending token"})
		return
	}
	acc := b.accounts[p.username]
	if acc == nil || req.Code != acc.code {
		p.failures++
		if p.failures >= b.maxVerify {
			delete(b.pending, req.PendingToken)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid verification code"})
		return
	}
	delete(b.pending, req.PendingToken)

	token, err := b.issueLocked(acc.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"role":        acc.user.Role,
		"userId":      acc.user.ID,
		"expiresAt":   b.now().Add(b.tokenTTL),
	})
}

func (b *Backend) listBerater(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.beraterListLocked())
}

func (b *Backend) getBerater(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	br, ok := b.berater[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "berater not found"})
		return
	}
	c.JSON(http.StatusOK, br)
}

func (b *Backend) createBerater(c *gin.Context) {
	var in access.BeraterInput
	if !b.bind(c, &in) {
		return
	}
	br := access.Berater{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		Company:         in.Company,
		City:            in.City,
		ZipCode:         in.ZipCode,
		Specializations: in.Specializations,
		Bio:             in.Bio,
		ImageURL:        in.ImageURL,
		CreatedAt:       b.now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.berater[br.ID] = &br
	c.JSON(http.StatusCreated, br)
}

func (b *Backend) createReview(c *gin.Context) {
	var in access.ReviewInput
	if !b.bind(c, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	br, ok := b.berater[in.BeraterID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "berater not found"})
		return
	}
	rv := access.Review{
		ID:         uuid.NewString(),
		BeraterID:  in.BeraterID,
		Rating:     in.Rating,
		Text:       in.Text,
		AuthorName: in.AuthorName,
		CreatedAt:  b.now(),
	}
	b.reviews = append(b.reviews, rv)

	total := br.Rating*float64(br.ReviewCount) + float64(in.Rating)
	br.ReviewCount++
	br.Rating = total / float64(br.ReviewCount)
	c.JSON(http.StatusCreated, rv)
}

func (b *Backend) saveChatMessage(c *gin.Context) {
	var in access.ChatMessageInput
	if !b.bind(c, &in) {
		return
	}
	msg := access.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: in.SessionID,
		Message:   in.Message,
		Sender:    in.Sender,
		CreatedAt: b.now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chats[in.SessionID] = append(b.chats[in.SessionID], msg)
	c.JSON(http.StatusOK, access.Ack{Success: true, ID: msg.ID})
}

func (b *Backend) chatHistory(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	history := append([]access.ChatMessage{}, b.chats[c.Param("sessionId")]...)
	c.JSON(http.StatusOK, history)
}

func (b *Backend) createQRCode(c *gin.Context) {
	var in access.QRCodeInput
	if !b.bind(c, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.berater[in.BeraterID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "berater not found"})
		return
	}
	qr := access.QRCode{
		ID:        uuid.NewString(),
		BeraterID: in.BeraterID,
		Type:      in.Type,
		URL:       fmt.Sprintf("%s/berater/%s?src=qr&type=%s", b.publicURL, in.BeraterID, in.Type),
		CreatedAt: b.now(),
	}
	b.qrCodes = append(b.qrCodes, qr)
	c.JSON(http.StatusCreated, qr)
}

func (b *Backend) analytics(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a := access.Analytics{
		TotalBerater: len(b.berater),
		TotalReviews: len(b.reviews),
		ChatSessions: len(b.chats),
		QRCodes:      len(b.qrCodes),
		GeneratedAt:  b.now(),
	}
	var sum int
	for _, rv := range b.reviews {
		sum += rv.Rating
	}
	if len(b.reviews) > 0 {
		a.AverageRating = float64(sum) / float64(len(b.reviews))
	}
	for _, msgs := range b.chats {
		a.ChatMessages += len(msgs)
	}
	for _, qr := range b.qrCodes {
		a.QRScans += qr.ScanCount
	}
	c.JSON(http.StatusOK, a)
}

func (b *Backend) getOffers(c *gin.Context) {
	category := strings.ToLower(c.Param("category"))

	b.mu.Lock()
	defer b.mu.Unlock()
	offers, ok := b.offers[category]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown category %q", category)})
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (b *Backend) initialize(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		c.JSON(http.StatusOK, access.InitResult{Initialized: true, Message: "already initialized"})
		return
	}
	seeded := 0
	for _, br := range sampleBerater(b.now()) {
		if _, exists := b.berater[br.ID]; exists {
			continue
		}
		b.berater[br.ID] = &br
		seeded++
	}
	b.initialized = true
	c.JSON(http.StatusOK, access.InitResult{Initialized: true, Message: fmt.Sprintf("seeded %d berater", seeded)})
}
