package access

import "time"

// NoBody is the request type of operations that send no payload.
type NoBody struct{}

// SignupRequest registers a new account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin berater customer"`
}

// User is the server's user record.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeraterInput carries the advisor fields for create-berater.
type BeraterInput struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone,omitempty"`
	Company         string   `json:"company,omitempty"`
	City            string   `json:"city,omitempty"`
	ZipCode         string   `json:"zipCode,omitempty" validate:"omitempty,numeric,len=5"`
	Specializations []string `json:"specializations,omitempty" validate:"omitempty,dive,required"`
	Bio             string   `json:"bio,omitempty" validate:"max=4000"`
	ImageURL        string   `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// Berater is an advisor record.
type Berater struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Company         string    `json:"company,omitempty"`
	City            string    `json:"city,omitempty"`
	ZipCode         string    `json:"zipCode,omitempty"`
	Specializations []string  `json:"specializations,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	Rating          float64   `json:"rating"`
	ReviewCount     int       `json:"reviewCount"`
	Verified        bool      `json:"verified"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ReviewInput is the payload of create-review.
type ReviewInput struct {
	BeraterID  string `json:"beraterId" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Text       string `json:"text" validate:"required,max=2000"`
	AuthorName string `json:"authorName,omitempty"`
}

// Review is a created review record.
type Review struct {
	ID         string    `json:"id"`
	BeraterID  string    `json:"beraterId"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChatMessageInput is the payload of save-chat-message.
type ChatMessageInput struct {
	SessionID string `json:"sessionId" validate:"required"`
	Message   string `json:"message" validate:"required,max=4000"`
	Sender    string `json:"sender" validate:"required,oneof=user bot agent"`
}

// Ack acknowledges a stored chat message.
type Ack struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// ChatMessage is one entry of a chat history, oldest first.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// QRCodeInput is the payload of create-qr-code.
type QRCodeInput struct {
	BeraterID string `json:"beraterId" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=profile review contact"`
}

// QRCode describes a generated QR code. Rendering is left to the caller.
type QRCode struct {
	ID        string    `json:"id"`
	BeraterID string    `json:"beraterId"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	ScanCount int       `json:"scanCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Analytics is the admin overview summary.
type Analytics struct {
	TotalBerater  int       `json:"totalBerater"`
	TotalReviews  int       `json:"totalReviews"`
	AverageRating float64   `json:"averageRating"`
	ChatSessions  int       `json:"chatSessions"`
	ChatMessages  int       `json:"chatMessages"`
	QRCodes       int       `json:"qrCodes"`
	QRScans       int       `json:"qrScans"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// Offer is one entry of an offer comparison.
type Offer struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Provider       string   `json:"provider"`
	Name           string   `json:"name"`
	MonthlyPrice   float64  `json:"monthlyPrice"`
	SetupFee       float64  `json:"setupFee"`
	ContractMonths int      `json:"contractMonths"`
	Features       []string `json:"features,omitempty"`
	Rating         float64  `json:"rating"`
	URL            string   `json:"url,omitempty"`
}

// InitResult reports the outcome of initialize-system.
type InitResult struct {
	Initialized bool   `json:"initialized"`
	Message     string `json:"message,omitempty"`
}

// Challenge is the pending-second-factor proof returned by a successful
// primary login. It is only meaningful to VerifySecondFactor.
type Challenge struct {
	Token     string    `json:"pendingToken"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyRequest struct {
	PendingToken string `json:"pendingToken"`
	Code         string `json:"code"`
}

type verifyResponse struct {
	AccessToken string    `json:"accessToken"`
	Role        string    `json:"role"`
	UserID      string    `json:"userId,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}
