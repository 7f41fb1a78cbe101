package video

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mindwell/internal/models"
	"mindwell/internal/schedule"
)

// ErrCredentialIssuance wraps failures from the token signing primitive.
var ErrCredentialIssuance = errors.New("credential issuance failed")

// RolePublisher is the only role credentials are minted with: both
// participants publish audio and video in their room.
const RolePublisher = "publisher"

// DefaultTokenTTL bounds a credential's lifetime when no TTL is configured.
const DefaultTokenTTL = time.Hour

// Credential grants one identity time-boxed publisher access to one channel.
type Credential struct {
	Token       string    `json:"token"`
	ChannelName string    `json:"channel_name"`
	UID         int64     `json:"uid"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issuer mints room credentials for the media-transport provider. It is
// stateless: every call validates the session's current status and signs a
// fresh token.
type Issuer struct {
	appID          string
	appCertificate string
	ttl            time.Duration
}

// NewIssuer builds an issuer from the provider's app id and signing secret.
func NewIssuer(appID, appCertificate string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{appID: appID, appCertificate: appCertificate, ttl: ttl}
}

// AppID returns the provider app id clients need before joining a channel.
func (i *Issuer) AppID() string {
	return i.appID
}

// IssueCredential signs a publisher token for the session's channel. The
// session must be ongoing and the caller one of its two participants. The
// caller's user id doubles as the in-channel identity, so renewals keep the
// same channel and uid with a fresh expiry.
func (i *Issuer) IssueCredential(sess *models.Session, callerID int64) (*Credential, error) {
	if !sess.IsParticipant(callerID) {
		return nil, schedule.ErrUnauthorized
	}
	if sess.Status != models.StatusOngoing || sess.ChannelName == "" {
		return nil, schedule.ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	expires := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"iss":     i.appID,
		"channel": sess.ChannelName,
		"uid":     callerID,
		"role":    RolePublisher,
		"iat":     jwt.NewNumericDate(now),
		"exp":     jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.appCertificate))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialIssuance, err)
	}
	return &Credential{
		Token:       signed,
		ChannelName: sess.ChannelName,
		UID:         callerID,
		Role:        RolePublisher,
		ExpiresAt:   expires,
	}, nil
}
