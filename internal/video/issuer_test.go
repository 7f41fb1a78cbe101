package video

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mindwell/internal/models"
	"mindwell/internal/schedule"
)

const testCertificate = "test-app-certificate"

func ongoingSession() *models.Session {
	return &models.Session{
		ID:          7,
		ClientID:    1,
		TherapistID: 2,
		Status:      models.StatusOngoing,
		ChannelName: "session-7-7b68a40c",
	}
}

func TestIssueCredentialSignsPublisherToken(t *testing.T) {
	issuer := NewIssuer("app-123", testCertificate, time.Hour)
	sess := ongoingSession()

	before := time.Now()
	cred, err := issuer.IssueCredential(sess, sess.ClientID)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if cred.ChannelName != sess.ChannelName {
		t.Fatalf("expected channel %q, got %q", sess.ChannelName, cred.ChannelName)
	}
	if cred.UID != sess.ClientID {
		t.Fatalf("expected uid %d, got %d", sess.ClientID, cred.UID)
	}
	if cred.Role != RolePublisher {
		t.Fatalf("expected publisher role, got %q", cred.Role)
	}
	if !cred.ExpiresAt.After(before) {
		t.Fatalf("expiry %v must be strictly in the future", cred.ExpiresAt)
	}

	parsed, err := jwt.Parse(cred.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testCertificate), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		t.Fatalf("expected valid claims, got %#v", parsed.Claims)
	}
	if claims["channel"] != sess.ChannelName {
		t.Fatalf("channel claim mismatch: %v", claims["channel"])
	}
	if claims["role"] != RolePublisher {
		t.Fatalf("role claim mismatch: %v", claims["role"])
	}
	if claims["iss"] != "app-123" {
		t.Fatalf("issuer claim mismatch: %v", claims["iss"])
	}
}

func TestIssueCredentialRenewalKeepsChannel(t *testing.T) {
	issuer := NewIssuer("app-123", testCertificate, time.Hour)
	sess := ongoingSession()

	first, err := issuer.IssueCredential(sess, sess.TherapistID)
	if err != nil {
		t.Fatalf("first credential: %v", err)
	}
	second, err := issuer.IssueCredential(sess, sess.TherapistID)
	if err != nil {
		t.Fatalf("second credential: %v", err)
	}
	if first.ChannelName != second.ChannelName {
		t.Fatalf("renewal changed channel: %q vs %q", first.ChannelName, second.ChannelName)
	}
	if first.UID != second.UID {
		t.Fatalf("renewal changed uid: %d vs %d", first.UID, second.UID)
	}
}

func TestIssueCredentialRejectsNonParticipant(t *testing.T) {
	issuer := NewIssuer("app-123", testCertificate, time.Hour)
	sess := ongoingSession()

	if _, err := issuer.IssueCredential(sess, 99); !errors.Is(err, schedule.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestIssueCredentialRequiresOngoingSession(t *testing.T) {
	issuer := NewIssuer("app-123", testCertificate, time.Hour)

	for _, status := range []models.SessionStatus{models.StatusScheduled, models.StatusCompleted, models.StatusCancelled} {
		sess := ongoingSession()
		sess.Status = status
		if _, err := issuer.IssueCredential(sess, sess.ClientID); !errors.Is(err, schedule.ErrInvalidStateTransition) {
			t.Fatalf("status %s: expected ErrInvalidStateTransition, got %v", status, err)
		}
	}
}

func TestNewIssuerDefaultsTTL(t *testing.T) {
	issuer := NewIssuer("app-123", testCertificate, 0)
	cred, err := issuer.IssueCredential(ongoingSession(), 1)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if until := time.Until(cred.ExpiresAt); until < 55*time.Minute || until > 65*time.Minute {
		t.Fatalf("expected roughly one hour ttl, got %v", until)
	}
}
