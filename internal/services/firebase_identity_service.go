package services

import (
	"context"
	"fmt"
	"log"
	"time"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/medcontrol/backend/internal/models"
)

// FirebaseIdentityService is the production identity backend, backed by the
// Firebase Auth Admin SDK.
type FirebaseIdentityService struct {
	auth        *fbauth.Client
	mailer      ResetMailer
	avatars     *AvatarStorage
	continueURL string
}

// NewFirebaseIdentityService wires the auth client. avatars may be nil; continueURL
// is where the reset page sends users back to, and may be empty.
func NewFirebaseIdentityService(client *fbauth.Client, mailer ResetMailer, avatars *AvatarStorage, continueURL string) *FirebaseIdentityService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &FirebaseIdentityService{
		auth:        client,
		mailer:      mailer,
		avatars:     avatars,
		continueURL: continueURL,
	}
}

// LookupUser fetches the user record and maps it to a session user.
func (s *FirebaseIdentityService) LookupUser(ctx context.Context, uid string) (*models.SessionUser, error) {
	u, err := s.auth.GetUser(ctx, uid)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &models.SessionUser{
		UID:         u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
	}, nil
}

// VerifySessionCookie checks a session cookie, including revocation, and returns its uid.
func (s *FirebaseIdentityService) VerifySessionCookie(ctx context.Context, cookie string) (string, error) {
	tok, err := s.auth.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		return "", classifyVerifyError(err)
	}
	return tok.UID, nil
}

// VerifyIDToken checks a client ID token and returns its uid.
func (s *FirebaseIdentityService) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	tok, err := s.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", classifyVerifyError(err)
	}
	return tok.UID, nil
}

// classifyVerifyError maps credentials Firebase rejected to ErrInvalidSession.
// Other failures, such as fetching the signing keys, are returned unchanged.
func classifyVerifyError(err error) error {
	switch {
	case fbauth.IsSessionCookieInvalid(err), fbauth.IsSessionCookieExpired(err),
		fbauth.IsSessionCookieRevoked(err), fbauth.IsIDTokenInvalid(err),
		fbauth.IsIDTokenExpired(err), fbauth.IsIDTokenRevoked(err),
		fbauth.IsUserDisabled(err), fbauth.IsUserNotFound(err):
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return err
}

// SessionCookie exchanges a fresh ID token for a session cookie.
func (s *FirebaseIdentityService) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	return s.auth.SessionCookie(ctx, idToken, expiresIn)
}

// RevokeSessions invalidates every refresh token and session cookie of uid.
func (s *FirebaseIdentityService) RevokeSessions(ctx context.Context, uid string) error {
	return s.auth.RevokeRefreshTokens(ctx, uid)
}

func (s *FirebaseIdentityService) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	params := (&fbauth.UserToUpdate{}).DisplayName(displayName)
	if _, err := s.auth.UpdateUser(ctx, uid, params); err != nil {
		return fmt.Errorf("firebase update user %s: %w", uid, err)
	}
	return nil
}

// DeleteUser deletes the auth user, then clears the user's avatars best-effort.
func (s *FirebaseIdentityService) DeleteUser(ctx context.Context, uid string) error {
	if err := s.auth.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("firebase delete user %s: %w", uid, err)
	}
	if n, err := s.avatars.DeleteUserAvatars(ctx, uid); err != nil {
		log.Printf("[Identity] avatar cleanup user=%s deleted=%d error=%v", uid, n, err)
	}
	return nil
}

// SendPasswordResetEmail generates a reset link and hands it to the mailer.
func (s *FirebaseIdentityService) SendPasswordResetEmail(ctx context.Context, email string) error {
	var (
		link string
		err  error
	)
	if s.continueURL != "" {
		link, err = s.auth.PasswordResetLinkWithSettings(ctx, email, &fbauth.ActionCodeSettings{URL: s.continueURL})
	} else {
		link, err = s.auth.PasswordResetLink(ctx, email)
	}
	if err != nil {
		return fmt.Errorf("firebase reset link: %w", err)
	}
	return s.mailer.SendPasswordReset(ctx, email, link)
}
