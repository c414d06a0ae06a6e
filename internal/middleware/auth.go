package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/services"
)

type contextKey string

const sessionUserKey contextKey = "sessionUser"

const (
	// LocalSessionCookie carries the HS256 token issued by the memory identity backend.
	LocalSessionCookie = "session"
	// FirebaseSessionCookie carries a Firebase session cookie. Hosting only forwards
	// a cookie with this name.
	FirebaseSessionCookie = "__session"
)

// SessionResolver maps a request to its signed-in user. It returns (nil, nil)
// when the request carries no session at all. Rejected credentials are
// reported as services.ErrInvalidSession or services.ErrUserNotFound; any other
// error means the session could not be checked.
type SessionResolver interface {
	ResolveSession(r *http.Request) (*models.SessionUser, error)
}

// UserLookup loads a user by uid from the identity backend.
type UserLookup interface {
	LookupUser(ctx context.Context, uid string) (*models.SessionUser, error)
}

// Session resolves the session user into the request context. Requests without
// a valid session pass through with no user; routes decide what that means.
// When the identity backend cannot be reached the request fails with 503 and
// the session cookies are left alone.
func Session(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			user, err := resolver.ResolveSession(r)
			if err != nil {
				if !isRejectedSession(err) {
					log.Printf("[Session] path=%s unavailable error=%v", r.URL.Path, err)
					writeUnavailable(w, r)
					return
				}
				log.Printf("[Session] path=%s rejected error=%v", r.URL.Path, err)
				user = nil
			}
			next.ServeHTTP(w, r.WithContext(WithSessionUser(r.Context(), user)))
		})
	}
}

func isRejectedSession(err error) bool {
	return errors.Is(err, services.ErrInvalidSession) || errors.Is(err, services.ErrUserNotFound)
}

func writeUnavailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "5")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusServiceUnavailable, models.NewErrorResponse("Session check unavailable"))
		return
	}
	http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
}

// RequireUser rejects requests without a session user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSessionUser(r.Context()) == nil {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithSessionUser(ctx context.Context, user *models.SessionUser) context.Context {
	return context.WithValue(ctx, sessionUserKey, user)
}

// GetSessionUser returns the signed-in user, or nil.
func GetSessionUser(ctx context.Context) *models.SessionUser {
	user, _ := ctx.Value(sessionUserKey).(*models.SessionUser)
	return user
}

// GetUserID extracts the signed-in user's id from context.
func GetUserID(ctx context.Context) string {
	if user := GetSessionUser(ctx); user != nil {
		return user.UID
	}
	return ""
}

// FirebaseVerifier verifies Firebase credentials and returns the uid they belong to.
type FirebaseVerifier interface {
	VerifySessionCookie(ctx context.Context, cookie string) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// FirebaseSessionResolver accepts a Firebase session cookie or an
// "Authorization: Bearer <ID token>" header.
type FirebaseSessionResolver struct {
	Verifier FirebaseVerifier
	Users    UserLookup
	Timeout  time.Duration
}

func (f *FirebaseSessionResolver) ResolveSession(r *http.Request) (*models.SessionUser, error) {
	ctx := r.Context()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	var (
		uid string
		err error
	)
	if c, cerr := r.Cookie(FirebaseSessionCookie); cerr == nil && c.Value != "" {
		uid, err = f.Verifier.VerifySessionCookie(ctx, c.Value)
	} else if token, ok := bearerToken(r); ok {
		uid, err = f.Verifier.VerifyIDToken(ctx, token)
	} else {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f.Users.LookupUser(ctx, uid)
}

// LocalSessionResolver accepts the HS256 token issued by IssueLocalSession, from
// the session cookie or a bearer header.
type LocalSessionResolver struct {
	Secret string
	Users  UserLookup
}

func (l *LocalSessionResolver) ResolveSession(r *http.Request) (*models.SessionUser, error) {
	token := ""
	if c, err := r.Cookie(LocalSessionCookie); err == nil {
		token = c.Value
	} else if t, ok := bearerToken(r); ok {
		token = t
	}
	if token == "" {
		return nil, nil
	}
	uid, err := ParseSessionToken(l.Secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrInvalidSession, err)
	}
	return l.Users.LookupUser(r.Context(), uid)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// NewSessionToken signs an HS256 token for uid.
func NewSessionToken(secret, uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": uid,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates an HS256 token and returns its uid.
func ParseSessionToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("invalid user ID in token")
	}
	return userID, nil
}

// IssueLocalSession signs a token for uid and sets it as the session cookie.
func IssueLocalSession(w http.ResponseWriter, secret, uid string, ttl time.Duration) error {
	token, err := NewSessionToken(secret, uid, ttl)
	if err != nil {
		return err
	}
	SetLocalSession(w, token, ttl)
	return nil
}

// SetLocalSession stores an already signed token as the session cookie.
func SetLocalSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     LocalSessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetFirebaseSession stores a Firebase session cookie.
func SetFirebaseSession(w http.ResponseWriter, r *http.Request, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     FirebaseSessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessions expires both session cookies.
func ClearSessions(w http.ResponseWriter) {
	for _, name := range []string{LocalSessionCookie, FirebaseSessionCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
