package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medcontrol/backend/internal/models"
)

type resetToken struct {
	userID    string
	expiresAt time.Time
}

// MemoryIdentityService is an in-process identity backend for local development
// and tests. Users live only as long as the process.
type MemoryIdentityService struct {
	mu      sync.RWMutex
	users   map[string]*models.LocalUser
	byEmail map[string]string // email -> userID
	resets  map[string]resetToken

	mailer       ResetMailer
	resetBaseURL string
	resetTTL     time.Duration
	now          func() time.Time
}

func NewMemoryIdentityService(mailer ResetMailer, publicBaseURL string) *MemoryIdentityService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &MemoryIdentityService{
		users:        make(map[string]*models.LocalUser),
		byEmail:      make(map[string]string),
		resets:       make(map[string]resetToken),
		mailer:       mailer,
		resetBaseURL: strings.TrimRight(publicBaseURL, "/"),
		resetTTL:     time.Hour,
		now:          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryIdentityService) Register(req *models.RegisterRequest) (*models.LocalUser, error) {
	if errs := req.Validate(); len(errs) > 0 {
		if req.Password != "" && len(req.Password) < MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, joinFieldErrors(errs))
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(req.Email)
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailExists
	}
	user := &models.LocalUser{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user
	s.byEmail[email] = user.ID

	c := *user
	return &c, nil
}

func (s *MemoryIdentityService) Login(req *models.LoginRequest) (*models.LocalUser, error) {
	s.mu.RLock()
	userID, exists := s.byEmail[normalizeEmail(req.Email)]
	var hash string
	if exists {
		hash = s.users[userID].PasswordHash
	}
	s.mu.RUnlock()

	if !exists {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return s.GetByID(userID)
}

func (s *MemoryIdentityService) GetByID(id string) (*models.LocalUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	c := *user
	return &c, nil
}

// LookupUser returns the session view of a user.
func (s *MemoryIdentityService) LookupUser(_ context.Context, uid string) (*models.SessionUser, error) {
	u, err := s.GetByID(uid)
	if err != nil {
		return nil, err
	}
	return u.SessionUser(), nil
}

func (s *MemoryIdentityService) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, exists := s.users[uid]
	if !exists {
		return ErrUserNotFound
	}
	user.DisplayName = displayName
	return nil
}

func (s *MemoryIdentityService) DeleteUser(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, exists := s.users[uid]
	if !exists {
		return ErrUserNotFound
	}
	delete(s.users, uid)
	delete(s.byEmail, user.Email)
	for token, rt := range s.resets {
		if rt.userID == uid {
			delete(s.resets, token)
		}
	}
	return nil
}

// SendPasswordResetEmail issues a one-hour reset token and mails its link.
func (s *MemoryIdentityService) SendPasswordResetEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	userID, exists := s.byEmail[normalizeEmail(email)]
	if !exists {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	token := uuid.NewString()
	s.resets[token] = resetToken{userID: userID, expiresAt: s.now().Add(s.resetTTL)}
	s.mu.Unlock()

	link := s.resetBaseURL + "/reset?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, normalizeEmail(email), link); err != nil {
		s.mu.Lock()
		delete(s.resets, token)
		s.mu.Unlock()
		return err
	}
	return nil
}

// ValidResetToken reports whether token can still be redeemed.
func (s *MemoryIdentityService) ValidResetToken(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.resets[token]
	return ok && s.now().Before(rt.expiresAt)
}

// ResetPassword redeems a reset token. Tokens are single use.
func (s *MemoryIdentityService) ResetPassword(token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.resets[token]
	if !ok || !s.now().Before(rt.expiresAt) {
		delete(s.resets, token)
		return ErrInvalidResetToken
	}
	delete(s.resets, token)
	user, exists := s.users[rt.userID]
	if !exists {
		return ErrUserNotFound
	}
	user.PasswordHash = string(hash)
	return nil
}

func joinFieldErrors(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+errs[field])
	}
	return strings.Join(parts, "; ")
}
