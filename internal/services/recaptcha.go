package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrChallengeFailed is returned when Google rejects a reCAPTCHA token.
var ErrChallengeFailed = errors.New("recaptcha challenge failed")

// RecaptchaVerifier guards password logins with a reCAPTCHA v2 checkbox.
type RecaptchaVerifier struct {
	Secret     string
	Key        string
	HTTPClient *http.Client
	Endpoint   string
}

type recaptchaVerifyResponse struct {
	Success    bool      `json:"success"`
	ChallengeT time.Time `json:"challenge_ts"`
	Hostname   string    `json:"hostname"`
	ErrorCodes []string  `json:"error-codes"`
}

// NewRecaptchaVerifier returns nil when secret is empty, which disables the check.
func NewRecaptchaVerifier(secret, siteKey string) *RecaptchaVerifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &RecaptchaVerifier{
		Secret:   secret,
		Key:      siteKey,
		Endpoint: "https://www.google.com/recaptcha/api/siteverify",
		HTTPClient: &http.Client{
			Timeout: 8 * time.Second,
		},
	}
}

// SiteKey is rendered into the login form.
func (v *RecaptchaVerifier) SiteKey() string {
	if v == nil {
		return ""
	}
	return v.Key
}

// Verify checks a checkbox token. A nil verifier accepts everything.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v == nil {
		return nil
	}
	tok := strings.TrimSpace(token)
	if tok == "" {
		return fmt.Errorf("%w: missing_token", ErrChallengeFailed)
	}

	form := url.Values{}
	form.Set("secret", v.Secret)
	form.Set("response", tok)
	if ip := strings.TrimSpace(remoteIP); ip != "" {
		form.Set("remoteip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recaptcha verify http %d", resp.StatusCode)
	}

	var out recaptchaVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if out.Success {
		return nil
	}
	reason := "verification_failed"
	if len(out.ErrorCodes) > 0 {
		reason = strings.Join(out.ErrorCodes, ",")
	}
	return fmt.Errorf("%w: %s", ErrChallengeFailed, reason)
}
