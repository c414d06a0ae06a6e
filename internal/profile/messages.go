package profile

import (
	"regexp"
	"strings"
)

// Message is an i18n catalog key shown to the user.
type Message string

const (
	MsgNotAuthenticated Message = "profile.error.not_authenticated"
	MsgBlankName        Message = "profile.error.blank_name"
	MsgInvalidEmail     Message = "profile.error.invalid_email"
	MsgSaveFailed       Message = "profile.error.save_failed"
	MsgDeleteFailed     Message = "profile.error.delete_failed"
	MsgResetFailed      Message = "profile.error.reset_failed"
)

// Kind classifies a screen error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthenticated
	KindBackend
)

// Error is what a screen operation returns when it fails. The same message is
// kept on the screen until the next attempt.
type Error struct {
	Kind  Kind
	Msg   Message
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Msg) + ": " + e.Err.Error()
	}
	return string(e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like local@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate checks the editable fields. It returns nil when both are acceptable.
func Validate(displayName, email string) *Error {
	if strings.TrimSpace(displayName) == "" {
		return &Error{Kind: KindValidation, Msg: MsgBlankName, Field: "display_name"}
	}
	if !ValidEmail(email) {
		return &Error{Kind: KindValidation, Msg: MsgInvalidEmail, Field: "email"}
	}
	return nil
}
