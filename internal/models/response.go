package models

// APIResponse is the envelope every /api response is wrapped in.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// NewValidationErrorResponse reports per-field problems alongside a summary message.
func NewValidationErrorResponse(message string, errors map[string]string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
		Errors:  errors,
	}
}

// PasswordResetResponse is returned once the reset email has been handed to the mailer.
type PasswordResetResponse struct {
	Email string `json:"email"`
	Sent  bool   `json:"sent"`
}

// DeleteAccountResponse confirms that the identity record is gone.
type DeleteAccountResponse struct {
	UserID  string `json:"user_id"`
	Deleted bool   `json:"deleted"`
}

// AuthResponse is returned by JSON logins alongside the session cookie.
type AuthResponse struct {
	Token string      `json:"token,omitempty"`
	User  SessionUser `json:"user"`
}
