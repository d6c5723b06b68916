package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/vutto/internal/common"
	"github.com/dmitrijs2005/vutto/internal/server/users"
)

const maxBodyBytes = 1 << 20

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func viewOf(u *users.User) *userView {
	return &userView{ID: u.ID, Email: u.Email, Role: u.Role, FirstName: u.FirstName, LastName: u.LastName}
}

type authResponse struct {
	Token       string    `json:"token,omitempty"`
	User        *userView `json:"user,omitempty"`
	Message     string    `json:"message,omitempty"`
	Email       string    `json:"email,omitempty"`
	RequiresOTP bool      `json:"requires_otp,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// statusOf maps service errors onto a status and a user-facing message.
func statusOf(err error) (int, string) {
	var ve *users.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, common.ErrorInvalidCode):
		return http.StatusBadRequest, "Invalid or expired OTP"
	case errors.Is(err, common.ErrorInvalidLoginPassword):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, common.ErrorNotVerified):
		return http.StatusForbidden, "Please verify your email before logging in"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Not authenticated"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug(r.Context(), "request refused", "path", r.URL.Path, "error", err)
	}
	writeMessage(w, status, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
