package api

import (
	"net/http"

	"github.com/dmitrijs2005/vutto/internal/server/users"
)

const pendingMessage = "OTP sent to your email. Please verify to complete registration."

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	OTP       string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

// register handles sign-up, code resend (same call again) and verification
// (same call with otp set).
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.users.Register(r.Context(), users.SignUp{
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Code:      req.OTP,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Pending {
		writeJSON(w, http.StatusOK, authResponse{Message: pendingMessage, Email: res.Email, RequiresOTP: true})
		return
	}

	status := http.StatusCreated
	if req.OTP != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, authResponse{Token: res.Token, User: viewOf(res.User)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	issued, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: issued.Token, User: viewOf(issued.User)})
}

// profile returns the caller's record, plus a fresh token when the
// presented one is close to expiry.
func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	user, claims := principal(r)

	token, err := s.users.Refresh(r.Context(), user, claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: viewOf(user)})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	_, claims := principal(r)

	if err := s.users.Logout(r.Context(), claims); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
