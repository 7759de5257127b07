// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/memberd/memberd/internal/auth"
	"github.com/memberd/memberd/internal/observability"
)

const (
	refreshCookieName = "refreshToken"
	resetTokenHeader  = "X-Reset-Token"
)

type signupResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	MemberID    string `json:"memberId"`
	MemberName  string `json:"memberName"`
	MemberEmail string `json:"memberEmail"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type verifyCodeResponse struct {
	ResetToken string `json:"resetToken"`
}

func decodeJSON(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return oops.Code(auth.CodeInvalidInput).
			With("operation", "decode request body").
			Wrap(err)
	}
	return nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RecordSignup(observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.metrics.RecordSignup(observability.OutcomeFailure)
		s.invalidInput(w, err)
		return
	}

	m, err := s.sessions.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.metrics.RecordSignup(observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordSignup(observability.OutcomeSuccess)
	w.Header().Set("Location", "/members/"+m.ID.String())
	writeJSON(w, http.StatusCreated, signupResponse{
		ID:    m.ID.String(),
		Email: m.Email,
		Name:  m.Name,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RecordLogin(observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.metrics.RecordLogin(observability.OutcomeFailure)
		s.invalidInput(w, err)
		return
	}

	res, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.RecordLogin(observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordLogin(observability.OutcomeSuccess)
	w.Header().Set("Authorization", "Bearer "+res.AccessToken)
	s.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, loginResponse{
		MemberID:    res.Member.ID.String(),
		MemberName:  res.Member.Name,
		MemberEmail: res.Member.Email,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		s.metrics.RecordLogout(observability.OutcomeFailure)
		s.invalidInput(w, oops.Errorf("refresh token cookie is missing"))
		return
	}

	if err := s.sessions.Logout(r.Context(), cookie.Value); err != nil {
		s.metrics.RecordLogout(observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordLogout(observability.OutcomeSuccess)
	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		s.metrics.RecordRefresh(observability.OutcomeFailure)
		s.invalidInput(w, oops.Errorf("refresh token cookie is missing"))
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), cookie.Value)
	if err != nil {
		s.metrics.RecordRefresh(observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordRefresh(observability.OutcomeSuccess)
	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   pair.ExpiresIn,
	})
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RecordResetStage("request", observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.metrics.RecordResetStage("request", observability.OutcomeFailure)
		s.invalidInput(w, err)
		return
	}

	if err := s.resets.RequestReset(r.Context(), req.Email, req.Name); err != nil {
		s.metrics.RecordResetStage("request", observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordResetStage("request", observability.OutcomeSuccess)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RecordResetStage("verify", observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.metrics.RecordResetStage("verify", observability.OutcomeFailure)
		s.invalidInput(w, err)
		return
	}

	grant, err := s.resets.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		s.metrics.RecordResetStage("verify", observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordResetStage("verify", observability.OutcomeSuccess)
	writeJSON(w, http.StatusOK, verifyCodeResponse{ResetToken: grant})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	grant := r.Header.Get(resetTokenHeader)
	if grant == "" {
		s.metrics.RecordResetStage("change", observability.OutcomeFailure)
		s.writeError(w, oops.Code(auth.CodeInvalidResetToken).Errorf("reset token header is missing"))
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RecordResetStage("change", observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.metrics.RecordResetStage("change", observability.OutcomeFailure)
		s.invalidInput(w, err)
		return
	}

	if err := s.resets.ChangePassword(r.Context(), grant, req.NewPassword); err != nil {
		s.metrics.RecordResetStage("change", observability.OutcomeFailure)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordResetStage("change", observability.OutcomeSuccess)
	w.WriteHeader(http.StatusNoContent)
}

// setRefreshCookie attaches the refresh token as an HttpOnly cookie scoped to
// the whole site. Max-Age tracks the refresh token lifetime.
func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.RefreshCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
