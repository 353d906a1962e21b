package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/theLastOfCats/storefront/internal/auth"
	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/logger"
	mailer "github.com/theLastOfCats/storefront/internal/mail"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/templates"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 64
)

type AuthHandler struct {
	DB        *db.DB
	Tokens    *auth.Issuer
	Mailer    mailer.MailSender
	Templates *templates.Manager
	BaseURL   string
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type LogoutRequest struct {
	DeviceID string `json:"deviceId"`
}

func validPassword(p string) bool {
	return len(p) >= minPasswordLen && len(p) <= maxPasswordLen
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", CodeInvalidInput, http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		JSONError(w, "Name is required", CodeInvalidInput, http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		JSONError(w, "Invalid email address", CodeInvalidInput, http.StatusBadRequest)
		return
	}
	if !validPassword(req.Password) {
		JSONError(w, "Password should be from 6 to 64 characters long", CodeInvalidInput, http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, r, err)
		return
	}

	user, err := h.DB.CreateUser(req.Name, req.Email, hash)
	if errors.Is(err, db.ErrEmailTaken) {
		JSONError(w, "Email is already registered", CodeEmailTaken, http.StatusConflict)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	h.sendMail(user, "Welcome to the storefront", "Your account is ready.", "mail/welcome.html", map[string]string{
		"Name":  user.Name,
		"Email": user.Email,
	})

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Registration successful"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", CodeInvalidInput, http.StatusBadRequest)
		return
	}

	user, err := h.DB.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, db.ErrNotFound) {
		JSONError(w, "Invalid email or password", CodeInvalidLogin, http.StatusUnauthorized)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if !match {
		JSONError(w, "Invalid email or password", CodeInvalidLogin, http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    model.User{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request, userID string) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", CodeInvalidInput, http.StatusBadRequest)
		return
	}
	if !validPassword(req.NewPassword) {
		JSONError(w, "Password should be from 6 to 64 characters long", CodeInvalidInput, http.StatusBadRequest)
		return
	}

	user, err := h.DB.GetUserByID(userID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	match, err := auth.VerifyPassword(req.OldPassword, user.PasswordHash)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if !match {
		JSONError(w, "Current password is incorrect", CodeInvalidPassword, http.StatusBadRequest)
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if err := h.DB.UpdatePassword(user.ID, newHash); err != nil {
		internalError(w, r, err)
		return
	}

	h.sendMail(user, "Your password was changed", "Your storefront password was changed.", "mail/password-changed.html", map[string]string{
		"Name":      user.Name,
		"ChangedAt": time.Now().UTC().Format(time.RFC1123),
		"BaseURL":   h.BaseURL,
	})

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// Logout forgets the push credential of the calling device. The bearer
// token itself is stateless and simply discarded by the client.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, userID string) {
	var req LogoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JSONError(w, "Invalid request body", CodeInvalidInput, http.StatusBadRequest)
			return
		}
	}

	if req.DeviceID != "" {
		if err := h.DB.DeleteDevice(userID, req.DeviceID); err != nil {
			internalError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.DB.GetUserByID(userID)
	if errors.Is(err, db.ErrNotFound) {
		JSONError(w, "User not found", CodeNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.User{ID: user.ID, Name: user.Name, Email: user.Email})
}

func (h *AuthHandler) sendMail(user *model.User, subject, text, templateName string, data map[string]string) {
	if h.Mailer == nil {
		return
	}

	var html string
	if h.Templates != nil {
		rendered, err := h.Templates.Render(templateName, data)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("template", templateName).Msg("Template render error")
		}
		html = rendered
	}

	if err := h.Mailer.Send(user.Email, subject, text, html); err != nil {
		logger.Logger.Warn().Err(err).Str("to", user.Email).Msg("Mail send error")
	}
}
