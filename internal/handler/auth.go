package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/problem"
	"github.com/dukerupert/choretracker/internal/websocket"
)

type AuthHandler struct {
	accounts auth.AccountStore
	issuer   *auth.Issuer
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewAuthHandler(accounts auth.AccountStore, issuer *auth.Issuer, hub *websocket.Hub, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, issuer: issuer, hub: hub, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := cleanText(req.Name)
	var errs []problem.FieldError
	if name == "" {
		errs = append(errs, problem.FieldError{Field: "body.name", Message: "field required"})
	}
	switch {
	case req.Password == "":
		errs = append(errs, problem.FieldError{Field: "body.password", Message: "field required"})
	case len(req.Password) > auth.MaxPasswordBytes:
		errs = append(errs, problem.FieldError{Field: "body.password", Message: "password must be at most 72 bytes"})
	}
	if len(errs) > 0 {
		problem.Validation(w, errs...)
		return
	}

	acc, err := auth.Register(h.accounts, name, req.Password)
	if errors.Is(err, auth.ErrNameTaken) {
		problem.Write(w, http.StatusBadRequest, "User with this name already exists")
		return
	}
	if err != nil {
		serverError(w, h.logger, "register user", err)
		return
	}

	h.logger.Info("user registered", "user_id", acc.UserID)
	broadcast(h.hub, websocket.NewMessage("user", "created", acc.UserID, nil))
	writeJSON(w, http.StatusCreated, model.User{ID: acc.UserID, Name: acc.Name, GroupIDs: []int64{}})
}

// Token handles POST /auth/token with a form-encoded username and password.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		problem.Validation(w, problem.FieldError{Field: "body", Message: "invalid form body"})
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	var errs []problem.FieldError
	if username == "" {
		errs = append(errs, problem.FieldError{Field: "body.username", Message: "field required"})
	}
	if password == "" {
		errs = append(errs, problem.FieldError{Field: "body.password", Message: "field required"})
	}
	if len(errs) > 0 {
		problem.Validation(w, errs...)
		return
	}

	acc, err := auth.Authenticate(h.accounts, username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		problem.Write(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if err != nil {
		serverError(w, h.logger, "authenticate", err)
		return
	}

	token, err := h.issuer.Issue(acc.UserID)
	if err != nil {
		serverError(w, h.logger, "issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}
