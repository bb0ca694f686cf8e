// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendra/vendra/internal/platform/middleware"
	"github.com/vendra/vendra/internal/platform/request"
	"github.com/vendra/vendra/internal/platform/respond"
	"github.com/vendra/vendra/internal/platform/validate"
	"github.com/vendra/vendra/pkg/pagination"
)

// Handler exposes the authentication endpoints over HTTP.
type Handler struct {
	service *Service
	policy  validate.PasswordPolicy
}

// NewHandler constructs the HTTP handler for the auth domain.
func NewHandler(service *Service, policy validate.PasswordPolicy) *Handler {
	return &Handler{
		service: service,
		policy:  policy,
	}
}

// Routes returns the /auth sub-router.
//
// Login and refresh are public by definition; logout and password change
// require an authenticated identity.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.Login)
	router.Post("/refresh", handler.Refresh)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Post("/logout", handler.Logout)
		protected.Post("/change-password", handler.ChangePassword)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// requestMeta captures the audit-relevant facts of the HTTP request.
func requestMeta(request *http.Request) RequestMeta {
	return RequestMeta{
		IP:        requestutil.ClientIP(request),
		UserAgent: request.UserAgent(),
	}
}

// # Endpoints

/*
Login handles POST /auth/login.

Responses:
  - 200: Token pair and the sanitized account
  - 400: Malformed or incomplete payload
  - 401: Unknown account, deactivated account, or wrong password (identical)
  - 429: Lockout engaged for this source or account
*/
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, payload.Username).
		MaxLen(FieldUsername, payload.Username, 255).
		Required(FieldPassword, payload.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Login(request.Context(), payload.Username, payload.Password, requestMeta(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Refresh handles POST /auth/refresh.

Responses:
  - 200: New access token (plus replacement refresh token when rotating)
  - 401: Expired, invalid, or revoked refresh token; expired session
*/
func (handler *Handler) Refresh(writer http.ResponseWriter, request *http.Request) {
	var payload refreshRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, payload.RefreshToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.service.Refresh(request.Context(), payload.RefreshToken, requestMeta(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
Logout handles POST /auth/logout.

The access token being revoked is the one on the Authorization header. The
body may optionally carry the refresh token so its mapping is removed too.

Responses:
  - 200: Session revoked
  - 401: Missing or invalid access token
*/
func (handler *Handler) Logout(writer http.ResponseWriter, request *http.Request) {
	accessToken, err := requestutil.BearerToken(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The body is optional on logout; a decode failure is treated as empty.
	var payload logoutRequest
	_ = requestutil.DecodeJSON(request, &payload)

	if err := handler.service.Logout(request.Context(), accessToken, payload.RefreshToken, requestMeta(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Logged out successfully"})
}

/*
ChangePassword handles POST /auth/change-password.

Responses:
  - 200: Password updated
  - 400: Wrong current password, or new password fails the policy
  - 401: Not authenticated
*/
func (handler *Handler) ChangePassword(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload changePasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldCurrentPassword, payload.CurrentPassword).
		Required(FieldNewPassword, payload.NewPassword).
		Password(FieldNewPassword, payload.NewPassword, handler.policy)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.ChangePassword(
		request.Context(),
		identity.UserID,
		payload.CurrentPassword,
		payload.NewPassword,
		requestMeta(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Password changed successfully"})
}

/*
Me handles GET /me: the account behind the current identity.
*/
func (handler *Handler) Me(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Profile(request.Context(), identity.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
SecurityEvents handles GET /admin/security-events: a paginated view of the
security-sensitive audit stream, newest first.
*/
func (handler *Handler) SecurityEvents(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	events, total, err := handler.service.SecurityEvents(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, events, pagination.NewMeta(params.Page, params.Limit, total))
}
