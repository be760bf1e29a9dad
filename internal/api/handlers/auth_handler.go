package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/isdelr/ender-auth/internal/apperr"
	"github.com/isdelr/ender-auth/internal/auth"
	"github.com/isdelr/ender-auth/internal/httpx/respond"
	"github.com/isdelr/ender-auth/internal/models"
	"github.com/isdelr/ender-auth/internal/services"
)

const maxBodyBytes = 1 << 20

// AuthHandlerOptions configures token transport and error rendering.
type AuthHandlerOptions struct {
	Production bool
	// TokenCookie also sets the token as an HttpOnly cookie on register/login.
	TokenCookie bool
	TokenTTL    time.Duration
}

// AuthHandler handles HTTP requests for registration, login and identity.
type AuthHandler struct {
	service services.AuthServiceProvider
	opts    AuthHandlerOptions
	render  respond.Renderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, opts AuthHandlerOptions) *AuthHandler {
	return &AuthHandler{
		service: service,
		opts:    opts,
		render:  respond.Renderer{Production: opts.Production},
	}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool              `json:"success"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

type userResponse struct {
	Success bool              `json:"success"`
	User    models.PublicUser `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decode(w, r, &payload); err != nil {
		h.render.Error(w, r, err, "Error in registration")
		return
	}

	res, err := h.service.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		h.render.Error(w, r, err, "Error in registration")
		return
	}

	h.setTokenCookie(w, res.Token)
	respond.JSON(w, http.StatusCreated, authResponse{Success: true, Token: res.Token, User: res.User})
}

// Login handles user authentication and token generation.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decode(w, r, &payload); err != nil {
		h.render.Error(w, r, err, "Error in login")
		return
	}

	res, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.render.Error(w, r, err, "Error in login")
		return
	}

	h.setTokenCookie(w, res.Token)
	respond.JSON(w, http.StatusOK, authResponse{Success: true, Token: res.Token, User: res.User})
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.render.Error(w, r, apperr.New(apperr.Unauthorized, "Not authorized"), "Error fetching user")
		return
	}

	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		h.render.Error(w, r, err, "Error fetching user")
		return
	}

	respond.JSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// Logout acknowledges a logout. Tokens are stateless and stay valid until
// they expire; only the cookie, if used, is cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.opts.TokenCookie {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   h.opts.Production,
			SameSite: http.SameSiteStrictMode,
			Path:     "/",
		})
	}
	respond.JSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	if !h.opts.TokenCookie {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Expires:  time.Now().Add(h.opts.TokenTTL),
		HttpOnly: true,
		Secure:   h.opts.Production,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

// decode reads a JSON body into v. An empty body leaves v zero-valued so the
// service reports the missing fields.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.Validation, "Invalid request body", err)
	}
	return nil
}
