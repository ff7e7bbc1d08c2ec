package routes

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	gatewayauth "github.com/synaptica-ai/noshow/pkg/gateway/auth"
	"github.com/synaptica-ai/noshow/pkg/gateway/middleware"
)

// AuthHandler exposes the login redirect and the caller's identity. Either
// dependency may be nil when that mechanism is not configured.
type AuthHandler struct {
	oidc  *gatewayauth.OIDCAuthenticator
	authn gatewayauth.Authenticator
}

func NewAuthHandler(oidc *gatewayauth.OIDCAuthenticator, authn gatewayauth.Authenticator) *AuthHandler {
	return &AuthHandler{oidc: oidc, authn: authn}
}

func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	if h.authn != nil {
		protected.Use(middleware.Authenticate(h.authn))
	}
	protected.HandleFunc("/me", h.handleMe).Methods(http.MethodGet)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		http.Error(w, "login not configured", http.StatusNotFound)
		return
	}
	redirect := r.URL.Query().Get("redirect_uri")
	if redirect == "" {
		http.Error(w, "redirect_uri is required", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, h.oidc.AuthCodeURL(uuid.NewString(), redirect), http.StatusFound)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respondJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"principal":     principal,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
