package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"shop/pkg/auth/domain/model"
	"shop/pkg/auth/domain/service"
	"shop/pkg/auth/token"
	"shop/pkg/common/authmw"
	"shop/pkg/common/httpx"
)

type Handler struct {
	users  service.UserService
	tokens *token.Manager
}

func NewHandler(users service.UserService, tokens *token.Manager) *Handler {
	return &Handler{users: users, tokens: tokens}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/verify", h.verify).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(authmw.Authenticate(h.tokens))
	protected.Handle("/users",
		authmw.RequireRole(authmw.RoleAdmin)(http.HandlerFunc(h.listUsers))).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id:[0-9]+}", h.getUser).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id:[0-9]+}", h.updateUser).Methods(http.MethodPut)
	protected.HandleFunc("/users/{id:[0-9]+}/password", h.changePassword).Methods(http.MethodPut)

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "user-authentication",
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		h.respondError(w, err)
		return
	}

	signed, err := h.tokens.Issue(user)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
		"token":   signed,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}

	signed, err := h.tokens.Issue(user)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    user,
		"token":   signed,
	})
}

// verify checks the bearer header directly so callers (other services) can
// delegate token verification without holding the signing secret.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if header == "" {
		httpx.RespondError(w, http.StatusUnauthorized, "Token is required")
		return
	}
	if !strings.HasPrefix(header, "Bearer ") {
		httpx.RespondError(w, http.StatusUnauthorized, "Invalid token format. Use: Bearer <token>")
		return
	}

	claims, err := h.tokens.Verify(r.Context(), strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		httpx.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if !claims.CanAccess(id) {
		httpx.RespondError(w, http.StatusForbidden, "Access denied")
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if !claims.CanAccess(id) {
		httpx.RespondError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role != nil && !claims.IsAdmin() {
		httpx.RespondError(w, http.StatusForbidden, "Only admins can change user roles")
		return
	}

	user, err := h.users.UpdateUser(r.Context(), id, service.UpdateUserParams{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if claims.UserID != id {
		httpx.RespondError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.users.ChangePassword(r.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, users)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.RespondError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, model.ErrUsernameTaken), errors.Is(err, model.ErrEmailTaken):
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUserNotFound):
		httpx.RespondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrWrongOldPassword):
		httpx.RespondError(w, http.StatusUnauthorized, "Incorrect old password")
	case errors.Is(err, service.ErrAccountDeactivated):
		httpx.RespondError(w, http.StatusForbidden, "Account is deactivated")
	default:
		log.WithError(err).Error("user request failed")
		httpx.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// pathID parses the {id} route variable. The route constraint keeps it
// numeric, but a value past int64 still has to be rejected here.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
