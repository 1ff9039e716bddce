package handlers

import (
	"context"
	"errors"
	"net/http"

	"auction-market/internal/api/middleware"
	"auction-market/internal/domain"
	"auction-market/internal/services"
	"auction-market/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AccountManager interface {
	Register(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, userID string, input services.UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

type UserHandler struct {
	users AccountManager
	log   logger.Logger
}

func NewUserHandler(users AccountManager, log logger.Logger) *UserHandler {
	return &UserHandler{
		users: users,
		log:   log,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register handles POST /api/users.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, msg("Cuerpo de solicitud no válido"))
	}

	token, err := h.users.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusBadRequest, msg("El usuario ya existe"))
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, msg(err.Error()))
		default:
			h.log.Error("Failed to register user", "error", err)
			return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
		}
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Login handles POST /api/auth/login.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, msg("Cuerpo de solicitud no válido"))
	}

	token, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusBadRequest, msg("Credenciales inválidas"))
		}
		h.log.Error("Failed to log in user", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.users.GetUser(c.Request().Context(), middleware.CallerID(c))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, msg("Usuario no encontrado"))
		}
		h.log.Error("Failed to get current user", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusOK, user)
}

// List handles GET /api/users.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list users", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(http.StatusOK, users)
}

type updateUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Update handles PUT /api/users.
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, msg("Cuerpo de solicitud no válido"))
	}

	user, err := h.users.UpdateUser(c.Request().Context(), middleware.CallerID(c), services.UpdateUserInput{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, msg("Usuario no encontrado"))
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusBadRequest, msg("Contraseña actual incorrecta"))
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusBadRequest, msg("El usuario ya existe"))
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, msg(err.Error()))
		default:
			h.log.Error("Failed to update user", "error", err)
			return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
		}
	}

	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /api/users.
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.users.DeleteUser(c.Request().Context(), middleware.CallerID(c)); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, msg("Usuario no encontrado"))
		}
		h.log.Error("Failed to delete user", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusOK, msg("Usuario eliminado"))
}
