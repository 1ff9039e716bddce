package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"auction-market/internal/api/middleware"
	"auction-market/internal/domain"
	"auction-market/internal/services"
	"auction-market/pkg/logger"
	"auction-market/pkg/utils"

	"github.com/labstack/echo/v4"
)

type ProfileManager interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, input services.UpdateProfileInput) (*domain.User, error)
	RemoveAvatar(ctx context.Context, userID string) error
	Stats(ctx context.Context, userID string) (*domain.UserStats, error)
}

type ProfileHandler struct {
	profiles    ProfileManager
	uploadsDir  string
	maxFileSize int64
	log         logger.Logger
}

func NewProfileHandler(profiles ProfileManager, uploadsDir string, maxFileSize int64, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:    profiles,
		uploadsDir:  uploadsDir,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

// Me handles GET /api/profile/me.
func (h *ProfileHandler) Me(c echo.Context) error {
	user, err := h.profiles.GetUser(c.Request().Context(), middleware.CallerID(c))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, msg("Usuario no encontrado"))
		}
		h.log.Error("Failed to get profile", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusOK, user)
}

// Update handles PUT /api/profile/update: multipart form with optional
// avatar image.
func (h *ProfileHandler) Update(c echo.Context) error {
	input := services.UpdateProfileInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Bio:      c.FormValue("bio"),
		Location: c.FormValue("location"),
		Website:  c.FormValue("website"),
	}

	if file, err := c.FormFile("avatar"); err == nil {
		avatarPath, err := h.saveUpload(file)
		if err != nil {
			if errors.Is(err, errNotAnImage) || errors.Is(err, errFileTooLarge) {
				return c.JSON(http.StatusBadRequest, msg("No es una imagen válida"))
			}
			h.log.Error("Failed to store avatar", "error", err)
			return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
		}
		input.Avatar = avatarPath
	}

	user, err := h.profiles.UpdateProfile(c.Request().Context(), middleware.CallerID(c), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, msg("Usuario no encontrado"))
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, msg(err.Error()))
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusBadRequest, msg("El usuario ya existe"))
		default:
			h.log.Error("Failed to update profile", "error", err)
			return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
		}
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteAvatar handles DELETE /api/profile/avatar.
func (h *ProfileHandler) DeleteAvatar(c echo.Context) error {
	if err := h.profiles.RemoveAvatar(c.Request().Context(), middleware.CallerID(c)); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, msg("Usuario no encontrado"))
		}
		h.log.Error("Failed to remove avatar", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusOK, msg("Avatar eliminado exitosamente"))
}

// Stats handles GET /api/profile/stats.
func (h *ProfileHandler) Stats(c echo.Context) error {
	stats, err := h.profiles.Stats(c.Request().Context(), middleware.CallerID(c))
	if err != nil {
		h.log.Error("Failed to get profile stats", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusOK, stats)
}

var (
	errNotAnImage   = errors.New("uploaded file is not an image")
	errFileTooLarge = errors.New("uploaded file exceeds the size limit")
)

// saveUpload stores an avatar image under the uploads dir with a unique
// name and returns the public path.
func (h *ProfileHandler) saveUpload(file *multipart.FileHeader) (string, error) {
	if file.Size > h.maxFileSize {
		return "", errFileTooLarge
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return "", errNotAnImage
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("avatar-%d-%s%s",
		time.Now().UnixMilli(), utils.GenerateID("f"), filepath.Ext(file.Filename))
	dst, err := os.Create(filepath.Join(h.uploadsDir, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return "/uploads/" + filename, nil
}
