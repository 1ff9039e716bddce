package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auction-market/internal/api/middleware"
	"auction-market/internal/domain"
	"auction-market/internal/services"
	"auction-market/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AuctionManager interface {
	CreateAuction(ctx context.Context, sellerID string, input services.CreateAuctionInput) (*domain.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error)
	ListAuctions(ctx context.Context) ([]*domain.Auction, error)
	CancelAuction(ctx context.Context, auctionID, sellerID string) error
}

type AuctionHandler struct {
	auctions AuctionManager
	log      logger.Logger
}

func NewAuctionHandler(auctions AuctionManager, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctions: auctions,
		log:      log,
	}
}

type createAuctionRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Image        string    `json:"image"`
	InitialPrice float64   `json:"initial_price"`
	CloseTime    time.Time `json:"close_time"`
}

type auctionResponse struct {
	*domain.Auction
	Status string `json:"status"`
}

func toAuctionResponse(a *domain.Auction) auctionResponse {
	return auctionResponse{Auction: a, Status: a.Status.String()}
}

// List handles GET /api/auctions.
func (h *AuctionHandler) List(c echo.Context) error {
	auctions, err := h.auctions.ListAuctions(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list auctions", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	responses := make([]auctionResponse, 0, len(auctions))
	for _, a := range auctions {
		responses = append(responses, toAuctionResponse(a))
	}
	return c.JSON(http.StatusOK, responses)
}

// Create handles POST /api/auctions.
func (h *AuctionHandler) Create(c echo.Context) error {
	var req createAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, msg("Cuerpo de solicitud no válido"))
	}

	auction, err := h.auctions.CreateAuction(c.Request().Context(), middleware.CallerID(c), services.CreateAuctionInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Image:        req.Image,
		InitialPrice: req.InitialPrice,
		CloseTime:    req.CloseTime,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, msg(err.Error()))
		}
		h.log.Error("Failed to create auction", "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusCreated, toAuctionResponse(auction))
}

// Get handles GET /api/auctions/:id.
func (h *AuctionHandler) Get(c echo.Context) error {
	auctionID := c.Param("id")

	auction, err := h.auctions.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, msg("Subasta no encontrada"))
		}
		h.log.Error("Failed to get auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}

// Cancel handles DELETE /api/auctions/:id. The listing is soft-cancelled,
// never deleted, so its bid history stays intact.
func (h *AuctionHandler) Cancel(c echo.Context) error {
	auctionID := c.Param("id")

	err := h.auctions.CancelAuction(c.Request().Context(), auctionID, middleware.CallerID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAuctionNotFound):
			return c.JSON(http.StatusNotFound, msg("Subasta no encontrada"))
		case errors.Is(err, domain.ErrNotSeller):
			return c.JSON(http.StatusForbidden, msg("No autorizado"))
		case errors.Is(err, domain.ErrAuctionClosed):
			return c.JSON(http.StatusBadRequest, msg("La subasta ha finalizado"))
		default:
			h.log.Error("Failed to cancel auction", "auction_id", auctionID, "error", err)
			return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
		}
	}

	return c.JSON(http.StatusOK, msg("Subasta cancelada"))
}
