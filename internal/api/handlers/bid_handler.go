package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auction-market/internal/api/middleware"
	"auction-market/internal/domain"
	ws "auction-market/internal/infrastructure/websocket"
	"auction-market/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// BidArbiter is the slice of the bid service the handler needs.
type BidArbiter interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64, now time.Time) (*domain.Bid, error)
	ListBids(ctx context.Context, auctionID string) ([]*domain.BidView, error)
}

type AuctionGetter interface {
	GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type BidHandler struct {
	arbiter  BidArbiter
	auctions AuctionGetter
	hub      domain.AuctionBroadcaster
	log      logger.Logger
}

func NewBidHandler(arbiter BidArbiter, auctions AuctionGetter, hub domain.AuctionBroadcaster, log logger.Logger) *BidHandler {
	return &BidHandler{
		arbiter:  arbiter,
		auctions: auctions,
		hub:      hub,
		log:      log,
	}
}

type placeBidRequest struct {
	Amount float64 `json:"amount"`
}

// PlaceBid handles POST /api/bids/:auctionId.
func (h *BidHandler) PlaceBid(c echo.Context) error {
	auctionID := c.Param("auctionId")

	var req placeBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, msg("Cuerpo de solicitud no válido"))
	}

	bid, err := h.arbiter.PlaceBid(c.Request().Context(), auctionID, middleware.CallerID(c), req.Amount, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAuctionNotFound):
			return c.JSON(http.StatusNotFound, msg("Subasta no encontrada"))
		case errors.Is(err, domain.ErrAuctionClosed):
			return c.JSON(http.StatusBadRequest, msg("La subasta ha finalizado"))
		case errors.Is(err, domain.ErrInvalidAmount):
			return c.JSON(http.StatusBadRequest, msg("La puja debe ser mayor al precio actual"))
		case errors.Is(err, domain.ErrBidConflict):
			return c.JSON(http.StatusConflict, msg("Demasiadas pujas simultáneas, inténtalo de nuevo"))
		default:
			h.log.Error("Failed to place bid", "auction_id", auctionID, "error", err)
			return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
		}
	}

	return c.JSON(http.StatusOK, bid)
}

// ListBids handles GET /api/bids/:auctionId.
func (h *BidHandler) ListBids(c echo.Context) error {
	auctionID := c.Param("auctionId")

	bids, err := h.arbiter.ListBids(c.Request().Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, msg("Subasta no encontrada"))
		}
		h.log.Error("Failed to list bids", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	if bids == nil {
		bids = []*domain.BidView{}
	}
	return c.JSON(http.StatusOK, bids)
}

// Live handles GET /api/bids/:auctionId/live: a one-way websocket feed of
// admitted bids on the auction.
func (h *BidHandler) Live(c echo.Context) error {
	auctionID := c.Param("auctionId")

	auction, err := h.auctions.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, msg("Subasta no encontrada"))
		}
		return c.JSON(http.StatusInternalServerError, msg("Error del servidor"))
	}

	if auction.Status.Terminal() || !time.Now().Before(auction.CloseTime) {
		return c.JSON(http.StatusBadRequest, msg("La subasta ha finalizado"))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "auction_id", auctionID, "error", err)
		return nil
	}

	watcher := ws.NewWatcherConn(conn, auctionID)
	h.hub.RegisterWatcher(auctionID, watcher)

	go func() {
		defer func() {
			h.hub.UnregisterWatcher(auctionID, watcher)
			watcher.Close()
		}()
		watcher.ReadLoop()
	}()

	return nil
}

func msg(text string) map[string]string {
	return map[string]string{"msg": text}
}
