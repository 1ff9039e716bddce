package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-market/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, seller_id, title, description, category, image,
            initial_price, current_price, status, close_time, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.SellerID, auction.Title, auction.Description,
		auction.Category, auction.Image, auction.InitialPrice, auction.CurrentPrice,
		int(auction.Status), auction.CloseTime, auction.CreatedAt, auction.UpdatedAt)
	return err
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `
        SELECT id, seller_id, title, description, category, image,
            initial_price, current_price, status, close_time, created_at, updated_at
        FROM auctions WHERE id = ?
    `

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}

	return auction, nil
}

func (r *MySQLAuctionRepository) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id, seller_id, title, description, category, image,
            initial_price, current_price, status, close_time, created_at, updated_at
        FROM auctions ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}

	return auctions, rows.Err()
}

// AppendBid admits a bid as one atomic unit: a conditional price update
// followed by the bid insert, in a single transaction. The UPDATE only
// matches while the auction is still active and its current price is still
// the value the arbiter validated against, so concurrent bidders on the
// same auction are linearized by the row lock while other auctions remain
// untouched. When the condition no longer holds the transaction is rolled
// back and ErrPriceConflict is returned; the bid row is never left behind.
func (r *MySQLAuctionRepository) AppendBid(ctx context.Context, bid *domain.Bid, expectedPrice float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updateQuery := `
        UPDATE auctions SET current_price = ?, updated_at = ?
        WHERE id = ? AND status = ? AND current_price = ?
    `
	res, err := tx.ExecContext(ctx, updateQuery,
		bid.Amount, bid.CreatedAt, bid.AuctionID, int(domain.AuctionActive), expectedPrice)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrPriceConflict
	}

	insertQuery := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	if _, err := tx.ExecContext(ctx, insertQuery,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// CloseExpired sweeps active auctions past their close time: those with at
// least one bid become sold, the rest unsold. The expiring rows are locked
// up front so the returned ids match exactly what the updates transition,
// and both updates only match rows still in the active state, so re-running
// the sweep affects nothing.
func (r *MySQLAuctionRepository) CloseExpired(ctx context.Context, now time.Time) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	idQuery := `
        SELECT id FROM auctions
        WHERE status = ? AND close_time <= ?
        FOR UPDATE
    `
	rows, err := tx.QueryContext(ctx, idQuery, int(domain.AuctionActive), now)
	if err != nil {
		return nil, err
	}

	var closed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		closed = append(closed, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(closed) == 0 {
		return nil, tx.Commit()
	}

	soldQuery := `
        UPDATE auctions SET status = ?, updated_at = ?
        WHERE status = ? AND close_time <= ?
            AND EXISTS (SELECT 1 FROM bids WHERE bids.auction_id = auctions.id)
    `
	if _, err := tx.ExecContext(ctx, soldQuery,
		int(domain.AuctionSold), now, int(domain.AuctionActive), now); err != nil {
		return nil, err
	}

	unsoldQuery := `
        UPDATE auctions SET status = ?, updated_at = ?
        WHERE status = ? AND close_time <= ?
    `
	if _, err := tx.ExecContext(ctx, unsoldQuery,
		int(domain.AuctionUnsold), now, int(domain.AuctionActive), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return closed, nil
}

// CancelAuction is a status transition only; bid history is never deleted.
func (r *MySQLAuctionRepository) CancelAuction(ctx context.Context, auctionID, sellerID string) error {
	query := `
        UPDATE auctions SET status = ?, updated_at = ?
        WHERE id = ? AND seller_id = ? AND status = ?
    `
	res, err := r.db.ExecContext(ctx, query,
		int(domain.AuctionCancelled), time.Now(), auctionID, sellerID, int(domain.AuctionActive))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Distinguish why nothing matched.
	auction, err := r.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if auction.SellerID != sellerID {
		return domain.ErrNotSeller
	}
	return domain.ErrAuctionClosed
}

func (r *MySQLAuctionRepository) CountBySeller(ctx context.Context, sellerID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM auctions WHERE seller_id = ?`, sellerID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status int

	err := row.Scan(&auction.ID, &auction.SellerID, &auction.Title,
		&auction.Description, &auction.Category, &auction.Image,
		&auction.InitialPrice, &auction.CurrentPrice, &status,
		&auction.CloseTime, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	return &auction, nil
}
