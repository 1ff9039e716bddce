package mysql

import (
	"context"
	"database/sql"

	"auction-market/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) ListByAuction(ctx context.Context, auctionID string) ([]*domain.BidView, error) {
	query := `
        SELECT b.id, b.auction_id, b.bidder_id, b.amount, b.created_at, u.name
        FROM bids b
        JOIN users u ON u.id = b.bidder_id
        WHERE b.auction_id = ?
        ORDER BY b.created_at DESC, b.amount DESC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.BidView
	for rows.Next() {
		var bid domain.BidView
		err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID,
			&bid.Amount, &bid.CreatedAt, &bid.BidderName)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}

	return bids, rows.Err()
}

func (r *MySQLBidRepository) CountByBidder(ctx context.Context, bidderID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE bidder_id = ?`, bidderID).Scan(&count)
	return count, err
}
