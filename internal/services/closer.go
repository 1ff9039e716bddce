package services

import (
	"context"
	"fmt"
	"time"

	"auction-market/internal/domain"
	"auction-market/pkg/logger"

	"github.com/robfig/cron/v3"
)

// AuctionCloser periodically sweeps expired auctions. The sweep itself is
// idempotent, but only the elected leader runs it so a fleet of instances
// does not hammer the store with identical updates.
type AuctionCloser struct {
	cron       *cron.Cron
	auctions   *AuctionService
	leader     domain.LeaderElection
	instanceID string
	interval   time.Duration
	log        logger.Logger
}

func NewAuctionCloser(
	auctions *AuctionService,
	leader domain.LeaderElection,
	instanceID string,
	interval time.Duration,
	log logger.Logger,
) *AuctionCloser {
	return &AuctionCloser{
		cron:       cron.New(),
		auctions:   auctions,
		leader:     leader,
		instanceID: instanceID,
		interval:   interval,
		log:        log,
	}
}

func (c *AuctionCloser) Start(ctx context.Context) error {
	c.log.Info("Starting auction closer", "interval", c.interval)

	schedule := fmt.Sprintf("@every %s", c.interval)
	_, err := c.cron.AddFunc(schedule, func() {
		c.sweep(ctx)
	})
	if err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

func (c *AuctionCloser) Stop() error {
	c.log.Info("Stopping auction closer")
	c.cron.Stop()
	return nil
}

func (c *AuctionCloser) sweep(ctx context.Context) {
	if c.leader != nil {
		isLeader, err := c.leader.IsLeader(ctx, c.instanceID)
		if err != nil {
			c.log.Error("Failed to check leadership", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	if _, err := c.auctions.CloseExpired(ctx, time.Now()); err != nil {
		c.log.Error("Expiry sweep failed", "error", err)
	}
}
