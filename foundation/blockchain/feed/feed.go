// Package feed aggregates the exchange rates producers publish into the
// median price the chain converts with, and stabilizes it so the pegged
// token supply never exceeds its configured share of market capitalization.
package feed

import (
	"fmt"
	"slices"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
)

// Aggregator maintains the price feed.
type Aggregator struct {
	db  *database.Database
	em  *oplog.Emitter
	cfg genesis.Feed
}

// New constructs a price feed aggregator.
func New(db *database.Database, em *oplog.Emitter, cfg genesis.Feed) *Aggregator {
	return &Aggregator{
		db:  db,
		em:  em,
		cfg: cfg,
	}
}

// Publish stores the producer's latest exchange rate, replacing the previous
// one.
func (a *Aggregator) Publish(producer database.AccountID, rate asset.Price, now time.Time) error {
	if !a.db.Genesis().IsProducer(string(producer)) {
		return database.Validationf("account %s is not a producer", producer)
	}
	if rate.Base.Symbol != asset.HBD || rate.Quote.Symbol != asset.HIVE {
		return database.Validationf("exchange rate must be %s/%s", asset.HBD, asset.HIVE)
	}
	if err := rate.Validate(); err != nil {
		return database.Validationf("exchange rate: %w", err)
	}

	a.db.Feeds.Put(producer, database.FeedSubmission{
		Producer:  producer,
		Rate:      rate,
		Published: now,
	})

	return nil
}

// Update aggregates the live submissions once per window. The window median
// is pushed into the history, the market median is recomputed from the
// history, and the current median is the market median after stabilization.
func (a *Aggregator) Update(now time.Time) {
	g := a.db.Globals()

	if !g.Feed.LastUpdate.IsZero() && now.Before(g.Feed.LastUpdate.Add(genesis.Seconds(a.cfg.WindowSec))) {
		return
	}
	g.Feed.LastUpdate = now

	live := a.live(now)
	if len(live) < max(a.cfg.MinFeeds, 1) {
		a.db.SetGlobals(g)
		return
	}

	g.Feed.CurrentMin = live[0]
	g.Feed.CurrentMax = live[len(live)-1]

	g.Feed.History = append(g.Feed.History, median(live))
	if n := len(g.Feed.History) - a.cfg.HistoryLength; n > 0 {
		g.Feed.History = g.Feed.History[n:]
	}

	history := slices.Clone(g.Feed.History)
	slices.SortFunc(history, asset.Price.Cmp)
	g.Feed.MarketMedian = median(history)
	g.Feed.CurrentMedian = g.Feed.MarketMedian

	if floor, ok := minimumPrice(g, a.cfg.HBDStopBP); ok && g.Feed.CurrentMedian.Less(floor) {
		a.em.Emit(operation.SystemWarning{
			Message: fmt.Sprintf("Changing current median price from %s to %s to keep pegged supply under %d bp of market cap", g.Feed.CurrentMedian, floor, a.cfg.HBDStopBP),
		})
		g.Feed.CurrentMedian = floor
		g.HBDPrintRate = 0
		a.db.SetGlobals(g)
		return
	}

	g.HBDPrintRate = PrintRate(g, a.cfg)

	a.db.SetGlobals(g)
}

// live returns the unexpired submissions sorted by price.
func (a *Aggregator) live(now time.Time) []asset.Price {
	maxAge := genesis.Seconds(a.cfg.MaxFeedAgeSec)

	subs := a.db.Feeds.Select(func(s database.FeedSubmission) bool {
		return maxAge <= 0 || !now.After(s.Published.Add(maxAge))
	}, func(x, y database.FeedSubmission) int {
		if c := x.Rate.Cmp(y.Rate); c != 0 {
			return c
		}
		switch {
		case x.Producer < y.Producer:
			return -1
		case x.Producer > y.Producer:
			return 1
		}
		return 0
	})

	prices := make([]asset.Price, len(subs))
	for i, s := range subs {
		prices[i] = s.Rate
	}
	return prices
}

// median returns the middle element of a sorted list.
func median(sorted []asset.Price) asset.Price {
	return sorted[len(sorted)/2]
}

// =============================================================================

// minimumPrice returns the lowest pegged/native price at which the pegged
// supply stays within stopBP of the virtual supply. Below it the pegged supply
// is worth too much native token.
func minimumPrice(g database.Globals, stopBP int64) (asset.Price, bool) {
	if g.CurrentHBDSupply <= 0 || g.CurrentSupply <= 0 || stopBP <= 0 || stopBP >= 10000 {
		return asset.Price{}, false
	}

	// hbd/price <= supply * stop / (10000 - stop)
	num, den := reduce(10000-stopBP, stopBP)

	base, err := asset.MulDiv(g.CurrentHBDSupply, num, 1)
	if err != nil {
		return asset.Price{}, false
	}
	quote, err := asset.MulDiv(g.CurrentSupply, den, 1)
	if err != nil {
		return asset.Price{}, false
	}

	return asset.NewPrice(asset.HBDs(base), asset.Hive(quote)), true
}

// PrintRate returns the share, in basis points, of pegged token payouts that
// is still printed as pegged tokens. It falls linearly from 100% when the
// pegged supply is at HBDStartBP of the virtual supply to 0% at HBDStopBP.
func PrintRate(g database.Globals, cfg genesis.Feed) int64 {
	share := PeggedShare(g)

	switch {
	case share <= cfg.HBDStartBP:
		return 10000
	case share >= cfg.HBDStopBP:
		return 0
	}

	return asset.MustMulDiv(cfg.HBDStopBP-share, 10000, cfg.HBDStopBP-cfg.HBDStartBP)
}

// PeggedShare returns the pegged supply's share of the virtual supply in
// basis points, valued at the current median.
func PeggedShare(g database.Globals) int64 {
	if g.Feed.CurrentMedian.IsNull() || g.CurrentHBDSupply <= 0 {
		return 0
	}

	hive, err := g.Feed.CurrentMedian.Convert(asset.HBDs(g.CurrentHBDSupply))
	if err != nil {
		return 10000
	}

	virtual := g.CurrentSupply + hive.Amount
	if virtual <= 0 {
		return 0
	}

	return asset.MustMulDiv(hive.Amount, 10000, virtual)
}

func reduce(a, b int64) (int64, int64) {
	x, y := a, b
	for y != 0 {
		x, y = y, x%y
	}
	return a / x, b / x
}
