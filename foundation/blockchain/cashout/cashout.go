// Package cashout schedules the payout of posts once their cashout window
// closes and distributes each payout between curators, beneficiaries, and
// the author.
package cashout

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/rewards"
)

// Scheduler manages posts, votes, and their payout.
type Scheduler struct {
	db       *database.Database
	em       *oplog.Emitter
	interest *interest.Engine
	cfg      genesis.Rewards
}

// New constructs a cashout scheduler.
func New(db *database.Database, em *oplog.Emitter, ie *interest.Engine, cfg genesis.Rewards) *Scheduler {
	return &Scheduler{
		db:       db,
		em:       em,
		interest: ie,
		cfg:      cfg,
	}
}

// due is a cashout that has reached its cashout time with the claims it adds
// to the reward fund.
type due struct {
	cashout database.Cashout
	claims  asset.Wide
}

// Process pays every post whose cashout time has been reached, in order of
// cashout time and then post id. Recent claims are decayed first and the
// claims of every due post are added before any is paid, so the payouts of
// one block do not depend on their order. It returns the number of posts
// paid.
func (s *Scheduler) Process(now time.Time) (int, error) {
	g := s.db.Globals()
	g.RewardFund = rewards.Decay(g.RewardFund, now, s.cfg.RecentClaimsDecaySec)

	cashouts := s.db.Cashouts.Select(func(c database.Cashout) bool {
		return !c.CashoutTime.After(now)
	}, byCashoutTime)

	if len(cashouts) == 0 {
		s.db.SetGlobals(g)
		return 0, nil
	}

	work := make([]due, len(cashouts))
	for i, c := range cashouts {
		work[i] = due{cashout: c, claims: claims(g.RewardFund, c)}
		g.RewardFund.RecentClaims = g.RewardFund.RecentClaims.Add(work[i].claims)
	}
	s.db.SetGlobals(g)

	balance := g.RewardFund.RewardBalance
	recent := g.RewardFund.RecentClaims

	for _, w := range work {
		payout := rewards.Payout(balance, w.claims, recent)

		paid, err := s.pay(w.cashout, payout, now)
		if err != nil {
			return 0, err
		}

		g := s.db.Globals()
		if g.RewardFund.RewardBalance < paid {
			return 0, database.Invariantf("post %d paid %d from a fund holding %d", w.cashout.PostID, paid, g.RewardFund.RewardBalance)
		}
		g.RewardFund.RewardBalance -= paid
		s.db.SetGlobals(g)
	}

	return len(work), nil
}

// claims returns the claims the post adds to the fund. Posts with negative
// rshares or that decline payouts claim nothing.
func claims(fund database.RewardFund, c database.Cashout) asset.Wide {
	if c.NetRshares.Sign() <= 0 || c.MaxAcceptedPayout.Amount <= 0 {
		return asset.Wide{}
	}
	return rewards.Evaluate(fund.AuthorCurve, c.NetRshares.Positive(), fund.ContentConstant)
}

func byCashoutTime(a, b database.Cashout) int {
	if c := a.CashoutTime.Compare(b.CashoutTime); c != 0 {
		return c
	}
	switch {
	case a.PostID < b.PostID:
		return -1
	case a.PostID > b.PostID:
		return 1
	}
	return 0
}
