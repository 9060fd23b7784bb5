package cashout

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
)

// reward is one content reward split into the tokens it was paid in.
type reward struct {
	hbd       int64
	hive      int64
	vests     int64
	mustClaim bool
	hbdValue  int64
}

// pay distributes the payout of one post and closes its cashout. It returns
// the native units taken from the reward fund, which never exceeds payout.
func (s *Scheduler) pay(co database.Cashout, payout int64, now time.Time) (int64, error) {
	post, exists := s.db.Posts.Get(co.PostID)
	if !exists {
		return 0, database.Invariantf("cashout %d has no post", co.PostID)
	}

	payout = s.capPayout(co, payout)

	var paid int64
	if payout > 0 {
		curation := int64(0)
		if co.AllowCurationRewards {
			curation = asset.MustMulDiv(payout, s.db.Globals().RewardFund.CuratorPercentBP, 10000)
		}
		authorTokens := payout - curation

		curatorsPaid, err := s.payCurators(post, co, curation, now)
		if err != nil {
			return 0, err
		}

		var beneficiaryTokens, beneficiaryValue int64
		for _, b := range co.Beneficiaries {
			share := asset.MustMulDiv(authorTokens, int64(b.WeightBP), 10000)
			if share == 0 {
				continue
			}

			r, err := s.payContent(b.Account, share, co.PercentHBD, now)
			if err != nil {
				return 0, err
			}
			beneficiaryTokens += share
			beneficiaryValue += r.hbdValue

			s.em.Emit(operation.CommentBenefactorReward{
				Benefactor:          b.Account,
				Author:              post.Author,
				Permlink:            post.Permlink,
				HBDPayout:           asset.HBDs(r.hbd),
				HivePayout:          asset.Hive(r.hive),
				VestingPayout:       asset.Vests(r.vests),
				PayoutMustBeClaimed: r.mustClaim,
			})
		}

		r, err := s.payContent(post.Author, authorTokens-beneficiaryTokens, co.PercentHBD, now)
		if err != nil {
			return 0, err
		}

		s.em.Emit(operation.AuthorReward{
			Author:              post.Author,
			Permlink:            post.Permlink,
			HBDPayout:           asset.HBDs(r.hbd),
			HivePayout:          asset.Hive(r.hive),
			VestingPayout:       asset.Vests(r.vests),
			PayoutMustBeClaimed: r.mustClaim,
		})

		curatorValue := s.hbdValue(curatorsPaid)

		post.TotalPayoutValue += r.hbdValue
		post.CuratorPayoutValue += curatorValue
		post.BeneficiaryPayoutValue += beneficiaryValue
		post.AuthorRewards += authorTokens

		s.em.Emit(operation.CommentReward{
			Author:                 post.Author,
			Permlink:               post.Permlink,
			Payout:                 asset.HBDs(r.hbdValue + curatorValue + beneficiaryValue),
			AuthorRewards:          authorTokens - beneficiaryTokens,
			TotalPayoutValue:       asset.HBDs(r.hbdValue),
			CuratorPayoutValue:     asset.HBDs(curatorValue),
			BeneficiaryPayoutValue: asset.HBDs(beneficiaryValue),
		})

		paid = curatorsPaid + authorTokens
	}

	s.em.Emit(operation.CommentPayoutUpdate{
		Author:   post.Author,
		Permlink: post.Permlink,
	})

	post.LastPayout = now
	post.CashoutTime = database.Never
	s.db.Posts.Put(post.ID, post)

	s.removeVotes(post.ID)
	s.db.Cashouts.Delete(post.ID)

	return paid, nil
}

// capPayout limits the payout to the post's max accepted payout, valued at
// the current median price.
func (s *Scheduler) capPayout(co database.Cashout, payout int64) int64 {
	if payout <= 0 || co.MaxAcceptedPayout.Amount <= 0 {
		return 0
	}

	median := s.db.Globals().Feed.CurrentMedian
	if median.IsNull() {
		return payout
	}

	if s.hbdValue(payout) <= co.MaxAcceptedPayout.Amount {
		return payout
	}

	limit, err := median.Convert(co.MaxAcceptedPayout)
	if err != nil {
		return payout
	}
	return min(payout, limit.Amount)
}

// payCurators splits the curation tokens across the post's votes by curation
// weight. Every share rounds down and the remainder stays in the fund.
func (s *Scheduler) payCurators(post database.Post, co database.Cashout, tokens int64, now time.Time) (int64, error) {
	if tokens <= 0 || co.TotalVoteWeight.IsZero() {
		return 0, nil
	}

	votes := s.db.Votes.Select(func(v database.Vote) bool {
		return v.PostID == post.ID && !v.Weight.IsZero()
	}, bySequence)

	var paid int64
	for _, v := range votes {
		share := asset.WideFromInt(tokens).Mul(v.Weight).Div(co.TotalVoteWeight).Int64()
		if share <= 0 {
			continue
		}

		curator, err := s.db.Account(v.Voter)
		if err != nil {
			return 0, err
		}

		vests := s.pendingVests(&curator, share)
		s.db.PutAccount(curator)
		paid += share

		s.em.Emit(operation.CurationReward{
			Curator:             v.Voter,
			Reward:              asset.Vests(vests),
			Author:              post.Author,
			Permlink:            post.Permlink,
			PayoutMustBeClaimed: true,
		})
	}

	if paid > tokens {
		return 0, database.Invariantf("post %d paid curators %d out of %d", post.ID, paid, tokens)
	}

	return paid, nil
}

// payContent pays an author side reward. Half of the percent hbd share is
// printed as pegged tokens, throttled by the print rate, and the rest
// becomes stake. Accounts that defer rewards receive everything as pending
// rewards.
func (s *Scheduler) payContent(accountID database.AccountID, tokens int64, percentHBD uint16, now time.Time) (reward, error) {
	account, err := s.db.Account(accountID)
	if err != nil {
		return reward{}, err
	}

	hbdTokens := asset.MustMulDiv(tokens, int64(percentHBD), 2*operation.Percent100)
	vestingTokens := tokens - hbdTokens

	r := reward{
		hbdValue:  s.hbdValue(tokens),
		mustClaim: account.DeferRewards,
	}
	r.hbd, r.hive = s.printHBD(hbdTokens)

	switch {
	case account.DeferRewards:
		r.vests = s.pendingVests(&account, vestingTokens)
		account.RewardHiveBalance += r.hive
		account.RewardHBDBalance += r.hbd

	default:
		g := s.db.Globals()
		r.vests = g.CreateVests(vestingTokens, s.db.Genesis().InitialVestingRatio)
		s.db.SetGlobals(g)

		account.VestingShares += r.vests
		account.Balance += r.hive
		if err := s.interest.AdjustBalance(&account, r.hbd, now); err != nil {
			return reward{}, err
		}
	}

	s.db.PutAccount(account)

	return r, nil
}

// pendingVests converts native tokens into stake that waits for a claim. The
// tokens leave the reward fund but do not join the vesting fund until the
// stake is claimed.
func (s *Scheduler) pendingVests(account *database.Account, tokens int64) int64 {
	if tokens <= 0 {
		return 0
	}

	g := s.db.Globals()
	vests := g.VestsFor(tokens, s.db.Genesis().InitialVestingRatio)
	g.PendingRewardedVestingShares += vests
	g.PendingRewardedVestingHive += tokens
	s.db.SetGlobals(g)

	account.RewardVestingBalance += vests
	account.RewardVestingHive += tokens

	return vests
}

// printHBD converts native tokens into pegged tokens at the current median,
// limited by the print rate. The part that is not printed is returned as
// native tokens. Supplies are adjusted for the tokens converted.
func (s *Scheduler) printHBD(tokens int64) (hbd int64, hive int64) {
	g := s.db.Globals()

	median := g.Feed.CurrentMedian
	if tokens <= 0 || median.IsNull() {
		return 0, tokens
	}

	value, err := median.Convert(asset.Hive(tokens))
	if err != nil {
		return 0, tokens
	}
	hbd = asset.MustMulDiv(value.Amount, g.HBDPrintRate, 10000)
	if hbd <= 0 {
		return 0, tokens
	}

	burned, err := median.Convert(asset.HBDs(hbd))
	if err != nil || burned.Amount > tokens {
		return 0, tokens
	}

	g.CurrentSupply -= burned.Amount
	g.CurrentHBDSupply += hbd
	s.db.SetGlobals(g)

	return hbd, tokens - burned.Amount
}

// hbdValue returns the pegged token value of native tokens at the current
// median price.
func (s *Scheduler) hbdValue(tokens int64) int64 {
	median := s.db.Globals().Feed.CurrentMedian
	if tokens <= 0 || median.IsNull() {
		return 0
	}

	value, err := median.Convert(asset.Hive(tokens))
	if err != nil {
		return 0
	}
	return value.Amount
}
