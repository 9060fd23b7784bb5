package cashout

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/rewards"
)

// DefaultMaxAcceptedPayout is the payout ceiling of a new post.
var DefaultMaxAcceptedPayout = asset.HBDs(1_000_000_000)

// voteDenominator is the number of full weight votes a fully charged
// account can cast before its power is spent.
const voteDenominator = 50

// Comment creates a post or reply and opens its cashout window. Editing an
// existing post is accepted and leaves its payout state alone.
func (s *Scheduler) Comment(op operation.Comment, now time.Time) error {
	if _, err := s.db.Account(op.Author); err != nil {
		return err
	}

	if existing, err := s.db.PostByKey(op.Author, op.Permlink); err == nil {
		if existing.ParentAuthor != op.ParentAuthor || existing.ParentPermlink != op.ParentPermlink {
			return database.Validationf("post %s/%s cannot change its parent", op.Author, op.Permlink)
		}
		return nil
	}

	g := s.db.Globals()
	g.NextPostID++

	post := database.Post{
		ID:             g.NextPostID,
		Author:         op.Author,
		Permlink:       op.Permlink,
		ParentAuthor:   op.ParentAuthor,
		ParentPermlink: op.ParentPermlink,
		Created:        now,
		CashoutTime:    now.Add(genesis.Seconds(s.cfg.CashoutWindowSec)),
	}

	if op.ParentAuthor != "" {
		parent, err := s.db.PostByKey(op.ParentAuthor, op.ParentPermlink)
		if err != nil {
			return err
		}
		post.Depth = parent.Depth + 1
		parent.Children++
		s.db.Posts.Put(parent.ID, parent)
	}

	s.db.Posts.Put(post.ID, post)
	s.db.Permlinks.Put(database.PostKey{Author: post.Author, Permlink: post.Permlink}, post.ID)
	s.db.Cashouts.Put(post.ID, database.Cashout{
		PostID:               post.ID,
		CashoutTime:          post.CashoutTime,
		MaxAcceptedPayout:    DefaultMaxAcceptedPayout,
		PercentHBD:           operation.Percent100,
		AllowVotes:           true,
		AllowCurationRewards: true,
	})
	s.db.SetGlobals(g)

	return nil
}

// CommentOptions tightens the payout terms of a post. Terms can only become
// more restrictive, and beneficiaries can only be set once before any vote.
func (s *Scheduler) CommentOptions(op operation.CommentOptions) error {
	post, err := s.db.PostByKey(op.Author, op.Permlink)
	if err != nil {
		return err
	}

	co, exists := s.db.Cashouts.Get(post.ID)
	if !exists {
		return database.Validationf("post %s/%s has already been paid", op.Author, op.Permlink)
	}

	switch {
	case co.MaxAcceptedPayout.Amount < op.MaxAcceptedPayout.Amount:
		return database.Validationf("max accepted payout can only be decreased")
	case co.PercentHBD < op.PercentHBD:
		return database.Validationf("percent hbd can only be decreased")
	case !co.AllowVotes && op.AllowVotes:
		return database.Validationf("votes cannot be re-enabled")
	case !co.AllowCurationRewards && op.AllowCurationRewards:
		return database.Validationf("curation rewards cannot be re-enabled")
	}

	if len(op.Beneficiaries) > 0 {
		switch {
		case len(co.Beneficiaries) > 0:
			return database.Validationf("beneficiaries are already set")
		case !co.TotalVoteWeight.IsZero() || !co.AbsRshares.IsZero():
			return database.Validationf("beneficiaries must be set before the post receives votes")
		case s.cfg.MaxBeneficiaries > 0 && len(op.Beneficiaries) > s.cfg.MaxBeneficiaries:
			return database.Validationf("at most %d beneficiaries are allowed", s.cfg.MaxBeneficiaries)
		}

		for _, b := range op.Beneficiaries {
			if _, err := s.db.Account(b.Account); err != nil {
				return err
			}
		}

		co.Beneficiaries = append([]database.Beneficiary(nil), op.Beneficiaries...)
	}

	co.MaxAcceptedPayout = op.MaxAcceptedPayout
	co.PercentHBD = op.PercentHBD
	co.AllowVotes = op.AllowVotes
	co.AllowCurationRewards = op.AllowCurationRewards

	s.db.Cashouts.Put(post.ID, co)

	return nil
}

// DeleteComment removes a post that has not been paid, has no replies, and
// carries no positive rshares. Its pending cashout is voided.
func (s *Scheduler) DeleteComment(op operation.DeleteComment) error {
	post, err := s.db.PostByKey(op.Author, op.Permlink)
	if err != nil {
		return err
	}

	co, exists := s.db.Cashouts.Get(post.ID)
	switch {
	case !exists:
		return database.Validationf("post %s/%s has already been paid", op.Author, op.Permlink)
	case post.Children > 0:
		return database.Validationf("post %s/%s has replies", op.Author, op.Permlink)
	case co.NetRshares.Sign() > 0:
		return database.Validationf("post %s/%s has positive votes", op.Author, op.Permlink)
	}

	if post.ParentAuthor != "" {
		if parent, err := s.db.PostByKey(post.ParentAuthor, post.ParentPermlink); err == nil {
			parent.Children--
			s.db.Posts.Put(parent.ID, parent)
		}
	}

	s.removeVotes(post.ID)
	s.db.Cashouts.Delete(post.ID)
	s.db.Permlinks.Delete(database.PostKey{Author: post.Author, Permlink: post.Permlink})
	s.db.Posts.Delete(post.ID)

	return nil
}

// Vote casts a vote on a post with a pending cashout. The voter spends a
// share of their regenerated voting power and the post gains rshares equal
// to the effective stake times the power used.
func (s *Scheduler) Vote(op operation.Vote, now time.Time) error {
	voter, err := s.db.Account(op.Voter)
	if err != nil {
		return err
	}

	post, err := s.db.PostByKey(op.Author, op.Permlink)
	if err != nil {
		return err
	}

	co, exists := s.db.Cashouts.Get(post.ID)
	switch {
	case !exists:
		return database.Validationf("post %s/%s has already been paid", op.Author, op.Permlink)
	case !co.AllowVotes:
		return database.Validationf("post %s/%s does not accept votes", op.Author, op.Permlink)
	case op.Weight == 0:
		return database.Validationf("vote weight cannot be zero")
	}

	key := database.VoteKey{PostID: post.ID, Voter: op.Voter}
	if s.db.Votes.Has(key) {
		return database.Validationf("%s has already voted on %s/%s", op.Voter, op.Author, op.Permlink)
	}

	power := VotingPower(voter, now, s.cfg.VoteRegenerationSec)

	weight := int64(op.Weight)
	if weight < 0 {
		weight = -weight
	}

	used := power * weight / operation.Percent100
	used = (used + voteDenominator - 1) / voteDenominator
	if used <= 0 || used > power {
		return database.Validationf("%s does not have enough voting power", op.Voter)
	}

	effective := voter.EffectiveVestingShares()
	if effective <= 0 {
		return database.Validationf("%s has no stake to vote with", op.Voter)
	}

	rshares := asset.MustMulDiv(effective, used, database.FullPower)
	if rshares == 0 {
		return database.Validationf("vote by %s is too small", op.Voter)
	}
	if op.Weight < 0 {
		rshares = -rshares
	}

	voter.VotingPower = power - used
	voter.LastVoteTime = now
	s.db.PutAccount(voter)

	g := s.db.Globals()
	g.NextVoteSeq++

	vote := database.Vote{
		PostID:     post.ID,
		Voter:      op.Voter,
		Rshares:    rshares,
		PercentBP:  op.Weight,
		LastUpdate: now,
		Sequence:   g.NextVoteSeq,
	}

	co.NetRshares = co.NetRshares.Add(asset.RsharesFrom(rshares))
	co.AbsRshares = co.AbsRshares.Add(asset.RsharesFrom(rshares).Abs())

	if rshares > 0 {
		before := co.VoteRshares
		co.VoteRshares = co.VoteRshares.Add(asset.WideFromInt(rshares))

		if co.AllowCurationRewards {
			vote.Weight = rewards.CurationWeight(g.RewardFund.CurationCurve, before, co.VoteRshares, g.RewardFund.ContentConstant)
			co.TotalVoteWeight = co.TotalVoteWeight.Add(vote.Weight)
		}

		post.NetVotes++
	} else {
		post.NetVotes--
	}

	s.db.Votes.Put(key, vote)
	s.db.Cashouts.Put(post.ID, co)
	s.db.Posts.Put(post.ID, post)
	s.db.SetGlobals(g)

	return nil
}

// VotingPower returns the account's voting power at the specified time.
// Power regenerates linearly to full over the regeneration window.
func VotingPower(account database.Account, now time.Time, regenSec int64) int64 {
	if regenSec <= 0 {
		return database.FullPower
	}

	elapsed := int64(now.Sub(account.LastVoteTime) / time.Second)
	if elapsed <= 0 {
		return account.VotingPower
	}

	regen := asset.MustMulDiv(elapsed, database.FullPower, regenSec)
	return min(account.VotingPower+regen, database.FullPower)
}

// removeVotes deletes every vote cast on the post.
func (s *Scheduler) removeVotes(postID uint64) {
	votes := s.db.Votes.Select(func(v database.Vote) bool {
		return v.PostID == postID
	}, bySequence)

	for _, v := range votes {
		s.db.Votes.Delete(database.VoteKey{PostID: v.PostID, Voter: v.Voter})
	}
}

func bySequence(a, b database.Vote) int {
	switch {
	case a.Sequence < b.Sequence:
		return -1
	case a.Sequence > b.Sequence:
		return 1
	}
	return 0
}
