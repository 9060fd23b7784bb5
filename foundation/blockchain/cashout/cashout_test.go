package cashout_test

import (
	"math"
	"testing"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/cashout"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/rewards"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	producer = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
	author   = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	curator1 = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	curator2 = database.AccountID("0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9")
	friend   = database.AccountID("0xa988b1866EaBF72B4c53b592c97aAD8e4b9bDCC0")
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	db  *database.Database
	em  *oplog.Emitter
	sch *cashout.Scheduler
	gen genesis.Genesis
}

func newHarness(t *testing.T, curatorBP int64, fund int64, configure ...func(gen *genesis.Genesis)) harness {
	gen := genesis.Default()
	gen.Date = start
	gen.Producers = []string{string(producer)}
	gen.Balances = map[string]uint64{string(author): 1, string(friend): 1}
	gen.Stakes = map[string]uint64{string(curator1): 1000, string(curator2): 1000}
	gen.Rewards.AuthorCurve = rewards.CurveLinear
	gen.Rewards.CuratorPercentBP = curatorBP
	for _, f := range configure {
		f(&gen)
	}

	db, err := database.New(gen)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open database: %v", failed, err)
	}

	g := db.Globals()
	g.RewardFund.RewardBalance = fund
	g.CurrentSupply += fund
	db.SetGlobals(g)

	em := oplog.New()
	em.BeginBlock(1, start)

	ie := interest.New(db, em, gen.Interest)

	return harness{
		db:  db,
		em:  em,
		sch: cashout.New(db, em, ie, gen.Rewards),
		gen: gen,
	}
}

func (h harness) post(t *testing.T, permlink string) {
	op := operation.Comment{Author: author, Permlink: permlink, Body: "content"}
	if err := h.sch.Comment(op, start); err != nil {
		t.Fatalf("\t%s\tShould be able to create post %s: %v", failed, permlink, err)
	}
}

func (h harness) vote(t *testing.T, voter database.AccountID, permlink string) {
	h.voteWeight(t, voter, permlink, operation.Percent100)
}

func (h harness) voteWeight(t *testing.T, voter database.AccountID, permlink string, weight int16) {
	op := operation.Vote{Voter: voter, Author: author, Permlink: permlink, Weight: weight}
	if err := h.sch.Vote(op, start); err != nil {
		t.Fatalf("\t%s\tShould be able to vote on %s: %v", failed, permlink, err)
	}
}

func kinds(recs []oplog.Record) []operation.Kind {
	out := make([]operation.Kind, len(recs))
	for i, r := range recs {
		out[i] = r.Op.Kind()
	}
	return out
}

// =============================================================================

func Test_Dust(t *testing.T) {
	h := newHarness(t, 0, 3)

	h.post(t, "first")
	h.post(t, "second")
	h.vote(t, curator1, "first")
	h.vote(t, curator2, "second")

	t.Log("Given the need to keep rounding dust in the reward fund.")
	{
		t.Logf("\tTest 0:\tWhen two equal posts split an odd balance.")
		{
			cashoutAt := start.Add(genesis.Seconds(h.gen.Rewards.CashoutWindowSec))

			n, err := h.sch.Process(cashoutAt)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to process cashouts: %v", failed, err)
			}
			if n != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould pay 2 posts, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould pay 2 posts.", success)

			if got := h.db.Globals().RewardFund.RewardBalance; got != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould leave 1 unit in the fund, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould leave 1 unit in the fund.", success)

			acct, _ := h.db.Account(author)
			if acct.Balance != 1 || acct.VestingShares != 2*h.gen.InitialVestingRatio {
				t.Fatalf("\t%s\tTest 0:\tShould pay the author 1 unit per post as stake, got balance %d stake %d.", failed, acct.Balance, acct.VestingShares)
			}
			t.Logf("\t%s\tTest 0:\tShould pay the author 1 unit per post as stake.", success)

			if err := h.db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced.", success)
		}
	}
}

func Test_ExactlyOnce(t *testing.T) {
	h := newHarness(t, 0, 1000)

	h.post(t, "once")
	h.vote(t, curator1, "once")

	cashoutAt := start.Add(genesis.Seconds(h.gen.Rewards.CashoutWindowSec))

	t.Log("Given the need to pay every post exactly once.")
	{
		t.Logf("\tTest 0:\tWhen the cashout time has not been reached.")
		{
			n, err := h.sch.Process(cashoutAt.Add(-time.Second))
			if err != nil || n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould pay nothing, got %d: %v", failed, n, err)
			}
			t.Logf("\t%s\tTest 0:\tShould pay nothing.", success)
		}

		t.Logf("\tTest 1:\tWhen the cashout is processed twice.")
		{
			for i := 0; i < 2; i++ {
				if _, err := h.sch.Process(cashoutAt); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to process cashouts: %v", failed, err)
				}
			}

			var authorRewards, updates int
			for _, r := range h.em.Records() {
				switch r.Op.Kind() {
				case operation.KindAuthorReward:
					authorRewards++
				case operation.KindCommentPayoutUpdate:
					updates++
				}
			}
			if authorRewards != 1 || updates != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould emit one payout, got %d rewards %d updates.", failed, authorRewards, updates)
			}
			t.Logf("\t%s\tTest 1:\tShould emit one payout.", success)

			post, err := h.db.PostByKey(author, "once")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould keep the post: %v", failed, err)
			}
			if h.db.Cashouts.Has(post.ID) || !post.CashoutTime.Equal(database.Never) {
				t.Fatalf("\t%s\tTest 1:\tShould remove the cashout.", failed)
			}
			if h.db.Votes.Len() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould remove the votes, got %d.", failed, h.db.Votes.Len())
			}
			t.Logf("\t%s\tTest 1:\tShould remove the cashout and votes.", success)
		}

		t.Logf("\tTest 2:\tWhen voting on a paid post.")
		{
			op := operation.Vote{Voter: curator2, Author: author, Permlink: "once", Weight: 5000}
			if err := h.sch.Vote(op, cashoutAt); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 2:\tShould reject the vote, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the vote.", success)
		}
	}
}

func Test_Distribution(t *testing.T) {
	h := newHarness(t, 5000, 1000)

	h.post(t, "shared")

	opts := operation.CommentOptions{
		Author:               author,
		Permlink:             "shared",
		MaxAcceptedPayout:    cashout.DefaultMaxAcceptedPayout,
		PercentHBD:           operation.Percent100,
		AllowVotes:           true,
		AllowCurationRewards: true,
		Beneficiaries:        []database.Beneficiary{{Account: friend, WeightBP: 2500}},
	}
	if err := h.sch.CommentOptions(opts); err != nil {
		t.Fatalf("\t%s\tShould be able to set beneficiaries: %v", failed, err)
	}

	h.vote(t, curator1, "shared")

	t.Log("Given the need to split a payout between curators, beneficiaries, and the author.")
	{
		t.Logf("\tTest 0:\tWhen voting twice on the same post.")
		{
			op := operation.Vote{Voter: curator1, Author: author, Permlink: "shared", Weight: 100}
			if err := h.sch.Vote(op, start); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the second vote, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the second vote.", success)
		}

		t.Logf("\tTest 1:\tWhen deleting a post with positive votes.")
		{
			op := operation.DeleteComment{Author: author, Permlink: "shared"}
			if err := h.sch.DeleteComment(op); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the delete, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the delete.", success)
		}

		t.Logf("\tTest 2:\tWhen the post cashes out.")
		{
			cashoutAt := start.Add(genesis.Seconds(h.gen.Rewards.CashoutWindowSec))
			if _, err := h.sch.Process(cashoutAt); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to process cashouts: %v", failed, err)
			}

			exp := []operation.Kind{
				operation.KindCurationReward,
				operation.KindCommentBenefactorReward,
				operation.KindAuthorReward,
				operation.KindCommentReward,
				operation.KindCommentPayoutUpdate,
			}
			got := kinds(h.em.Records())
			if len(got) != len(exp) {
				t.Fatalf("\t%s\tTest 2:\tShould emit %v, got %v.", failed, exp, got)
			}
			for i := range exp {
				if got[i] != exp[i] {
					t.Fatalf("\t%s\tTest 2:\tShould emit %v, got %v.", failed, exp, got)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould emit the rewards in order.", success)

			cur, _ := h.db.Account(curator1)
			if cur.RewardVestingHive != 500 {
				t.Fatalf("\t%s\tTest 2:\tShould hold 500 units of curation as pending stake, got %d.", failed, cur.RewardVestingHive)
			}
			t.Logf("\t%s\tTest 2:\tShould hold curation as pending stake.", success)

			ben, _ := h.db.Account(friend)
			auth, _ := h.db.Account(author)
			ratio := h.gen.InitialVestingRatio
			if ben.VestingShares == 0 || auth.VestingShares <= ben.VestingShares {
				t.Fatalf("\t%s\tTest 2:\tShould pay the beneficiary a quarter, got %d and %d (ratio %d).", failed, ben.VestingShares, auth.VestingShares, ratio)
			}
			t.Logf("\t%s\tTest 2:\tShould pay the beneficiary before the author.", success)

			if got := h.db.Globals().RewardFund.RewardBalance; got != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould drain the fund, got %d.", failed, got)
			}
			if err := h.db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould keep the ledger balanced.", success)
		}
	}
}

func Test_VotingPower(t *testing.T) {
	regen := int64(5 * 24 * 60 * 60)

	acct := database.Account{VotingPower: 5000, LastVoteTime: start}

	type table struct {
		name    string
		elapsed time.Duration
		exp     int64
	}

	tt := []table{
		{"no time", 0, 5000},
		{"a fifth of the window", time.Duration(regen/5) * time.Second, 7000},
		{"the full window", time.Duration(regen) * time.Second, database.FullPower},
	}

	t.Log("Given the need to regenerate voting power.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				got := cashout.VotingPower(acct, start.Add(tst.elapsed), regen)
				if got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould have %d power, got %d.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould have %d power.", success, testID, tst.exp)
			}
		}
	}
}

func Test_NoPayout(t *testing.T) {
	type table struct {
		name  string
		setup func(t *testing.T, h harness)
	}

	tt := []table{
		{"a post without votes", func(t *testing.T, h harness) {}},
		{"a post with net negative rshares", func(t *testing.T, h harness) {
			h.voteWeight(t, curator1, "post", -operation.Percent100)
		}},
		{"a post that declines its payout", func(t *testing.T, h harness) {
			opts := operation.CommentOptions{
				Author:               author,
				Permlink:             "post",
				MaxAcceptedPayout:    asset.HBDs(0),
				PercentHBD:           operation.Percent100,
				AllowVotes:           true,
				AllowCurationRewards: true,
			}
			if err := h.sch.CommentOptions(opts); err != nil {
				t.Fatalf("\t%s\tShould be able to decline the payout: %v", failed, err)
			}
			h.vote(t, curator1, "post")
		}},
	}

	t.Log("Given the need to close posts that earn nothing.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
				{
					h := newHarness(t, 5000, 1000)
					h.post(t, "post")
					tst.setup(t, h)

					cashoutAt := start.Add(genesis.Seconds(h.gen.Rewards.CashoutWindowSec))
					n, err := h.sch.Process(cashoutAt)
					if err != nil || n != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould close the post, got %d: %v", failed, testID, n, err)
					}
					t.Logf("\t%s\tTest %d:\tShould close the post.", success, testID)

					got := kinds(h.em.Records())
					if len(got) != 1 || got[0] != operation.KindCommentPayoutUpdate {
						t.Fatalf("\t%s\tTest %d:\tShould emit only the payout update, got %v.", failed, testID, got)
					}
					t.Logf("\t%s\tTest %d:\tShould emit only the payout update.", success, testID)

					if got := h.db.Globals().RewardFund.RewardBalance; got != 1000 {
						t.Fatalf("\t%s\tTest %d:\tShould leave the fund untouched, got %d.", failed, testID, got)
					}
					acct, _ := h.db.Account(author)
					cur, _ := h.db.Account(curator1)
					if acct.VestingShares != 0 || acct.Balance != 1 || cur.RewardVestingHive != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould pay nobody.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould pay nobody.", success, testID)

					if err := h.db.Audit(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould keep the ledger balanced: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould keep the ledger balanced.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_DeferredAuthor(t *testing.T) {
	h := newHarness(t, 0, 1000)

	acct, _ := h.db.Account(author)
	acct.DeferRewards = true
	h.db.PutAccount(acct)

	h.post(t, "deferred")
	h.vote(t, curator1, "deferred")

	t.Log("Given the need to hold author rewards until they are claimed.")
	{
		t.Logf("\tTest 0:\tWhen an author defers rewards.")
		{
			cashoutAt := start.Add(genesis.Seconds(h.gen.Rewards.CashoutWindowSec))
			if _, err := h.sch.Process(cashoutAt); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to process cashouts: %v", failed, err)
			}

			var mustClaim bool
			for _, r := range h.em.Records() {
				if ar, ok := r.Op.Payload.(operation.AuthorReward); ok {
					mustClaim = ar.PayoutMustBeClaimed
				}
			}
			if !mustClaim {
				t.Fatalf("\t%s\tTest 0:\tShould mark the author reward as claimable.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould mark the author reward as claimable.", success)

			acct, _ := h.db.Account(author)
			if acct.VestingShares != 0 || acct.Balance != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould not move liquid or staked balances, got balance %d stake %d.", failed, acct.Balance, acct.VestingShares)
			}
			if got := acct.RewardHiveBalance + acct.RewardVestingHive; got != 1000 {
				t.Fatalf("\t%s\tTest 0:\tShould hold the payout as pending rewards, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould hold the payout as pending rewards.", success)

			g := h.db.Globals()
			if g.PendingRewardedVestingHive != acct.RewardVestingHive || g.PendingRewardedVestingShares != acct.RewardVestingBalance {
				t.Fatalf("\t%s\tTest 0:\tShould track the pending stake globally.", failed)
			}
			if err := h.db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced.", success)
		}
	}
}

func Test_Curation(t *testing.T) {
	t.Log("Given the need to split curation between every curator.")
	{
		t.Logf("\tTest 0:\tWhen two curators vote with different weights.")
		{
			h := newHarness(t, 5000, 1000)
			h.post(t, "split")
			h.vote(t, curator1, "split")
			h.voteWeight(t, curator2, "split", operation.Percent100/2)

			cashoutAt := start.Add(genesis.Seconds(h.gen.Rewards.CashoutWindowSec))
			if _, err := h.sch.Process(cashoutAt); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to process cashouts: %v", failed, err)
			}

			c1, _ := h.db.Account(curator1)
			c2, _ := h.db.Account(curator2)
			if c1.RewardVestingHive != 333 || c2.RewardVestingHive != 166 {
				t.Logf("\t%s\tTest 0:\tgot: %d %d", failed, c1.RewardVestingHive, c2.RewardVestingHive)
				t.Logf("\t%s\tTest 0:\texp: %d %d", failed, 333, 166)
				t.Fatalf("\t%s\tTest 0:\tShould split in proportion to the weights.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould split in proportion to the weights.", success)

			if got := h.db.Globals().RewardFund.RewardBalance; got != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the rounding remainder in the fund, got %d.", failed, got)
			}
			if err := h.db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced.", success)
		}

		t.Logf("\tTest 1:\tWhen a quadratic curve gives weights beyond 64 bits.")
		{
			h := newHarness(t, 5000, 1_000_000, func(gen *genesis.Genesis) {
				gen.Rewards.CurationCurve = rewards.CurveQuadratic
				gen.Stakes = map[string]uint64{string(curator1): 1_000_000_000, string(curator2): 1_000_000_000}
			})
			h.post(t, "whale")
			h.vote(t, curator1, "whale")
			h.vote(t, curator2, "whale")

			post, err := h.db.PostByKey(author, "whale")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould find the post: %v", failed, err)
			}
			co, _ := h.db.Cashouts.Get(post.ID)
			if co.TotalVoteWeight.Cmp(asset.WideFrom(math.MaxUint64)) <= 0 {
				t.Fatalf("\t%s\tTest 1:\tShould carry the total weight past 64 bits, got %s.", failed, co.TotalVoteWeight)
			}
			t.Logf("\t%s\tTest 1:\tShould carry the total weight past 64 bits.", success)

			cashoutAt := start.Add(genesis.Seconds(h.gen.Rewards.CashoutWindowSec))
			if _, err := h.sch.Process(cashoutAt); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to process cashouts: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to process cashouts.", success)

			c1, _ := h.db.Account(curator1)
			c2, _ := h.db.Account(curator2)
			total := c1.RewardVestingHive + c2.RewardVestingHive
			if c1.RewardVestingHive <= 0 || c2.RewardVestingHive <= c1.RewardVestingHive || total > 500_000 {
				t.Logf("\t%s\tTest 1:\tgot: %d %d", failed, c1.RewardVestingHive, c2.RewardVestingHive)
				t.Fatalf("\t%s\tTest 1:\tShould pay both curators within the curation share.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould pay both curators within the curation share.", success)

			if err := h.db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the ledger balanced.", success)
		}
	}
}
