package rewards_test

import (
	"math"
	"testing"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/rewards"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const producer = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")

func Test_Curves(t *testing.T) {
	type table struct {
		name    string
		curve   string
		rshares uint64
		s       uint64
		exp     uint64
	}

	tt := []table{
		{"linear", rewards.CurveLinear, 1000, 5, 1000},
		{"quadratic without constant", rewards.CurveQuadratic, 10, 0, 100},
		{"quadratic", rewards.CurveQuadratic, 10, 5, 200},
		{"convergent linear", rewards.CurveConvergentLinear, 10, 5, 6},
		{"convergent linear at zero", rewards.CurveConvergentLinear, 0, 0, 0},
		{"square root", rewards.CurveSquareRoot, 17, 0, 4},
	}

	t.Log("Given the need to evaluate reward curves.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s curve.", testID, tst.name)
			{
				if err := rewards.ValidateCurve(tst.curve); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept the curve: %v", failed, testID, err)
				}

				got := rewards.Evaluate(tst.curve, asset.WideFrom(tst.rshares), tst.s)
				if got.Cmp(asset.WideFrom(tst.exp)) != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould evaluate to %d, got %s.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould evaluate to %d.", success, testID, tst.exp)
			}
		}

		t.Logf("\tTest %d:\tWhen handling an unknown curve.", len(tt))
		{
			if err := rewards.ValidateCurve("cubic"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the curve.", failed, len(tt))
			}
			t.Logf("\t%s\tTest %d:\tShould reject the curve.", success, len(tt))
		}
	}
}

func Test_Decay(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	type table struct {
		name    string
		elapsed time.Duration
		exp     uint64
	}

	tt := []table{
		{"no time", 0, 1000},
		{"a quarter", 25 * time.Second, 750},
		{"the full window", 100 * time.Second, 0},
		{"past the window", time.Hour, 0},
	}

	t.Log("Given the need to decay recent claims.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				fund := database.RewardFund{
					RecentClaims: asset.WideFrom(1000),
					LastUpdate:   start,
				}

				got := rewards.Decay(fund, start.Add(tst.elapsed), 100)
				if got.RecentClaims.Cmp(asset.WideFrom(tst.exp)) != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould leave %d claims, got %s.", failed, testID, tst.exp, got.RecentClaims)
				}
				t.Logf("\t%s\tTest %d:\tShould leave %d claims.", success, testID, tst.exp)
			}
		}
	}
}

func Test_Payout(t *testing.T) {
	t.Log("Given the need to pay claims from the reward balance.")
	{
		t.Logf("\tTest 0:\tWhen two equal claims share an odd balance.")
		{
			claims := asset.WideFrom(50)
			recent := claims.Add(claims)

			a := rewards.Payout(3, claims, recent)
			b := rewards.Payout(3-a, claims, recent)

			if a != 1 || b != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould pay 1 each, got %d and %d.", failed, a, b)
			}
			t.Logf("\t%s\tTest 0:\tShould pay 1 each and leave 1 in the fund.", success)
		}

		t.Logf("\tTest 1:\tWhen there are no claims.")
		{
			if got := rewards.Payout(1000, asset.Wide{}, asset.Wide{}); got != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould pay nothing, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould pay nothing.", success)
		}

		t.Logf("\tTest 2:\tWhen the claim is the only one.")
		{
			claims := asset.WideFrom(1 << 60).Mul(asset.WideFrom(1 << 60))
			if got := rewards.Payout(1000, claims, claims); got != 1000 {
				t.Fatalf("\t%s\tTest 2:\tShould pay the full balance, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould pay the full balance.", success)
		}
	}
}

func Test_CurationWeight(t *testing.T) {
	t.Log("Given the need to weigh curation votes.")
	{
		t.Logf("\tTest 0:\tWhen a vote adds rshares.")
		{
			got := rewards.CurationWeight(rewards.CurveLinear, asset.WideFrom(10), asset.WideFrom(30), 0)
			if got.Cmp(asset.WideFrom(20)) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould weigh 20, got %s.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould weigh the curve growth.", success)
		}

		t.Logf("\tTest 1:\tWhen a vote removes rshares.")
		{
			got := rewards.CurationWeight(rewards.CurveLinear, asset.WideFrom(30), asset.WideFrom(10), 0)
			if !got.IsZero() {
				t.Fatalf("\t%s\tTest 1:\tShould weigh 0, got %s.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould weigh nothing.", success)
		}

		t.Logf("\tTest 2:\tWhen a quadratic weight exceeds 64 bits.")
		{
			const vests = 1_000_000_000_000
			first := rewards.CurationWeight(rewards.CurveQuadratic, asset.Wide{}, asset.WideFrom(vests), 2_000_000_000_000)
			second := rewards.CurationWeight(rewards.CurveQuadratic, asset.WideFrom(vests), asset.WideFrom(2*vests), 2_000_000_000_000)

			limit := asset.WideFrom(math.MaxUint64)
			if first.Cmp(limit) <= 0 || second.Cmp(limit) <= 0 {
				t.Fatalf("\t%s\tTest 2:\tShould keep the full weight, got %s and %s.", failed, first, second)
			}
			t.Logf("\t%s\tTest 2:\tShould keep the full weight.", success)

			total := first.Add(second)
			share := asset.WideFromInt(1_000_000).Mul(second).Div(total).Int64()
			if share <= 0 || share >= 1_000_000 {
				t.Fatalf("\t%s\tTest 2:\tShould split the pool by weight, got %d.", failed, share)
			}
			t.Logf("\t%s\tTest 2:\tShould split the pool by weight.", success)
		}
	}
}

func Test_Inflation(t *testing.T) {
	gen := genesis.Default()
	gen.Producers = []string{string(producer)}
	gen.Balances = map[string]uint64{string(producer): 1_000_000_000_000}

	t.Log("Given the need to mint new supply every block.")
	{
		t.Logf("\tTest 0:\tWhen splitting the block issuance.")
		{
			iss := rewards.BlockIssuance(gen, 1_000_000_000_000)
			exp := rewards.Issuance{Total: 7610, Content: 4946, Vesting: 1141, Producer: 1523}
			if iss != exp {
				t.Fatalf("\t%s\tTest 0:\tShould issue %+v, got %+v.", failed, exp, iss)
			}
			t.Logf("\t%s\tTest 0:\tShould issue %+v.", success, exp)

			if got := rewards.BlockIssuance(gen, 0).Total; got != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould issue at least one unit, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould issue at least one unit.", success)
		}

		t.Logf("\tTest 1:\tWhen minting into the ledger.")
		{
			db, err := database.New(gen)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to open database: %v", failed, err)
			}

			em := oplog.New()
			em.BeginBlock(1, gen.Date)

			before := db.Globals().CurrentSupply
			iss, err := rewards.Inflate(db, em, producer)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to inflate: %v", failed, err)
			}

			g := db.Globals()
			if g.CurrentSupply != before+iss.Total || g.RewardFund.RewardBalance != iss.Content {
				t.Fatalf("\t%s\tTest 1:\tShould grow the supply and the reward fund, got %d and %d.", failed, g.CurrentSupply, g.RewardFund.RewardBalance)
			}
			t.Logf("\t%s\tTest 1:\tShould grow the supply and the reward fund.", success)

			if err := db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the ledger balanced.", success)

			recs := em.Records()
			if len(recs) != 1 || recs[0].Op.Kind() != operation.KindProducerReward {
				t.Fatalf("\t%s\tTest 1:\tShould emit one producer reward, got %d records.", failed, len(recs))
			}
			t.Logf("\t%s\tTest 1:\tShould emit one producer reward.", success)
		}
	}
}
