package rewards

import (
	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
)

// Issuance is the new supply created by one block and where it went.
type Issuance struct {
	Total    int64
	Content  int64
	Vesting  int64
	Producer int64
}

// BlockIssuance returns the new supply for a block given the current supply:
// supply * rate / (10000 * blocksPerYear), at least one unit.
func BlockIssuance(gen genesis.Genesis, supply int64) Issuance {
	perYear := gen.BlocksPerYear()

	total := int64(1)
	if supply > 0 && gen.Inflation.RateBP > 0 && perYear > 0 {
		n := asset.WideFromInt(supply).Mul(asset.WideFromInt(gen.Inflation.RateBP))
		total = max(n.Div(asset.WideFromInt(10000*perYear)).Int64(), 1)
	}

	content := asset.MustMulDiv(total, gen.Inflation.ContentRewardBP, 10000)
	vesting := asset.MustMulDiv(total, gen.Inflation.VestingRewardBP, 10000)

	return Issuance{
		Total:    total,
		Content:  content,
		Vesting:  vesting,
		Producer: total - content - vesting,
	}
}

// Inflate mints the block's new supply. The content share goes to the reward
// fund, the vesting share raises the stake price, and the producer's share is
// paid as stake.
func Inflate(db *database.Database, em *oplog.Emitter, producer database.AccountID) (Issuance, error) {
	gen := db.Genesis()
	g := db.Globals()

	iss := BlockIssuance(gen, g.CurrentSupply)

	account, err := db.Account(producer)
	if err != nil {
		return Issuance{}, err
	}

	g.CurrentSupply += iss.Total
	g.RewardFund.RewardBalance += iss.Content
	g.TotalVestingFundHive += iss.Vesting

	vests := g.CreateVests(iss.Producer, gen.InitialVestingRatio)
	account.VestingShares += vests

	db.SetGlobals(g)
	db.PutAccount(account)

	em.Emit(operation.ProducerReward{
		Producer:      producer,
		VestingShares: asset.Vests(vests),
	})

	return iss, nil
}
