// Package rewards maintains the reward fund content is paid from: the reward
// curves that turn vote shares into claims, the decay of recent claims, and
// the per block inflation that feeds the fund.
package rewards

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
)

// Set of reward curves.
const (
	CurveLinear           = genesis.CurveLinear
	CurveQuadratic        = genesis.CurveQuadratic
	CurveConvergentLinear = genesis.CurveConvergentLinear
	CurveSquareRoot       = genesis.CurveSquareRoot
)

// ValidateCurve checks the curve name is known.
func ValidateCurve(curve string) error {
	return genesis.ValidateCurve(curve)
}

// Evaluate applies the curve to the rshares. The content constant s shapes
// the quadratic and convergent curves:
//
//	linear:            r
//	quadratic:         (r + s)^2 - s^2
//	convergent_linear: ((r + s)^2 - s^2) / (r + 4s)
//	square_root:       sqrt(r)
//
// All arithmetic is 256 bit and every division rounds down.
func Evaluate(curve string, rshares asset.Wide, contentConstant uint64) asset.Wide {
	s := asset.WideFrom(contentConstant)

	switch curve {
	case CurveQuadratic:
		return quadratic(rshares, s)

	case CurveConvergentLinear:
		d := rshares.Add(s.Mul(asset.WideFrom(4)))
		if d.IsZero() {
			return asset.Wide{}
		}
		return quadratic(rshares, s).Div(d)

	case CurveSquareRoot:
		return rshares.Sqrt()
	}

	return rshares
}

// quadratic returns (r + s)^2 - s^2 = r * (r + 2s).
func quadratic(r asset.Wide, s asset.Wide) asset.Wide {
	return r.Mul(r.Add(s).Add(s))
}

// =============================================================================

// Decay reduces the fund's recent claims linearly with the time elapsed since
// the last update, reaching zero after decaySec.
func Decay(fund database.RewardFund, now time.Time, decaySec int64) database.RewardFund {
	dt := int64(now.Sub(fund.LastUpdate) / time.Second)
	if dt <= 0 {
		return fund
	}

	switch {
	case dt >= decaySec:
		fund.RecentClaims = asset.Wide{}
	default:
		drop := fund.RecentClaims.Mul(asset.WideFromInt(dt)).Div(asset.WideFromInt(decaySec))
		fund.RecentClaims = fund.RecentClaims.Sub(drop)
	}

	fund.LastUpdate = now
	return fund
}

// Payout returns the share of the reward balance the claims earn, rounding
// down: floor(balance * claims / recentClaims). Claims must already be
// included in recentClaims, which keeps the total of any set of payouts at or
// below the balance.
func Payout(balance int64, claims asset.Wide, recentClaims asset.Wide) int64 {
	if balance <= 0 || claims.IsZero() || recentClaims.IsZero() {
		return 0
	}

	p := asset.WideFromInt(balance).Mul(claims).Div(recentClaims).Int64()
	return min(p, balance)
}

// CurationWeight returns the weight a vote earns: the growth of the curation
// curve between the rshares before and after the vote.
func CurationWeight(curve string, before asset.Wide, after asset.Wide, contentConstant uint64) asset.Wide {
	b := Evaluate(curve, before, contentConstant)
	a := Evaluate(curve, after, contentConstant)
	if a.Cmp(b) <= 0 {
		return asset.Wide{}
	}

	return a.Sub(b)
}
