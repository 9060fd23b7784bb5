// Package conversion handles the delayed conversions between the native and
// pegged tokens and the delayed withdrawals out of savings.
package conversion

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/feed"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
)

// Engine manages conversion and savings requests.
type Engine struct {
	db       *database.Database
	em       *oplog.Emitter
	interest *interest.Engine
	cfg      genesis.Conversion
	feedCfg  genesis.Feed
}

// New constructs a conversion engine.
func New(db *database.Database, em *oplog.Emitter, ie *interest.Engine, cfg genesis.Conversion, feedCfg genesis.Feed) *Engine {
	return &Engine{
		db:       db,
		em:       em,
		interest: ie,
		cfg:      cfg,
		feedCfg:  feedCfg,
	}
}

// Convert takes pegged tokens from the owner and converts them to native
// tokens at the median price once the conversion delay has passed.
func (e *Engine) Convert(op operation.Convert, now time.Time) error {
	owner, err := e.db.Account(op.Owner)
	if err != nil {
		return err
	}

	key := database.RequestKey{Owner: op.Owner, RequestID: op.RequestID}
	switch {
	case e.db.Converts.Has(key):
		return database.Validationf("conversion request %d of %s already exists", op.RequestID, op.Owner)
	case e.db.Globals().Feed.CurrentMedian.IsNull():
		return database.Validationf("cannot convert without a price feed")
	}

	if err := e.interest.AdjustBalance(&owner, -op.Amount.Amount, now); err != nil {
		return err
	}
	e.db.PutAccount(owner)

	e.db.Converts.Put(key, database.ConvertRequest{
		Owner:          op.Owner,
		RequestID:      op.RequestID,
		AmountIn:       op.Amount,
		ConversionDate: now.Add(genesis.Seconds(e.cfg.DelaySec)),
	})

	return nil
}

// CollateralizedConvert locks native tokens as collateral and pays pegged
// tokens for half of it right away, valued at the lowest recent price less
// the conversion fee. The rest of the collateral settles once the delay has
// passed.
func (e *Engine) CollateralizedConvert(op operation.CollateralizedConvert, now time.Time) error {
	owner, err := e.db.Account(op.Owner)
	if err != nil {
		return err
	}

	g := e.db.Globals()

	key := database.RequestKey{Owner: op.Owner, RequestID: op.RequestID}
	switch {
	case e.db.Collateral.Has(key):
		return database.Validationf("collateralized conversion request %d of %s already exists", op.RequestID, op.Owner)
	case g.Feed.CurrentMin.IsNull() || g.Feed.CurrentMedian.IsNull():
		return database.Validationf("cannot convert without a price feed")
	case g.HBDPrintRate == 0:
		return database.Validationf("pegged token printing is stopped")
	case owner.Balance < op.Amount.Amount:
		return database.Validationf("account %s has insufficient %s: %s < %s", op.Owner, asset.HIVE, asset.Hive(owner.Balance), op.Amount)
	}

	price := g.Feed.CurrentMin.ScaleBase(10000-e.cfg.CollateralFeeBP, 10000)
	hbd, err := price.Convert(asset.Hive(op.Amount.Amount / 2))
	if err != nil || hbd.Amount <= 0 {
		return database.Validationf("collateral %s is too small to convert", op.Amount)
	}

	g.CurrentHBDSupply += hbd.Amount
	if share := feed.PeggedShare(g); share > e.feedCfg.HBDStopBP {
		return database.Validationf("conversion would raise the pegged share to %d bp", share)
	}
	e.db.SetGlobals(g)

	owner.Balance -= op.Amount.Amount
	if err := e.interest.AdjustBalance(&owner, hbd.Amount, now); err != nil {
		return err
	}
	e.db.PutAccount(owner)

	e.db.Collateral.Put(key, database.CollateralizedConvertRequest{
		Owner:            op.Owner,
		RequestID:        op.RequestID,
		CollateralAmount: op.Amount,
		ConvertedAmount:  hbd,
		ConversionDate:   now.Add(genesis.Seconds(e.cfg.DelaySec)),
	})

	e.em.Emit(operation.CollateralizedConvertImmediateConversion{
		Owner:     op.Owner,
		RequestID: op.RequestID,
		HBDOut:    hbd,
	})

	return nil
}

// Process settles every conversion and savings withdrawal that is due.
func (e *Engine) Process(now time.Time) error {
	if err := e.processConverts(now); err != nil {
		return err
	}
	if err := e.processCollateral(now); err != nil {
		return err
	}
	return e.processSavings(now)
}

// processConverts pays native tokens for matured pegged token conversions.
func (e *Engine) processConverts(now time.Time) error {
	due := e.db.Converts.Select(func(r database.ConvertRequest) bool {
		return !r.ConversionDate.After(now)
	}, func(a, b database.ConvertRequest) int {
		return compareRequests(a.ConversionDate, b.ConversionDate, a.Owner, b.Owner, a.RequestID, b.RequestID)
	})

	for _, r := range due {
		g := e.db.Globals()

		out, err := g.Feed.CurrentMedian.Convert(r.AmountIn)
		if err != nil {
			return database.Invariantf("converting request %d of %s: %w", r.RequestID, r.Owner, err)
		}

		g.CurrentHBDSupply -= r.AmountIn.Amount
		g.CurrentSupply += out.Amount
		e.db.SetGlobals(g)

		owner, err := e.db.Account(r.Owner)
		if err != nil {
			return err
		}
		owner.Balance += out.Amount
		e.db.PutAccount(owner)

		e.db.Converts.Delete(database.RequestKey{Owner: r.Owner, RequestID: r.RequestID})

		e.em.Emit(operation.FillConvertRequest{
			Owner:     r.Owner,
			RequestID: r.RequestID,
			AmountIn:  r.AmountIn,
			AmountOut: out,
		})
	}

	return nil
}

// processCollateral burns the collateral backing the pegged tokens already
// paid, valued at the median price plus the fee, and returns the excess.
func (e *Engine) processCollateral(now time.Time) error {
	due := e.db.Collateral.Select(func(r database.CollateralizedConvertRequest) bool {
		return !r.ConversionDate.After(now)
	}, func(a, b database.CollateralizedConvertRequest) int {
		return compareRequests(a.ConversionDate, b.ConversionDate, a.Owner, b.Owner, a.RequestID, b.RequestID)
	})

	for _, r := range due {
		g := e.db.Globals()

		price := g.Feed.CurrentMedian.ScaleBase(10000-e.cfg.CollateralFeeBP, 10000)
		needed, err := price.Convert(r.ConvertedAmount)
		if err != nil {
			return database.Invariantf("settling collateral request %d of %s: %w", r.RequestID, r.Owner, err)
		}
		burned := min(needed.Amount, r.CollateralAmount.Amount)
		excess := r.CollateralAmount.Amount - burned

		g.CurrentSupply -= burned
		e.db.SetGlobals(g)

		owner, err := e.db.Account(r.Owner)
		if err != nil {
			return err
		}
		owner.Balance += excess
		e.db.PutAccount(owner)

		e.db.Collateral.Delete(database.RequestKey{Owner: r.Owner, RequestID: r.RequestID})

		e.em.Emit(operation.FillCollateralizedConvertRequest{
			Owner:            r.Owner,
			RequestID:        r.RequestID,
			AmountIn:         asset.Hive(burned),
			AmountOut:        r.ConvertedAmount,
			ExcessCollateral: asset.Hive(excess),
		})
	}

	return nil
}

func compareRequests(ta, tb time.Time, oa, ob database.AccountID, ia, ib uint32) int {
	if c := ta.Compare(tb); c != 0 {
		return c
	}
	switch {
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	}
	return 0
}
