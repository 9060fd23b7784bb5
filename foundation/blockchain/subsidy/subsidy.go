// Package subsidy implements the decaying pools that limit how many
// subsidized account creations the chain allows per unit of time, globally
// and per producer.
package subsidy

import (
	"math"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/holiman/uint256"
)

// Decay advances a pool by the number of blocks:
//
//	pool = pool - min(pool, (pool * blocks * decay) >> shift) + budget * blocks
//
// clamped to [0, cap]. The result depends only on the current value and the
// number of blocks.
func Decay(p genesis.Pool, pool int64, blocks uint64) int64 {
	if blocks == 0 {
		return clamp(p, pool)
	}
	if pool < 0 {
		pool = 0
	}

	d := new(uint256.Int).Mul(uint256.NewInt(uint64(pool)), uint256.NewInt(blocks))
	d.Mul(d, uint256.NewInt(p.DecayPerBlock))
	d.Rsh(d, p.Shift)

	decay := pool
	if d.IsUint64() && d.Uint64() < uint64(pool) {
		decay = int64(d.Uint64())
	}
	pool -= decay

	budget := new(uint256.Int).Mul(uint256.NewInt(uint64(max(p.BudgetPerBlock, 0))), uint256.NewInt(blocks))
	switch {
	case !budget.IsUint64() || budget.Uint64() > math.MaxInt64-uint64(pool):
		pool = math.MaxInt64
	default:
		pool += int64(budget.Uint64())
	}

	return clamp(p, pool)
}

// Equilibrium returns the smallest pool value a single decay step leaves
// unchanged, the point where decay equals budget. It reports false when the
// pool has no equilibrium below its cap.
func Equilibrium(p genesis.Pool) (int64, bool) {
	if p.DecayPerBlock == 0 || p.BudgetPerBlock <= 0 {
		return 0, false
	}

	// Smallest E with (E * decay) >> shift == budget.
	n := new(uint256.Int).Lsh(uint256.NewInt(uint64(p.BudgetPerBlock)), p.Shift)
	d := uint256.NewInt(p.DecayPerBlock)

	e, rem := new(uint256.Int).DivMod(n, d, new(uint256.Int))
	if !rem.IsZero() {
		e.AddUint64(e, 1)
	}

	if !e.IsUint64() || e.Uint64() > uint64(p.Cap) {
		return 0, false
	}

	eq := int64(e.Uint64())
	if Decay(p, eq, 1) != eq {
		return 0, false
	}

	return eq, true
}

func clamp(p genesis.Pool, pool int64) int64 {
	switch {
	case pool < 0:
		return 0
	case p.Cap > 0 && pool > p.Cap:
		return p.Cap
	}
	return pool
}

// =============================================================================

// Limiter enforces the global and per producer subsidy pools.
type Limiter struct {
	db  *database.Database
	cfg genesis.Subsidy
}

// New constructs a limiter over the database pools.
func New(db *database.Database, cfg genesis.Subsidy) *Limiter {
	return &Limiter{
		db:  db,
		cfg: cfg,
	}
}

// Advance decays the global pool up to the block. It runs once per block in
// the end of block pass.
func (l *Limiter) Advance(block uint64) {
	g := l.db.Globals()

	if block > g.AccountSubsidy.LastDecay {
		g.AccountSubsidy.Pool = Decay(l.cfg.Global, g.AccountSubsidy.Pool, block-g.AccountSubsidy.LastDecay)
		g.AccountSubsidy.LastDecay = block
	}

	l.db.SetGlobals(g)
}

// Global returns the global pool.
func (l *Limiter) Global() database.SubsidyPool {
	return l.db.Globals().AccountSubsidy
}

// Producer returns the producer's pool decayed up to the block. Producer pools
// are only written when they are consumed.
func (l *Limiter) Producer(producer database.AccountID, block uint64) (database.SubsidyPool, error) {
	pool, exists := l.db.ProducerPools.Get(producer)
	if !exists {
		return database.SubsidyPool{}, database.Validationf("account %s is not a producer", producer)
	}

	if block > pool.LastDecay {
		pool.Pool = Decay(l.cfg.Producer, pool.Pool, block-pool.LastDecay)
		pool.LastDecay = block
	}

	return pool, nil
}

// Producers returns every producer pool decayed up to the block.
func (l *Limiter) Producers(block uint64) map[database.AccountID]database.SubsidyPool {
	out := make(map[database.AccountID]database.SubsidyPool)
	for _, p := range l.db.Genesis().Producers {
		if pool, err := l.Producer(database.AccountID(p), block); err == nil {
			out[database.AccountID(p)] = pool
		}
	}
	return out
}

// Consume takes one subsidized action out of the global pool and the
// producer's pool. It fails without changing either pool when one of them
// cannot cover it.
func (l *Limiter) Consume(producer database.AccountID, block uint64) error {
	pool, err := l.Producer(producer, block)
	if err != nil {
		return err
	}

	g := l.db.Globals()

	switch {
	case g.AccountSubsidy.Pool < l.cfg.Precision:
		return database.Validationf("global account subsidy pool is exhausted: %d < %d", g.AccountSubsidy.Pool, l.cfg.Precision)
	case pool.Pool < l.cfg.Precision:
		return database.Validationf("producer %s account subsidy pool is exhausted: %d < %d", producer, pool.Pool, l.cfg.Precision)
	}

	g.AccountSubsidy.Pool -= l.cfg.Precision
	pool.Pool -= l.cfg.Precision

	l.db.SetGlobals(g)
	l.db.ProducerPools.Put(producer, pool)

	return nil
}
