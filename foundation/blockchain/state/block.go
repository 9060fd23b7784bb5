package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/rewards"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ardanlabs/rewardchain/foundation/metrics"
)

// ProduceBlock assembles the next block from the mempool, applies it, and
// writes it to storage. Empty blocks are produced too since inflation and
// the timers advance every block.
func (s *State) ProduceBlock(ctx context.Context, now time.Time) (storage.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return storage.Block{}, err
	}

	// Block time only moves forward, one second at a time at least.
	now = now.UTC().Truncate(time.Second)
	if floor := s.db.Now().Add(time.Second); now.Before(floor) {
		now = floor
	}

	num := s.latestBlock.Header.Number + 1
	trans := s.mempool.PickBest(int(s.genesis.TransPerBlock))

	s.evHandler("state: ProduceBlock: blk[%d]: started: candidates[%d]", num, len(trans))

	start := time.Now()
	included, records, err := s.execute(num, now, s.producerID, trans, false)
	if err != nil {
		metrics.BlocksDiscarded.Inc()
		return storage.Block{}, err
	}

	block, err := storage.NewBlock(s.producerID, s.latestBlock, now, included)
	if err != nil {
		s.db.Rollback()
		metrics.BlocksDiscarded.Inc()
		return storage.Block{}, err
	}

	s.evHandler("state: ProduceBlock: blk[%d]: write to storage", num)

	// The ledger changes stay undoable until the block and its operations
	// are both durable.
	if s.opstore != nil {
		if err := s.opstore.Write(records); err != nil {
			s.db.Rollback()
			metrics.BlocksDiscarded.Inc()
			return storage.Block{}, fmt.Errorf("storing operations: %w", err)
		}
	}
	if err := s.storage.Write(storage.NewBlockData(block)); err != nil {
		if s.opstore != nil {
			if err := s.opstore.TruncateFrom(num); err != nil {
				s.evHandler("state: ProduceBlock: blk[%d]: ERROR: removing operations: %s", num, err)
			}
		}
		s.db.Rollback()
		metrics.BlocksDiscarded.Inc()
		return storage.Block{}, fmt.Errorf("storing block: %w", err)
	}

	s.db.Commit()

	s.latestBlock = block

	for _, tx := range included {
		s.mempool.Delete(tx)
	}

	metrics.BlocksApplied.Inc()
	metrics.HeadBlock.Set(float64(num))
	metrics.BlockDuration.Observe(time.Since(start).Seconds())
	metrics.Mempool.Set(float64(s.mempool.Count()))
	for _, r := range records {
		metrics.Operations.WithLabelValues(r.Op.Kind().Name()).Inc()
	}

	s.evHandler("state: ProduceBlock: blk[%d]: completed: trans[%d]: ops[%d]", num, len(included), len(records))
	s.blockEvent(block, records)

	return block, nil
}

// =============================================================================

// execute applies one block to the database: inflation, every transaction in
// its own undo session, then the end of block timers and the supply audit.
// When strict is false failing transactions are dropped and removed from the
// mempool, otherwise they fail the block. Nothing is changed when an error
// is returned. On success the block session is left open and the caller
// must commit or roll it back.
func (s *State) execute(num uint64, now time.Time, producer database.AccountID, trans []storage.SignedTx, strict bool) ([]storage.SignedTx, []oplog.Record, error) {
	s.db.Begin()
	s.em.BeginBlock(num, now)
	s.blockProducer = producer

	g := s.db.Globals()
	g.HeadBlockNumber = num
	g.HeadBlockTime = now
	g.CurrentProducer = producer
	s.db.SetGlobals(g)

	if _, err := rewards.Inflate(s.db, s.em, producer); err != nil {
		s.db.Rollback()
		return nil, nil, fmt.Errorf("inflation: %w", err)
	}

	included := make([]storage.SignedTx, 0, len(trans))
	for _, tx := range trans {
		trxInBlock := uint32(len(included))

		s.db.Begin()
		s.em.BeginTx(trxInBlock, tx.ID())

		if err := s.applyTx(tx, now); err != nil {
			s.db.Rollback()
			s.em.RollbackTx()

			if strict {
				s.db.Rollback()
				return nil, nil, fmt.Errorf("tx[%s]: %w", tx, err)
			}

			s.evHandler("state: execute: blk[%d]: tx[%s]: dropped: %s", num, tx, err)
			s.mempool.Delete(tx)
			metrics.TransactionsRejected.Inc()
			continue
		}

		s.db.Commit()
		s.em.EndTx()
		included = append(included, tx)
	}

	if err := s.endOfBlock(num, now); err != nil {
		s.db.Rollback()
		return nil, nil, err
	}

	if s.genesis.ValidateInvariants {
		if err := s.db.Audit(); err != nil {
			s.evHandler("state: execute: blk[%d]: ERROR: audit: %s", num, err)
			s.db.Rollback()
			return nil, nil, err
		}
	}

	return included, s.em.Records(), nil
}

// endOfBlock runs every timer due at the block time.
func (s *State) endOfBlock(num uint64, now time.Time) error {
	s.eng.feed.Update(now)

	paid, err := s.eng.cashout.Process(now)
	if err != nil {
		return fmt.Errorf("cashouts: %w", err)
	}
	metrics.Cashouts.Add(float64(paid))

	if err := s.eng.vesting.ProcessWithdrawals(now); err != nil {
		return fmt.Errorf("stake withdrawals: %w", err)
	}
	if err := s.eng.vesting.ProcessReturns(now); err != nil {
		return fmt.Errorf("delegation returns: %w", err)
	}
	if err := s.eng.recurrent.Process(now); err != nil {
		return fmt.Errorf("recurrent transfers: %w", err)
	}
	if err := s.eng.conversion.Process(now); err != nil {
		return fmt.Errorf("conversions: %w", err)
	}

	s.eng.subsidy.Advance(num)

	return nil
}

// applyTx checks the transaction against the ledger and applies its
// operations in order.
func (s *State) applyTx(tx storage.SignedTx, now time.Time) error {
	from, err := tx.Validate(s.genesis.ChainID)
	if err != nil {
		return err
	}

	account, err := s.db.Account(from)
	if err != nil {
		return err
	}

	if tx.Nonce <= account.Nonce {
		return database.Validationf("nonce %d is not greater than the last nonce %d of %s", tx.Nonce, account.Nonce, from)
	}
	account.Nonce = tx.Nonce
	s.db.PutAccount(account)

	for i, op := range tx.Operations {
		if err := s.applyOp(op, now); err != nil {
			return fmt.Errorf("operation %d %s: %w", i, op.Kind(), err)
		}
	}

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block storage.Block, records []oplog.Record) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	recordsJSON, err := json.Marshal(records)
	if err != nil {
		recordsJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%d,"ops":%s}`, block.Hash(), string(blockHeaderJSON), len(block.Trans), string(recordsJSON))
}
