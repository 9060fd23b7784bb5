// Package recurrent schedules transfers that repeat at a fixed interval
// until their executions run out or they fail too many times in a row.
package recurrent

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
)

// Scheduler manages recurrent transfers.
type Scheduler struct {
	db       *database.Database
	em       *oplog.Emitter
	interest *interest.Engine
	cfg      genesis.Recurrent
}

// New constructs a recurrent transfer scheduler.
func New(db *database.Database, em *oplog.Emitter, ie *interest.Engine, cfg genesis.Recurrent) *Scheduler {
	return &Scheduler{
		db:       db,
		em:       em,
		interest: ie,
		cfg:      cfg,
	}
}

// Set creates, updates, or with a zero amount removes the recurrent transfer
// between two accounts. A new transfer executes for the first time at the
// end of the current block. An update keeps the schedule unless the
// recurrence changes.
func (s *Scheduler) Set(op operation.RecurrentTransfer, now time.Time) error {
	from, err := s.db.Account(op.From)
	if err != nil {
		return err
	}
	if _, err := s.db.Account(op.To); err != nil {
		return err
	}

	key := database.RecurrentKey{From: op.From, To: op.To}
	rt, exists := s.db.Recurrent.Get(key)

	if op.Amount.Amount == 0 {
		if !exists {
			return database.Validationf("no recurrent transfer from %s to %s", op.From, op.To)
		}
		s.db.Recurrent.Delete(key)
		from.OpenRecurrentTransfers--
		s.db.PutAccount(from)
		return nil
	}

	switch {
	case op.Recurrence < s.cfg.MinRecurrenceHours:
		return database.Validationf("recurrence of %d hours is below the minimum of %d", op.Recurrence, s.cfg.MinRecurrenceHours)
	case op.Executions < 2:
		return database.Validationf("a recurrent transfer needs at least 2 executions")
	case op.Executions > s.cfg.MaxExecutions:
		return database.Validationf("executions %d exceed the maximum of %d", op.Executions, s.cfg.MaxExecutions)
	case balanceOf(from, op.Amount.Symbol) < op.Amount.Amount:
		return database.Validationf("account %s has insufficient %s for the first transfer", op.From, op.Amount.Symbol)
	}

	if !exists {
		if from.OpenRecurrentTransfers >= s.cfg.MaxOpenPerAccount {
			return database.Validationf("account %s already has %d recurrent transfers", op.From, from.OpenRecurrentTransfers)
		}
		from.OpenRecurrentTransfers++
		s.db.PutAccount(from)

		g := s.db.Globals()
		g.NextRecurrentID++
		s.db.SetGlobals(g)

		rt = database.RecurrentTransfer{
			ID:            g.NextRecurrentID,
			From:          op.From,
			To:            op.To,
			NextExecution: now,
		}
	}

	if exists && rt.RecurrenceHours != op.Recurrence {
		rt.NextExecution = now.Add(hours(op.Recurrence))
	}

	rt.Amount = op.Amount
	rt.Memo = op.Memo
	rt.RecurrenceHours = op.Recurrence
	rt.ExecutionsRemaining = op.Executions

	s.db.Recurrent.Put(key, rt)

	return nil
}

// Process executes every recurrent transfer that is due, in order of
// execution time and then id. Every attempt uses up one execution whether
// it succeeds or fails, so a transfer ends after at most its executions.
func (s *Scheduler) Process(now time.Time) error {
	due := s.db.Recurrent.Select(func(rt database.RecurrentTransfer) bool {
		return !rt.NextExecution.After(now)
	}, func(a, b database.RecurrentTransfer) int {
		if c := a.NextExecution.Compare(b.NextExecution); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	for _, rt := range due {
		if err := s.execute(rt, now); err != nil {
			return err
		}
	}

	return nil
}

// execute performs one scheduled transfer.
func (s *Scheduler) execute(rt database.RecurrentTransfer, now time.Time) error {
	key := database.RecurrentKey{From: rt.From, To: rt.To}

	ok, err := s.transfer(rt, now)
	if err != nil {
		return err
	}

	rt.ExecutionsRemaining--
	rt.NextExecution = rt.NextExecution.Add(hours(rt.RecurrenceHours))

	switch {
	case ok:
		rt.ConsecutiveFailures = 0

		s.em.Emit(operation.FillRecurrentTransfer{
			From:                rt.From,
			To:                  rt.To,
			Amount:              rt.Amount,
			Memo:                rt.Memo,
			RemainingExecutions: rt.ExecutionsRemaining,
		})

	default:
		rt.ConsecutiveFailures++

		aborted := rt.ConsecutiveFailures >= s.cfg.FailureLimit
		deleted := aborted || rt.ExecutionsRemaining == 0

		s.em.Emit(operation.FailedRecurrentTransfer{
			From:                rt.From,
			To:                  rt.To,
			Amount:              rt.Amount,
			Memo:                rt.Memo,
			ConsecutiveFailures: rt.ConsecutiveFailures,
			RemainingExecutions: rt.ExecutionsRemaining,
			Deleted:             deleted,
		})

		if aborted {
			s.em.Emit(operation.AbortedRecurrentTransfer{
				From:                rt.From,
				To:                  rt.To,
				Amount:              rt.Amount,
				Memo:                rt.Memo,
				ConsecutiveFailures: rt.ConsecutiveFailures,
			})
		}

		// A failed last execution ends the transfer with the failure alone.
		if deleted {
			return s.remove(key)
		}
	}

	if rt.ExecutionsRemaining == 0 {
		s.em.Emit(operation.CompletedRecurrentTransfer{
			From:   rt.From,
			To:     rt.To,
			Amount: rt.Amount,
			Memo:   rt.Memo,
		})
		return s.remove(key)
	}

	s.db.Recurrent.Put(key, rt)

	return nil
}

// transfer moves the funds if the sender can cover them. A sender without
// the funds is a missed execution, not an error.
func (s *Scheduler) transfer(rt database.RecurrentTransfer, now time.Time) (bool, error) {
	from, err := s.db.Account(rt.From)
	if err != nil {
		return false, err
	}
	if balanceOf(from, rt.Amount.Symbol) < rt.Amount.Amount {
		return false, nil
	}

	switch rt.Amount.Symbol {
	case asset.HBD:
		if err := s.interest.AdjustBalance(&from, -rt.Amount.Amount, now); err != nil {
			return false, err
		}
	default:
		from.Balance -= rt.Amount.Amount
	}
	s.db.PutAccount(from)

	to, err := s.db.Account(rt.To)
	if err != nil {
		return false, err
	}

	switch rt.Amount.Symbol {
	case asset.HBD:
		if err := s.interest.AdjustBalance(&to, rt.Amount.Amount, now); err != nil {
			return false, err
		}
	default:
		to.Balance += rt.Amount.Amount
	}
	s.db.PutAccount(to)

	return true, nil
}

// remove deletes the transfer and releases the sender's open slot.
func (s *Scheduler) remove(key database.RecurrentKey) error {
	s.db.Recurrent.Delete(key)

	from, err := s.db.Account(key.From)
	if err != nil {
		return err
	}
	from.OpenRecurrentTransfers--
	s.db.PutAccount(from)

	return nil
}

// Transfers returns the open recurrent transfers sent by the account.
func (s *Scheduler) Transfers(from database.AccountID) []database.RecurrentTransfer {
	return s.db.Recurrent.Select(func(rt database.RecurrentTransfer) bool {
		return rt.From == from
	}, func(a, b database.RecurrentTransfer) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

func balanceOf(account database.Account, symbol asset.Symbol) int64 {
	if symbol == asset.HBD {
		return account.HBDBalance
	}
	return account.Balance
}

func hours(h uint16) time.Duration {
	return time.Duration(h) * time.Hour
}
