package state

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
)

// applyOp records the operation and applies it. Virtual operations it causes
// are recorded after it.
func (s *State) applyOp(op operation.Operation, now time.Time) error {
	if _, err := op.Real(); err != nil {
		return database.Validationf("%w", err)
	}

	s.em.Emit(op.Payload)

	switch p := op.Payload.(type) {
	case operation.Vote:
		return s.eng.cashout.Vote(p, now)

	case operation.Comment:
		return s.eng.cashout.Comment(p, now)

	case operation.CommentOptions:
		return s.eng.cashout.CommentOptions(p)

	case operation.DeleteComment:
		return s.eng.cashout.DeleteComment(p)

	case operation.Transfer:
		return s.transfer(p, now)

	case operation.TransferToVesting:
		_, err := s.eng.vesting.TransferToVesting(p)
		return err

	case operation.WithdrawVesting:
		return s.eng.vesting.Withdraw(p, now)

	case operation.SetWithdrawVestingRoute:
		return s.eng.vesting.SetRoute(p)

	case operation.DelegateVestingShares:
		return s.eng.vesting.Delegate(p, now)

	case operation.ClaimRewardBalance:
		return s.eng.vesting.Claim(p, now)

	case operation.FeedPublish:
		return s.eng.feed.Publish(p.Publisher, p.ExchangeRate, now)

	case operation.Convert:
		return s.eng.conversion.Convert(p, now)

	case operation.CollateralizedConvert:
		return s.eng.conversion.CollateralizedConvert(p, now)

	case operation.TransferToSavings:
		return s.eng.conversion.ToSavings(p, now)

	case operation.TransferFromSavings:
		return s.eng.conversion.FromSavings(p, now)

	case operation.CancelTransferFromSavings:
		return s.eng.conversion.CancelFromSavings(p, now)

	case operation.RecurrentTransfer:
		return s.eng.recurrent.Set(p, now)

	case operation.AccountCreate:
		return s.accountCreate(p, now)

	case operation.ClaimAccount:
		return s.claimAccount(p)

	case operation.CreateClaimedAccount:
		return s.createClaimedAccount(p, now)

	case operation.AccountUpdate:
		return s.accountUpdate(p)
	}

	return database.Validationf("operation %s is not supported", op.Kind())
}

// =============================================================================

// transfer moves liquid tokens between two existing accounts.
func (s *State) transfer(op operation.Transfer, now time.Time) error {
	if op.From == op.To {
		return database.Validationf("cannot transfer to yourself")
	}

	from, err := s.db.Account(op.From)
	if err != nil {
		return err
	}
	to, err := s.db.Account(op.To)
	if err != nil {
		return err
	}

	switch op.Amount.Symbol {
	case asset.HIVE:
		if from.Balance < op.Amount.Amount {
			return database.Validationf("account %s has insufficient %s: %s < %s", op.From, asset.HIVE, asset.Hive(from.Balance), op.Amount)
		}
		from.Balance -= op.Amount.Amount
		to.Balance += op.Amount.Amount

	case asset.HBD:
		if err := s.eng.interest.AdjustBalance(&from, -op.Amount.Amount, now); err != nil {
			return err
		}
		if err := s.eng.interest.AdjustBalance(&to, op.Amount.Amount, now); err != nil {
			return err
		}

	default:
		return database.Validationf("cannot transfer %s", op.Amount.Symbol)
	}

	s.db.PutAccount(from)
	s.db.PutAccount(to)

	return nil
}

// accountCreate creates an account paid for with the creation fee. The fee
// becomes the new account's stake.
func (s *State) accountCreate(op operation.AccountCreate, now time.Time) error {
	fee := s.genesis.AccountCreationFee
	if op.Fee.Amount != fee {
		return database.Validationf("account creation fee must be %s, got %s", asset.Hive(fee), op.Fee)
	}

	creator, err := s.db.Account(op.Creator)
	if err != nil {
		return err
	}
	if creator.Balance < fee {
		return database.Validationf("account %s has insufficient %s: %s < %s", op.Creator, asset.HIVE, asset.Hive(creator.Balance), op.Fee)
	}
	creator.Balance -= fee
	s.db.PutAccount(creator)

	if _, err := s.db.CreateAccount(op.NewAccount, now); err != nil {
		return err
	}

	vests, err := s.eng.vesting.Stake(op.NewAccount, fee)
	if err != nil {
		return err
	}

	s.em.Emit(operation.AccountCreated{
		NewAccount:           op.NewAccount,
		Creator:              op.Creator,
		InitialVestingShares: asset.Vests(vests),
	})

	return nil
}

// claimAccount reserves an account creation. A zero fee is paid for by the
// subsidy pools of the chain and of the block producer, otherwise the
// creation fee is burned.
func (s *State) claimAccount(op operation.ClaimAccount) error {
	creator, err := s.db.Account(op.Creator)
	if err != nil {
		return err
	}

	switch {
	case op.Fee.IsZero():
		if err := s.eng.subsidy.Consume(s.blockProducer, s.db.Globals().HeadBlockNumber); err != nil {
			return err
		}

	default:
		fee := s.genesis.AccountCreationFee
		if op.Fee.Amount != fee {
			return database.Validationf("account claim fee must be %s or zero, got %s", asset.Hive(fee), op.Fee)
		}
		if creator.Balance < fee {
			return database.Validationf("account %s has insufficient %s: %s < %s", op.Creator, asset.HIVE, asset.Hive(creator.Balance), op.Fee)
		}
		creator.Balance -= fee

		g := s.db.Globals()
		g.CurrentSupply -= fee
		s.db.SetGlobals(g)
	}

	creator.PendingClaimedAccounts++
	s.db.PutAccount(creator)

	return nil
}

// createClaimedAccount spends a claimed account creation.
func (s *State) createClaimedAccount(op operation.CreateClaimedAccount, now time.Time) error {
	creator, err := s.db.Account(op.Creator)
	if err != nil {
		return err
	}
	if creator.PendingClaimedAccounts == 0 {
		return database.Validationf("account %s has no claimed accounts", op.Creator)
	}
	creator.PendingClaimedAccounts--
	s.db.PutAccount(creator)

	if _, err := s.db.CreateAccount(op.NewAccount, now); err != nil {
		return err
	}

	s.em.Emit(operation.AccountCreated{
		NewAccount:           op.NewAccount,
		Creator:              op.Creator,
		InitialVestingShares: asset.Vests(0),
	})

	return nil
}

// accountUpdate changes the account settings.
func (s *State) accountUpdate(op operation.AccountUpdate) error {
	account, err := s.db.Account(op.Account)
	if err != nil {
		return err
	}

	account.DeferRewards = op.DeferRewards
	s.db.PutAccount(account)

	return nil
}
