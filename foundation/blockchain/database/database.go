// Package database maintains the in memory ledger state: accounts, chain wide
// properties, posts, and every scheduled timer. Mutations happen inside undo
// sessions so a rejected transaction leaves no trace.
//
// The database is not safe for concurrent use. The state package serializes
// access so only the block application pass writes to it.
package database

import (
	"fmt"
	"sort"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
)

// session is implemented by every table so sessions can be driven uniformly.
type session interface {
	begin()
	commit()
	rollback()
	reset()
}

// Database manages the ledger state.
type Database struct {
	genesis     genesis.Genesis
	globals     Globals
	globalsUndo []Globals

	Accounts      *Table[AccountID, Account]
	Posts         *Table[uint64, Post]
	Permlinks     *Table[PostKey, uint64]
	Cashouts      *Table[uint64, Cashout]
	Votes         *Table[VoteKey, Vote]
	Delegations   *Table[DelegationKey, Delegation]
	Returns       *Table[uint64, DelegationReturn]
	Recurrent     *Table[RecurrentKey, RecurrentTransfer]
	Converts      *Table[RequestKey, ConvertRequest]
	Collateral    *Table[RequestKey, CollateralizedConvertRequest]
	Savings       *Table[RequestKey, SavingsWithdraw]
	Feeds         *Table[AccountID, FeedSubmission]
	ProducerPools *Table[AccountID, SubsidyPool]

	tables []session
}

// New constructs a new database and applies the genesis information.
func New(gen genesis.Genesis) (*Database, error) {
	db := Database{
		genesis:       gen,
		Accounts:      NewTable[AccountID, Account](cloneAccount),
		Posts:         NewTable[uint64, Post](nil),
		Permlinks:     NewTable[PostKey, uint64](nil),
		Cashouts:      NewTable[uint64, Cashout](cloneCashout),
		Votes:         NewTable[VoteKey, Vote](nil),
		Delegations:   NewTable[DelegationKey, Delegation](nil),
		Returns:       NewTable[uint64, DelegationReturn](nil),
		Recurrent:     NewTable[RecurrentKey, RecurrentTransfer](nil),
		Converts:      NewTable[RequestKey, ConvertRequest](nil),
		Collateral:    NewTable[RequestKey, CollateralizedConvertRequest](nil),
		Savings:       NewTable[RequestKey, SavingsWithdraw](nil),
		Feeds:         NewTable[AccountID, FeedSubmission](nil),
		ProducerPools: NewTable[AccountID, SubsidyPool](nil),
	}

	db.tables = []session{
		db.Accounts, db.Posts, db.Permlinks, db.Cashouts, db.Votes,
		db.Delegations, db.Returns, db.Recurrent, db.Converts,
		db.Collateral, db.Savings, db.Feeds, db.ProducerPools,
	}

	if err := db.applyGenesis(); err != nil {
		return nil, err
	}

	return &db, nil
}

// Reset re-initalizes the database back to the genesis state.
func (db *Database) Reset() error {
	for _, t := range db.tables {
		t.reset()
	}
	db.globalsUndo = nil

	return db.applyGenesis()
}

// Genesis returns the genesis the database was built from.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// =============================================================================

// Begin opens a new undo session. Sessions nest.
func (db *Database) Begin() {
	db.globalsUndo = append(db.globalsUndo, cloneGlobals(db.globals))
	for _, t := range db.tables {
		t.begin()
	}
}

// Commit keeps the changes of the innermost session.
func (db *Database) Commit() {
	if n := len(db.globalsUndo); n > 0 {
		db.globalsUndo = db.globalsUndo[:n-1]
	}
	for _, t := range db.tables {
		t.commit()
	}
}

// Rollback discards the changes of the innermost session.
func (db *Database) Rollback() {
	if n := len(db.globalsUndo); n > 0 {
		db.globals = db.globalsUndo[n-1]
		db.globalsUndo = db.globalsUndo[:n-1]
	}
	for _, t := range db.tables {
		t.rollback()
	}
}

// =============================================================================

// Globals returns a copy of the chain wide properties.
func (db *Database) Globals() Globals {
	return cloneGlobals(db.globals)
}

// SetGlobals replaces the chain wide properties.
func (db *Database) SetGlobals(g Globals) {
	db.globals = g
}

// Now returns the head block time.
func (db *Database) Now() time.Time {
	return db.globals.HeadBlockTime
}

// Account returns the account or a ValidationError if it does not exist.
func (db *Database) Account(accountID AccountID) (Account, error) {
	account, exists := db.Accounts.Get(accountID)
	if !exists {
		return Account{}, Validationf("account %s does not exist", accountID)
	}
	return account, nil
}

// PutAccount stores the account.
func (db *Database) PutAccount(account Account) {
	db.Accounts.Put(account.AccountID, account)
}

// CreateAccount adds a new empty account.
func (db *Database) CreateAccount(accountID AccountID, created time.Time) (Account, error) {
	if db.Accounts.Has(accountID) {
		return Account{}, Validationf("account %s already exists", accountID)
	}

	account := newAccount(accountID, created)
	db.PutAccount(account)

	return account, nil
}

// CopyAccounts makes a copy of the current accounts in the database.
func (db *Database) CopyAccounts() map[AccountID]Account {
	accounts := make(map[AccountID]Account, db.Accounts.Len())
	for id, account := range db.Accounts.rows {
		accounts[id] = cloneAccount(account)
	}
	return accounts
}

// PostByKey returns the post with the author and permlink.
func (db *Database) PostByKey(author AccountID, permlink string) (Post, error) {
	id, exists := db.Permlinks.Get(PostKey{Author: author, Permlink: permlink})
	if !exists {
		return Post{}, Validationf("post %s/%s does not exist", author, permlink)
	}

	post, exists := db.Posts.Get(id)
	if !exists {
		return Post{}, Invariantf("permlink %s/%s points to missing post %d", author, permlink, id)
	}

	return post, nil
}

// =============================================================================

// applyGenesis loads the starting balances and parameters.
func (db *Database) applyGenesis() error {
	gen := db.genesis

	db.globals = Globals{
		HeadBlockTime:   gen.Date,
		HBDInterestRate: gen.Interest.RateBP,
		HBDPrintRate:    10000,
		RewardFund: RewardFund{
			Name:             "post",
			LastUpdate:       gen.Date,
			AuthorCurve:      gen.Rewards.AuthorCurve,
			CurationCurve:    gen.Rewards.CurationCurve,
			ContentConstant:  gen.Rewards.ContentConstant,
			CuratorPercentBP: gen.Rewards.CuratorPercentBP,
		},
		AccountSubsidy: SubsidyPool{},
	}

	// Producers always exist so they can receive block rewards.
	ids := make([]string, 0, len(gen.Balances)+len(gen.Stakes)+len(gen.Producers))
	ids = append(ids, gen.Producers...)
	for id := range gen.Balances {
		ids = append(ids, id)
	}
	for id := range gen.Stakes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, accountStr := range ids {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return fmt.Errorf("genesis account %q: %w", accountStr, err)
		}
		if db.Accounts.Has(accountID) {
			continue
		}

		account := newAccount(accountID, gen.Date)
		account.Balance = int64(gen.Balances[accountStr])

		if stake := int64(gen.Stakes[accountStr]); stake > 0 {
			vests := stake * gen.InitialVestingRatio
			account.VestingShares = vests
			db.globals.TotalVestingFundHive += stake
			db.globals.TotalVestingShares += vests
			db.globals.CurrentSupply += stake
		}

		db.globals.CurrentSupply += account.Balance
		db.Accounts.Put(accountID, account)
	}

	for _, producer := range gen.Producers {
		db.ProducerPools.Put(AccountID(producer), SubsidyPool{})
	}

	return nil
}

// =============================================================================

// Audit verifies the supply invariants: every native unit and every pegged
// unit in existence is accounted for exactly once.
func (db *Database) Audit() error {
	g := db.globals

	var hive, hbd, vests, rewardVests, rewardVestsHive int64
	for id, a := range db.Accounts.rows {
		for _, v := range []int64{a.Balance, a.HBDBalance, a.SavingsBalance, a.SavingsHBDBalance, a.RewardHiveBalance, a.RewardHBDBalance, a.RewardVestingBalance, a.VestingShares, a.DelegatedVestingShares, a.ReceivedVestingShares} {
			if v < 0 {
				return Invariantf("account %s has a negative balance", id)
			}
		}

		hive += a.Balance + a.SavingsBalance + a.RewardHiveBalance
		hbd += a.HBDBalance + a.SavingsHBDBalance + a.RewardHBDBalance
		vests += a.VestingShares
		rewardVests += a.RewardVestingBalance
		rewardVestsHive += a.RewardVestingHive
	}

	for _, r := range db.Converts.rows {
		hbd += r.AmountIn.Amount
	}
	for _, r := range db.Collateral.rows {
		hive += r.CollateralAmount.Amount
	}
	for _, r := range db.Savings.rows {
		switch r.Amount.Symbol {
		case asset.HIVE:
			hive += r.Amount.Amount
		case asset.HBD:
			hbd += r.Amount.Amount
		}
	}

	hive += g.TotalVestingFundHive + g.PendingRewardedVestingHive + g.RewardFund.RewardBalance

	switch {
	case g.RewardFund.RewardBalance < 0:
		return Invariantf("reward fund balance is negative: %d", g.RewardFund.RewardBalance)
	case hive != g.CurrentSupply:
		return Invariantf("native supply mismatch: accounted %d, supply %d", hive, g.CurrentSupply)
	case hbd != g.CurrentHBDSupply:
		return Invariantf("pegged supply mismatch: accounted %d, supply %d", hbd, g.CurrentHBDSupply)
	case vests != g.TotalVestingShares:
		return Invariantf("stake mismatch: accounted %d, total %d", vests, g.TotalVestingShares)
	case rewardVests != g.PendingRewardedVestingShares:
		return Invariantf("pending stake mismatch: accounted %d, total %d", rewardVests, g.PendingRewardedVestingShares)
	case rewardVestsHive != g.PendingRewardedVestingHive:
		return Invariantf("pending stake backing mismatch: accounted %d, total %d", rewardVestsHive, g.PendingRewardedVestingHive)
	}

	return nil
}
