package database

import (
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account represents information stored in the database for an individual account.
type Account struct {
	AccountID AccountID `json:"account"`
	Created   time.Time `json:"created"`
	Nonce     uint64    `json:"nonce"`

	Balance           int64         `json:"balance"`             // Liquid native units.
	HBDBalance        int64         `json:"hbd_balance"`         // Liquid pegged units.
	SavingsBalance    int64         `json:"savings_balance"`     // Native units in savings.
	SavingsHBDBalance int64         `json:"savings_hbd_balance"` // Pegged units in savings.
	HBDInterest       InterestState `json:"hbd_interest"`
	SavingsInterest   InterestState `json:"savings_interest"`

	RewardHiveBalance    int64 `json:"reward_hive_balance"`
	RewardHBDBalance     int64 `json:"reward_hbd_balance"`
	RewardVestingBalance int64 `json:"reward_vesting_balance"`
	RewardVestingHive    int64 `json:"reward_vesting_hive"`
	DeferRewards         bool  `json:"defer_rewards"` // Author and beneficiary rewards wait for a claim.

	VestingShares          int64           `json:"vesting_shares"`
	DelegatedVestingShares int64           `json:"delegated_vesting_shares"`
	ReceivedVestingShares  int64           `json:"received_vesting_shares"`
	VestingWithdrawRate    int64           `json:"vesting_withdraw_rate"`
	ToWithdraw             int64           `json:"to_withdraw"`
	Withdrawn              int64           `json:"withdrawn"`
	NextVestingWithdrawal  time.Time       `json:"next_vesting_withdrawal"`
	RemainingWithdrawals   uint8           `json:"remaining_withdrawals"`
	WithdrawRoutes         []WithdrawRoute `json:"withdraw_routes"`

	VotingPower  int64     `json:"voting_power"` // Basis points of a full vote.
	LastVoteTime time.Time `json:"last_vote_time"`

	PendingClaimedAccounts  int64 `json:"pending_claimed_accounts"`
	SavingsWithdrawRequests int   `json:"savings_withdraw_requests"`
	OpenRecurrentTransfers  int   `json:"open_recurrent_transfers"`
}

// WithdrawRoute sends a share of every stake withdrawal to another account.
type WithdrawRoute struct {
	To        AccountID `json:"to"`
	PercentBP uint16    `json:"percent_bp"`
	AutoVest  bool      `json:"auto_vest"`
}

// InterestState carries the lazily accrued interest bookkeeping for one
// pegged token balance.
type InterestState struct {
	Seconds     asset.Wide `json:"seconds"` // Sum of balance * seconds since the last payment.
	LastUpdate  time.Time  `json:"last_update"`
	LastPayment time.Time  `json:"last_payment"`
}

// VestingState is the stake related view of an account.
type VestingState struct {
	Account              AccountID       `json:"account"`
	VestingShares        asset.Amount    `json:"vesting_shares"`
	DelegatedOut         asset.Amount    `json:"delegated_out"`
	ReceivedDelegation   asset.Amount    `json:"received_delegation"`
	WithdrawRate         asset.Amount    `json:"withdraw_rate"`
	NextWithdrawal       time.Time       `json:"next_withdrawal"`
	RemainingWithdrawals uint8           `json:"remaining_withdrawals"`
	WithdrawRoutes       []WithdrawRoute `json:"withdraw_routes"`
}

// newAccount constructs a new account value for use.
func newAccount(accountID AccountID, created time.Time) Account {
	return Account{
		AccountID:             accountID,
		Created:               created,
		VotingPower:           FullPower,
		NextVestingWithdrawal: Never,
	}
}

// FullPower is the voting power of a fully regenerated account.
const FullPower = 10000

// IsWithdrawing reports whether a stake withdrawal schedule is active.
func (a Account) IsWithdrawing() bool {
	return a.RemainingWithdrawals > 0 && !a.NextVestingWithdrawal.Equal(Never)
}

// EffectiveVestingShares returns the stake that carries voting weight.
func (a Account) EffectiveVestingShares() int64 {
	return a.VestingShares - a.DelegatedVestingShares + a.ReceivedVestingShares
}

// AvailableVestingShares returns the stake that can still be delegated or
// scheduled for withdrawal.
func (a Account) AvailableVestingShares() int64 {
	pending := a.ToWithdraw - a.Withdrawn
	if pending < 0 {
		pending = 0
	}
	return a.VestingShares - a.DelegatedVestingShares - pending
}

// Vesting returns the stake view of the account.
func (a Account) Vesting() VestingState {
	routes := make([]WithdrawRoute, len(a.WithdrawRoutes))
	copy(routes, a.WithdrawRoutes)

	return VestingState{
		Account:              a.AccountID,
		VestingShares:        asset.Vests(a.VestingShares),
		DelegatedOut:         asset.Vests(a.DelegatedVestingShares),
		ReceivedDelegation:   asset.Vests(a.ReceivedVestingShares),
		WithdrawRate:         asset.Vests(a.VestingWithdrawRate),
		NextWithdrawal:       a.NextVestingWithdrawal,
		RemainingWithdrawals: a.RemainingWithdrawals,
		WithdrawRoutes:       routes,
	}
}

func cloneAccount(a Account) Account {
	if a.WithdrawRoutes != nil {
		routes := make([]WithdrawRoute, len(a.WithdrawRoutes))
		copy(routes, a.WithdrawRoutes)
		a.WithdrawRoutes = routes
	}
	return a
}

// =============================================================================

// AccountID represents an account id that is used to sign transactions and is
// associated with operations on the blockchain.
type AccountID string

// ToAccountID converts a hex-encoded string to an account and validates the
// hex-encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).String())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	const addressLength = 20

	if has0xPrefix(a) {
		a = a[2:]
	}

	return len(a) == 2*addressLength && isHex(a)
}

// has0xPrefix validates the account starts with a 0x.
func has0xPrefix(a AccountID) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(a AccountID) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
