package database

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
)

// Never is the sentinel time used for timers that are not scheduled, such as
// a paid cashout or an idle withdrawal schedule.
var Never = time.Unix(1<<32-1, 0).UTC()

// =============================================================================

// Post is a piece of content that can earn rewards. The post outlives its
// cashout record.
type Post struct {
	ID                     uint64    `json:"id"`
	Author                 AccountID `json:"author"`
	Permlink               string    `json:"permlink"`
	ParentAuthor           AccountID `json:"parent_author"`
	ParentPermlink         string    `json:"parent_permlink"`
	Depth                  uint16    `json:"depth"`
	Children               uint32    `json:"children"`
	Created                time.Time `json:"created"`
	CashoutTime            time.Time `json:"cashout_time"`
	LastPayout             time.Time `json:"last_payout"`
	NetVotes               int32     `json:"net_votes"`
	TotalPayoutValue       int64     `json:"total_payout_value"`       // Pegged value paid to the author.
	CuratorPayoutValue     int64     `json:"curator_payout_value"`     // Pegged value paid to curators.
	BeneficiaryPayoutValue int64     `json:"beneficiary_payout_value"` // Pegged value paid to beneficiaries.
	AuthorRewards          int64     `json:"author_rewards"`           // Native units awarded to the author side.
}

// PostKey is the author/permlink pair that uniquely names a post.
type PostKey struct {
	Author   AccountID
	Permlink string
}

// Beneficiary receives a share of a post's author rewards.
type Beneficiary struct {
	Account  AccountID `json:"account"`
	WeightBP uint16    `json:"weight_bp"`
}

// Cashout is the pending payout state of a post. It exists from post creation
// until the post is paid or deleted.
type Cashout struct {
	PostID               uint64        `json:"post_id"`
	NetRshares           asset.Rshares `json:"net_rshares"`
	AbsRshares           asset.Wide    `json:"abs_rshares"`
	VoteRshares          asset.Wide    `json:"vote_rshares"` // Positive rshares used by the curation curve.
	CashoutTime          time.Time     `json:"cashout_time"`
	TotalVoteWeight      asset.Wide    `json:"total_vote_weight"`
	Beneficiaries        []Beneficiary `json:"beneficiaries"`
	MaxAcceptedPayout    asset.Amount  `json:"max_accepted_payout"`
	PercentHBD           uint16        `json:"percent_hbd"`
	AllowVotes           bool          `json:"allow_votes"`
	AllowCurationRewards bool          `json:"allow_curation_rewards"`
}

func cloneCashout(c Cashout) Cashout {
	if c.Beneficiaries != nil {
		b := make([]Beneficiary, len(c.Beneficiaries))
		copy(b, c.Beneficiaries)
		c.Beneficiaries = b
	}
	return c
}

// VoteKey identifies a single vote.
type VoteKey struct {
	PostID uint64
	Voter  AccountID
}

// Vote is a voter's contribution to a post that has not cashed out.
type Vote struct {
	PostID     uint64     `json:"post_id"`
	Voter      AccountID  `json:"voter"`
	Rshares    int64      `json:"rshares"`
	Weight     asset.Wide `json:"weight"` // Curation weight.
	PercentBP  int16      `json:"percent_bp"`
	LastUpdate time.Time  `json:"last_update"`
	Sequence   uint64     `json:"sequence"`
}

// =============================================================================

// DelegationKey identifies a delegation between two accounts.
type DelegationKey struct {
	Delegator AccountID
	Delegatee AccountID
}

// Delegation is stake lent from one account to another.
type Delegation struct {
	Delegator     AccountID `json:"delegator"`
	Delegatee     AccountID `json:"delegatee"`
	VestingShares int64     `json:"vesting_shares"`
	Created       time.Time `json:"created"`
}

// DelegationReturn holds stake removed from a delegation until the cooldown
// ends and it is returned to the delegator.
type DelegationReturn struct {
	ID            uint64    `json:"id"`
	Delegator     AccountID `json:"delegator"`
	Delegatee     AccountID `json:"delegatee"`
	VestingShares int64     `json:"vesting_shares"`
	ReturnTime    time.Time `json:"return_time"`
}

// =============================================================================

// RecurrentKey identifies a recurrent transfer between two accounts.
type RecurrentKey struct {
	From AccountID
	To   AccountID
}

// RecurrentTransfer moves funds on a fixed schedule.
type RecurrentTransfer struct {
	ID                  uint64       `json:"id"`
	From                AccountID    `json:"from"`
	To                  AccountID    `json:"to"`
	Amount              asset.Amount `json:"amount"`
	Memo                string       `json:"memo"`
	RecurrenceHours     uint16       `json:"recurrence_hours"`
	ExecutionsRemaining uint16       `json:"executions_remaining"`
	ConsecutiveFailures uint8        `json:"consecutive_failures"`
	NextExecution       time.Time    `json:"next_execution"`
}

// =============================================================================

// RequestKey identifies an owner's request by its numeric id.
type RequestKey struct {
	Owner     AccountID
	RequestID uint32
}

// ConvertRequest converts pegged tokens to native tokens at maturity.
type ConvertRequest struct {
	Owner          AccountID    `json:"owner"`
	RequestID      uint32       `json:"request_id"`
	AmountIn       asset.Amount `json:"amount_in"`
	ConversionDate time.Time    `json:"conversion_date"`
}

// CollateralizedConvertRequest holds native collateral backing pegged tokens
// already paid out until the conversion settles.
type CollateralizedConvertRequest struct {
	Owner            AccountID    `json:"owner"`
	RequestID        uint32       `json:"request_id"`
	CollateralAmount asset.Amount `json:"collateral_amount"`
	ConvertedAmount  asset.Amount `json:"converted_amount"`
	ConversionDate   time.Time    `json:"conversion_date"`
}

// SavingsWithdraw is a pending transfer out of savings.
type SavingsWithdraw struct {
	From      AccountID    `json:"from"`
	To        AccountID    `json:"to"`
	RequestID uint32       `json:"request_id"`
	Amount    asset.Amount `json:"amount"`
	Memo      string       `json:"memo"`
	Complete  time.Time    `json:"complete"`
}

// =============================================================================

// FeedSubmission is the last exchange rate published by a producer.
type FeedSubmission struct {
	Producer  AccountID   `json:"producer"`
	Rate      asset.Price `json:"rate"`
	Published time.Time   `json:"published"`
}

// FeedHistory is the aggregated price feed state.
type FeedHistory struct {
	CurrentMedian asset.Price   `json:"current_median_history"` // Stabilized median used for conversions and printing.
	MarketMedian  asset.Price   `json:"market_median_history"`  // Unclamped median of the history window.
	CurrentMin    asset.Price   `json:"current_min_history"`
	CurrentMax    asset.Price   `json:"current_max_history"`
	History       []asset.Price `json:"price_history"`
	LastUpdate    time.Time     `json:"last_update"`
}

// SubsidyPool is a decaying token bucket.
type SubsidyPool struct {
	Pool      int64  `json:"pool"`
	LastDecay uint64 `json:"last_decay"` // Block number of the last decay step.
}

// RewardFund is the pool content rewards are paid from.
type RewardFund struct {
	Name             string     `json:"name"`
	RewardBalance    int64      `json:"reward_balance"`
	RecentClaims     asset.Wide `json:"recent_claims"`
	LastUpdate       time.Time  `json:"last_update"`
	AuthorCurve      string     `json:"author_reward_curve"`
	CurationCurve    string     `json:"curation_reward_curve"`
	ContentConstant  uint64     `json:"content_constant"`
	CuratorPercentBP int64      `json:"percent_curation_rewards"`
}

// Globals holds the chain wide dynamic properties.
type Globals struct {
	HeadBlockNumber  uint64    `json:"head_block_number"`
	HeadBlockTime    time.Time `json:"time"`
	CurrentProducer  AccountID `json:"current_producer"`
	CurrentSupply    int64     `json:"current_supply"`
	CurrentHBDSupply int64     `json:"current_hbd_supply"`
	InitHBDSupply    int64     `json:"init_hbd_supply"`

	TotalVestingFundHive         int64 `json:"total_vesting_fund_hive"`
	TotalVestingShares           int64 `json:"total_vesting_shares"`
	PendingRewardedVestingShares int64 `json:"pending_rewarded_vesting_shares"`
	PendingRewardedVestingHive   int64 `json:"pending_rewarded_vesting_hive"`

	HBDInterestRate int64 `json:"hbd_interest_rate"`
	HBDPrintRate    int64 `json:"hbd_print_rate"`

	RewardFund     RewardFund  `json:"reward_fund"`
	Feed           FeedHistory `json:"feed"`
	AccountSubsidy SubsidyPool `json:"available_account_subsidies"`

	NextPostID      uint64 `json:"next_post_id"`
	NextReturnID    uint64 `json:"next_return_id"`
	NextRecurrentID uint64 `json:"next_recurrent_id"`
	NextVoteSeq     uint64 `json:"next_vote_seq"`
}

// VestingPrice returns the current stake price as shares/native tokens.
func (g Globals) VestingPrice(initialRatio int64) asset.Price {
	if g.TotalVestingFundHive == 0 || g.TotalVestingShares == 0 {
		return asset.NewPrice(asset.Vests(initialRatio), asset.Hive(1))
	}
	return asset.NewPrice(asset.Vests(g.TotalVestingShares), asset.Hive(g.TotalVestingFundHive))
}

// VirtualSupply returns the native supply plus the pegged supply valued at
// the current median feed.
func (g Globals) VirtualSupply() int64 {
	if g.Feed.CurrentMedian.IsNull() {
		return g.CurrentSupply
	}

	hive, err := g.Feed.CurrentMedian.Convert(asset.HBDs(g.CurrentHBDSupply))
	if err != nil {
		return g.CurrentSupply
	}
	return g.CurrentSupply + hive.Amount
}

// VestsFor returns the stake units the native amount buys at the current
// stake price, rounding down.
func (g Globals) VestsFor(hive int64, initialRatio int64) int64 {
	if g.TotalVestingFundHive == 0 || g.TotalVestingShares == 0 {
		return asset.MustMulDiv(hive, initialRatio, 1)
	}
	return asset.MustMulDiv(hive, g.TotalVestingShares, g.TotalVestingFundHive)
}

// HiveFor returns the native amount backing the stake units at the current
// stake price, rounding down.
func (g Globals) HiveFor(vests int64) int64 {
	if g.TotalVestingShares == 0 {
		return 0
	}
	return asset.MustMulDiv(vests, g.TotalVestingFundHive, g.TotalVestingShares)
}

// CreateVests adds native tokens to the vesting fund and returns the stake
// units created for them.
func (g *Globals) CreateVests(hive int64, initialRatio int64) int64 {
	vests := g.VestsFor(hive, initialRatio)
	g.TotalVestingFundHive += hive
	g.TotalVestingShares += vests
	return vests
}

// RemoveVests takes stake units out of the vesting fund and returns the
// native tokens released for them.
func (g *Globals) RemoveVests(vests int64) int64 {
	hive := g.HiveFor(vests)
	g.TotalVestingFundHive -= hive
	g.TotalVestingShares -= vests
	return hive
}

func cloneGlobals(g Globals) Globals {
	if g.Feed.History != nil {
		h := make([]asset.Price, len(g.Feed.History))
		copy(h, g.Feed.History)
		g.Feed.History = h
	}
	return g
}
