package operation

import (
	"unicode/utf8"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
)

// Limits checked before an operation reaches the ledger.
const (
	MaxPermlinkLength = 256
	MaxMemoLength     = 2048
	MaxBodyLength     = 64 * 1024
	Percent100        = 10000
)

// Vote casts a vote on a post. Weight is in basis points and
// negative weights flag the post.
type Vote struct {
	Voter    database.AccountID `json:"voter"`
	Author   database.AccountID `json:"author"`
	Permlink string             `json:"permlink"`
	Weight   int16              `json:"weight"`
}

func (Vote) Kind() Kind                       { return KindVote }
func (o Vote) Authority() database.AccountID  { return o.Voter }
func (o Vote) Impacted() []database.AccountID { return accounts(o.Voter, o.Author) }

// Validate implements the Real interface.
func (o Vote) Validate() error {
	if err := checkAccounts(o.Voter, o.Author); err != nil {
		return err
	}
	if err := checkPermlink(o.Permlink); err != nil {
		return err
	}
	if o.Weight < -Percent100 || o.Weight > Percent100 {
		return database.Validationf("vote weight %d out of range", o.Weight)
	}
	return nil
}

// Comment creates a post, or a reply when a parent is named.
type Comment struct {
	ParentAuthor   database.AccountID `json:"parent_author"`
	ParentPermlink string             `json:"parent_permlink"`
	Author         database.AccountID `json:"author"`
	Permlink       string             `json:"permlink"`
	Title          string             `json:"title"`
	Body           string             `json:"body"`
	JSONMetadata   string             `json:"json_metadata"`
}

func (Comment) Kind() Kind                       { return KindComment }
func (o Comment) Authority() database.AccountID  { return o.Author }
func (o Comment) Impacted() []database.AccountID { return accounts(o.Author, o.ParentAuthor) }

// Validate implements the Real interface.
func (o Comment) Validate() error {
	if err := checkAccounts(o.Author); err != nil {
		return err
	}
	if o.ParentAuthor != "" {
		if err := checkAccounts(o.ParentAuthor); err != nil {
			return err
		}
		if err := checkPermlink(o.ParentPermlink); err != nil {
			return err
		}
	}
	if err := checkPermlink(o.Permlink); err != nil {
		return err
	}
	if len(o.Body) > MaxBodyLength || !utf8.ValidString(o.Body) {
		return database.Validationf("comment body is invalid or too long")
	}
	return nil
}

// Transfer moves liquid tokens between accounts.
type Transfer struct {
	From   database.AccountID `json:"from"`
	To     database.AccountID `json:"to"`
	Amount asset.Amount       `json:"amount"`
	Memo   string             `json:"memo"`
}

func (Transfer) Kind() Kind                       { return KindTransfer }
func (o Transfer) Authority() database.AccountID  { return o.From }
func (o Transfer) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// Validate implements the Real interface.
func (o Transfer) Validate() error {
	if err := checkAccounts(o.From, o.To); err != nil {
		return err
	}
	if err := checkLiquid(o.Amount, false); err != nil {
		return err
	}
	return checkMemo(o.Memo)
}

// TransferToVesting converts liquid native tokens into stake. An empty To
// stakes for the sender.
type TransferToVesting struct {
	From   database.AccountID `json:"from"`
	To     database.AccountID `json:"to"`
	Amount asset.Amount       `json:"amount"`
}

func (TransferToVesting) Kind() Kind                       { return KindTransferToVesting }
func (o TransferToVesting) Authority() database.AccountID  { return o.From }
func (o TransferToVesting) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// Validate implements the Real interface.
func (o TransferToVesting) Validate() error {
	if err := checkAccounts(o.From); err != nil {
		return err
	}
	if o.To != "" {
		if err := checkAccounts(o.To); err != nil {
			return err
		}
	}
	return checkSymbol(o.Amount, asset.HIVE, false)
}

// WithdrawVesting starts a stake withdrawal schedule. Zero cancels it.
type WithdrawVesting struct {
	Account       database.AccountID `json:"account"`
	VestingShares asset.Amount       `json:"vesting_shares"`
}

func (WithdrawVesting) Kind() Kind                       { return KindWithdrawVesting }
func (o WithdrawVesting) Authority() database.AccountID  { return o.Account }
func (o WithdrawVesting) Impacted() []database.AccountID { return accounts(o.Account) }

// Validate implements the Real interface.
func (o WithdrawVesting) Validate() error {
	if err := checkAccounts(o.Account); err != nil {
		return err
	}
	return checkSymbol(o.VestingShares, asset.VESTS, true)
}

// FeedPublish submits a producer's exchange rate as pegged over native.
type FeedPublish struct {
	Publisher    database.AccountID `json:"publisher"`
	ExchangeRate asset.Price        `json:"exchange_rate"`
}

func (FeedPublish) Kind() Kind                       { return KindFeedPublish }
func (o FeedPublish) Authority() database.AccountID  { return o.Publisher }
func (o FeedPublish) Impacted() []database.AccountID { return accounts(o.Publisher) }

// Validate implements the Real interface.
func (o FeedPublish) Validate() error {
	if err := checkAccounts(o.Publisher); err != nil {
		return err
	}
	if err := o.ExchangeRate.Validate(); err != nil {
		return database.Validationf("exchange rate: %w", err)
	}
	if o.ExchangeRate.Base.Symbol != asset.HBD || o.ExchangeRate.Quote.Symbol != asset.HIVE {
		return database.Validationf("exchange rate must be %s/%s", asset.HBD, asset.HIVE)
	}
	return nil
}

// Convert turns pegged tokens into native tokens at the median price once the
// conversion delay passes.
type Convert struct {
	Owner     database.AccountID `json:"owner"`
	RequestID uint32             `json:"requestid"`
	Amount    asset.Amount       `json:"amount"`
}

func (Convert) Kind() Kind                       { return KindConvert }
func (o Convert) Authority() database.AccountID  { return o.Owner }
func (o Convert) Impacted() []database.AccountID { return accounts(o.Owner) }

// Validate implements the Real interface.
func (o Convert) Validate() error {
	if err := checkAccounts(o.Owner); err != nil {
		return err
	}
	return checkSymbol(o.Amount, asset.HBD, false)
}

// AccountCreate creates an account by paying the creation fee, which becomes
// the new account's initial stake.
type AccountCreate struct {
	Fee        asset.Amount       `json:"fee"`
	Creator    database.AccountID `json:"creator"`
	NewAccount database.AccountID `json:"new_account_name"`
}

func (AccountCreate) Kind() Kind                       { return KindAccountCreate }
func (o AccountCreate) Authority() database.AccountID  { return o.Creator }
func (o AccountCreate) Impacted() []database.AccountID { return accounts(o.NewAccount, o.Creator) }

// Validate implements the Real interface.
func (o AccountCreate) Validate() error {
	if err := checkAccounts(o.Creator, o.NewAccount); err != nil {
		return err
	}
	return checkSymbol(o.Fee, asset.HIVE, true)
}

// CommentOptions changes the payout terms of a post before it receives votes.
type CommentOptions struct {
	Author               database.AccountID     `json:"author"`
	Permlink             string                 `json:"permlink"`
	MaxAcceptedPayout    asset.Amount           `json:"max_accepted_payout"`
	PercentHBD           uint16                 `json:"percent_hbd"`
	AllowVotes           bool                   `json:"allow_votes"`
	AllowCurationRewards bool                   `json:"allow_curation_rewards"`
	Beneficiaries        []database.Beneficiary `json:"beneficiaries"`
}

func (CommentOptions) Kind() Kind                      { return KindCommentOptions }
func (o CommentOptions) Authority() database.AccountID { return o.Author }

// Impacted implements the Payload interface.
func (o CommentOptions) Impacted() []database.AccountID {
	ids := []database.AccountID{o.Author}
	for _, b := range o.Beneficiaries {
		ids = append(ids, b.Account)
	}
	return accounts(ids...)
}

// Validate implements the Real interface.
func (o CommentOptions) Validate() error {
	if err := checkAccounts(o.Author); err != nil {
		return err
	}
	if err := checkPermlink(o.Permlink); err != nil {
		return err
	}
	if err := checkSymbol(o.MaxAcceptedPayout, asset.HBD, true); err != nil {
		return err
	}
	if o.PercentHBD > Percent100 {
		return database.Validationf("percent hbd %d exceeds 100%%", o.PercentHBD)
	}

	var total int
	seen := make(map[database.AccountID]bool)
	for _, b := range o.Beneficiaries {
		if err := checkAccounts(b.Account); err != nil {
			return err
		}
		if seen[b.Account] {
			return database.Validationf("beneficiary %s is listed twice", b.Account)
		}
		if b.WeightBP == 0 {
			return database.Validationf("beneficiary %s has no weight", b.Account)
		}
		seen[b.Account] = true
		total += int(b.WeightBP)
	}
	if total > Percent100 {
		return database.Validationf("beneficiary weights sum to %d, more than 100%%", total)
	}

	return nil
}

// SetWithdrawVestingRoute routes a share of stake withdrawals to another
// account. A zero percent removes the route.
type SetWithdrawVestingRoute struct {
	FromAccount database.AccountID `json:"from_account"`
	ToAccount   database.AccountID `json:"to_account"`
	PercentBP   uint16             `json:"percent"`
	AutoVest    bool               `json:"auto_vest"`
}

func (SetWithdrawVestingRoute) Kind() Kind                      { return KindSetWithdrawVestingRoute }
func (o SetWithdrawVestingRoute) Authority() database.AccountID { return o.FromAccount }
func (o SetWithdrawVestingRoute) Impacted() []database.AccountID {
	return accounts(o.FromAccount, o.ToAccount)
}

// Validate implements the Real interface.
func (o SetWithdrawVestingRoute) Validate() error {
	if err := checkAccounts(o.FromAccount, o.ToAccount); err != nil {
		return err
	}
	if o.PercentBP > Percent100 {
		return database.Validationf("route percent %d exceeds 100%%", o.PercentBP)
	}
	return nil
}

// ClaimAccount reserves an account creation. A zero fee draws on the
// subsidy pools instead of burning the creation fee.
type ClaimAccount struct {
	Creator database.AccountID `json:"creator"`
	Fee     asset.Amount       `json:"fee"`
}

func (ClaimAccount) Kind() Kind                       { return KindClaimAccount }
func (o ClaimAccount) Authority() database.AccountID  { return o.Creator }
func (o ClaimAccount) Impacted() []database.AccountID { return accounts(o.Creator) }

// Validate implements the Real interface.
func (o ClaimAccount) Validate() error {
	if err := checkAccounts(o.Creator); err != nil {
		return err
	}
	return checkSymbol(o.Fee, asset.HIVE, true)
}

// CreateClaimedAccount spends a previously claimed account creation.
type CreateClaimedAccount struct {
	Creator    database.AccountID `json:"creator"`
	NewAccount database.AccountID `json:"new_account_name"`
}

func (CreateClaimedAccount) Kind() Kind                      { return KindCreateClaimedAccount }
func (o CreateClaimedAccount) Authority() database.AccountID { return o.Creator }
func (o CreateClaimedAccount) Impacted() []database.AccountID {
	return accounts(o.NewAccount, o.Creator)
}

// Validate implements the Real interface.
func (o CreateClaimedAccount) Validate() error {
	return checkAccounts(o.Creator, o.NewAccount)
}

// TransferToSavings moves liquid tokens into a savings balance.
type TransferToSavings struct {
	From   database.AccountID `json:"from"`
	To     database.AccountID `json:"to"`
	Amount asset.Amount       `json:"amount"`
	Memo   string             `json:"memo"`
}

func (TransferToSavings) Kind() Kind                       { return KindTransferToSavings }
func (o TransferToSavings) Authority() database.AccountID  { return o.From }
func (o TransferToSavings) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// Validate implements the Real interface.
func (o TransferToSavings) Validate() error {
	if err := checkAccounts(o.From, o.To); err != nil {
		return err
	}
	if err := checkLiquid(o.Amount, false); err != nil {
		return err
	}
	return checkMemo(o.Memo)
}

// TransferFromSavings starts a delayed withdrawal out of savings.
type TransferFromSavings struct {
	From      database.AccountID `json:"from"`
	RequestID uint32             `json:"request_id"`
	To        database.AccountID `json:"to"`
	Amount    asset.Amount       `json:"amount"`
	Memo      string             `json:"memo"`
}

func (TransferFromSavings) Kind() Kind                       { return KindTransferFromSavings }
func (o TransferFromSavings) Authority() database.AccountID  { return o.From }
func (o TransferFromSavings) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// Validate implements the Real interface.
func (o TransferFromSavings) Validate() error {
	if err := checkAccounts(o.From, o.To); err != nil {
		return err
	}
	if err := checkLiquid(o.Amount, false); err != nil {
		return err
	}
	return checkMemo(o.Memo)
}

// CancelTransferFromSavings returns a pending savings withdrawal to savings.
type CancelTransferFromSavings struct {
	From      database.AccountID `json:"from"`
	RequestID uint32             `json:"request_id"`
}

func (CancelTransferFromSavings) Kind() Kind                      { return KindCancelTransferFromSavings }
func (o CancelTransferFromSavings) Authority() database.AccountID { return o.From }
func (o CancelTransferFromSavings) Impacted() []database.AccountID {
	return accounts(o.From)
}

// Validate implements the Real interface.
func (o CancelTransferFromSavings) Validate() error {
	return checkAccounts(o.From)
}

// DeleteComment removes a post that has no replies and no positive votes.
type DeleteComment struct {
	Author   database.AccountID `json:"author"`
	Permlink string             `json:"permlink"`
}

func (DeleteComment) Kind() Kind                       { return KindDeleteComment }
func (o DeleteComment) Authority() database.AccountID  { return o.Author }
func (o DeleteComment) Impacted() []database.AccountID { return accounts(o.Author) }

// Validate implements the Real interface.
func (o DeleteComment) Validate() error {
	if err := checkAccounts(o.Author); err != nil {
		return err
	}
	return checkPermlink(o.Permlink)
}

// ClaimRewardBalance moves pending rewards into spendable balances.
type ClaimRewardBalance struct {
	Account     database.AccountID `json:"account"`
	RewardHive  asset.Amount       `json:"reward_hive"`
	RewardHBD   asset.Amount       `json:"reward_hbd"`
	RewardVests asset.Amount       `json:"reward_vests"`
}

func (ClaimRewardBalance) Kind() Kind                       { return KindClaimRewardBalance }
func (o ClaimRewardBalance) Authority() database.AccountID  { return o.Account }
func (o ClaimRewardBalance) Impacted() []database.AccountID { return accounts(o.Account) }

// Validate implements the Real interface.
func (o ClaimRewardBalance) Validate() error {
	if err := checkAccounts(o.Account); err != nil {
		return err
	}
	if err := checkSymbol(o.RewardHive, asset.HIVE, true); err != nil {
		return err
	}
	if err := checkSymbol(o.RewardHBD, asset.HBD, true); err != nil {
		return err
	}
	if err := checkSymbol(o.RewardVests, asset.VESTS, true); err != nil {
		return err
	}
	if o.RewardHive.IsZero() && o.RewardHBD.IsZero() && o.RewardVests.IsZero() {
		return database.Validationf("must claim something")
	}
	return nil
}

// DelegateVestingShares sets the stake delegated from one account to another.
// The amount is the new total, zero removes the delegation.
type DelegateVestingShares struct {
	Delegator     database.AccountID `json:"delegator"`
	Delegatee     database.AccountID `json:"delegatee"`
	VestingShares asset.Amount       `json:"vesting_shares"`
}

func (DelegateVestingShares) Kind() Kind                      { return KindDelegateVestingShares }
func (o DelegateVestingShares) Authority() database.AccountID { return o.Delegator }
func (o DelegateVestingShares) Impacted() []database.AccountID {
	return accounts(o.Delegator, o.Delegatee)
}

// Validate implements the Real interface.
func (o DelegateVestingShares) Validate() error {
	if err := checkAccounts(o.Delegator, o.Delegatee); err != nil {
		return err
	}
	if o.Delegator == o.Delegatee {
		return database.Validationf("cannot delegate to yourself")
	}
	return checkSymbol(o.VestingShares, asset.VESTS, true)
}

// CollateralizedConvert turns native collateral into pegged tokens right away
// and settles the conversion once the delay passes.
type CollateralizedConvert struct {
	Owner     database.AccountID `json:"owner"`
	RequestID uint32             `json:"requestid"`
	Amount    asset.Amount       `json:"amount"`
}

func (CollateralizedConvert) Kind() Kind                       { return KindCollateralizedConvert }
func (o CollateralizedConvert) Authority() database.AccountID  { return o.Owner }
func (o CollateralizedConvert) Impacted() []database.AccountID { return accounts(o.Owner) }

// Validate implements the Real interface.
func (o CollateralizedConvert) Validate() error {
	if err := checkAccounts(o.Owner); err != nil {
		return err
	}
	return checkSymbol(o.Amount, asset.HIVE, false)
}

// RecurrentTransfer creates, updates, or with a zero amount removes a
// transfer that repeats every Recurrence hours.
type RecurrentTransfer struct {
	From       database.AccountID `json:"from"`
	To         database.AccountID `json:"to"`
	Amount     asset.Amount       `json:"amount"`
	Memo       string             `json:"memo"`
	Recurrence uint16             `json:"recurrence"`
	Executions uint16             `json:"executions"`
}

func (RecurrentTransfer) Kind() Kind                       { return KindRecurrentTransfer }
func (o RecurrentTransfer) Authority() database.AccountID  { return o.From }
func (o RecurrentTransfer) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// Validate implements the Real interface.
func (o RecurrentTransfer) Validate() error {
	if err := checkAccounts(o.From, o.To); err != nil {
		return err
	}
	if o.From == o.To {
		return database.Validationf("cannot set up a recurrent transfer to yourself")
	}
	if err := checkLiquid(o.Amount, true); err != nil {
		return err
	}
	return checkMemo(o.Memo)
}

// AccountUpdate changes account settings.
type AccountUpdate struct {
	Account      database.AccountID `json:"account"`
	DeferRewards bool               `json:"defer_rewards"`
}

func (AccountUpdate) Kind() Kind                       { return KindAccountUpdate }
func (o AccountUpdate) Authority() database.AccountID  { return o.Account }
func (o AccountUpdate) Impacted() []database.AccountID { return accounts(o.Account) }

// Validate implements the Real interface.
func (o AccountUpdate) Validate() error {
	return checkAccounts(o.Account)
}

// =============================================================================

// accounts returns the non empty ids without duplicates, keeping order.
func accounts(ids ...database.AccountID) []database.AccountID {
	out := make([]database.AccountID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	return out
}

func checkAccounts(ids ...database.AccountID) error {
	for _, id := range ids {
		if !id.IsAccountID() {
			return database.Validationf("account %q is not properly formatted", id)
		}
	}
	return nil
}

func checkPermlink(permlink string) error {
	if permlink == "" || len(permlink) > MaxPermlinkLength || !utf8.ValidString(permlink) {
		return database.Validationf("permlink %q is invalid", permlink)
	}
	return nil
}

func checkMemo(memo string) error {
	if len(memo) > MaxMemoLength || !utf8.ValidString(memo) {
		return database.Validationf("memo is invalid or too long")
	}
	return nil
}

// checkSymbol verifies the amount uses the symbol and is positive, or non
// negative when zero is allowed.
func checkSymbol(a asset.Amount, symbol asset.Symbol, zeroOK bool) error {
	if a.Symbol != symbol {
		return database.Validationf("amount %s must be %s", a, symbol)
	}
	if a.Amount < 0 || (a.Amount == 0 && !zeroOK) {
		return database.Validationf("amount %s must be positive", a)
	}
	return nil
}

// checkLiquid verifies the amount is a positive liquid token amount.
func checkLiquid(a asset.Amount, zeroOK bool) error {
	if a.Symbol != asset.HIVE && a.Symbol != asset.HBD {
		return database.Validationf("amount %s must be %s or %s", a, asset.HIVE, asset.HBD)
	}
	if a.Amount < 0 || (a.Amount == 0 && !zeroOK) {
		return database.Validationf("amount %s must be positive", a)
	}
	return nil
}
