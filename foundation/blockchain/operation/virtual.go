package operation

import (
	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
)

// FillConvertRequest reports a matured pegged to native conversion.
type FillConvertRequest struct {
	Owner     database.AccountID `json:"owner"`
	RequestID uint32             `json:"requestid"`
	AmountIn  asset.Amount       `json:"amount_in"`
	AmountOut asset.Amount       `json:"amount_out"`
}

func (FillConvertRequest) Kind() Kind                       { return KindFillConvertRequest }
func (o FillConvertRequest) Impacted() []database.AccountID { return accounts(o.Owner) }

// AuthorReward reports the author's share of a post payout.
type AuthorReward struct {
	Author              database.AccountID `json:"author"`
	Permlink            string             `json:"permlink"`
	HBDPayout           asset.Amount       `json:"hbd_payout"`
	HivePayout          asset.Amount       `json:"hive_payout"`
	VestingPayout       asset.Amount       `json:"vesting_payout"`
	PayoutMustBeClaimed bool               `json:"payout_must_be_claimed"`
}

func (AuthorReward) Kind() Kind                       { return KindAuthorReward }
func (o AuthorReward) Impacted() []database.AccountID { return accounts(o.Author) }

// CurationReward reports one curator's share of a post payout.
type CurationReward struct {
	Curator             database.AccountID `json:"curator"`
	Reward              asset.Amount       `json:"reward"`
	Author              database.AccountID `json:"comment_author"`
	Permlink            string             `json:"comment_permlink"`
	PayoutMustBeClaimed bool               `json:"payout_must_be_claimed"`
}

func (CurationReward) Kind() Kind                       { return KindCurationReward }
func (o CurationReward) Impacted() []database.AccountID { return accounts(o.Curator, o.Author) }

// CommentReward summarizes a post payout valued in pegged tokens.
type CommentReward struct {
	Author                 database.AccountID `json:"author"`
	Permlink               string             `json:"permlink"`
	Payout                 asset.Amount       `json:"payout"`
	AuthorRewards          int64              `json:"author_rewards"`
	TotalPayoutValue       asset.Amount       `json:"total_payout_value"`
	CuratorPayoutValue     asset.Amount       `json:"curator_payout_value"`
	BeneficiaryPayoutValue asset.Amount       `json:"beneficiary_payout_value"`
}

func (CommentReward) Kind() Kind                       { return KindCommentReward }
func (o CommentReward) Impacted() []database.AccountID { return accounts(o.Author) }

// FillVestingWithdraw reports one interval of a stake withdrawal.
type FillVestingWithdraw struct {
	FromAccount database.AccountID `json:"from_account"`
	ToAccount   database.AccountID `json:"to_account"`
	Withdrawn   asset.Amount       `json:"withdrawn"`
	Deposited   asset.Amount       `json:"deposited"`
}

func (FillVestingWithdraw) Kind() Kind { return KindFillVestingWithdraw }
func (o FillVestingWithdraw) Impacted() []database.AccountID {
	return accounts(o.FromAccount, o.ToAccount)
}

// FillTransferFromSavings reports a completed savings withdrawal.
type FillTransferFromSavings struct {
	From      database.AccountID `json:"from"`
	To        database.AccountID `json:"to"`
	Amount    asset.Amount       `json:"amount"`
	RequestID uint32             `json:"request_id"`
	Memo      string             `json:"memo"`
}

func (FillTransferFromSavings) Kind() Kind                       { return KindFillTransferFromSavings }
func (o FillTransferFromSavings) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// Interest reports pegged token interest paid to a balance.
type Interest struct {
	Owner            database.AccountID `json:"owner"`
	Interest         asset.Amount       `json:"interest"`
	IsSavingInterest bool               `json:"is_saved_into_hbd_balance"`
}

func (Interest) Kind() Kind                       { return KindInterest }
func (o Interest) Impacted() []database.AccountID { return accounts(o.Owner) }

// ReturnVestingDelegation reports stake returned to a delegator after the
// delegation cooldown.
type ReturnVestingDelegation struct {
	Account       database.AccountID `json:"account"`
	VestingShares asset.Amount       `json:"vesting_shares"`
}

func (ReturnVestingDelegation) Kind() Kind                       { return KindReturnVestingDelegation }
func (o ReturnVestingDelegation) Impacted() []database.AccountID { return accounts(o.Account) }

// CommentBenefactorReward reports a beneficiary's share of a post payout.
type CommentBenefactorReward struct {
	Benefactor          database.AccountID `json:"benefactor"`
	Author              database.AccountID `json:"author"`
	Permlink            string             `json:"permlink"`
	HBDPayout           asset.Amount       `json:"hbd_payout"`
	HivePayout          asset.Amount       `json:"hive_payout"`
	VestingPayout       asset.Amount       `json:"vesting_payout"`
	PayoutMustBeClaimed bool               `json:"payout_must_be_claimed"`
}

func (CommentBenefactorReward) Kind() Kind { return KindCommentBenefactorReward }
func (o CommentBenefactorReward) Impacted() []database.AccountID {
	return accounts(o.Benefactor, o.Author)
}

// ProducerReward reports the stake paid to the producer of a block.
type ProducerReward struct {
	Producer      database.AccountID `json:"producer"`
	VestingShares asset.Amount       `json:"vesting_shares"`
}

func (ProducerReward) Kind() Kind                       { return KindProducerReward }
func (o ProducerReward) Impacted() []database.AccountID { return accounts(o.Producer) }

// CommentPayoutUpdate reports that a post's cashout happened, paid or not.
type CommentPayoutUpdate struct {
	Author   database.AccountID `json:"author"`
	Permlink string             `json:"permlink"`
}

func (CommentPayoutUpdate) Kind() Kind                       { return KindCommentPayoutUpdate }
func (o CommentPayoutUpdate) Impacted() []database.AccountID { return accounts(o.Author) }

// FillCollateralizedConvertRequest reports a settled collateralized
// conversion and the collateral returned to the owner.
type FillCollateralizedConvertRequest struct {
	Owner            database.AccountID `json:"owner"`
	RequestID        uint32             `json:"requestid"`
	AmountIn         asset.Amount       `json:"amount_in"`
	AmountOut        asset.Amount       `json:"amount_out"`
	ExcessCollateral asset.Amount       `json:"excess_collateral"`
}

func (FillCollateralizedConvertRequest) Kind() Kind { return KindFillCollateralizedConvertRequest }
func (o FillCollateralizedConvertRequest) Impacted() []database.AccountID {
	return accounts(o.Owner)
}

// CollateralizedConvertImmediateConversion reports the pegged tokens paid when
// a collateralized conversion is requested.
type CollateralizedConvertImmediateConversion struct {
	Owner     database.AccountID `json:"owner"`
	RequestID uint32             `json:"requestid"`
	HBDOut    asset.Amount       `json:"hbd_out"`
}

func (CollateralizedConvertImmediateConversion) Kind() Kind {
	return KindCollateralizedConvertImmediateConversion
}
func (o CollateralizedConvertImmediateConversion) Impacted() []database.AccountID {
	return accounts(o.Owner)
}

// SystemWarning records a correction the chain applied on its own.
type SystemWarning struct {
	Message string `json:"message"`
}

func (SystemWarning) Kind() Kind                     { return KindSystemWarning }
func (SystemWarning) Impacted() []database.AccountID { return nil }

// FillRecurrentTransfer reports one successful recurrent transfer execution.
type FillRecurrentTransfer struct {
	From                database.AccountID `json:"from"`
	To                  database.AccountID `json:"to"`
	Amount              asset.Amount       `json:"amount"`
	Memo                string             `json:"memo"`
	RemainingExecutions uint16             `json:"remaining_executions"`
}

func (FillRecurrentTransfer) Kind() Kind                       { return KindFillRecurrentTransfer }
func (o FillRecurrentTransfer) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// FailedRecurrentTransfer reports an execution skipped for lack of funds.
type FailedRecurrentTransfer struct {
	From                database.AccountID `json:"from"`
	To                  database.AccountID `json:"to"`
	Amount              asset.Amount       `json:"amount"`
	Memo                string             `json:"memo"`
	ConsecutiveFailures uint8              `json:"consecutive_failures"`
	RemainingExecutions uint16             `json:"remaining_executions"`
	Deleted             bool               `json:"deleted"`
}

func (FailedRecurrentTransfer) Kind() Kind                       { return KindFailedRecurrentTransfer }
func (o FailedRecurrentTransfer) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// CompletedRecurrentTransfer reports a recurrent transfer removed after its
// last scheduled execution.
type CompletedRecurrentTransfer struct {
	From   database.AccountID `json:"from"`
	To     database.AccountID `json:"to"`
	Amount asset.Amount       `json:"amount"`
	Memo   string             `json:"memo"`
}

func (CompletedRecurrentTransfer) Kind() Kind { return KindCompletedRecurrentTransfer }
func (o CompletedRecurrentTransfer) Impacted() []database.AccountID {
	return accounts(o.From, o.To)
}

// AbortedRecurrentTransfer reports a recurrent transfer removed after too
// many consecutive failures.
type AbortedRecurrentTransfer struct {
	From                database.AccountID `json:"from"`
	To                  database.AccountID `json:"to"`
	Amount              asset.Amount       `json:"amount"`
	Memo                string             `json:"memo"`
	ConsecutiveFailures uint8              `json:"consecutive_failures"`
}

func (AbortedRecurrentTransfer) Kind() Kind                       { return KindAbortedRecurrentTransfer }
func (o AbortedRecurrentTransfer) Impacted() []database.AccountID { return accounts(o.From, o.To) }

// AccountCreated reports a new account and the stake it starts with.
type AccountCreated struct {
	NewAccount           database.AccountID `json:"new_account_name"`
	Creator              database.AccountID `json:"creator"`
	InitialVestingShares asset.Amount       `json:"initial_vesting_shares"`
}

func (AccountCreated) Kind() Kind                       { return KindAccountCreated }
func (o AccountCreated) Impacted() []database.AccountID { return accounts(o.NewAccount, o.Creator) }

// TransferToVestingCompleted reports the stake created by a transfer to
// vesting.
type TransferToVestingCompleted struct {
	FromAccount           database.AccountID `json:"from_account"`
	ToAccount             database.AccountID `json:"to_account"`
	HiveVested            asset.Amount       `json:"hive_vested"`
	VestingSharesReceived asset.Amount       `json:"vesting_shares_received"`
}

func (TransferToVestingCompleted) Kind() Kind { return KindTransferToVestingCompleted }
func (o TransferToVestingCompleted) Impacted() []database.AccountID {
	return accounts(o.ToAccount, o.FromAccount)
}
