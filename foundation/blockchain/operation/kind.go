// Package operation defines every operation the chain understands. Real
// operations are signed by users inside transactions; virtual operations are
// produced by the chain to describe side effects.
//
// Kind ordinals are stored by clients inside filter masks. They are append
// only and must never be reused or reordered.
package operation

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
)

// Kind is the stable ordinal of an operation type.
type Kind uint16

// Set of operation kinds. New kinds are added at the end only.
const (
	KindVote Kind = iota
	KindComment
	KindTransfer
	KindTransferToVesting
	KindWithdrawVesting
	KindFeedPublish
	KindConvert
	KindAccountCreate
	KindCommentOptions
	KindSetWithdrawVestingRoute
	KindClaimAccount
	KindCreateClaimedAccount
	KindTransferToSavings
	KindTransferFromSavings
	KindCancelTransferFromSavings
	KindDeleteComment
	KindClaimRewardBalance
	KindDelegateVestingShares
	KindCollateralizedConvert
	KindRecurrentTransfer
	KindAccountUpdate

	KindFillConvertRequest
	KindAuthorReward
	KindCurationReward
	KindCommentReward
	KindFillVestingWithdraw
	KindFillTransferFromSavings
	KindInterest
	KindReturnVestingDelegation
	KindCommentBenefactorReward
	KindProducerReward
	KindCommentPayoutUpdate
	KindFillCollateralizedConvertRequest
	KindCollateralizedConvertImmediateConversion
	KindSystemWarning
	KindFillRecurrentTransfer
	KindFailedRecurrentTransfer
	KindCompletedRecurrentTransfer
	KindAbortedRecurrentTransfer
	KindAccountCreated
	KindTransferToVestingCompleted

	kindCount
)

// info describes one operation kind.
type info struct {
	name    string
	virtual bool
	decode  func(data []byte) (Payload, error)
}

// kinds is indexed by Kind.
var kinds = [kindCount]info{
	KindVote:                      {"vote", false, decoder[Vote]()},
	KindComment:                   {"comment", false, decoder[Comment]()},
	KindTransfer:                  {"transfer", false, decoder[Transfer]()},
	KindTransferToVesting:         {"transfer_to_vesting", false, decoder[TransferToVesting]()},
	KindWithdrawVesting:           {"withdraw_vesting", false, decoder[WithdrawVesting]()},
	KindFeedPublish:               {"feed_publish", false, decoder[FeedPublish]()},
	KindConvert:                   {"convert", false, decoder[Convert]()},
	KindAccountCreate:             {"account_create", false, decoder[AccountCreate]()},
	KindCommentOptions:            {"comment_options", false, decoder[CommentOptions]()},
	KindSetWithdrawVestingRoute:   {"set_withdraw_vesting_route", false, decoder[SetWithdrawVestingRoute]()},
	KindClaimAccount:              {"claim_account", false, decoder[ClaimAccount]()},
	KindCreateClaimedAccount:      {"create_claimed_account", false, decoder[CreateClaimedAccount]()},
	KindTransferToSavings:         {"transfer_to_savings", false, decoder[TransferToSavings]()},
	KindTransferFromSavings:       {"transfer_from_savings", false, decoder[TransferFromSavings]()},
	KindCancelTransferFromSavings: {"cancel_transfer_from_savings", false, decoder[CancelTransferFromSavings]()},
	KindDeleteComment:             {"delete_comment", false, decoder[DeleteComment]()},
	KindClaimRewardBalance:        {"claim_reward_balance", false, decoder[ClaimRewardBalance]()},
	KindDelegateVestingShares:     {"delegate_vesting_shares", false, decoder[DelegateVestingShares]()},
	KindCollateralizedConvert:     {"collateralized_convert", false, decoder[CollateralizedConvert]()},
	KindRecurrentTransfer:         {"recurrent_transfer", false, decoder[RecurrentTransfer]()},
	KindAccountUpdate:             {"account_update", false, decoder[AccountUpdate]()},

	KindFillConvertRequest:                       {"fill_convert_request", true, decoder[FillConvertRequest]()},
	KindAuthorReward:                             {"author_reward", true, decoder[AuthorReward]()},
	KindCurationReward:                           {"curation_reward", true, decoder[CurationReward]()},
	KindCommentReward:                            {"comment_reward", true, decoder[CommentReward]()},
	KindFillVestingWithdraw:                      {"fill_vesting_withdraw", true, decoder[FillVestingWithdraw]()},
	KindFillTransferFromSavings:                  {"fill_transfer_from_savings", true, decoder[FillTransferFromSavings]()},
	KindInterest:                                 {"interest", true, decoder[Interest]()},
	KindReturnVestingDelegation:                  {"return_vesting_delegation", true, decoder[ReturnVestingDelegation]()},
	KindCommentBenefactorReward:                  {"comment_benefactor_reward", true, decoder[CommentBenefactorReward]()},
	KindProducerReward:                           {"producer_reward", true, decoder[ProducerReward]()},
	KindCommentPayoutUpdate:                      {"comment_payout_update", true, decoder[CommentPayoutUpdate]()},
	KindFillCollateralizedConvertRequest:         {"fill_collateralized_convert_request", true, decoder[FillCollateralizedConvertRequest]()},
	KindCollateralizedConvertImmediateConversion: {"collateralized_convert_immediate_conversion", true, decoder[CollateralizedConvertImmediateConversion]()},
	KindSystemWarning:                            {"system_warning", true, decoder[SystemWarning]()},
	KindFillRecurrentTransfer:                    {"fill_recurrent_transfer", true, decoder[FillRecurrentTransfer]()},
	KindFailedRecurrentTransfer:                  {"failed_recurrent_transfer", true, decoder[FailedRecurrentTransfer]()},
	KindCompletedRecurrentTransfer:               {"completed_recurrent_transfer", true, decoder[CompletedRecurrentTransfer]()},
	KindAbortedRecurrentTransfer:                 {"aborted_recurrent_transfer", true, decoder[AbortedRecurrentTransfer]()},
	KindAccountCreated:                           {"account_created", true, decoder[AccountCreated]()},
	KindTransferToVestingCompleted:               {"transfer_to_vesting_completed", true, decoder[TransferToVestingCompleted]()},
}

// decoder returns a function that decodes JSON into the payload type T.
func decoder[T Payload]() func(data []byte) (Payload, error) {
	return func(data []byte) (Payload, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Kinds returns the number of defined operation kinds.
func Kinds() int {
	return int(kindCount)
}

// Valid reports whether the kind is defined.
func (k Kind) Valid() bool {
	return k < kindCount
}

// Name returns the legacy name of the kind, such as "transfer".
func (k Kind) Name() string {
	if !k.Valid() {
		return fmt.Sprintf("unknown_%d", uint16(k))
	}
	return kinds[k].name
}

// Type returns the canonical type name of the kind, such as "transfer_operation".
func (k Kind) Type() string {
	return k.Name() + "_operation"
}

// Virtual reports whether the kind is produced by the chain.
func (k Kind) Virtual() bool {
	return k.Valid() && kinds[k].virtual
}

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	return k.Name()
}

// ParseKind resolves a legacy or canonical type name to its kind.
func ParseKind(name string) (Kind, error) {
	for k := Kind(0); k < kindCount; k++ {
		if kinds[k].name == name || k.Type() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation type %q", name)
}

// =============================================================================

// Payload is implemented by every operation body.
type Payload interface {
	Kind() Kind

	// Impacted returns the accounts the operation touches. The first entry is
	// the account the operation is primarily about.
	Impacted() []database.AccountID
}

// Real is implemented by operations users sign.
type Real interface {
	Payload

	// Authority returns the account that must sign the transaction.
	Authority() database.AccountID

	// Validate performs the stateless checks on the operation.
	Validate() error
}
