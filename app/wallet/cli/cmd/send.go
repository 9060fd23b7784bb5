package cmd

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/state"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/spf13/cobra"
)

var (
	nonce      uint64
	to         string
	amount     string
	memo       string
	recurrence uint16
	executions uint16
	quote      string
)

func init() {
	for _, c := range []*cobra.Command{transferCmd, savingsCmd, stakeCmd, unstakeCmd, delegateCmd, recurrentCmd, feedCmd, claimCmd} {
		c.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Nonce of the transaction, 0 picks the next one.")
		rootCmd.AddCommand(c)
	}

	for _, c := range []*cobra.Command{transferCmd, savingsCmd, stakeCmd, delegateCmd, recurrentCmd} {
		c.Flags().StringVarP(&to, "to", "t", "", "Receiving account, defaults to yourself where allowed.")
	}

	for _, c := range []*cobra.Command{transferCmd, savingsCmd, stakeCmd, unstakeCmd, delegateCmd, recurrentCmd, feedCmd} {
		c.Flags().StringVarP(&amount, "amount", "v", "", `Amount such as "1.000 HIVE" or "10.000000 VESTS".`)
		c.MarkFlagRequired("amount")
	}

	for _, c := range []*cobra.Command{transferCmd, savingsCmd, recurrentCmd} {
		c.Flags().StringVarP(&memo, "memo", "m", "", "Memo for the receiver.")
	}

	recurrentCmd.Flags().Uint16Var(&recurrence, "recurrence", 24, "Hours between executions.")
	recurrentCmd.Flags().Uint16Var(&executions, "executions", 2, "Number of executions.")
	feedCmd.Flags().StringVar(&quote, "quote", "1.000 HIVE", "Native amount the pegged amount is worth.")
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer liquid tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(func(from database.AccountID, amt asset.Amount) (operation.Payload, error) {
			return operation.Transfer{From: from, To: database.AccountID(to), Amount: amt, Memo: memo}, nil
		})
	},
}

var savingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "Move liquid tokens into savings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(func(from database.AccountID, amt asset.Amount) (operation.Payload, error) {
			return operation.TransferToSavings{From: from, To: receiver(from), Amount: amt, Memo: memo}, nil
		})
	},
}

var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Convert liquid tokens into stake",
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(func(from database.AccountID, amt asset.Amount) (operation.Payload, error) {
			return operation.TransferToVesting{From: from, To: receiver(from), Amount: amt}, nil
		})
	},
}

var unstakeCmd = &cobra.Command{
	Use:   "unstake",
	Short: "Start withdrawing stake, zero cancels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(func(from database.AccountID, amt asset.Amount) (operation.Payload, error) {
			return operation.WithdrawVesting{Account: from, VestingShares: amt}, nil
		})
	},
}

var delegateCmd = &cobra.Command{
	Use:   "delegate",
	Short: "Delegate stake to another account, zero removes it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(func(from database.AccountID, amt asset.Amount) (operation.Payload, error) {
			return operation.DelegateVestingShares{Delegator: from, Delegatee: database.AccountID(to), VestingShares: amt}, nil
		})
	},
}

var recurrentCmd = &cobra.Command{
	Use:   "recurrent",
	Short: "Create, update, or with a zero amount remove a recurrent transfer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(func(from database.AccountID, amt asset.Amount) (operation.Payload, error) {
			return operation.RecurrentTransfer{
				From:       from,
				To:         database.AccountID(to),
				Amount:     amt,
				Memo:       memo,
				Recurrence: recurrence,
				Executions: executions,
			}, nil
		})
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Publish a price feed, the amount is the pegged side",
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(func(from database.AccountID, amt asset.Amount) (operation.Payload, error) {
			q, err := asset.Parse(quote)
			if err != nil {
				return nil, err
			}
			return operation.FeedPublish{Publisher: from, ExchangeRate: asset.NewPrice(amt, q)}, nil
		})
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim every pending reward",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, from, err := loadAccount()
		if err != nil {
			return err
		}

		var info state.AccountInfo
		if err := call("GET", "/v1/accounts/list/"+string(from), nil, &info); err != nil {
			return err
		}

		op := operation.ClaimRewardBalance{
			Account:     from,
			RewardHive:  asset.Hive(info.RewardHiveBalance),
			RewardHBD:   asset.HBDs(info.RewardHBDBalance),
			RewardVests: asset.Vests(info.RewardVestingBalance),
		}

		return submit(privateKey, from, operation.New(op))
	},
}

// =============================================================================

// receiver returns the to flag or the sender when it is not set.
func receiver(from database.AccountID) database.AccountID {
	if to == "" {
		return from
	}
	return database.AccountID(to)
}

// send builds the operation from the amount flag and submits it.
func send(build func(from database.AccountID, amt asset.Amount) (operation.Payload, error)) error {
	privateKey, from, err := loadAccount()
	if err != nil {
		return err
	}

	amt, err := asset.Parse(amount)
	if err != nil {
		return err
	}

	payload, err := build(from, amt)
	if err != nil {
		return err
	}

	return submit(privateKey, from, operation.New(payload))
}

// submit signs a transaction with the operations and sends it to the node.
func submit(privateKey *ecdsa.PrivateKey, from database.AccountID, ops ...operation.Operation) error {
	var gen genesis.Genesis
	if err := call("GET", "/v1/genesis/list", nil, &gen); err != nil {
		return fmt.Errorf("reading genesis: %w", err)
	}

	n := nonce
	if n == 0 {
		next, err := nextNonce(from)
		if err != nil {
			return err
		}
		n = next
	}

	tx, err := storage.NewTx(gen.ChainID, n, ops...)
	if err != nil {
		return err
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return err
	}

	var resp struct {
		Status string `json:"status"`
		TrxID  string `json:"trx_id"`
	}
	if err := call("POST", "/v1/tx/submit", signedTx, &resp); err != nil {
		return err
	}

	fmt.Printf("%s: nonce[%d] trx_id[%s]\n", resp.Status, n, resp.TrxID)
	return nil
}

// nextNonce returns the nonce after the last one applied or pending for the
// account.
func nextNonce(from database.AccountID) (uint64, error) {
	var info state.AccountInfo
	if err := call("GET", "/v1/accounts/list/"+string(from), nil, &info); err != nil {
		return 0, err
	}

	var pending []struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := call("GET", "/v1/tx/uncommitted/list/"+string(from), nil, &pending); err != nil {
		return 0, err
	}

	last := info.Nonce
	for _, tx := range pending {
		last = max(last, tx.Nonce)
	}

	return last + 1, nil
}
