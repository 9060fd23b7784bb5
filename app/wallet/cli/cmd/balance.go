package cmd

import (
	"fmt"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balances.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	_, accountID, err := loadAccount()
	if err != nil {
		return err
	}

	var info state.AccountInfo
	if err := call("GET", "/v1/accounts/list/"+string(accountID), nil, &info); err != nil {
		return err
	}

	fmt.Println("For Account:", accountID)
	fmt.Println("  liquid:  ", asset.Hive(info.Balance), "/", asset.HBDs(info.HBDBalance))
	fmt.Println("  savings: ", asset.Hive(info.SavingsBalance), "/", asset.HBDs(info.SavingsHBDBalance))
	fmt.Println("  stake:   ", asset.Vests(info.VestingShares))
	fmt.Println("  rewards: ", asset.Hive(info.RewardHiveBalance), "/", asset.HBDs(info.RewardHBDBalance), "/", asset.Vests(info.RewardVestingBalance))
	fmt.Println("  power:   ", fmt.Sprintf("%.2f%%", float64(info.VotingPowerNow)/100))
	fmt.Println("  nonce:   ", info.Nonce)

	return nil
}
