package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var showPublicKey bool

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the account id of the wallet key",
	RunE:  accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.Flags().BoolVar(&showPublicKey, "public-key", false, "Also print the compressed public key.")
}

func accountRun(cmd *cobra.Command, args []string) error {
	privateKey, accountID, err := loadAccount()
	if err != nil {
		return err
	}

	fmt.Println(accountID)

	if showPublicKey {
		fmt.Println(hexutil.Encode(crypto.CompressPubkey(&privateKey.PublicKey)))
	}

	return nil
}
