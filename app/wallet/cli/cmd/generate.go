package cmd

import (
	"fmt"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) error {
	if keystoreDir != "" {
		if password == "" {
			return fmt.Errorf("a keystore needs a password")
		}

		ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
		acc, err := ks.NewAccount(password)
		if err != nil {
			return err
		}

		fmt.Println(database.AccountID(acc.Address.Hex()))
		return nil
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := crypto.SaveECDSA(getPrivateKeyPath(), privateKey); err != nil {
		return err
	}

	fmt.Println(database.PublicKeyToAccountID(privateKey.PublicKey))
	return nil
}
