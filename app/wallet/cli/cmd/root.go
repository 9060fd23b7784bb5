// Package cmd contains wallet app
package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	keystoreDir string
	password    string
	url         string
)

const (
	keyExtension = ".ecdsa"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&keystoreDir, "keystore", "k", "", "Keystore directory, used instead of the plain key file.")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("WALLET_PASSWORD"), "Keystore password.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:          "wallet",
	Short:        "Sign and submit operations to a node",
	SilenceUsage: true,
}

// Execute runs the wallet command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, keyExtension) {
		accountName += keyExtension
	}

	return filepath.Join(accountPath, accountName)
}

// loadKey loads the private key from the plain key file, or from the first
// account of the keystore when one is configured.
func loadKey() (*ecdsa.PrivateKey, error) {
	if keystoreDir == "" {
		return crypto.LoadECDSA(getPrivateKeyPath())
	}

	ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	accounts := ks.Accounts()
	if len(accounts) == 0 {
		return nil, fmt.Errorf("keystore %s has no accounts", keystoreDir)
	}

	data, err := os.ReadFile(accounts[0].URL.Path)
	if err != nil {
		return nil, err
	}

	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("decrypting key: %w", err)
	}

	return key.PrivateKey, nil
}

// loadAccount loads the private key and returns it with its account id.
func loadAccount() (*ecdsa.PrivateKey, database.AccountID, error) {
	privateKey, err := loadKey()
	if err != nil {
		return nil, "", err
	}

	return privateKey, database.PublicKeyToAccountID(privateKey.PublicKey), nil
}

// =============================================================================

var client = http.Client{
	Timeout: 10 * time.Second,
}

// call sends a request to the node and decodes the response into out. Error
// responses are returned with the message the node gave.
func call(method string, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return fmt.Errorf("node returned %s", resp.Status)
		}
		return errors.New(er.Error)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
