package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockberries/lottoberry/pkg/types"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage account keys",
	Long:  `Commands for managing ed25519 account keys.`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate [output-file]",
	Short: "Generate a new account key",
	Long: `Generate a new Ed25519 keypair and its account id.

If no output file is specified, the key is printed to stdout.

Example:
  lottoberry keys generate
  lottoberry keys generate alice.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeysGenerate,
}

var keysShowCmd = &cobra.Command{
	Use:   "show <key-file>",
	Short: "Show the public key and account id from a key file",
	Long: `Display the public key and account id from a key file.

Example:
  lottoberry keys show sudo_key.json`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysShow,
}

func init() {
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysShowCmd)
	rootCmd.AddCommand(keysCmd)
}

// AccountKey is the on-disk form of an account keypair.
type AccountKey struct {
	PrivKey string `json:"priv_key"`
	PubKey  string `json:"pub_key"`
	Account string `json:"account"`
}

func newAccountKey(priv ed25519.PrivateKey) (AccountKey, error) {
	pub := priv.Public().(ed25519.PublicKey)
	acct, err := types.AccountFromPubKey(pub)
	if err != nil {
		return AccountKey{}, err
	}
	return AccountKey{
		PrivKey: hex.EncodeToString(priv),
		PubKey:  hex.EncodeToString(pub),
		Account: acct.String(),
	}, nil
}

// PrivateKey decodes and checks the stored private key.
func (k AccountKey) PrivateKey() (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(k.PrivKey)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key has %d bytes", types.ErrInvalidPubKey, len(b))
	}
	return ed25519.PrivateKey(b), nil
}

func writeKeyFile(path string, priv ed25519.PrivateKey) (AccountKey, error) {
	key, err := newAccountKey(priv)
	if err != nil {
		return AccountKey{}, err
	}
	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return AccountKey{}, fmt.Errorf("marshaling key: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return AccountKey{}, fmt.Errorf("writing key file: %w", err)
	}
	return key, nil
}

func readKeyFile(path string) (AccountKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AccountKey{}, fmt.Errorf("reading key file: %w", err)
	}
	var key AccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return AccountKey{}, fmt.Errorf("parsing key file: %w", err)
	}
	return key, nil
}

// playerKey derives the simulation key of player i on chainID.
func playerKey(chainID string, i int) ed25519.PrivateKey {
	seed := types.HashConcat([]byte(chainID), []byte(fmt.Sprintf("/player/%d", i)))
	return ed25519.NewKeyFromSeed(seed)
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	if len(args) == 0 {
		key, err := newAccountKey(priv)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(key, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling key: %w", err)
		}
		fmt.Println(string(data))
		fmt.Fprintf(cmd.ErrOrStderr(), "\nAccount: %s\n", key.Account)
		return nil
	}

	key, err := writeKeyFile(args[0], priv)
	if err != nil {
		return err
	}
	fmt.Printf("Generated key: %s\n", args[0])
	fmt.Printf("Account: %s\n", key.Account)
	return nil
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	key, err := readKeyFile(args[0])
	if err != nil {
		return err
	}
	priv, err := key.PrivateKey()
	if err != nil {
		return err
	}
	derived, err := newAccountKey(priv)
	if err != nil {
		return err
	}

	fmt.Printf("Public Key: %s\n", derived.PubKey)
	fmt.Printf("Account:    %s\n", derived.Account)
	return nil
}
