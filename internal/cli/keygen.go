package cli

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veridian-identity/setpoll/internal/envelope"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a receiver RSA key pair",
	Long: `Generate the RSA key pair used to wrap bundle encryption keys.

The public key goes to the setpoll service configuration; the private key
stays with the receiver and decrypts downloaded bundles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bits, _ := cmd.Flags().GetInt("bits")
		out, _ := cmd.Flags().GetString("out")

		priv, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		privPEM, err := envelope.EncodePrivateKey(priv)
		if err != nil {
			return fmt.Errorf("failed to encode private key: %w", err)
		}
		pubPEM, err := envelope.EncodePublicKey(&priv.PublicKey)
		if err != nil {
			return fmt.Errorf("failed to encode public key: %w", err)
		}

		privPath := out + ".pem"
		pubPath := out + ".pub.pem"
		if err := os.WriteFile(privPath, privPEM, 0600); err != nil {
			return fmt.Errorf("failed to write private key: %w", err)
		}
		if err := os.WriteFile(pubPath, pubPEM, 0644); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}

		fmt.Printf("Private key written to %s\n", privPath)
		fmt.Printf("Public key written to %s\n", pubPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().Int("bits", 2048, "RSA key size in bits")
	keygenCmd.Flags().StringP("out", "o", "setpoll_receiver", "Output file prefix")
}
