package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veridian-identity/setpoll/internal/envelope"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a downloaded bundle",
	Long: `Unwrap the bundle key with the receiver's private key, decrypt the
payload, and decompress it.

The key and IV are the base64 header values printed by the poll command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("in")
		keyB64, _ := cmd.Flags().GetString("key")
		ivB64, _ := cmd.Flags().GetString("iv")
		privPath, _ := cmd.Flags().GetString("private-key")
		out, _ := cmd.Flags().GetString("out")

		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("failed to read bundle: %w", err)
		}
		wrappedKey, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return fmt.Errorf("invalid key: %w", err)
		}
		iv, err := base64.StdEncoding.DecodeString(ivB64)
		if err != nil {
			return fmt.Errorf("invalid iv: %w", err)
		}

		privPEM, err := os.ReadFile(privPath)
		if err != nil {
			return fmt.Errorf("failed to read private key: %w", err)
		}
		priv, err := envelope.ParsePrivateKey(privPEM)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}

		plaintext, err := envelope.Decrypt(data, wrappedKey, iv, priv)
		if err != nil {
			return fmt.Errorf("failed to decrypt bundle: %w", err)
		}

		if out == "-" {
			_, err = os.Stdout.Write(plaintext)
			return err
		}
		if err := os.WriteFile(out, plaintext, 0600); err != nil {
			return fmt.Errorf("failed to write plaintext: %w", err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(plaintext), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decryptCmd)

	decryptCmd.Flags().StringP("in", "i", "bundle.enc", "Encrypted bundle file")
	decryptCmd.Flags().String("key", "", "Wrapped key (base64, from X-Payload-Key)")
	decryptCmd.Flags().String("iv", "", "IV (base64, from X-Payload-IV)")
	decryptCmd.Flags().String("private-key", "", "Receiver private key (PEM)")
	decryptCmd.Flags().StringP("out", "o", "-", "Output file, or - for stdout")
	for _, flag := range []string{"key", "iv", "private-key"} {
		if err := decryptCmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("failed to mark %s as required: %v", flag, err))
		}
	}
}
