package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridian-identity/setpoll/internal/auth"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compute a credential digest",
	Long: `Compute the scrypt digest of a shared credential with an explicit
salt and cost string.

Useful for verifying that a receiver's credential matches what the
service will derive from its configured token list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		credential, _ := cmd.Flags().GetString("credential")
		salt, _ := cmd.Flags().GetString("salt")
		cost, _ := cmd.Flags().GetString("cost")

		digest, err := auth.Digest(credential, salt, cost)
		if err != nil {
			return fmt.Errorf("failed to compute digest: %w", err)
		}

		fmt.Println(hex.EncodeToString(digest))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)

	digestCmd.Flags().String("credential", "", "Shared credential")
	digestCmd.Flags().String("salt", "", "Salt (hex)")
	digestCmd.Flags().String("cost", "16384$8$1$", "scrypt cost string (N$r$p$)")
	if err := digestCmd.MarkFlagRequired("credential"); err != nil {
		panic(fmt.Sprintf("failed to mark credential as required: %v", err))
	}
	if err := digestCmd.MarkFlagRequired("salt"); err != nil {
		panic(fmt.Sprintf("failed to mark salt as required: %v", err))
	}
}
