package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll a running service for one bucket",
	Long: `Request the bundle for a timestamp from a running setpoll service.

The encrypted body is written to the output file; the wrapped key and IV
from the response headers are printed so the bundle can be decrypted with
the decrypt command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("url")
		clientID, _ := cmd.Flags().GetString("client-id")
		token, _ := cmd.Flags().GetString("token")
		timestamp, _ := cmd.Flags().GetString("timestamp")
		out, _ := cmd.Flags().GetString("out")

		target := fmt.Sprintf("%s/api/security_events?timestamp=%s", baseURL, url.QueryEscape(timestamp))
		req, err := http.NewRequest(http.MethodPost, target, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s %s", clientID, token))

		client := &http.Client{Timeout: 5 * time.Minute}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("service returned %d: %s", resp.StatusCode, body)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		n, err := io.Copy(f, resp.Body)
		if err != nil {
			return fmt.Errorf("failed to write body: %w", err)
		}

		fmt.Printf("Wrote %d bytes to %s\n", n, out)
		fmt.Printf("X-Payload-Key: %s\n", resp.Header.Get("X-Payload-Key"))
		fmt.Printf("X-Payload-IV: %s\n", resp.Header.Get("X-Payload-IV"))
		fmt.Printf("Content-Disposition: %s\n", resp.Header.Get("Content-Disposition"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)

	pollCmd.Flags().String("url", "http://localhost:8098", "Service base URL")
	pollCmd.Flags().String("client-id", "", "Client identifier")
	pollCmd.Flags().String("token", "", "Shared credential")
	pollCmd.Flags().String("timestamp", "", "Bucket timestamp (ISO8601 with numeric offset)")
	pollCmd.Flags().StringP("out", "o", "bundle.enc", "Output file for the encrypted body")
	if err := pollCmd.MarkFlagRequired("client-id"); err != nil {
		panic(fmt.Sprintf("failed to mark client-id as required: %v", err))
	}
	if err := pollCmd.MarkFlagRequired("token"); err != nil {
		panic(fmt.Sprintf("failed to mark token as required: %v", err))
	}
	if err := pollCmd.MarkFlagRequired("timestamp"); err != nil {
		panic(fmt.Sprintf("failed to mark timestamp as required: %v", err))
	}
}
