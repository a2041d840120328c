package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	apiURL  string
	keyHex  string
	token   string
	timeout time.Duration
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "torrentctl",
		Short:         "Tor-Rent ledger client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("TORRENT_API", "http://localhost:3000"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&keyHex, "key", os.Getenv("TORRENT_KEY"), "hex ed25519 seed (TORRENT_KEY)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("TORRENT_TOKEN"), "bearer token (TORRENT_TOKEN); obtained via login when empty")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(
		keygenCmd(),
		loginCmd(),
		callCmd(),
		receiptCmd(),
		accountCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
