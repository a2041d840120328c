package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xssnick/tonutils-go/tlb"

	"github.com/tor-rent/backend/internal/auth"
	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/http/dto"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadKey() (ed25519.PrivateKey, error) {
	if keyHex == "" {
		return nil, fmt.Errorf("no key: pass --key or set TORRENT_KEY")
	}
	seed, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key must be a %d-byte hex seed", ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an account key",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := ed25519.GenerateKey(nil)
			if err != nil {
				return err
			}
			addr := chain.AddressFromPublicKey(pub)
			return printJSON(map[string]string{
				"seed":        hex.EncodeToString(priv.Seed()),
				"public_key":  hex.EncodeToString(pub),
				"address":     addr.String(),
				"address_raw": addr.Raw(),
			})
		},
	}
}

// login проходит challenge/login и возвращает JWT.
func login(c *apiClient) (string, error) {
	priv, err := loadKey()
	if err != nil {
		return "", err
	}

	var ch struct {
		Data dto.ChallengeResponse `json:"data"`
	}
	if err := c.post("/auth/challenge", nil, &ch); err != nil {
		return "", fmt.Errorf("challenge: %w", err)
	}

	var res dto.AuthResponse
	err = c.post("/auth/login", dto.LoginRequest{
		PublicKey: hex.EncodeToString(priv.Public().(ed25519.PublicKey)),
		Signature: auth.SignLogin(priv, ch.Data.Nonce),
		Nonce:     ch.Data.Nonce,
	}, &res)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return res.Token, nil
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign a login challenge and print a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := login(newClient())
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
}

// parseValue: целое число единиц или "1.5ton" (переводится в нано и делится на nano-per-unit).
func parseValue(s string, nanoPerUnit uint64) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if tonAmount, ok := strings.CutSuffix(strings.ToLower(s), "ton"); ok {
		coins, err := tlb.FromTON(strings.TrimSpace(tonAmount))
		if err != nil {
			return 0, fmt.Errorf("value %q: %w", s, err)
		}
		if nanoPerUnit == 0 {
			return 0, fmt.Errorf("nano-per-unit must be positive")
		}
		nano := coins.Nano()
		if !nano.IsUint64() {
			return 0, fmt.Errorf("value %q is out of range", s)
		}
		return nano.Uint64() / nanoPerUnit, nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", s, err)
	}
	return v, nil
}

func callCmd() *cobra.Command {
	var (
		argsJSON    string
		value       string
		nanoPerUnit uint64
	)
	cmd := &cobra.Command{
		Use:     "call <Contract.method>",
		Short:   "Submit a contract call",
		Example: `  torrentctl call ServiceMarketplace.bookService --args '{"service_id":1}' --value 0.5ton`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, method, ok := strings.Cut(args[0], ".")
			if !ok || contract == "" || method == "" {
				return fmt.Errorf("expected <Contract.method>, got %q", args[0])
			}
			if !json.Valid([]byte(argsJSON)) {
				return fmt.Errorf("--args is not valid JSON")
			}
			v, err := parseValue(value, nanoPerUnit)
			if err != nil {
				return err
			}

			c := newClient()
			if c.token == "" {
				if c.token, err = login(c); err != nil {
					return err
				}
			}

			var res dto.SuccessResponse
			err = c.post("/txs", dto.SubmitTxRequest{
				Contract: contract,
				Method:   method,
				Value:    v,
				Args:     json.RawMessage(argsJSON),
			}, &res)
			if err != nil {
				return err
			}
			return printJSON(res.Data)
		},
	}
	cmd.Flags().StringVar(&argsJSON, "args", "{}", "method arguments as JSON")
	cmd.Flags().StringVar(&value, "value", "", "native value: units, or an amount with a ton suffix")
	cmd.Flags().Uint64Var(&nanoPerUnit, "nano-per-unit", 1, "nanoTON per ledger unit, as configured on the node")
	return cmd
}

func receiptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <tx_hash>",
		Short: "Show a transaction receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res dto.SuccessResponse
			if err := newClient().get("/txs/"+args[0], &res); err != nil {
				return err
			}
			return printJSON(res.Data)
		},
	}
}

func accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account [address]",
		Short: "Show native and RTC balances (defaults to the --key account)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var addr chain.Address
			if len(args) == 1 {
				a, err := chain.ParseAddress(args[0])
				if err != nil {
					return err
				}
				addr = a
			} else {
				priv, err := loadKey()
				if err != nil {
					return err
				}
				addr = chain.AddressFromPublicKey(priv.Public().(ed25519.PublicKey))
			}

			var res dto.SuccessResponse
			if err := newClient().get("/accounts/"+addr.Raw(), &res); err != nil {
				return err
			}
			return printJSON(res.Data)
		},
	}
}
