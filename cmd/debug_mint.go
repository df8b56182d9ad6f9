package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/core"
	"github.com/ethiapath/bagcamp/internal/token"
)

var (
	mintSubject string
	mintPath    string
	mintKind    string
	mintID      string
	mintWindow  time.Duration
)

var debugMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Force-mint a download token locally for testing",
	Long: `Test command that bypasses the catalog and permission checks to mint
a token directly. Useful to poke at the edge verifier.`,
	Example: `  dlgate debug mint -f bagcamp.yaml --subject user-1 --path /tracks/42/x.mp3 --kind track --id 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		signingSecret, _ := secrets()
		if len(signingSecret) == 0 {
			return errors.New("signing secret is not configured (BAGCAMP_SIGNING_SECRET)")
		}

		codec, err := token.NewCodec(signingSecret, cfg.Download.Issuer)
		if err != nil {
			return err
		}

		kind, err := core.ParseContentKind(mintKind)
		if err != nil {
			return err
		}
		audience, err := cfg.Download.Hostname()
		if err != nil {
			return err
		}

		now := time.Now()
		claims := token.Claims{
			Subject:     mintSubject,
			Path:        mintPath,
			ContentKind: kind,
			ContentID:   mintID,
			Audience:    audience,
			Issuer:      cfg.Download.Issuer,
			IssuedAt:    now,
			ExpiresAt:   now.Add(mintWindow),
		}

		signed, err := codec.Mint(claims)
		if err != nil {
			return fmt.Errorf("minting failed: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendRows([]table.Row{
			{"subject", claims.Subject},
			{"path", claims.Path},
			{"kind", claims.ContentKind},
			{"content id", claims.ContentID},
			{"audience", claims.Audience},
			{"issuer", claims.Issuer},
			{"expires", claims.ExpiresAt.Format(time.RFC3339)},
		})
		t.Render()

		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugMintCmd)

	debugMintCmd.Flags().StringVar(&mintSubject, "subject", "", "principal ID to mint for")
	debugMintCmd.Flags().StringVar(&mintPath, "path", "", "storage path the token grants")
	debugMintCmd.Flags().StringVar(&mintKind, "kind", "track", "content kind (release, track)")
	debugMintCmd.Flags().StringVar(&mintID, "id", "", "content ID")
	debugMintCmd.Flags().DurationVar(&mintWindow, "window", config.DefaultWindow, "validity window")

	_ = debugMintCmd.MarkFlagRequired("subject")
	_ = debugMintCmd.MarkFlagRequired("path")
	_ = debugMintCmd.MarkFlagRequired("id")
}
