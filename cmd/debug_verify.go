package cmd

import (
	"errors"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/token"
)

var (
	verifyAudience string
	verifyDump     bool
)

var debugVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a download token and show its claims",
	Args:  cobra.ExactArgs(1),
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

		audience := verifyAudience
		if audience == "" {
			if audience, err = cfg.Download.Hostname(); err != nil {
				return err
			}
		}

		claims, err := codec.Verify(args[0], audience)
		if err != nil {
			color.Red("token rejected: %v", err)
			return err
		}

		color.Green("token valid (expires in %s)", time.Until(claims.ExpiresAt).Round(time.Second))

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendRows([]table.Row{
			{"subject", claims.Subject},
			{"path", claims.Path},
			{"kind", claims.ContentKind},
			{"content id", claims.ContentID},
			{"audience", claims.Audience},
			{"issuer", claims.Issuer},
			{"token id", claims.TokenID},
			{"issued", claims.IssuedAt.Format(time.RFC3339)},
			{"expires", claims.ExpiresAt.Format(time.RFC3339)},
		})
		t.Render()

		if verifyDump {
			spew.Fdump(cmd.OutOrStdout(), claims)
		}
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugVerifyCmd)

	debugVerifyCmd.Flags().StringVar(&verifyAudience, "audience", "", "expected audience (defaults to the configured download domain)")
	debugVerifyCmd.Flags().BoolVar(&verifyDump, "dump", false, "dump the full claims struct")
}
