package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nft-wallet-report/internal/adapter"
	"github.com/nft-wallet-report/internal/types"
)

func reportCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report <wallet_address>",
		Short: "Fetch all NFT transfers for a wallet and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := adapter.ValidateAddress(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}

			outcome := appCtx.Reports.GenerateReport(cmd.Context(), address)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(outcome); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, outcome.Text)
			}

			if outcome.Kind == types.OutcomeError {
				return fmt.Errorf("report generation failed (request %s)", outcome.RequestID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome with statistics as JSON")
	return cmd
}
