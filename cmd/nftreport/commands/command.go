package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nft-wallet-report/internal/service"
)

func commandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "command <text>...",
		Short: "Run a chat command such as \"/wallet_nft 0x...\" and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply := appCtx.Commands.Handle(cmd.Context(), service.IncomingCommand{
				Text: strings.Join(args, " "),
			})
			if reply.Reply == "" {
				return fmt.Errorf("not a command: %q", strings.Join(args, " "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Reply)
			return nil
		},
	}
}
