// Package main provides a command line front end to the NFT report pipeline.
package main

import (
	"os"

	"github.com/nft-wallet-report/cmd/nftreport/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
