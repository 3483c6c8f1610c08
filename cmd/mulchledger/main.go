// Command mulchledger operates the garden mulch distribution ledger.
package main

import (
	"fmt"
	"os"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
