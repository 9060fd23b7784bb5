// This program is a wallet for signing and submitting operations to a node.
package main

import "github.com/ardanlabs/rewardchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
