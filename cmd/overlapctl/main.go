package main

import (
	"os"

	overlapctlcmd "github.com/moative/overlap-escalation/pkg/overlapctl/cmd"
)

func main() {
	root := overlapctlcmd.NewRootCommand(overlapctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
