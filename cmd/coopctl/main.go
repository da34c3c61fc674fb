// coopctl runs, stresses and serves a cooperative runtime from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/Swind/go-coop/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
