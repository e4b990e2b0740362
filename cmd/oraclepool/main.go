package main

import (
	"fmt"
	"os"

	"github.com/oraclesuite/go-oraclepool/cmd/oraclepool/launcher"
)

func main() {
	if err := launcher.Launch(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
