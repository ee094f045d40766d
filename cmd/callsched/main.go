package main

import (
	"fmt"
	"os"

	"github.com/DEEJ4Y/callsched/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
