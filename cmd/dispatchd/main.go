package main

import (
	"fmt"
	"os"

	"github.com/jabolina/netdispatch/cmd/dispatchd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
