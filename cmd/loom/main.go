package main

import (
	"fmt"
	"os"

	"github.com/roasbeef/loom/cmd/loom/commands"
)

func main() {
	err := commands.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(commands.ExitCodeFor(err))
}
