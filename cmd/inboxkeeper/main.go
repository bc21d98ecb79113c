package main

import (
	"os"

	"github.com/solatis/inboxkeeper/cmd/inboxkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
