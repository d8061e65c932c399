package main

import (
	"os"

	"github.com/BjornMelin/contribux-sub004/cmd/testharness/cmd"
	"github.com/BjornMelin/contribux-sub004/internal/common"
)

func main() {
	common.ConfigureCommandLineLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
