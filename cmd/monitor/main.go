package main

import (
	"context"
	"fmt"
	"os"

	"fraud-monitor/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd(nil)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
