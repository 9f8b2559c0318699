package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "rightsctl",
		Short:         "Command line client for the rightsplace report API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("server", envOr("RIGHTSPLACE_SERVER", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().String("token", os.Getenv("RIGHTSPLACE_TOKEN"), "bearer token; empty submits anonymously")
	root.AddCommand(newSubmitCommand())
	return root
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
