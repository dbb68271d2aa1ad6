package main

import (
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/randomtoy/mysticorb/internal/config"
)

// stdRNG delegates to math/rand/v2 (auto-seeded).
type stdRNG struct{}

func (stdRNG) Intn(n int) int { return rand.IntN(n) }

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	cmd := &cobra.Command{
		Use:   "tarotd",
		Short: "Tarot reading service with generated cards and personal decks",
		Long: `tarotd serves tarot readings interpreted by a language model, read aloud
on request, and lets users forge new cards and arrange them into decks.

Run without a subcommand to start the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv()
		},
		RunE: serve.RunE,
	}

	cmd.AddCommand(serve, newDecksCmd(), newCatalogCmd())
	return cmd
}
