package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/randomtoy/mysticorb/internal/adapters/cards"
	"github.com/randomtoy/mysticorb/internal/adapters/catalog"
	"github.com/randomtoy/mysticorb/internal/adapters/decks"
	"github.com/randomtoy/mysticorb/internal/app"
	"github.com/randomtoy/mysticorb/internal/config"
	"github.com/randomtoy/mysticorb/internal/domain"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	faintColor = color.New(color.Faint)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
)

func newDecksCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "decks",
		Short: "List saved decks and how many of their cards still resolve",
		Long: `Decks reads the local data directory and prints every deck with its
resolved and unresolved member counts. Stop the server first: the card
database allows a single process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				dataDir = config.DataDir()
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

			cardStore := cards.New(filepath.Join(dataDir, "cards"), logger)
			defer cardStore.Close()
			deckStore := decks.New(filepath.Join(dataDir, "decks.db"), logger)
			defer deckStore.Close()

			builder := app.NewDeckBuilder(catalog.NewEmbeddedStore(), cardStore, deckStore, logger)
			return printDecks(cmd, builder)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default $DATA_DIR or ./data)")
	return cmd
}

func printDecks(cmd *cobra.Command, builder *app.DeckBuilder) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	list, err := builder.ListDecks(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		faintColor.Fprintln(out, "no decks yet")
		return nil
	}
	coll, err := builder.Collection(ctx)
	if err != nil {
		return err
	}

	for _, d := range list {
		res := coll.Resolve(d)
		titleColor.Fprint(out, d.Name)
		faintColor.Fprintf(out, "  %s\n", d.ID)
		okColor.Fprintf(out, "  %d cards", len(res.Cards))
		if res.Unresolved > 0 {
			warnColor.Fprintf(out, ", %d unresolved", res.Unresolved)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the Major Arcana and the available spreads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCatalog(cmd, catalog.NewEmbeddedStore())
		},
	}
}

func printCatalog(cmd *cobra.Command, cat *catalog.EmbeddedStore) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cardList, err := cat.Cards(ctx)
	if err != nil {
		return err
	}
	spreads, err := cat.Spreads(ctx)
	if err != nil {
		return err
	}

	titleColor.Fprintln(out, "Major Arcana")
	for i, c := range cardList {
		fmt.Fprintf(out, "  %2d  %-20s", i, c.Name)
		faintColor.Fprintln(out, c.ID)
	}
	fmt.Fprintln(out)
	titleColor.Fprintln(out, "Spreads")
	printSpreads(out, spreads)
	return nil
}

func printSpreads(out io.Writer, spreads []domain.Spread) {
	for _, s := range spreads {
		fmt.Fprintf(out, "  %-6s %s ", s.ID, s.Name)
		faintColor.Fprintf(out, "(%s)\n", strings.Join(s.Positions, ", "))
	}
}
