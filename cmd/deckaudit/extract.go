package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/deck-auditor/backend/internal/numbers"
)

func newExtractCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract <text>",
		Short: "Show the numbers found in a piece of text",
		Long: `Extract runs the deck number extractor over the given text and prints each
number with its parsed value and classification.

Examples:
  deckaudit extract "Revenue grew 12% to ₹1.5 Cr"
  deckaudit extract --json "Headcount 4,200"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := numbers.ExtractTokens(strings.Join(args, " "))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tokens)
			}

			if len(tokens) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no numbers found")
				return err
			}

			re := lipgloss.NewRenderer(cmd.OutOrStdout())
			pad := re.NewStyle().Padding(0, 1)
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("TEXT", "VALUE", "CLASS").
				StyleFunc(func(row, col int) lipgloss.Style { return pad })
			for _, tok := range tokens {
				t.Row(tok.RawText, numbers.FormatValue(tok.Value), string(tok.Classification))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print tokens as JSON")
	return cmd
}
