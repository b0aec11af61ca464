package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewDecksCmd создаёт группу команд для сохранённых decks.
func NewDecksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decks",
		Short: "Browse stored decks",
	}

	cmd.AddCommand(
		newDecksListCmd(clientFn, outputFn),
		newDecksShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newDecksListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored decks",
		RunE: func(cmd *cobra.Command, args []string) error {
			decks, err := clientFn().ListDecks()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "VERSION", "CREATED"}
			rows := make([][]string, len(decks))
			for i, d := range decks {
				rows[i] = []string{d.ID, d.Name, strconv.Itoa(d.LatestVersion), d.CreatedAt}
			}

			outputFn().Print(headers, rows, decks)
			return nil
		},
	}
}

func newDecksShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show a stored deck version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dv, err := clientFn().GetDeck(args[0], version)
			if err != nil {
				return err
			}

			out := outputFn()
			headers := []string{"STEP", "ENDPOINT"}
			rows := make([][]string, len(dv.Manifest.Steps))
			for i, s := range dv.Manifest.Steps {
				rows[i] = []string{s.ID, s.Action.EndpointRef}
			}

			out.Success(dv.Name + " v" + strconv.Itoa(dv.Version) + ", " + strconv.Itoa(dv.Fixtures) + " fixtures")
			out.Print(headers, rows, dv)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Deck version (latest if not specified)")

	return cmd
}
