package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Deck/internal/domain"
)

// NewStateCmd создаёт группу команд для наблюдения за состоянием.
func NewStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Observe runtime state",
	}

	cmd.AddCommand(
		newStateShowCmd(clientFn, outputFn),
		newStateWatchCmd(clientFn, outputFn),
	)

	return cmd
}

func newStateShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := clientFn().GetState()
			if err != nil {
				return err
			}

			outputFn().State(*st)
			return nil
		},
	}
}

func newStateWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var untilTerminal bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream state transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return clientFn().WatchState(cmd.Context(), func(st domain.State) bool {
				out.State(st)
				return !(untilTerminal && st.Phase.IsTerminal())
			})
		},
	}

	cmd.Flags().BoolVar(&untilTerminal, "until-terminal", false, "Exit after the first SUCCEEDED or FAILED state")

	return cmd
}
