package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewStepsCmd создаёт группу команд для просмотра шагов.
func NewStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Inspect deck steps",
	}

	cmd.AddCommand(
		newStepsListCmd(clientFn, outputFn),
		newStepsShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newStepsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := client.ListSteps()
			if err != nil {
				return err
			}

			headers := []string{"ID", "TITLE", "METHOD", "ENDPOINT"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				method, ref := "", ""
				if s.Endpoint != nil {
					method, ref = s.Endpoint.Method, s.Endpoint.Ref
				}
				rows[i] = []string{s.ID, s.Title, method, ref}
			}

			out.Print(headers, rows, steps)
			return nil
		},
	}
}

func newStepsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show STEP_ID",
		Short: "Show step details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			step, err := client.GetStep(args[0])
			if err != nil {
				return err
			}
			if step.Endpoint == nil {
				return fmt.Errorf("step %s has no endpoint", step.ID)
			}

			ep := step.Endpoint
			out.Print(
				[]string{"ID", "METHOD", "URL", "AUTH", "TIMEOUT"},
				[][]string{{step.ID, ep.Method, ep.URL, ep.AuthPlacement, strconv.Itoa(ep.TimeoutSec)}},
				step,
			)
			return nil
		},
	}
}
