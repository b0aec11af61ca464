package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Deck/internal/domain"
)

// NewRunCmd создаёт команду запуска шага.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var inputsFile string
	var apiKey string
	var wait bool

	cmd := &cobra.Command{
		Use:   "run STEP_ID",
		Short: "Run a step",
		Long: `Run a step of the deck.

Inputs are passed as KEY=VALUE pairs or read from a JSON/YAML file.
The API key is taken from --api-key or the DECK_API_KEY environment variable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := RunStepRequest{Wait: wait}

			var err error
			if inputsFile != "" {
				req.Inputs, err = readInputsFile(inputsFile)
				if err != nil {
					return err
				}
			}

			req.Inputs, err = parseInputs(req.Inputs, inputs)
			if err != nil {
				return err
			}

			if apiKey == "" {
				apiKey = os.Getenv("DECK_API_KEY")
			}
			if apiKey != "" {
				req.Inputs[domain.CredentialKey] = apiKey
			}

			run, err := client.RunStep(args[0], req)
			if err != nil {
				return err
			}

			if !wait {
				out.Success(fmt.Sprintf("Step started: seq %d", run.Seq))
			} else if run.Stale {
				out.Success(fmt.Sprintf("Run %d was superseded by a newer run", run.Seq))
			}
			out.State(run.State)

			if wait && run.State.Phase == domain.PhaseFailed {
				return fmt.Errorf("step %s failed", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&inputsFile, "inputs-file", "", "JSON or YAML file with inputs")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the remote service")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the step to finish")

	return cmd
}

// parseInputs добавляет пары KEY=VALUE к inputs.
func parseInputs(inputs domain.Inputs, kvs []string) (domain.Inputs, error) {
	if inputs == nil {
		inputs = make(domain.Inputs)
	}

	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
		}
		inputs[key] = value
	}

	return inputs, nil
}

// readInputsFile читает inputs из JSON или YAML файла.
func readInputsFile(path string) (domain.Inputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	var inputs domain.Inputs
	if err := yaml.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse inputs %s: %w", path, err)
	}
	return inputs, nil
}
