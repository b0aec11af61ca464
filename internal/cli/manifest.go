package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
	"github.com/shaiso/Deck/internal/repo"
)

// NewManifestCmd создаёт группу команд для работы с manifest-файлами.
// Команды работают локально, без API.
func NewManifestCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Validate and import deck manifests",
	}

	cmd.AddCommand(
		newManifestValidateCmd(outputFn),
		newManifestImportCmd(outputFn),
		newManifestDeleteCmd(outputFn),
	)

	return cmd
}

func newManifestValidateCmd(outputFn func() *Output) *cobra.Command {
	var fixturesPath string

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a manifest file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			m, fixtures, err := loadDeckFiles(args[0], fixturesPath)
			if err != nil {
				return err
			}

			reg, err := engine.NewRegistry(m)
			if err != nil {
				return err
			}

			headers := []string{"STEP", "ENDPOINT", "METHOD", "MOCK"}
			rows := make([][]string, 0, reg.Count())
			var missing []string
			for _, step := range reg.Steps() {
				ep, err := reg.Resolve(step.ID)
				if err != nil {
					return err
				}

				mock := "-"
				if fixtures != nil {
					if _, ok := fixtures[ep.MockKey]; ok {
						mock = ep.MockKey
					} else {
						mock = "missing"
						missing = append(missing, ep.MockKey)
					}
				}
				rows = append(rows, []string{step.ID, ep.Ref, string(ep.Method), mock})
			}

			out.Print(headers, rows, m)

			if len(missing) > 0 {
				return fmt.Errorf("fixtures missing for mock keys: %v", missing)
			}
			out.Success(fmt.Sprintf("Manifest is valid: %d steps, %d endpoints", reg.Count(), len(reg.Endpoints())))
			return nil
		},
	}

	cmd.Flags().StringVar(&fixturesPath, "fixtures", "", "Fixtures file to check against the manifest")

	return cmd
}

func newManifestImportCmd(outputFn func() *Output) *cobra.Command {
	var fixturesPath string
	var name string
	var dbURL string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a manifest as a new deck version in Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			m, fixtures, err := loadDeckFiles(args[0], fixturesPath)
			if err != nil {
				return err
			}

			if name == "" {
				name = m.Name
			}
			if name == "" {
				return fmt.Errorf("deck name is required: set --name or the manifest name")
			}

			decks, closeFn, err := openDeckRepo(ctx, dbURL)
			if err != nil {
				return err
			}
			defer closeFn()

			dv, err := decks.Save(ctx, name, m, fixtures)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Deck imported: %s v%d", name, dv.Version))
			out.Print(
				[]string{"DECK_ID", "NAME", "VERSION", "STEPS"},
				[][]string{{dv.DeckID.String(), name, strconv.Itoa(dv.Version), strconv.Itoa(len(dv.Manifest.Steps))}},
				dv,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&fixturesPath, "fixtures", "", "Fixtures file to store with the manifest")
	cmd.Flags().StringVar(&name, "name", "", "Deck name (manifest name if not specified)")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Postgres connection string (DB_URL)")

	return cmd
}

func newManifestDeleteCmd(outputFn func() *Output) *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored deck with all its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decks, closeFn, err := openDeckRepo(cmd.Context(), dbURL)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := decks.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return fmt.Errorf("deck %q not found", args[0])
				}
				return err
			}

			outputFn().Success(fmt.Sprintf("Deck deleted: %s", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db-url", "", "Postgres connection string (DB_URL)")

	return cmd
}

// openDeckRepo подключается к Postgres и создаёт схему, если её нет.
func openDeckRepo(ctx context.Context, dbURL string) (*repo.DeckRepo, func(), error) {
	if dbURL == "" {
		dbURL = os.Getenv("DB_URL")
	}

	pool, err := repo.NewPool(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repo.NewDeckRepo(pool), pool.Close, nil
}

// loadDeckFiles читает manifest и, если указаны, fixtures.
func loadDeckFiles(manifestPath, fixturesPath string) (*domain.Manifest, domain.Fixtures, error) {
	m, err := engine.LoadManifest(manifestPath)
	if err != nil {
		return nil, nil, err
	}

	if fixturesPath == "" {
		return m, nil, nil
	}

	fixtures, err := engine.LoadFixtures(fixturesPath)
	if err != nil {
		return nil, nil, err
	}
	return m, fixtures, nil
}
