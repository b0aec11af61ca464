// deck CLI — инструмент командной строки для deck-api.
//
// Использование:
//
//	deck [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	steps     Просмотр шагов deck
//	run       Запуск шага
//	state     Текущее состояние и поток переходов
//	decks     Сохранённые decks
//	manifest  Проверка и импорт manifest-файлов
//	events    События состояния из RabbitMQ
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Deck/internal/cli"
	"github.com/shaiso/Deck/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "deck",
		Short:         "Deck CLI — run deck steps and observe their state",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("DECK_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level for local commands")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	loggerFn := func() *slog.Logger { return telemetry.NewLogger(os.Stderr, logLevel, "text") }

	rootCmd.AddCommand(
		cli.NewStepsCmd(clientFn, outputFn),
		cli.NewRunCmd(clientFn, outputFn),
		cli.NewStateCmd(clientFn, outputFn),
		cli.NewDecksCmd(clientFn, outputFn),
		cli.NewManifestCmd(outputFn),
		cli.NewEventsCmd(outputFn, loggerFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
