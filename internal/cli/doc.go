// Package cli реализует инструмент командной строки deck.
//
// # Обзор
//
// CLI — клиентская утилита для deck-api: просмотр шагов, запуск шагов
// и наблюдение за состоянием. Работает через HTTP и websocket,
// не импортирует internal/api.
//
// Команды manifest и events работают без API: первая читает файлы
// и пишет в Postgres, вторая читает события состояния из RabbitMQ.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для deck API. Инкапсулирует HTTP-запросы, парсинг ответов
// (DataResponse, ListResponse, ErrorResponse) и websocket-поток состояний.
//
//	client := cli.NewClient("http://localhost:8080")
//	steps, err := client.ListSteps()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: deck state watch --json | jq .
//
// ## Commands
//
//   - steps: list, show
//   - run STEP_ID
//   - state: show, watch
//   - decks: list, show
//   - manifest: validate, import, delete
//   - events
//
// Каждая группа создаётся через фабричную функцию (NewStepsCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
