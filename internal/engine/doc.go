// Package engine отвечает за понимание manifest.
//
// Включает:
//   - parser.go   — загрузка Manifest и Fixtures из JSON или YAML
//   - registry.go — Endpoint Registry: stepID → EndpointConfig
//   - template.go — рендеринг URL-шаблонов ({{ .Inputs.url }})
//
// Всё, что может быть проверено до сетевого вызова, проверяется здесь,
// при загрузке: ошибки конфигурации не должны всплывать в момент запуска шага.
package engine
