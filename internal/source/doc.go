// Package source реализует источники ответов для шагов deck.
//
// Source — единственная возможность, через которую runtime получает ответ
// для endpoint'а. Реализаций две:
//
//   - MockSource — отдаёт заготовленные fixtures (api-mocks.json) с
//     необязательной искусственной задержкой
//   - HTTPSource — выполняет ровно один HTTP-запрос к удалённому API
//
// Какая реализация используется, решается один раз при создании (New),
// а не на каждый вызов.
//
// Все ошибки возвращаются как *Failure с категорией domain.ErrorKind,
// поэтому runtime может без анализа строк построить domain.ErrorInfo.
package source
