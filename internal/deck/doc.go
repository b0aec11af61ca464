// Package deck реализует Deck Runtime — диспетчер шагов deck.
//
// Runtime принимает (stepID, inputs), разрешает шаг через реестр endpoint'ов,
// получает ответ из source.Source и публикует единое состояние выполнения
// всем подписчикам.
//
// Жизненный цикл состояния:
//
//	IDLE → LOADING → SUCCEEDED | FAILED → LOADING → ...
//
// Каждый запуск получает монотонный номер seq. Терминальное состояние
// фиксируется, только если его seq — последний выданный; результаты
// устаревших запусков отбрасываются.
//
// Runtime создаётся один раз на приложение и передаётся явно
// (через интерфейсы Deck и Observer), глобального состояния нет.
package deck
