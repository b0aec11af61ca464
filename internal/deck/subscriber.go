package deck

import (
	"context"
	"sync"

	"github.com/shaiso/Deck/internal/domain"
)

// watchBuffer — размер буфера канала Watch.
const watchBuffer = 16

type subscription struct {
	id uint64
	fn func(domain.State)
}

// Subscribe регистрирует слушателя переходов состояния.
//
// Слушатели вызываются синхронно, по порядку подписки, после каждого
// перехода. Все слушатели видят переходы в порядке фиксации. Слушатель
// может вызывать Start: новый переход будет доставлен после текущего.
// Возвращает функцию отписки; повторный вызов безопасен.
func (r *Runtime) Subscribe(fn func(domain.State)) func() {
	r.mu.Lock()
	id, count := r.addSubscriberLocked(fn)
	r.mu.Unlock()

	r.metrics.SetSubscribers(count)
	return r.unsubscribeOnce(id)
}

// addSubscriberLocked добавляет слушателя. Вызывается под r.mu.
func (r *Runtime) addSubscriberLocked(fn func(domain.State)) (uint64, int) {
	r.nextSubID++
	id := r.nextSubID
	r.subs = append(r.subs, subscription{id: id, fn: fn})
	return id, len(r.subs)
}

func (r *Runtime) unsubscribeOnce(id uint64) func() {
	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(id) })
	}
}

func (r *Runtime) unsubscribe(id uint64) {
	r.mu.Lock()
	subs := make([]subscription, 0, len(r.subs))
	for _, s := range r.subs {
		if s.id != id {
			subs = append(subs, s)
		}
	}
	r.subs = subs
	count := len(subs)
	r.mu.Unlock()

	r.metrics.SetSubscribers(count)
}

// testHookWatchRegistered вызывается после регистрации Watch. Только для тестов.
var testHookWatchRegistered func()

// Watch возвращает канал с текущим состоянием и всеми последующими переходами.
//
// Снимок состояния и подписка берутся под одной блокировкой, поэтому переход
// не может проскочить между ними. Переходы из очереди, которые старше уже
// отправленного снимка, отбрасываются. Медленный читатель теряет переходы,
// когда буфер заполнен. Канал закрывается после отмены ctx.
func (r *Runtime) Watch(ctx context.Context) <-chan domain.State {
	ch := make(chan domain.State, watchBuffer)

	var (
		mu     sync.Mutex
		closed bool
		sent   bool
		last   domain.State
	)
	send := func(st domain.State) {
		mu.Lock()
		defer mu.Unlock()
		if closed || (sent && !newer(st, last)) {
			return
		}
		sent = true
		last = st
		select {
		case ch <- st:
		default:
		}
	}

	r.mu.Lock()
	send(r.state)
	id, count := r.addSubscriberLocked(send)
	r.mu.Unlock()

	r.metrics.SetSubscribers(count)
	unsubscribe := r.unsubscribeOnce(id)

	if testHookWatchRegistered != nil {
		testHookWatchRegistered()
	}

	go func() {
		<-ctx.Done()
		unsubscribe()

		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

// newer сообщает, зафиксирован ли st позже prev.
// Зафиксированные состояния упорядочены по (Seq, фаза): LOADING раньше терминальной.
func newer(st, prev domain.State) bool {
	if st.Seq != prev.Seq {
		return st.Seq > prev.Seq
	}
	return phaseRank(st.Phase) > phaseRank(prev.Phase)
}

func phaseRank(p domain.Phase) int {
	switch {
	case p.IsTerminal():
		return 2
	case p == domain.PhaseLoading:
		return 1
	default:
		return 0
	}
}

// dispatch доставляет накопленные переходы подписчикам.
//
// Доставкой занимается одна горутина за раз; вызовы, пришедшие во время
// доставки (в т.ч. из самих слушателей), только пополняют очередь.
func (r *Runtime) dispatch() {
	r.mu.Lock()
	if r.dispatching {
		r.mu.Unlock()
		return
	}
	r.dispatching = true

	for len(r.pending) > 0 {
		st := r.pending[0]
		r.pending = r.pending[1:]
		subs := append([]subscription(nil), r.subs...)
		r.mu.Unlock()

		for _, s := range subs {
			r.notify(s, st)
		}

		r.mu.Lock()
	}

	r.dispatching = false
	r.mu.Unlock()
}

// notify вызывает слушателя, перехватывая panic.
func (r *Runtime) notify(s subscription, st domain.State) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("subscriber panicked",
				"subscriber", s.id,
				"phase", st.Phase,
				"panic", p,
			)
		}
	}()
	s.fn(st)
}
