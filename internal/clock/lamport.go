// Package clock содержит логические часы, которыми упорядочиваются
// мутации, поставленные в очередь в одну и ту же миллисекунду.
package clock

import "sync"

// LamportClock представляет логические часы Лампорта.
// Счетчик монотонно растет и может быть восстановлен после перезапуска.
type LamportClock struct {
	counter int64      // монотонно возрастающий счетчик
	mu      sync.Mutex // мьютекс для потокобезопасности
}

// NewLamportClock создает часы со счетчиком 0.
func NewLamportClock() *LamportClock {
	return &LamportClock{}
}

// Tick увеличивает счетчик и возвращает новое значение.
// Используется при постановке новой мутации в очередь.
func (lc *LamportClock) Tick() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return lc.counter
}

// Observe продвигает счетчик до seen, если seen больше текущего значения.
// Используется при восстановлении из сохраненной очереди: после Observe
// следующий Tick вернет значение строго больше любого наблюдаемого.
func (lc *LamportClock) Observe(seen int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if seen > lc.counter {
		lc.counter = seen
	}
}

// Current возвращает текущее значение счетчика без его изменения.
func (lc *LamportClock) Current() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.counter
}
