// Пакет notify — очередь одноразовых уведомлений клиента (flash-сообщения).
// Уведомление хранит ключ перевода, текст формируется при отрисовке
// в активной локали клиента.
package notify

import "sync"

// Level — важность уведомления.
type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Error   Level = "error"
)

// maxPending — сколько уведомлений хранится до показа.
const maxPending = 16

// Notice — уведомление для показа на следующей странице.
type Notice struct {
	Level Level
	// Key — ключ перевода.
	Key string
	// Args — аргументы для форматной строки перевода.
	Args []any
}

// Queue — потокобезопасная очередь уведомлений одного клиента.
type Queue struct {
	mu      sync.Mutex
	pending []Notice
}

// Push добавляет уведомление; самые старые вытесняются при переполнении.
func (q *Queue) Push(level Level, key string, args ...any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, Notice{Level: level, Key: key, Args: args})
	if n := len(q.pending); n > maxPending {
		q.pending = q.pending[n-maxPending:]
	}
}

// Drain возвращает накопленные уведомления и очищает очередь.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len возвращает число ожидающих уведомлений.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
