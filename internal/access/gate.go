// Пакет access — производные от сессии решения о доступе к страницам.
// Решение вычисляется из актуального снимка сессии при каждом вызове
// и нигде не кэшируется.
package access

import (
	"context"
	"time"

	"github.com/bigkaa/cleancity/portal/internal/session"
)

// Decision — результат проверки доступа.
type Decision int

const (
	// Wait — сессия ещё загружается, решение отложено.
	Wait Decision = iota
	// Deny — доступ запрещён.
	Deny
	// Allow — доступ разрешён.
	Allow
)

// String возвращает имя решения для логов.
func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Deny:
		return "deny"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// SessionSource — источник снимков сессии (реализует *session.Store).
type SessionSource interface {
	Snapshot() session.Snapshot
	WaitSettled(ctx context.Context) error
}

// Gate — проверки доступа поверх сессии клиента.
type Gate struct {
	src SessionSource
}

// NewGate создаёт Gate.
func NewGate(src SessionSource) *Gate {
	return &Gate{src: src}
}

// IsAuthenticated — пользователь вошёл.
func (g *Gate) IsAuthenticated() bool {
	return g.src.Snapshot().IsAuthenticated()
}

// IsAdmin — роль admin подтверждена и ничего не загружается.
func (g *Gate) IsAdmin() bool {
	return g.src.Snapshot().IsAdmin()
}

// Decide вычисляет решение для страницы.
func (g *Gate) Decide(requireAdmin bool) Decision {
	return decide(g.src.Snapshot(), requireAdmin)
}

// Await ждёт завершения загрузки сессии не дольше timeout
// и возвращает итоговое решение (Wait, если загрузка не успела).
func (g *Gate) Await(ctx context.Context, requireAdmin bool, timeout time.Duration) Decision {
	if d := g.Decide(requireAdmin); d != Wait || timeout <= 0 {
		return d
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = g.src.WaitSettled(waitCtx)

	return g.Decide(requireAdmin)
}

func decide(snap session.Snapshot, requireAdmin bool) Decision {
	if snap.Loading {
		return Wait
	}
	if !snap.IsAuthenticated() {
		return Deny
	}
	if requireAdmin && !snap.IsAdmin() {
		return Deny
	}
	return Allow
}
