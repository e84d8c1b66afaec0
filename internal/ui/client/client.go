// Пакет client — контекст клиента портала (одного браузера).
//
// Client объединяет LocaleEngine, Translator, SessionStore, AccessGate
// и очередь уведомлений. Контексты живут в ограниченном LRU-реестре
// с TTL и передаются обработчикам через context запроса.
package client

import (
	"context"

	"github.com/bigkaa/cleancity/portal/internal/access"
	"github.com/bigkaa/cleancity/portal/internal/identity"
	"github.com/bigkaa/cleancity/portal/internal/session"
	"github.com/bigkaa/cleancity/portal/internal/ui/i18n"
	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
)

// Provider — провайдер идентификации одного клиента.
type Provider interface {
	identity.Provider
	// RefreshToken — токен для сохранения в cookie клиента.
	RefreshToken() string
	// Close освобождает таймеры провайдера.
	Close()
}

// Client — контекст одного браузера.
type Client struct {
	ID         string
	Locale     *locale.Engine
	Translator *i18n.Translator
	Session    *session.Store
	Gate       *access.Gate
	Notices    *notify.Queue

	provider Provider
	cancel   context.CancelFunc
}

// RefreshToken возвращает текущий refresh token клиента.
func (c *Client) RefreshToken() string {
	return c.provider.RefreshToken()
}

// Close останавливает начальную проверку, отписывает Store и провайдер.
func (c *Client) Close() {
	c.cancel()
	c.Session.Close()
	c.provider.Close()
}

type contextKey struct{}

// WithClient помещает Client в context.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext извлекает Client из context (nil, если его нет).
func FromContext(ctx context.Context) *Client {
	c, _ := ctx.Value(contextKey{}).(*Client)
	return c
}
