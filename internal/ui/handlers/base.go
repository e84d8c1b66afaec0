// Пакет handlers — HTTP-обработчики страниц портала CleanCity.
//
// Каждый обработчик получает контекст клиента (locale, сессия, gate,
// уведомления) из context запроса, который заполняет client.Registry.
// Ошибки внешних вызовов превращаются в локализованные уведомления,
// ошибки валидации показываются у полей формы.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/bigkaa/cleancity/portal/internal/identity"
	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/ui/client"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
	"github.com/bigkaa/cleancity/portal/internal/ui/pages"
)

// CookieSaver обновляет cookie клиента после смены сессии.
type CookieSaver interface {
	SaveCookie(w http.ResponseWriter, c *client.Client)
}

// Base — общие зависимости и помощники обработчиков.
type Base struct {
	renderer *pages.Renderer
	cookies  CookieSaver
	secure   bool
	logger   *slog.Logger
}

// NewBase создаёт Base. secure — выставлять Secure у cookie языка.
func NewBase(renderer *pages.Renderer, cookies CookieSaver, secure bool, logger *slog.Logger) *Base {
	return &Base{
		renderer: renderer,
		cookies:  cookies,
		secure:   secure,
		logger:   logger.With(slog.String("component", "ui")),
	}
}

// clientOf возвращает контекст клиента запроса.
func clientOf(r *http.Request) *client.Client {
	return client.FromContext(r.Context())
}

// view собирает данные страницы и забирает накопленные уведомления.
func (b *Base) view(r *http.Request, title string) *pages.View {
	c := clientOf(r)
	v := pages.NewView(c.Locale, c.Translator, title)
	v.Path = r.URL.RequestURI()
	v.Session = c.Session.Snapshot()

	for _, n := range c.Notices.Drain() {
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			switch x := a.(type) {
			case int:
				args[i] = c.Locale.FormatNumber(float64(x))
			case float64:
				args[i] = c.Locale.FormatNumber(x)
			default:
				args[i] = a
			}
		}
		v.Notices = append(v.Notices, pages.Notice{
			Level: string(n.Level),
			Text:  c.Translator.Tf(n.Key, args...),
		})
	}
	return v
}

// render отрисовывает страницу; ошибка шаблона — 500 без тела страницы.
func (b *Base) render(w http.ResponseWriter, status int, name string, v *pages.View) {
	if err := b.renderer.Render(w, status, name, v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// notify ставит уведомление в очередь клиента.
func (b *Base) notify(r *http.Request, level notify.Level, key string, args ...any) {
	clientOf(r).Notices.Push(level, key, args...)
}

// redirect — 303 See Other на target.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail обрабатывает ошибку внешнего вызова: лог, уведомление,
// возврат на стабильную страницу back.
func (b *Base) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	b.logError(r, err)
	b.notify(r, notify.Error, errorKey(err))
	redirect(w, r, back)
}

// failPage отрисовывает страницу ошибки для GET-запросов.
func (b *Base) failPage(w http.ResponseWriter, r *http.Request, err error) {
	b.logError(r, err)
	v := b.view(r, "error.title")
	v.Data = errorKey(err)
	b.render(w, statusFor(err), "error", v)
}

func (b *Base) logError(r *http.Request, err error) {
	level := slog.LevelError
	if statusFor(err) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	b.logger.LogAttrs(r.Context(), level, "Ошибка обработки запроса",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

// NotFound — страница 404.
func (b *Base) NotFound(w http.ResponseWriter, r *http.Request) {
	v := b.view(r, "error.title")
	v.Data = "error.not_found"
	b.render(w, http.StatusNotFound, "error", v)
}

// errorKey переводит ошибку в ключ перевода.
func errorKey(err error) string {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "error.invalid_credentials"
	case errors.Is(err, identity.ErrUserExists):
		return "error.user_exists"
	case errors.Is(err, identity.ErrUnavailable):
		return "error.unavailable"
	case errors.Is(err, service.ErrInsufficientPoints):
		return "error.insufficient_points"
	case errors.Is(err, service.ErrOutOfStock):
		return "error.out_of_stock"
	case errors.Is(err, service.ErrNotFound):
		return "error.not_found"
	case errors.Is(err, service.ErrForbidden):
		return "error.forbidden"
	case errors.Is(err, service.ErrValidation):
		return "error.validation"
	case errors.Is(err, service.ErrStorage):
		return "error.storage"
	default:
		return "error.generic"
	}
}

// statusFor — HTTP-статус для ошибки.
func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrUserExists),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, identity.ErrUnavailable), errors.Is(err, service.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorsIsValidation — ошибка проверки формы.
func errorsIsValidation(err error) bool {
	return errors.Is(err, service.ErrValidation)
}

// formErrors копирует ошибки полей в форму страницы.
// Возвращает false, если err не ошибка валидации.
func formErrors(v *pages.View, err error) bool {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	for field, key := range verr.Fields {
		v.Form.Errors[field] = key
	}
	return true
}

// validationKey — ключ первой (по имени поля) ошибки валидации.
func validationKey(err error) string {
	var verr *service.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return "error.validation"
	}
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return verr.Fields[fields[0]]
}

// safeRedirect допускает только локальные пути.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

// actor — пользователь запроса для операций сервисов.
func actor(r *http.Request) service.Actor {
	snap := clientOf(r).Session.Snapshot()
	return service.Actor{UserID: snap.UserID, Admin: snap.IsAdmin()}
}
