// Пакет pages — HTML-страницы портала (html/template).
//
// View — данные одной страницы: активная локаль клиента, снимок сессии,
// уведомления и форма. Переводы и форматирование чисел выполняются
// методами View прямо в шаблонах: {{.T "nav.dashboard"}}, {{.Num .Balance}}.
package pages

import (
	"time"

	"github.com/bigkaa/cleancity/portal/internal/session"
	"github.com/bigkaa/cleancity/portal/internal/ui/i18n"
	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
)

// Notice — уведомление, уже переведённое в активную локаль.
type Notice struct {
	Level string
	Text  string
}

// Form — значения и ошибки полей формы.
// Errors содержит ключи перевода (validation.*).
type Form struct {
	Values map[string]string
	Errors map[string]string
}

// NewForm создаёт пустую форму.
func NewForm() *Form {
	return &Form{Values: map[string]string{}, Errors: map[string]string{}}
}

// View — данные для отрисовки страницы.
type View struct {
	// Title — ключ перевода заголовка
	Title string
	// Path — текущий путь (возврат после смены языка)
	Path    string
	Session session.Snapshot
	Notices []Notice
	Form    *Form
	Data    any
	// Refresh — автообновление через N секунд (0 — выключено)
	Refresh int

	engine *locale.Engine
	tr     *i18n.Translator
}

// NewView создаёт View для локали engine.
func NewView(engine *locale.Engine, tr *i18n.Translator, title string) *View {
	return &View{Title: title, Form: NewForm(), engine: engine, tr: tr}
}

// Lang — код активной локали для <html lang>.
func (v *View) Lang() string {
	return string(v.engine.Code())
}

// Dir — направление письма для <html dir>.
func (v *View) Dir() string {
	return string(v.engine.Direction())
}

// Locales — локали для переключателя языка.
func (v *View) Locales() []locale.Locale {
	return v.engine.Available()
}

// T переводит ключ.
func (v *View) T(key string) string {
	return v.tr.T(key)
}

// Tf переводит ключ с форматной строкой.
func (v *View) Tf(key string, args ...any) string {
	return v.tr.Tf(key, args...)
}

// Num форматирует число по правилам локали.
func (v *View) Num(n any) string {
	switch x := n.(type) {
	case int:
		return v.engine.FormatNumber(float64(x))
	case int64:
		return v.engine.FormatNumber(float64(x))
	case float64:
		return v.engine.FormatNumber(x)
	default:
		return ""
	}
}

// Date форматирует дату цифрами локали.
func (v *View) Date(t time.Time) string {
	return v.engine.FormatDate(t)
}

// Value — значение поля формы.
func (v *View) Value(field string) string {
	if v.Form == nil {
		return ""
	}
	return v.Form.Values[field]
}

// Error — переведённая ошибка поля формы или "".
func (v *View) Error(field string) string {
	if v.Form == nil {
		return ""
	}
	if key, ok := v.Form.Errors[field]; ok {
		return v.tr.T(key)
	}
	return ""
}

// DisplayName — имя пользователя для шапки.
func (v *View) DisplayName() string {
	if p := v.Session.Profile; p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	return v.Session.Email
}
