package locale

import (
	"sync"
	"time"
)

// Engine хранит активную локаль клиентского контекста.
// Код и направление меняются одной операцией под мьютексом.
type Engine struct {
	mu        sync.RWMutex
	locales   map[Code]Locale
	active    Locale
	listeners map[int]func(Locale)
	nextID    int
}

// NewEngine создаёт Engine с начальной локалью initial.
// Неподдерживаемый initial заменяется на арабскую локаль.
func NewEngine(initial Code, opts Options) *Engine {
	locales := buildLocales(opts)
	active, ok := locales[initial]
	if !ok {
		active = locales[Arabic]
	}
	return &Engine{
		locales:   locales,
		active:    active,
		listeners: make(map[int]func(Locale)),
	}
}

// Active возвращает активную локаль.
func (e *Engine) Active() Locale {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// Code — код активной локали.
func (e *Engine) Code() Code {
	return e.Active().Code
}

// Direction — направление письма активной локали.
func (e *Engine) Direction() Direction {
	return e.Active().Direction
}

// Set переключает активную локаль.
// Неподдерживаемый код игнорируется. Повторная установка того же кода
// ничего не меняет. Возвращает true, если локаль изменилась.
func (e *Engine) Set(code string) bool {
	c, ok := ParseCode(code)
	if !ok {
		return false
	}

	e.mu.Lock()
	if e.active.Code == c {
		e.mu.Unlock()
		return false
	}
	e.active = e.locales[c]
	next := e.active
	listeners := make([]func(Locale), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return true
}

// FormatNumber форматирует число по правилам активной локали.
func (e *Engine) FormatNumber(v float64) string {
	return e.Active().FormatNumber(v)
}

// FormatDate форматирует дату по правилам активной локали.
func (e *Engine) FormatDate(t time.Time) string {
	return e.Active().FormatDate(t)
}

// Available возвращает все локали в порядке отображения.
func (e *Engine) Available() []Locale {
	out := make([]Locale, 0, len(Codes))
	for _, c := range Codes {
		out = append(out, e.locales[c])
	}
	return out
}

// OnChange подписывает fn на смену локали. Возвращает функцию отписки.
func (e *Engine) OnChange(fn func(Locale)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}
