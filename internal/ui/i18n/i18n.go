// Пакет i18n — таблица переводов портала.
// Каталоги — плоские JSON (ключ → строка) для каждой локали.
// Отсутствующий ключ возвращается как есть: непереведённый текст
// виден в интерфейсе, но страница не ломается.
package i18n

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
)

// Bundle — хранилище переводов для всех локалей.
// Загружается один раз при старте приложения.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[locale.Code]map[string]string // локаль → ключ → перевод
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[locale.Code]map[string]string),
		logger:   logger,
	}
}

// LoadMessages загружает JSON-каталог переводов для указанной локали.
func (b *Bundle) LoadMessages(code locale.Code, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", code, err)
	}
	for key, msg := range messages {
		if msg == "" {
			return fmt.Errorf("i18n: пустой перевод %q в каталоге %s", key, code)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[code] = messages

	if b.logger != nil {
		b.logger.Info("i18n каталог загружен",
			slog.String("lang", string(code)),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Translate возвращает перевод по ключу для указанной локали.
// Если ключ не найден — возвращает сам ключ.
func (b *Bundle) Translate(code locale.Code, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if catalog, ok := b.catalogs[code]; ok {
		if msg, ok := catalog[key]; ok {
			return msg
		}
	}
	return key
}

// Translatef возвращает перевод по ключу с подстановкой аргументов.
func (b *Bundle) Translatef(code locale.Code, key string, args ...any) string {
	template := b.Translate(code, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

// Keys возвращает отсортированное объединение ключей всех каталогов.
func (b *Bundle) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	set := make(map[string]struct{})
	for _, catalog := range b.catalogs {
		for key := range catalog {
			set[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MissingKeys возвращает ключи, отсутствующие в каталоге каждой локали,
// относительно объединения всех каталогов. Пустой результат — каталоги полны.
func (b *Bundle) MissingKeys() map[locale.Code][]string {
	keys := b.Keys()

	b.mu.RLock()
	defer b.mu.RUnlock()

	missing := make(map[locale.Code][]string)
	for _, code := range locale.Codes {
		catalog := b.catalogs[code]
		for _, key := range keys {
			if _, ok := catalog[key]; !ok {
				missing[code] = append(missing[code], key)
			}
		}
	}
	return missing
}

// formatFunc — fmt.Sprintf через переменную: формат-строки приходят
// из JSON-каталогов, go vet не может их проверить.
//
//nolint:govet // обход go vet printf-анализатора
var formatFunc = fmt.Sprintf

// --- Translator ---

// Translator — перевод под активную локаль клиентского контекста.
type Translator struct {
	bundle *Bundle
	engine *locale.Engine
}

// NewTranslator связывает Bundle с LocaleEngine клиента.
func NewTranslator(bundle *Bundle, engine *locale.Engine) *Translator {
	return &Translator{bundle: bundle, engine: engine}
}

// T возвращает перевод ключа для активной локали.
func (t *Translator) T(key string) string {
	return t.bundle.Translate(t.engine.Code(), key)
}

// Tf возвращает перевод с подстановкой аргументов.
func (t *Translator) Tf(key string, args ...any) string {
	return t.bundle.Translatef(t.engine.Code(), key, args...)
}
