// loader.go — загрузка каталогов переводов из embed.FS.
package i18n

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
)

// LoadFromEmbedFS загружает каталоги всех поддерживаемых локалей.
// Ожидаемые файлы: locales/ar.json, locales/fr.json, locales/en.json.
// Неполнота каталогов логируется как предупреждение.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	for _, code := range locale.Codes {
		path := fmt.Sprintf("locales/%s.json", code)
		data, err := LocaleFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("i18n: не удалось прочитать %s: %w", path, err)
		}
		if err := bundle.LoadMessages(code, data); err != nil {
			return err
		}
	}

	for code, keys := range bundle.MissingKeys() {
		logger.Warn("i18n каталог неполон",
			slog.String("lang", string(code)),
			slog.Int("missing", len(keys)),
			slog.String("keys", strings.Join(keys, ",")),
		)
	}

	logger.Info("i18n каталоги загружены", slog.Int("languages", len(locale.Codes)))
	return nil
}
