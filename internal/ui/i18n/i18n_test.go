package i18n

import (
	"log/slog"
	"os"
	"testing"

	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
)

func loadedBundle(t *testing.T) *Bundle {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	b := NewBundle(logger)
	if err := LoadFromEmbedFS(b, logger); err != nil {
		t.Fatalf("LoadFromEmbedFS() вернул ошибку: %v", err)
	}
	return b
}

// TestCatalogsComplete — каждый ключ определён во всех локалях.
func TestCatalogsComplete(t *testing.T) {
	b := loadedBundle(t)
	for code, keys := range b.MissingKeys() {
		t.Errorf("каталог %s: отсутствуют ключи %v", code, keys)
	}
}

// TestTranslate_AllKeysNonEmpty — перевод не пуст и не равен ключу.
func TestTranslate_AllKeysNonEmpty(t *testing.T) {
	b := loadedBundle(t)
	keys := b.Keys()
	if len(keys) == 0 {
		t.Fatal("каталоги пусты")
	}
	for _, code := range locale.Codes {
		for _, key := range keys {
			got := b.Translate(code, key)
			if got == "" {
				t.Errorf("Translate(%s, %q) вернул пустую строку", code, key)
			}
			if got == key {
				t.Errorf("Translate(%s, %q) вернул ключ — перевод отсутствует", code, key)
			}
		}
	}
}

func TestTranslate_MissingKeyReturnsKey(t *testing.T) {
	b := loadedBundle(t)
	for _, code := range locale.Codes {
		if got := b.Translate(code, "no.such.key"); got != "no.such.key" {
			t.Errorf("Translate(%s, no.such.key) = %q, ожидается сам ключ", code, got)
		}
	}
	if got := b.Translate("de", "nav.dashboard"); got != "nav.dashboard" {
		t.Errorf("Translate(de, nav.dashboard) = %q, ожидается сам ключ", got)
	}
}

func TestLoadMessages_Errors(t *testing.T) {
	b := NewBundle(nil)
	if err := b.LoadMessages(locale.English, []byte(`{"a":`)); err == nil {
		t.Error("LoadMessages() принял некорректный JSON")
	}
	if err := b.LoadMessages(locale.English, []byte(`{"a":""}`)); err == nil {
		t.Error("LoadMessages() принял пустой перевод")
	}
}

func TestMissingKeys(t *testing.T) {
	b := NewBundle(nil)
	_ = b.LoadMessages(locale.Arabic, []byte(`{"a":"أ","b":"ب"}`))
	_ = b.LoadMessages(locale.French, []byte(`{"a":"a"}`))
	_ = b.LoadMessages(locale.English, []byte(`{"a":"a","b":"b"}`))

	missing := b.MissingKeys()
	if len(missing) != 1 {
		t.Fatalf("MissingKeys() = %v, ожидалась одна неполная локаль", missing)
	}
	if keys := missing[locale.French]; len(keys) != 1 || keys[0] != "b" {
		t.Errorf("MissingKeys()[fr] = %v, ожидается [b]", keys)
	}
}

func TestTranslator_FollowsEngine(t *testing.T) {
	b := NewBundle(nil)
	_ = b.LoadMessages(locale.Arabic, []byte(`{"submit":"إرسال","points":"%d نقطة"}`))
	_ = b.LoadMessages(locale.French, []byte(`{"submit":"Envoyer","points":"%d points"}`))
	_ = b.LoadMessages(locale.English, []byte(`{"submit":"Submit","points":"%d points"}`))

	engine := locale.NewEngine(locale.Arabic, locale.Options{})
	tr := NewTranslator(b, engine)

	if got := tr.T("submit"); got != "إرسال" {
		t.Errorf("T(submit) = %q под ar", got)
	}
	engine.Set("fr")
	if got := tr.T("submit"); got != "Envoyer" {
		t.Errorf("T(submit) = %q под fr", got)
	}
	if got := tr.Tf("points", 5); got != "5 points" {
		t.Errorf("Tf(points, 5) = %q", got)
	}
}
