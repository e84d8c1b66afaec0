package locale

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode"
)

// parseLocalized восстанавливает число из локализованной строки:
// арабские цифры → западные, десятичный разделитель → точка,
// разделители групп отбрасываются.
func parseLocalized(t *testing.T, s string, decimalSep rune) float64 {
	t.Helper()
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == decimalSep:
			b.WriteRune('.')
		case r == '-':
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		t.Fatalf("не удалось разобрать %q (нормализовано %q): %v", s, b.String(), err)
	}
	return v
}

func TestFormatNumber_RoundTrip(t *testing.T) {
	values := []float64{0, 1, 1234.5, 1000000}
	seps := map[Code]rune{Arabic: '٫', French: ',', English: '.'}

	for _, code := range Codes {
		e := NewEngine(code, Options{ArabicDigits: DigitsNative})
		for _, v := range values {
			out := e.FormatNumber(v)
			if out == "" {
				t.Errorf("%s: FormatNumber(%v) вернул пустую строку", code, v)
				continue
			}
			if got := parseLocalized(t, out, seps[code]); got != v {
				t.Errorf("%s: FormatNumber(%v) = %q, разбор дал %v", code, v, out, got)
			}
		}
	}
}

func TestFormatNumber_LatinArabic(t *testing.T) {
	e := NewEngine(Arabic, Options{ArabicDigits: DigitsLatin})
	for _, v := range []float64{0, 1, 1234.5, 1000000} {
		out := e.FormatNumber(v)
		if got := parseLocalized(t, out, '.'); got != v {
			t.Errorf("FormatNumber(%v) = %q, разбор дал %v", v, out, got)
		}
		for _, r := range out {
			if r >= '٠' && r <= '٩' {
				t.Errorf("FormatNumber(%v) = %q содержит арабско-индийские цифры в режиме latin", v, out)
			}
		}
	}
}

func TestFormatNumber_PerLocale(t *testing.T) {
	e := NewEngine(English, Options{})

	if got := e.FormatNumber(1234.5); got != "1,234.5" {
		t.Errorf("en: FormatNumber(1234.5) = %q, ожидается 1,234.5", got)
	}

	e.Set("fr")
	fr := e.FormatNumber(1234.5)
	if !strings.HasSuffix(fr, ",5") || strings.Contains(fr, ".") {
		t.Errorf("fr: FormatNumber(1234.5) = %q, ожидается французская группировка", fr)
	}

	e.Set("ar")
	if got := e.FormatNumber(1234.5); got != "١٬٢٣٤٫٥" {
		t.Errorf("ar: FormatNumber(1234.5) = %q, ожидается ١٬٢٣٤٫٥", got)
	}
}

func TestFormatNumber_KeepsPrecision(t *testing.T) {
	e := NewEngine(English, Options{})
	if got := e.FormatNumber(2.3456); got != "2.3456" {
		t.Errorf("FormatNumber(2.3456) = %q, точность не должна теряться", got)
	}
}

func TestSet_Idempotent(t *testing.T) {
	e := NewEngine(Arabic, Options{})
	var calls atomic.Int32
	e.OnChange(func(Locale) { calls.Add(1) })

	if !e.Set("fr") {
		t.Fatal("первый Set(fr) должен изменить локаль")
	}
	first := e.Active()
	if e.Set("fr") {
		t.Error("повторный Set(fr) не должен ничего менять")
	}
	second := e.Active()

	if first.Code != second.Code || first.Direction != second.Direction {
		t.Errorf("состояние после повторного Set отличается: %+v vs %+v", first, second)
	}
	if calls.Load() != 1 {
		t.Errorf("подписчик вызван %d раз, ожидался 1", calls.Load())
	}
}

func TestSet_InvalidCodeIgnored(t *testing.T) {
	e := NewEngine(Arabic, Options{})
	for _, code := range []string{"de", "", "xx-YY", "rtl", "!!"} {
		if e.Set(code) {
			t.Errorf("Set(%q) вернул true для неподдерживаемого кода", code)
		}
		if e.Code() != Arabic || e.Direction() != RTL {
			t.Errorf("после Set(%q) активная локаль = %s/%s, ожидается ar/rtl", code, e.Code(), e.Direction())
		}
	}
}

func TestSet_DirectionFollowsCode(t *testing.T) {
	e := NewEngine(Arabic, Options{})
	tests := []struct {
		code string
		want Direction
	}{
		{"fr", LTR},
		{"ar", RTL},
		{"en-GB", LTR},
		{"AR", RTL},
	}
	for _, tt := range tests {
		e.Set(tt.code)
		if got := e.Direction(); got != tt.want {
			t.Errorf("после Set(%q) Direction() = %s, ожидается %s", tt.code, got, tt.want)
		}
	}
}

func TestOnChange_Unsubscribe(t *testing.T) {
	e := NewEngine(Arabic, Options{})
	var got Locale
	unsubscribe := e.OnChange(func(l Locale) { got = l })

	e.Set("en")
	if got.Code != English {
		t.Errorf("подписчик получил %q, ожидался en", got.Code)
	}

	unsubscribe()
	e.Set("fr")
	if got.Code != English {
		t.Errorf("после отписки подписчик получил %q", got.Code)
	}
}

func TestNewEngine_DefaultsToArabic(t *testing.T) {
	e := NewEngine("de", Options{})
	if e.Code() != Arabic || e.Direction() != RTL {
		t.Errorf("NewEngine(de) = %s/%s, ожидается ar/rtl", e.Code(), e.Direction())
	}
	if n := len(e.Available()); n != 3 {
		t.Errorf("Available() вернул %d локалей, ожидалось 3", n)
	}
}

func TestCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, French, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "language" {
		t.Fatalf("ожидался cookie language, получено %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	code, ok := FromRequest(req)
	if !ok || code != French {
		t.Errorf("FromRequest() = %q, %v; ожидается fr, true", code, ok)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "klingon"})
	if _, ok := FromRequest(req); ok {
		t.Error("FromRequest() принял неподдерживаемый язык")
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)
	tests := []struct {
		code Code
		opts Options
		want string
	}{
		{Arabic, Options{}, "٢٠٢٦-٠٣-٠١ ٠٩:٠٥"},
		{Arabic, Options{ArabicDigits: DigitsLatin}, "2026-03-01 09:05"},
		{French, Options{}, "2026-03-01 09:05"},
	}
	for _, tt := range tests {
		e := NewEngine(tt.code, tt.opts)
		if got := e.FormatDate(ts); got != tt.want {
			t.Errorf("FormatDate под %s = %q, хотели %q", tt.code, got, tt.want)
		}
	}
}
