// Пакет locale — активная локаль клиентского контекста: язык, направление
// письма и форматирование чисел.
// Набор локалей фиксирован: ar (RTL, по умолчанию), fr (LTR), en (LTR).
package locale

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Code — код поддерживаемой локали.
type Code string

// Поддерживаемые локали.
const (
	Arabic  Code = "ar"
	French  Code = "fr"
	English Code = "en"
)

// Direction — направление письма.
type Direction string

const (
	RTL Direction = "rtl"
	LTR Direction = "ltr"
)

// DigitMode — набор цифр для арабской локали.
type DigitMode int

const (
	// DigitsNative — арабско-индийские цифры (U+0660–U+0669).
	DigitsNative DigitMode = iota
	// DigitsLatin — западные цифры 0-9.
	DigitsLatin
)

// ParseDigitMode разбирает значение конфигурации (native, latin).
func ParseDigitMode(s string) DigitMode {
	if s == "latin" {
		return DigitsLatin
	}
	return DigitsNative
}

// Locale — неизменяемое описание локали.
type Locale struct {
	// Code — код локали (ar, fr, en)
	Code Code
	// Direction — направление письма
	Direction Direction
	// Tag — языковой тег x/text
	Tag language.Tag
	// Name — название языка на самом языке (для переключателя)
	Name string

	format       func(float64) string
	nativeDigits bool
}

// FormatNumber форматирует число по правилам локали.
// Точность не меняется, меняется только текстовое представление.
func (l Locale) FormatNumber(v float64) string {
	if l.format == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return l.format(v)
}

// dateLayout — формат даты и времени на страницах.
const dateLayout = "2006-01-02 15:04"

// FormatDate форматирует момент времени в UTC цифрами локали.
func (l Locale) FormatDate(t time.Time) string {
	s := t.UTC().Format(dateLayout)
	if l.nativeDigits {
		return nativeDigits(s)
	}
	return s
}

// Codes — поддерживаемые коды в порядке отображения.
var Codes = []Code{Arabic, French, English}

// Options — параметры построения набора локалей.
type Options struct {
	// ArabicDigits — цифры для арабской локали
	ArabicDigits DigitMode
}

// buildLocales строит фиксированный набор локалей.
func buildLocales(opts Options) map[Code]Locale {
	return map[Code]Locale{
		Arabic: {
			Code:      Arabic,
			Direction: RTL,
			Tag:       language.Arabic,
			Name:      "العربية",
			format:    arabicFormatter(opts.ArabicDigits),

			nativeDigits: opts.ArabicDigits == DigitsNative,
		},
		French: {
			Code:      French,
			Direction: LTR,
			Tag:       language.French,
			Name:      "Français",
			format:    printerFormatter(language.French),
		},
		English: {
			Code:      English,
			Direction: LTR,
			Tag:       language.English,
			Name:      "English",
			format:    printerFormatter(language.English),
		},
	}
}

// ParseCode нормализует строку ("fr", "fr-FR", "AR") к поддерживаемому коду.
func ParseCode(s string) (Code, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	code := Code(base.String())
	for _, c := range Codes {
		if c == code {
			return c, true
		}
	}
	return "", false
}

// printerFormatter форматирует число через message.Printer для тега.
func printerFormatter(tag language.Tag) func(float64) string {
	p := message.NewPrinter(tag)
	return func(v float64) string {
		return p.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(fractionDigits(v))))
	}
}

// arabicFormatter форматирует число по английскому шаблону группировки
// (тот же шаг 3 разряда), затем явно заменяет цифры и разделители.
// Результат не зависит от версии CLDR в x/text.
func arabicFormatter(mode DigitMode) func(float64) string {
	base := printerFormatter(language.English)
	if mode == DigitsLatin {
		return base
	}
	return func(v float64) string {
		return toArabicIndic(base(v))
	}
}

// nativeDigits заменяет только западные цифры на арабско-индийские.
func nativeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '٠' + (r - '0')
		}
		return r
	}, s)
}

// toArabicIndic заменяет западные цифры и разделители на арабские.
func toArabicIndic(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune('٠' + (r - '0'))
		case r == '.':
			b.WriteRune('٫') // десятичный разделитель
		case r == ',':
			b.WriteRune('٬') // разделитель групп
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fractionDigits возвращает количество знаков после запятой в кратчайшем
// точном представлении v.
func fractionDigits(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
