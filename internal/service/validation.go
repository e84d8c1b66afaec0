// validation.go — проверка полей форм до обращения к внешним системам.
// Валидаторы возвращают ключ перевода сообщения об ошибке или пустую строку.
package service

import (
	"math"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Ключи переводов сообщений валидации.
const (
	MsgRequired       = "validation.required"
	MsgTooLong        = "validation.too_long"
	MsgEmail          = "validation.email"
	MsgPasswordShort  = "validation.password_short"
	MsgInvalidChoice  = "validation.invalid_choice"
	MsgNumber         = "validation.number"
	MsgWeightRange    = "validation.weight_range"
	MsgPhotoType      = "validation.photo_type"
	MsgPhotoTooLarge  = "validation.photo_too_large"
	MsgUnknownPoint   = "validation.unknown_point"
	MsgPointRejects   = "validation.point_rejects_type"
	MsgNoteTooLong    = "validation.note_too_long"
	MsgPasswordsMatch = "validation.passwords_mismatch"
)

// MinPasswordLength — минимальная длина пароля при регистрации.
const MinPasswordLength = 8

// Validator проверяет значение и возвращает ключ сообщения или "".
type Validator func(v string) string

// Required — поле непустое и не длиннее maxLen символов.
func Required(maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return MsgRequired
		}
		if utf8.RuneCountInString(v) > maxLen {
			return MsgTooLong
		}
		return ""
	}
}

// Optional — необязательное поле не длиннее maxLen символов.
func Optional(maxLen int) Validator {
	return func(v string) string {
		if utf8.RuneCountInString(strings.TrimSpace(v)) > maxLen {
			return MsgTooLong
		}
		return ""
	}
}

// Email — корректный адрес без отображаемого имени.
func Email() Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return MsgRequired
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || len(v) > 320 {
			return MsgEmail
		}
		return ""
	}
}

// MinLength — не короче n символов (пробелы не обрезаются).
func MinLength(n int, msg string) Validator {
	return func(v string) string {
		if v == "" {
			return MsgRequired
		}
		if utf8.RuneCountInString(v) < n {
			return msg
		}
		return ""
	}
}

// OneOf — значение входит в набор options.
func OneOf(options ...string) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		for _, opt := range options {
			if v == opt {
				return ""
			}
		}
		return MsgInvalidChoice
	}
}

// FieldErrors — ошибки по полям формы: поле → ключ сообщения.
type FieldErrors map[string]string

// Check применяет валидаторы по порядку; сохраняется первая ошибка.
func (f FieldErrors) Check(field, value string, validators ...Validator) {
	if _, exists := f[field]; exists {
		return
	}
	for _, validate := range validators {
		if msg := validate(value); msg != "" {
			f[field] = msg
			return
		}
	}
}

// Add записывает ошибку поля, если её ещё нет.
func (f FieldErrors) Add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

// Err возвращает *ValidationError или nil, если ошибок нет.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// ValidationError — ошибки полей формы; errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return ErrValidation.Error() + ": " + strings.Join(fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ParseDecimal разбирает число, введённое с западными или арабско-индийскими
// цифрами и точкой, запятой или арабским десятичным разделителем.
func ParseDecimal(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r == ',' || r == '٫':
			b.WriteRune('.')
		default:
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// isID — строка является UUID. Записей с другими идентификаторами нет,
// поэтому такие значения отклоняются до запроса к БД.
func isID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
