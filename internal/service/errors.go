// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — операция требует роли admin.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrInsufficientPoints — баланс меньше стоимости вознаграждения.
	ErrInsufficientPoints = errors.New("недостаточно баллов")
	// ErrOutOfStock — вознаграждение закончилось.
	ErrOutOfStock = errors.New("вознаграждение закончилось")
	// ErrStorage — файловое хранилище недоступно.
	ErrStorage = errors.New("ошибка файлового хранилища")
)
