// Пакет rbac — роли пользователей портала и правила их вычисления.
// Набор ролей закрыт: citizen и admin. Любая неопределённость
// (ошибка запроса, отсутствие записи) даёт citizen, но никогда admin.
package rbac

import "errors"

// Role — роль пользователя портала.
type Role string

// Роли портала.
const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

// ErrUnknownRole — строка не является допустимой ролью.
var ErrUnknownRole = errors.New("недопустимая роль")

// String возвращает строковое представление роли.
func (r Role) String() string {
	return string(r)
}

// IsValid проверяет, что роль входит в закрытый набор.
func (r Role) IsValid() bool {
	return r == RoleCitizen || r == RoleAdmin
}

// FromAdminCheck отображает результат проверки has_role(user, 'admin') в Role.
// При ошибке проверки роль всегда citizen.
func FromAdminCheck(isAdmin bool, err error) Role {
	if err != nil || !isAdmin {
		return RoleCitizen
	}
	return RoleAdmin
}
