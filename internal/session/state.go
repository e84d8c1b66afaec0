package session

import "fmt"

// State — состояние сессии клиента.
type State int

const (
	// Anonymous — пользователь не вошёл (начальное состояние).
	Anonymous State = iota
	// Authenticating — выполняется вход или регистрация.
	Authenticating
	// Authenticated — пользователь вошёл.
	Authenticated
	// SigningOut — выполняется выход.
	SigningOut
)

// String возвращает имя состояния для логов и метрик.
func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case SigningOut:
		return "signing_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTransient — состояние ожидает ответа провайдера идентификации.
func (s State) IsTransient() bool {
	return s == Authenticating || s == SigningOut
}

// validTransitions — матрица допустимых переходов.
// Authenticated → Authenticated — смена пользователя или повторный вход.
var validTransitions = map[State]map[State]bool{
	Anonymous:      {Authenticating: true, Authenticated: true},
	Authenticating: {Authenticated: true, Anonymous: true},
	Authenticated:  {Authenticated: true, Authenticating: true, SigningOut: true, Anonymous: true},
	SigningOut:     {Anonymous: true},
}

// CanTransition проверяет допустимость перехода from → to.
func CanTransition(from, to State) bool {
	return validTransitions[from][to]
}

// TransitionError — недопустимый переход между состояниями.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("переход сессии %s → %s недопустим", e.From, e.To)
}
