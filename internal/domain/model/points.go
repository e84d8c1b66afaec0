package model

import "time"

// TransactionKind — вид движения баллов.
type TransactionKind string

const (
	TransactionEarn   TransactionKind = "earn"
	TransactionRedeem TransactionKind = "redeem"
)

// UserPoints — баланс баллов пользователя.
// Хранится в таблице user_points.
type UserPoints struct {
	UserID         string
	Balance        int
	LifetimeEarned int
	UpdatedAt      time.Time
}

// PointTransaction — движение баллов.
// Хранится в таблице point_transactions.
type PointTransaction struct {
	// ID — UUID транзакции
	ID string
	// UserID — владелец баллов
	UserID string
	// Amount — положительное при начислении, отрицательное при списании
	Amount int
	// Kind — вид движения
	Kind TransactionKind
	// ReferenceID — waste_entries.id или user_rewards.id
	ReferenceID string
	// CreatedAt — время транзакции
	CreatedAt time.Time
}
