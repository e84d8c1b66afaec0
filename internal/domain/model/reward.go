package model

import "time"

// Reward — позиция каталога вознаграждений.
// Хранится в таблице rewards.
type Reward struct {
	// ID — UUID позиции
	ID string
	// Title — название
	Title string
	// Description — описание
	Description string
	// PointsCost — стоимость в баллах
	PointsCost int
	// Stock — оставшееся количество
	Stock int
	// Active — доступна ли позиция для обмена
	Active bool
	// CreatedAt — время создания
	CreatedAt time.Time
}

// Available — позицию можно обменять прямо сейчас.
func (r Reward) Available() bool {
	return r.Active && r.Stock > 0
}

// Redemption — факт обмена баллов на вознаграждение.
// Хранится в таблице user_rewards.
type Redemption struct {
	ID          string
	UserID      string
	RewardID    string
	RewardTitle string
	PointsSpent int
	RedeemedAt  time.Time
}
