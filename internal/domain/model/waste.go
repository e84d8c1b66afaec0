package model

import (
	"math"
	"time"
)

// WasteType — тип сдаваемых отходов.
type WasteType string

const (
	WastePlastic    WasteType = "plastic"
	WastePaper      WasteType = "paper"
	WasteGlass      WasteType = "glass"
	WasteMetal      WasteType = "metal"
	WasteOrganic    WasteType = "organic"
	WasteElectronic WasteType = "electronic"
)

// WasteTypes — допустимые типы в порядке отображения.
var WasteTypes = []WasteType{
	WastePlastic, WastePaper, WasteGlass, WasteMetal, WasteOrganic, WasteElectronic,
}

// pointsPerKg — начисляемые баллы за килограмм по типу отходов.
var pointsPerKg = map[WasteType]float64{
	WastePlastic:    10,
	WastePaper:      5,
	WasteGlass:      6,
	WasteMetal:      12,
	WasteOrganic:    2,
	WasteElectronic: 20,
}

// MaxWasteWeightKg — максимальный вес одной записи.
const MaxWasteWeightKg = 500.0

// IsValid проверяет, что тип входит в допустимый набор.
func (w WasteType) IsValid() bool {
	_, ok := pointsPerKg[w]
	return ok
}

// RateFor — баллы за килограмм отходов типа w (0 для неизвестного типа).
func RateFor(w WasteType) float64 {
	return pointsPerKg[w]
}

// PointsFor вычисляет баллы за сдачу weightKg отходов типа w.
// Округление вверх; неизвестный тип или неположительный вес дают 0.
func PointsFor(w WasteType, weightKg float64) int {
	rate, ok := pointsPerKg[w]
	if !ok || weightKg <= 0 {
		return 0
	}
	// Отсекаем погрешность float64 (0.1*10 = 1.0000000000000002)
	return int(math.Ceil(math.Round(weightKg*rate*1e6) / 1e6))
}

// WasteEntry — запись о сданных отходах.
// Хранится в таблице waste_entries.
type WasteEntry struct {
	// ID — UUID записи
	ID string
	// UserID — владелец записи
	UserID string
	// WasteType — тип отходов
	WasteType WasteType
	// WeightKg — вес в килограммах
	WeightKg float64
	// CollectionPointID — пункт приёма (опционально)
	CollectionPointID *string
	// PointsEarned — начисленные баллы
	PointsEarned int
	// CreatedAt — время создания
	CreatedAt time.Time
}

// WasteTotal — суммарный вес по типу отходов.
type WasteTotal struct {
	WasteType WasteType
	WeightKg  float64
}
