package model

import "time"

// CollectionPoint — пункт приёма отходов.
// Хранится в таблице collection_points.
type CollectionPoint struct {
	ID         string
	Name       string
	Address    string
	City       string
	Region     string
	WasteTypes []WasteType
	Schedule   []ScheduleSlot
	CreatedAt  time.Time
}

// Accepts — пункт принимает отходы типа w.
func (p CollectionPoint) Accepts(w WasteType) bool {
	for _, t := range p.WasteTypes {
		if t == w {
			return true
		}
	}
	return false
}

// ScheduleSlot — часы работы пункта в день недели.
// Weekday: 0 — воскресенье, как в time.Weekday.
type ScheduleSlot struct {
	Weekday time.Weekday
	// Opens, Closes — время в формате HH:MM
	Opens  string
	Closes string
}
