package model

// Stats — агрегированная статистика для администраторов.
type Stats struct {
	// UsersTotal — количество зарегистрированных профилей
	UsersTotal int
	// ReportsByStatus — количество обращений по статусам
	ReportsByStatus map[ReportStatus]int
	// WasteByType — суммарный вес по типам отходов
	WasteByType []WasteTotal
	// PointsIssued — всего начислено баллов
	PointsIssued int
	// PointsRedeemed — всего списано баллов
	PointsRedeemed int
	// RedemptionsTotal — количество обменов
	RedemptionsTotal int
}

// ReportsTotal — общее количество обращений.
func (s Stats) ReportsTotal() int {
	total := 0
	for _, n := range s.ReportsByStatus {
		total += n
	}
	return total
}

// WasteTotalKg — общий вес сданных отходов.
func (s Stats) WasteTotalKg() float64 {
	total := 0.0
	for _, w := range s.WasteByType {
		total += w.WeightKg
	}
	return total
}
