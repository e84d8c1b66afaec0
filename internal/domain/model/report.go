package model

import "time"

// ReportCategory — категория обращения о проблеме вывоза отходов.
type ReportCategory string

const (
	CategoryMissedCollection ReportCategory = "missed_collection"
	CategoryOverflowingBin   ReportCategory = "overflowing_bin"
	CategoryIllegalDumping   ReportCategory = "illegal_dumping"
	CategoryDamagedBin       ReportCategory = "damaged_bin"
	CategoryOther            ReportCategory = "other"
)

// ReportCategories — допустимые категории в порядке отображения.
var ReportCategories = []ReportCategory{
	CategoryMissedCollection,
	CategoryOverflowingBin,
	CategoryIllegalDumping,
	CategoryDamagedBin,
	CategoryOther,
}

// IsValid проверяет, что категория входит в допустимый набор.
func (c ReportCategory) IsValid() bool {
	for _, v := range ReportCategories {
		if v == c {
			return true
		}
	}
	return false
}

// ReportStatus — статус рассмотрения обращения.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportInProgress ReportStatus = "in_progress"
	ReportResolved   ReportStatus = "resolved"
	ReportRejected   ReportStatus = "rejected"
)

// ReportStatuses — допустимые статусы в порядке жизненного цикла.
var ReportStatuses = []ReportStatus{ReportPending, ReportInProgress, ReportResolved, ReportRejected}

// IsValid проверяет, что статус входит в допустимый набор.
func (s ReportStatus) IsValid() bool {
	for _, v := range ReportStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsFinal — обращение закрыто (resolved или rejected).
func (s ReportStatus) IsFinal() bool {
	return s == ReportResolved || s == ReportRejected
}

// IssueReport — обращение гражданина.
// Хранится в таблице issue_reports.
type IssueReport struct {
	// ID — UUID обращения
	ID string
	// UserID — автор обращения
	UserID string
	// Category — категория проблемы
	Category ReportCategory
	// Description — описание проблемы
	Description string
	// Address — адрес места
	Address string
	// City — город
	City string
	// PhotoURL — публичный URL фотографии (опционально)
	PhotoURL *string
	// Status — статус рассмотрения
	Status ReportStatus
	// AdminNote — комментарий модератора
	AdminNote string
	// CreatedAt — время создания
	CreatedAt time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time
}
