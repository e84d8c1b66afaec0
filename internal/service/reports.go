// reports.go — обращения о проблемах со сбором отходов.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/repository"
	"github.com/bigkaa/cleancity/portal/internal/storage/filestore"
)

// PhotoStore — хранилище фото обращений.
type PhotoStore interface {
	Upload(name string, r io.Reader) error
	Delete(name string) error
	PublicURL(name string) string
}

// Actor — пользователь, выполняющий операцию.
type Actor struct {
	UserID string
	Admin  bool
}

// ReportPage — страница списка обращений.
type ReportPage struct {
	Items []*model.IssueReport
	Total int
}

// ReportService — сервис обращений.
type ReportService struct {
	reports       repository.ReportRepository
	photos        PhotoStore
	maxPhotoBytes int64
	logger        *slog.Logger
}

// NewReportService создаёт сервис обращений.
func NewReportService(
	reports repository.ReportRepository,
	photos PhotoStore,
	maxPhotoBytes int64,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		reports:       reports,
		photos:        photos,
		maxPhotoBytes: maxPhotoBytes,
		logger:        logger.With(slog.String("component", "report_service")),
	}
}

// Submit проверяет форму, загружает фото (если есть) и сохраняет обращение.
// При ошибке записи в БД загруженное фото удаляется.
func (s *ReportService) Submit(ctx context.Context, userID string, form ReportForm) (*model.IssueReport, error) {
	if err := form.Validate(s.maxPhotoBytes); err != nil {
		return nil, err
	}

	rep := &model.IssueReport{
		UserID:      userID,
		Category:    model.ReportCategory(strings.TrimSpace(form.Category)),
		Description: strings.TrimSpace(form.Description),
		Address:     strings.TrimSpace(form.Address),
		City:        strings.TrimSpace(form.City),
	}

	var photoPath string
	if form.Photo != nil {
		photoPath = filestore.ReportPhotoPath(userID, "photo"+photoTypes[form.PhotoContentType])
		if err := s.photos.Upload(photoPath, form.Photo); err != nil {
			if errors.Is(err, filestore.ErrTooLarge) {
				return nil, FieldErrors{"photo": MsgPhotoTooLarge}.Err()
			}
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		url := s.photos.PublicURL(photoPath)
		rep.PhotoURL = &url
	}

	if err := s.reports.Create(ctx, rep); err != nil {
		if photoPath != "" {
			if delErr := s.photos.Delete(photoPath); delErr != nil {
				s.logger.Warn("Не удалось удалить фото после ошибки",
					slog.String("path", photoPath),
					slog.String("error", delErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("ошибка сохранения обращения: %w", err)
	}

	s.logger.Info("Обращение создано",
		slog.String("report_id", rep.ID),
		slog.String("user_id", userID),
		slog.String("category", string(rep.Category)),
		slog.Bool("photo", photoPath != ""),
	)
	return rep, nil
}

// ListMine возвращает обращения пользователя.
func (s *ReportService) ListMine(ctx context.Context, userID string, limit, offset int) ([]*model.IssueReport, error) {
	items, err := s.reports.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения обращений: %w", err)
	}
	return items, nil
}

// List возвращает обращения всех пользователей с фильтром по статусу (только admin).
// Пустой status — все статусы.
func (s *ReportService) List(ctx context.Context, actor Actor, status string, limit, offset int) (*ReportPage, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}

	var filter *model.ReportStatus
	if status != "" {
		st := model.ReportStatus(status)
		if !st.IsValid() {
			return nil, FieldErrors{"status": MsgInvalidChoice}.Err()
		}
		filter = &st
	}

	items, err := s.reports.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения обращений: %w", err)
	}
	total, err := s.reports.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта обращений: %w", err)
	}
	return &ReportPage{Items: items, Total: total}, nil
}

// UpdateStatus меняет статус обращения с комментарием модератора (только admin).
func (s *ReportService) UpdateStatus(ctx context.Context, actor Actor, id, status, note string) (*model.IssueReport, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	if !isID(id) {
		return nil, fmt.Errorf("%w: обращение %q", ErrNotFound, id)
	}

	errs := FieldErrors{}
	errs.Check("status", status, OneOf(reportStatusValues()...))
	if len([]rune(strings.TrimSpace(note))) > 1000 {
		errs.Add("admin_note", MsgNoteTooLong)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	rep, err := s.reports.UpdateStatus(ctx, id, model.ReportStatus(status), strings.TrimSpace(note))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: обращение %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка обновления статуса: %w", err)
	}

	s.logger.Info("Статус обращения изменён",
		slog.String("report_id", id),
		slog.String("status", status),
		slog.String("admin_id", actor.UserID),
	)
	return rep, nil
}

func reportStatusValues() []string {
	values := make([]string, 0, len(model.ReportStatuses))
	for _, st := range model.ReportStatuses {
		values = append(values, string(st))
	}
	return values
}
