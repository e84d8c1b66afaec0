package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
)

// ReportRepository — интерфейс для таблицы issue_reports.
type ReportRepository interface {
	// Create создаёт обращение; ID, статус и время заполняются БД.
	Create(ctx context.Context, rep *model.IssueReport) error
	// GetByID возвращает обращение по UUID.
	GetByID(ctx context.Context, id string) (*model.IssueReport, error)
	// ListByUser возвращает обращения пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.IssueReport, error)
	// List возвращает обращения с фильтром по статусу (nil — все).
	List(ctx context.Context, status *model.ReportStatus, limit, offset int) ([]*model.IssueReport, error)
	// Count возвращает количество обращений с фильтром по статусу.
	Count(ctx context.Context, status *model.ReportStatus) (int, error)
	// UpdateStatus меняет статус и комментарий модератора.
	UpdateStatus(ctx context.Context, id string, status model.ReportStatus, note string) (*model.IssueReport, error)
	// CountByStatus возвращает количество обращений по статусам.
	CountByStatus(ctx context.Context) (map[model.ReportStatus]int, error)
}

type reportRepo struct {
	db DBTX
}

// NewReportRepository создаёт репозиторий обращений.
func NewReportRepository(db DBTX) ReportRepository {
	return &reportRepo{db: db}
}

const reportColumns = `id, user_id, category, description, address, city,
	photo_url, status, admin_note, created_at, updated_at`

func scanReport(row pgx.Row) (*model.IssueReport, error) {
	rep := &model.IssueReport{}
	err := row.Scan(
		&rep.ID, &rep.UserID, &rep.Category, &rep.Description, &rep.Address, &rep.City,
		&rep.PhotoURL, &rep.Status, &rep.AdminNote, &rep.CreatedAt, &rep.UpdatedAt,
	)
	return rep, err
}

func (r *reportRepo) Create(ctx context.Context, rep *model.IssueReport) error {
	query := `
		INSERT INTO issue_reports (user_id, category, description, address, city, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, admin_note, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rep.UserID, rep.Category, rep.Description, rep.Address, rep.City, rep.PhotoURL,
	).Scan(&rep.ID, &rep.Status, &rep.AdminNote, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: профиль автора не найден", ErrNotFound)
		}
		return fmt.Errorf("ошибка создания обращения: %w", err)
	}
	return nil
}

func (r *reportRepo) GetByID(ctx context.Context, id string) (*model.IssueReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM issue_reports WHERE id = $1`, reportColumns)
	rep, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения обращения: %w", err)
	}
	return rep, nil
}

func (r *reportRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.IssueReport, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM issue_reports
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, reportColumns)
	return r.list(ctx, query, userID, limit, offset)
}

func (r *reportRepo) List(ctx context.Context, status *model.ReportStatus, limit, offset int) ([]*model.IssueReport, error) {
	if status != nil {
		query := fmt.Sprintf(`
			SELECT %s FROM issue_reports
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, reportColumns)
		return r.list(ctx, query, *status, limit, offset)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM issue_reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, reportColumns)
	return r.list(ctx, query, limit, offset)
}

func (r *reportRepo) list(ctx context.Context, query string, args ...any) ([]*model.IssueReport, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка обращений: %w", err)
	}
	defer rows.Close()

	var result []*model.IssueReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования обращения: %w", err)
		}
		result = append(result, rep)
	}
	return result, rows.Err()
}

func (r *reportRepo) Count(ctx context.Context, status *model.ReportStatus) (int, error) {
	var args []any
	query := "SELECT COUNT(*) FROM issue_reports"
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта обращений: %w", err)
	}
	return count, nil
}

func (r *reportRepo) UpdateStatus(ctx context.Context, id string, status model.ReportStatus, note string) (*model.IssueReport, error) {
	query := fmt.Sprintf(`
		UPDATE issue_reports
		SET status = $2, admin_note = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, reportColumns)

	rep, err := scanReport(r.db.QueryRow(ctx, query, id, status, note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса обращения: %w", err)
	}
	return rep, nil
}

func (r *reportRepo) CountByStatus(ctx context.Context) (map[model.ReportStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM issue_reports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта обращений по статусам: %w", err)
	}
	defer rows.Close()

	result := make(map[model.ReportStatus]int, len(model.ReportStatuses))
	for _, s := range model.ReportStatuses {
		result[s] = 0
	}
	for rows.Next() {
		var status model.ReportStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики обращений: %w", err)
		}
		result[status] = count
	}
	return result, rows.Err()
}
