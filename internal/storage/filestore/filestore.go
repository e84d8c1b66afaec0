// Пакет filestore — локальное хранилище загружаемых файлов (фото обращений).
// Файлы пишутся атомарно (temp → fsync → rename) и отдаются только на чтение
// по публичному префиксу URL.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge — содержимое превышает лимит размера.
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrInvalidPath — путь выходит за пределы хранилища.
	ErrInvalidPath = errors.New("недопустимый путь файла")
)

// Store — файловое хранилище в каталоге dataDir.
type Store struct {
	dataDir   string
	publicURL string
	maxBytes  int64
}

// New создаёт Store. Каталог создаётся, если не существует.
// publicURL — префикс ссылок на файлы (например, "/storage").
// maxBytes <= 0 — без ограничения размера.
func New(dataDir, publicURL string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &Store{
		dataDir:   dataDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
	}, nil
}

// Upload записывает содержимое reader по относительному пути name.
// Существующий файл заменяется атомарно.
func (s *Store) Upload(name string, reader io.Reader) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("ошибка создания каталога: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	src := reader
	if s.maxBytes > 0 {
		// Читаем на байт больше лимита, чтобы отличить «ровно лимит» от превышения
		src = io.LimitReader(reader, s.maxBytes+1)
	}

	size, err := io.Copy(f, src)
	if err == nil && s.maxBytes > 0 && size > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		if errors.Is(err, ErrTooLarge) {
			return err
		}
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// Delete удаляет файл. Отсутствующий файл не считается ошибкой.
func (s *Store) Delete(name string) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// PublicURL возвращает ссылку на файл для браузера.
func (s *Store) PublicURL(name string) string {
	return s.publicURL + "/" + strings.TrimLeft(path.Clean("/"+name), "/")
}

// Handler отдаёт файлы только на чтение; префикс URL должен быть снят заранее.
// Листинг каталогов запрещён.
func (s *Store) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.dataDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || strings.HasSuffix(r.URL.Path, ".tmp") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// DataDir возвращает путь к директории данных.
func (s *Store) DataDir() string {
	return s.dataDir
}

// resolve превращает относительный путь в абсолютный внутри dataDir.
func (s *Store) resolve(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(s.dataDir, filepath.FromSlash(clean)), nil
}

// ReportPhotoPath генерирует путь для фото обращения.
// Формат: reports/{user}/{timestamp}_{uuid}.{ext}
// Пример: reports/3f2a.../20260221150405_a1b2c3d4.jpg
func ReportPhotoPath(userID, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if len(ext) > 6 || sanitize(strings.TrimPrefix(ext, ".")) != strings.TrimPrefix(ext, ".") {
		ext = ""
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8] // Короткий UUID для уникальности

	return fmt.Sprintf("reports/%s/%s_%s%s", sanitize(userID), ts, uid, ext)
}

// sanitize оставляет только латиницу, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
