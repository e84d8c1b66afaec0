package filestore

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "/storage/", maxBytes)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	return s
}

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	s, err := New(dir, "/storage", 0)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	if s.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, s.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestUpload проверяет запись файла во вложенный каталог.
func TestUpload(t *testing.T) {
	s := newStore(t, 0)
	content := []byte("photo bytes")

	if err := s.Upload("reports/u1/a.jpg", bytes.NewReader(content)); err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.DataDir(), "reports", "u1", "a.jpg"))
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое файла не совпадает")
	}

	// Временный файл не остаётся на диске
	if _, err := os.Stat(filepath.Join(s.DataDir(), "reports", "u1", "a.jpg.tmp")); !os.IsNotExist(err) {
		t.Error("временный файл не удалён")
	}
}

// TestUpload_TooLarge проверяет лимит размера.
func TestUpload_TooLarge(t *testing.T) {
	s := newStore(t, 4)

	if err := s.Upload("exact.bin", strings.NewReader("1234")); err != nil {
		t.Fatalf("файл ровно лимита отклонён: %v", err)
	}

	err := s.Upload("big.bin", strings.NewReader("12345"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("ожидалась ErrTooLarge, получено %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.DataDir(), "big.bin")); !os.IsNotExist(err) {
		t.Error("файл сверх лимита остался на диске")
	}
}

// TestUpload_InvalidPath проверяет защиту от выхода за пределы каталога.
func TestUpload_InvalidPath(t *testing.T) {
	s := newStore(t, 0)
	for _, name := range []string{"", "/", "../escape.txt", "a/../../b"} {
		if err := s.Upload(name, strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Upload(%q) = %v, ожидалась ErrInvalidPath", name, err)
		}
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t, 0)
	if err := s.Upload("a.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	if err := s.Delete("a.txt"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	// Повторное удаление — не ошибка
	if err := s.Delete("a.txt"); err != nil {
		t.Errorf("повторное удаление вернуло ошибку: %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	s := newStore(t, 0)
	tests := []struct {
		name string
		want string
	}{
		{"reports/u1/a.jpg", "/storage/reports/u1/a.jpg"},
		{"/reports/a.jpg", "/storage/reports/a.jpg"},
		{"a/./b.png", "/storage/a/b.png"},
	}
	for _, tt := range tests {
		if got := s.PublicURL(tt.name); got != tt.want {
			t.Errorf("PublicURL(%q) = %q, хотели %q", tt.name, got, tt.want)
		}
	}
}

// TestHandler проверяет отдачу файлов и запрет листинга.
func TestHandler(t *testing.T) {
	s := newStore(t, 0)
	if err := s.Upload("reports/a.jpg", strings.NewReader("jpeg")); err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	h := http.StripPrefix("/storage", s.Handler())

	tests := []struct {
		path string
		want int
	}{
		{"/storage/reports/a.jpg", http.StatusOK},
		{"/storage/reports/", http.StatusNotFound},
		{"/storage/reports/missing.jpg", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s: статус %d, хотели %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestReportPhotoPath(t *testing.T) {
	p := ReportPhotoPath("user-1", "Photo.JPG")
	if !strings.HasPrefix(p, "reports/user-1/") {
		t.Errorf("путь должен начинаться с reports/user-1/: %s", p)
	}
	if !strings.HasSuffix(p, ".jpg") {
		t.Errorf("расширение должно сохраняться в нижнем регистре: %s", p)
	}

	// Небезопасное расширение отбрасывается
	if p := ReportPhotoPath("u", "x.j/pg"); strings.Contains(p, "/pg") {
		t.Errorf("небезопасное расширение сохранено: %s", p)
	}

	if ReportPhotoPath("u", "a.png") == ReportPhotoPath("u", "a.png") {
		t.Error("два вызова дали одинаковый путь")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"abc-DEF_123", "abc-DEF_123"},
		{"a b/c", "abc"},
		{"хранилище", "file"},
		{"", "file"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.input); got != tt.want {
			t.Errorf("sanitize(%q) = %q, хотели %q", tt.input, got, tt.want)
		}
	}
}
