package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed templates
var templateFS embed.FS

// Renderer — набор шаблонов страниц. Каждая страница разбирается
// поверх общего layout и partials в отдельный template.Template,
// поэтому все страницы определяют один и тот же блок "content".
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer разбирает встроенные шаблоны.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	base, err := template.New("root").Funcs(funcs()).ParseFS(templateFS,
		"templates/layout.tmpl",
		"templates/partials/*.tmpl",
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска страниц: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("ошибка копирования layout: %w", err)
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("ошибка разбора %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = t
	}

	return &Renderer{
		pages:  pages,
		logger: logger.With(slog.String("component", "renderer")),
	}, nil
}

// Has — страница name существует.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render отрисовывает страницу name со статусом status.
// Ответ пишется только после успешного выполнения шаблона.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, v *View) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("страница %q не найдена", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		r.logger.Error("Ошибка выполнения шаблона",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		// key собирает ключ перевода из префикса и значения перечисления.
		"key": func(prefix string, v any) string {
			return fmt.Sprintf("%s.%v", prefix, v)
		},
	}
}
