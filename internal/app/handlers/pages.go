package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
)

// Templates хранит разобранные HTML-шаблоны интерфейса.
type Templates struct {
	t *template.Template
}

// LoadTemplates разбирает все шаблоны по указанному glob-паттерну.
func LoadTemplates(pattern string) (*Templates, error) {
	t, err := template.ParseGlob(pattern)
	if err != nil {
		return nil, err
	}
	return &Templates{t: t}, nil
}

// PageHandler отдаёт HTML-страницу по имени шаблона.
func PageHandler(log *slog.Logger, tmpl *Templates, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PageHandler"

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.t.ExecuteTemplate(w, name, nil); err != nil {
			log.Error("failed to render template",
				slog.String("op", op),
				slog.String("template", name),
				slog.Any("error", err),
			)
		}
	}
}
