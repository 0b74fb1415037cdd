// Package pages loads and renders the HTML pages served at /, /login and /register.
package pages

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Page names understood by every Source.
const (
	Index    = "index"
	Login    = "login"
	Register = "register"
)

// NotFound is rendered whenever a page cannot be fetched or parsed.
const NotFound = "<h1>Template not found</h1>"

var ErrUnknownPage = errors.New("unknown page")

//go:embed templates/*.html
var embedded embed.FS

// Source supplies raw page templates by name.
type Source interface {
	Fetch(ctx context.Context, name string) (string, error)
}

func known(name string) bool {
	switch name {
	case Index, Login, Register:
		return true
	}
	return false
}

// EmbeddedSource serves the pages compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Fetch(_ context.Context, name string) (string, error) {
	if !known(name) {
		return "", fmt.Errorf("%w: %s", ErrUnknownPage, name)
	}
	data, err := embedded.ReadFile("templates/" + name + ".html")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RemoteSource fetches <BaseURL>/<name>.html on every call.
type RemoteSource struct {
	BaseURL string
	Client  *http.Client
}

// NewRemoteSource fetches pages from baseURL, giving up after timeout.
func NewRemoteSource(baseURL string, timeout time.Duration) *RemoteSource {
	return &RemoteSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *RemoteSource) Fetch(ctx context.Context, name string) (string, error) {
	if !known(name) {
		return "", fmt.Errorf("%w: %s", ErrUnknownPage, name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/"+name+".html", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", name, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(body), nil
}

// Data is what templates can reference.
type Data struct {
	Username string
}

// Renderer turns a Source's pages into HTML, degrading to NotFound on failure.
type Renderer struct {
	source Source
	logger *slog.Logger
}

// NewRenderer renders pages from source.
func NewRenderer(source Source, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{source: source, logger: logger}
}

// Render always produces a page body.
func (r *Renderer) Render(ctx context.Context, name string, data Data) string {
	raw, err := r.source.Fetch(ctx, name)
	if err != nil {
		r.logger.WarnContext(ctx, "page fetch failed", slog.String("page", name), slog.String("error", err.Error()))
		return NotFound
	}

	tmpl, err := template.New(name).Parse(raw)
	if err != nil {
		r.logger.WarnContext(ctx, "page parse failed", slog.String("page", name), slog.String("error", err.Error()))
		return NotFound
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		r.logger.WarnContext(ctx, "page render failed", slog.String("page", name), slog.String("error", err.Error()))
		return NotFound
	}
	return buf.String()
}
