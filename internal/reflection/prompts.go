package reflection

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/phrazzld/reflections-api/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

// Prompts renders the system and user messages of a reflection request.
type Prompts struct {
	system *template.Template
	user   *template.Template
}

// promptData is the data available to the prompt templates.
type promptData struct {
	Week            string
	WeekStart       string
	WeekEnd         string
	Month           string
	Completed       []domain.TodoSnapshot
	IncompleteCount int
}

// LoadPrompts parses the prompt templates. An empty path selects the
// embedded default for that template.
func LoadPrompts(systemPath, userPath string) (*Prompts, error) {
	system, err := loadTemplate("system", systemPath, "prompts/system.tmpl")
	if err != nil {
		return nil, err
	}
	user, err := loadTemplate("user", userPath, "prompts/user.tmpl")
	if err != nil {
		return nil, err
	}
	return &Prompts{system: system, user: user}, nil
}

// DefaultPrompts returns the embedded templates.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts("", "")
	if err != nil {
		// The embedded templates are parsed by tests; failure here is a build defect.
		panic(err)
	}
	return p
}

func loadTemplate(name, path, embedded string) (*template.Template, error) {
	var (
		content []byte
		err     error
	)
	if path != "" {
		content, err = os.ReadFile(path)
	} else {
		content, err = promptFiles.ReadFile(embedded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s prompt template: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt template: %w", name, err)
	}
	return tmpl, nil
}

// Render produces the system and user messages for one user's week.
func (p *Prompts) Render(activity *domain.WeeklyActivity) (string, string, error) {
	week := activity.Week
	data := promptData{
		Week:            week.String(),
		WeekStart:       week.Start().Format("Jan 2"),
		WeekEnd:         week.End().AddDate(0, 0, -1).Format("Jan 2, 2006"),
		Month:           week.Month().String(),
		Completed:       activity.Completed,
		IncompleteCount: activity.IncompleteCount,
	}

	var system, user bytes.Buffer
	if err := p.system.Execute(&system, data); err != nil {
		return "", "", fmt.Errorf("failed to execute system prompt template: %w", err)
	}
	if err := p.user.Execute(&user, data); err != nil {
		return "", "", fmt.Errorf("failed to execute user prompt template: %w", err)
	}
	return strings.TrimSpace(system.String()), strings.TrimSpace(user.String()), nil
}
