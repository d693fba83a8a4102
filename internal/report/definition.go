package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the operator-editable description of one report type: its
// presentation template, file naming, and the fixed greeting used as the
// mail body. The definition never references raw record data.
type Definition struct {
	Name     string `yaml:"name"`
	Title    string `yaml:"title"`
	Template string `yaml:"template"`
	FileName string `yaml:"file_name"` // {name} and {period} placeholders
	Greeting string `yaml:"greeting"`  // {title} and {period} placeholders
	path     string
}

// DefaultDefinition returns the built-in interval activity report.
func DefaultDefinition() *Definition {
	return &Definition{
		Name:     "interval-activity",
		Title:    "Interval Activity Report",
		Template: "templates/interval.html.tmpl",
		FileName: "{name}-{period}.html",
		Greeting: "Hello,\n\nPlease find attached the {title} for {period}.\n\nThis message was generated automatically.",
	}
}

// LoadDefinition loads a report definition from path, falling back to the
// default definition when the file does not exist.
func LoadDefinition(path string) (*Definition, error) {
	def := DefaultDefinition()
	def.path = path

	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return def, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("parsing report definition %s: %w", path, err)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("report definition %s: %w", path, err)
	}

	return def, nil
}

// Save writes the definition back to its path, creating the directory if
// needed.
func (d *Definition) Save() error {
	if d.path == "" {
		return fmt.Errorf("report definition has no path")
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}

	return os.WriteFile(d.path, data, 0600)
}

// Validate checks the fields every run depends on.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Template == "" {
		return fmt.Errorf("template is required")
	}
	if d.FileName == "" {
		return fmt.Errorf("file_name is required")
	}
	return nil
}

// Body renders the greeting for one period. The greeting is fixed per
// definition; only the title and period placeholders vary.
func (d *Definition) Body(periodKey string) string {
	return strings.NewReplacer("{title}", d.Title, "{period}", periodKey).Replace(d.Greeting)
}
