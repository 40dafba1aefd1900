package provoke

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Templates maps a theme to its provocation prompt. Prompts may use the
// placeholders {topic}, {description} and {company}.
type Templates map[string]string

// DefaultTemplates returns the built-in prompts for every theme.
func DefaultTemplates() (Templates, error) {
	return parseTemplates(defaultTemplates)
}

// LoadTemplates reads prompts from a YAML file. Themes the file leaves out
// keep their built-in prompt.
func LoadTemplates(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "provoke: read templates %s", path)
	}
	custom, err := parseTemplates(data)
	if err != nil {
		return nil, err
	}
	out, err := DefaultTemplates()
	if err != nil {
		return nil, err
	}
	for theme, prompt := range custom {
		out[theme] = prompt
	}
	return out, nil
}

func parseTemplates(data []byte) (Templates, error) {
	// The YAML has a top-level "provocations" key
	var wrapper struct {
		Provocations map[string]string `yaml:"provocations"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "provoke: parse templates")
	}
	out := make(Templates, len(wrapper.Provocations))
	for theme, prompt := range wrapper.Provocations {
		if !IsTheme(theme) {
			return nil, eris.Errorf("provoke: unknown theme %q in templates", theme)
		}
		out[theme] = strings.TrimSpace(prompt)
	}
	return out, nil
}

// Render fills the theme's prompt. It reports false when the theme has no
// prompt.
func (t Templates) Render(theme, topic, description, company string) (string, bool) {
	tmpl, ok := t[theme]
	if !ok || tmpl == "" {
		return "", false
	}
	r := strings.NewReplacer("{topic}", topic, "{description}", description, "{company}", company)
	return r.Replace(tmpl), true
}
