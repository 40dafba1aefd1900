// Package provoke classifies topics into foresight themes and writes short
// "Imagine if" provocations about them.
package provoke

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-insights/internal/fetcher"
	"github.com/sells-group/market-insights/internal/llm"
)

// Themes are the fixed foresight themes, in classification order.
var Themes = []string{
	"Technological Innovation",
	"Societal Impact",
	"Regulatory Changes",
	"Economic Transformation",
	"Lifestyle Changes",
	"Environmental Shifts",
	"Cultural Evolution",
	"Educational Reforms",
}

// IsTheme reports whether name is one of Themes.
func IsTheme(name string) bool {
	return slices.Contains(Themes, name)
}

const classifyTemplate = `I have a set of themes and a list of topics with corresponding keywords. Each topic is associated with only one theme (the most related one) based on the context provided by its keywords. Your task is to classify each topic into only one theme (the most related one) below based on its keywords. If a topic clearly aligns with multiple themes, assign it to the most relevant one. The themes are as follows:

- **Technological Innovation**: Keywords related to innovation, technology, AI, machine learning, software, etc.
- **Societal Impact**: Keywords related to society, community, social structures, demographics, etc.
- **Regulatory Changes**: Keywords related to law, policy, regulation, compliance, etc.
- **Economic Transformation**: Keywords related to the economy, market trends, finance, currency, etc.
- **Lifestyle Changes**: Keywords related to life habits, routines, work-life balance, personal development, etc.
- **Environmental Shifts**: Keywords related to the environment, climate, sustainability, green initiatives, etc.
- **Cultural Evolution**: Keywords related to culture, art, media, entertainment, traditions, etc.
- **Educational Reforms**: Keywords related to education, learning, schools, universities, pedagogy, etc.

For the topic "%s" with the following keywords: %s, classify it into only one theme (the most related one) from the list above. Please, just give the attributed theme, no additional comments.`

const opening = "Imagine if"

// TopicBrief is one topic with the context used to classify and provoke it.
type TopicBrief struct {
	Topic       string
	Description string
	Keywords    []string
}

// Provocation is the generated output for one topic.
type Provocation struct {
	Topic        string   `json:"Topic"`
	Theme        string   `json:"Attributed Themes"`
	Provocations []string `json:"Provocations"`
}

// Options configures a Generator.
type Options struct {
	Model     string
	Company   string
	Responses int // provocations per topic, default 2
	Workers   int // topics processed at once, default 4
	Templates Templates
}

// Generator classifies topics and writes provocations with a language model.
type Generator struct {
	gen  llm.TextGenerator
	opts Options
}

// New creates a Generator. Missing templates fall back to the built-in set.
func New(gen llm.TextGenerator, opts Options) (*Generator, error) {
	if opts.Responses <= 0 {
		opts.Responses = 2
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Templates == nil {
		t, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		opts.Templates = t
	}
	return &Generator{gen: gen, opts: opts}, nil
}

// Classify returns the themes named in the model's answer, joined by ", ".
// The answer is matched case-insensitively against every theme.
func (g *Generator) Classify(ctx context.Context, topic string, keywords []string) (string, error) {
	prompt := fmt.Sprintf(classifyTemplate, topic, strings.Join(keywords, ", "))
	answer, err := g.gen.Generate(ctx, prompt, g.opts.Model)
	if err != nil {
		return "", eris.Wrapf(err, "provoke: classify %q", topic)
	}
	lower := strings.ToLower(answer)
	var matched []string
	for _, theme := range Themes {
		if strings.Contains(lower, strings.ToLower(theme)) {
			matched = append(matched, theme)
		}
	}
	return strings.Join(matched, ", "), nil
}

// Generate classifies the brief and writes its provocations. A topic whose
// answer names no theme gets no provocations.
func (g *Generator) Generate(ctx context.Context, brief TopicBrief) (*Provocation, error) {
	log := zap.L().With(zap.String("topic", brief.Topic))

	themes, err := g.Classify(ctx, brief.Topic, brief.Keywords)
	if err != nil {
		return nil, err
	}
	out := &Provocation{Topic: brief.Topic, Theme: themes, Provocations: []string{}}

	prompt, ok := g.promptFor(themes, brief)
	if !ok {
		log.Warn("provoke: no template for attributed themes", zap.String("themes", themes))
		return out, nil
	}

	for range g.opts.Responses {
		answer, err := g.gen.Generate(ctx, prompt, g.opts.Model)
		if err != nil {
			return nil, eris.Wrapf(err, "provoke: generate for %q", brief.Topic)
		}
		out.Provocations = append(out.Provocations, Normalize(answer))
	}
	log.Debug("provoke: generated", zap.String("themes", themes), zap.Int("count", len(out.Provocations)))
	return out, nil
}

// GenerateAll runs Generate for every brief, keeping input order. The first
// failure cancels the remaining topics.
func (g *Generator) GenerateAll(ctx context.Context, briefs []TopicBrief) ([]Provocation, error) {
	out := make([]Provocation, len(briefs))
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i, b := range briefs {
		eg.Go(func() error {
			p, err := g.Generate(gCtx, b)
			if err != nil {
				return err
			}
			out[i] = *p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// promptFor renders the template of the first attributed theme that has one.
func (g *Generator) promptFor(themes string, brief TopicBrief) (string, bool) {
	if themes == "" {
		return "", false
	}
	for _, theme := range strings.Split(themes, ", ") {
		if p, ok := g.opts.Templates.Render(theme, brief.Topic, brief.Description, g.opts.Company); ok {
			return p, true
		}
	}
	return "", false
}

// Normalize makes an answer start with "Imagine if" and keeps only its
// first sentence.
func Normalize(answer string) string {
	s := strings.TrimSpace(answer)
	if !strings.HasPrefix(s, opening) {
		if _, after, found := strings.Cut(s, opening); found {
			s = after
		}
		s = opening + " " + strings.TrimSpace(s)
	}
	first, _, _ := strings.Cut(s, ".")
	return strings.TrimSpace(first) + "."
}

// BriefsFromTable builds one brief per topic from a sheet with Topic,
// Description and Keywords (or Keyword) columns. Rows sharing a topic are
// merged: the first non-blank description wins and keywords accumulate.
func BriefsFromTable(t *fetcher.Table) ([]TopicBrief, error) {
	if t.Column(fetcher.TopicColumn) < 0 {
		return nil, eris.Errorf("provoke: no %q column in header %q", fetcher.TopicColumn, t.Header)
	}

	index := make(map[string]int)
	var briefs []TopicBrief
	for _, rec := range t.Records() {
		topic := strings.TrimSpace(rec[fetcher.TopicColumn])
		if topic == "" {
			continue
		}
		i, ok := index[topic]
		if !ok {
			i = len(briefs)
			index[topic] = i
			briefs = append(briefs, TopicBrief{Topic: topic})
		}
		b := &briefs[i]
		if b.Description == "" {
			b.Description = strings.TrimSpace(rec["Description"])
		}
		for _, col := range []string{"Keywords", "Keyword"} {
			for _, kw := range strings.Split(rec[col], ",") {
				if kw = strings.TrimSpace(kw); kw != "" && !slices.Contains(b.Keywords, kw) {
					b.Keywords = append(b.Keywords, kw)
				}
			}
		}
	}
	return briefs, nil
}
