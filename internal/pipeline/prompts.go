// Package pipeline turns topics into market insights: it builds search
// prompts, collects candidate pages, extracts structured figures from them
// and flattens the results per topic.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/llm"
	"github.com/sells-group/market-insights/internal/model"
)

const (
	// maxParsedMarkets caps how many quoted names are kept from the model's answer.
	maxParsedMarkets = 4
	// promptMarkets is how many of those names go into the search prompts.
	promptMarkets = 2
)

const marketInstruction = "Based on the following topic: %s, can you identify the 2 relevant market(s) associated with this topic? " +
	"Describe the relevant markets considering the business sectors, industries, types of products or services involved, " +
	"and any economic trends related to the topic. Give just a list of market, no additional comment.\n\n" +
	"Follow this template for your answer:\n\n" +
	`["Healthcare Market", "AI in Healthcare Market", "Digital Health Market", "Telemedicine Market"]`

var quotedRe = regexp.MustCompile(`"\s*(.*?)\s*"`)

// searchLeads is the opening phrase of each kind's search prompt.
var searchLeads = map[model.PromptKind]string{
	model.KindPotentialMarketGrowth: "Worldwide Potential Market Growth",
	model.KindActualMarketSize:      "Actual Market Size",
	model.KindFutureMarketSize:      "Future Market Size",
	model.KindActualInvestment:      "Actual Investment",
	model.KindInvestmentGrowth:      "Actual percentage of investment growth",
}

// PromptBuilder derives the five search prompts for a topic.
type PromptBuilder struct {
	gen   llm.TextGenerator
	model string
}

// NewPromptBuilder creates a PromptBuilder that infers markets with gen.
// An empty modelName uses the generator's default.
func NewPromptBuilder(gen llm.TextGenerator, modelName string) *PromptBuilder {
	return &PromptBuilder{gen: gen, model: modelName}
}

// Markets asks the model which markets the topic belongs to. An answer
// without quoted names yields an empty list, not an error.
func (b *PromptBuilder) Markets(ctx context.Context, topic string) ([]string, error) {
	text, err := b.gen.Generate(ctx, fmt.Sprintf(marketInstruction, topic), b.model)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: infer markets for %q", topic)
	}
	markets := ParseMarkets(text)
	if len(markets) == 0 {
		zap.L().Debug("pipeline: no markets in model answer",
			zap.String("topic", topic),
			zap.String("answer", text),
		)
	}
	return markets, nil
}

// Prompts returns the search prompts for topic in resolution order. Markets
// are inferred on every call.
func (b *PromptBuilder) Prompts(ctx context.Context, topic, domain string) ([]model.Prompt, error) {
	markets, err := b.Markets(ctx, topic)
	if err != nil {
		return nil, err
	}
	return SearchPrompts(domain, markets), nil
}

// ParseMarkets returns the double-quoted names in text, trimmed and
// deduplicated, at most four.
func ParseMarkets(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == maxParsedMarkets {
			break
		}
	}
	return out
}

// SearchPrompts renders the five search prompts. Only the first two markets
// are used; with none the markets clause is left out.
func SearchPrompts(domain string, markets []string) []model.Prompt {
	var scope strings.Builder
	if len(markets) > 0 {
		quoted := make([]string, 0, promptMarkets)
		for _, m := range markets[:min(len(markets), promptMarkets)] {
			quoted = append(quoted, fmt.Sprintf("%q", m))
		}
		scope.WriteString(" in these markets ")
		scope.WriteString(strings.Join(quoted, ", "))
	}
	if d := strings.TrimSpace(domain); d != "" {
		scope.WriteString(" in ")
		scope.WriteString(d)
	}

	kinds := model.PromptKinds()
	prompts := make([]model.Prompt, 0, len(kinds))
	for _, kind := range kinds {
		prompts = append(prompts, model.Prompt{
			Kind: kind,
			Text: searchLeads[kind] + scope.String() + " in this topic : ",
		})
	}
	return prompts
}

// extractionTemplates hold the per-kind analyst instructions. Every %[1]s is
// the topic; the JSON key the model must answer under is appended by
// ExtractionInstruction.
var extractionTemplates = map[model.PromptKind]string{
	model.KindPotentialMarketGrowth: `
		As a journalist with expertise in market analytics, analyse the content and provide this information:

		**Potential Market Growth in %[1]s:**
		- The estimated potential market growth percentage, e.g. "Potential Market Growth in 2022": "9.9%% CAGR"
		- A short Description (the sentence from the text where the potential market growth percentage is mentioned)`,
	model.KindActualMarketSize: `
		As a journalist with expertise in market analytics, analyse the content and provide the following information:

		**Market Size (Actual Market Size) in %[1]s:**
		- Estimated Market Size, e.g. "USD 196.20 billion"
		- A short Description (the sentence from the text where the current market size is mentioned)
		- Don't put the "CAGR" in the description`,
	model.KindFutureMarketSize: `
		As a journalist with expertise in market analytics, analyse the content and provide the following information:

		**Future Market Size in %[1]s for the next coming years:**
		- Future estimated market size, e.g. "$100 billion"
		- A short Description (the sentence where the estimated market size is mentioned)
		- Don't put the "CAGR" in the description`,
	model.KindActualInvestment: `
		As a journalist with expertise in market analytics, analyse the content and provide the following information:

		**Actual Investment in %[1]s:**
		**Actual percentage of investment growth in 2022, 2023 and 2024 in %[1]s:**
		- Actual amount of investment in %[1]s, e.g. "USD 16.3 billion"
		- Actual percentage of investment growth in %[1]s, e.g. "12%% in 2022, 13.1%% in 2023, 14.1%% in 2024" (don't take the values of these examples)
		- A short Description (the sentence where the actual amount of investment is mentioned)
		- Don't put the "CAGR" in the description`,
	model.KindInvestmentGrowth: `
		As a journalist with expertise in market analytics, analyse the content and provide the following information:

		**Actual percentage of investment growth in %[1]s:**
		- Actual percentage of investment growth in %[1]s, e.g. "12%% in 2023"
		- A short Description (the sentence where the actual percentage of investment growth is mentioned)
		- Don't put the "CAGR" in the description`,
}

// ExtractionInstruction returns the analyst instruction for kind and topic.
func ExtractionInstruction(kind model.PromptKind, topic string) string {
	tmpl, ok := extractionTemplates[kind]
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf(tmpl, topic)) +
		fmt.Sprintf("\n\nRespond in JSON with the single key %q.", string(kind))
}
