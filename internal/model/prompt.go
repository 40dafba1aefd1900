package model

// PromptKind names one of the fixed extraction intents.
type PromptKind string

const (
	KindPotentialMarketGrowth PromptKind = "Potential Market Growth"
	KindActualMarketSize      PromptKind = "Actual Market Size"
	KindFutureMarketSize      PromptKind = "Future Market Size"
	KindActualInvestment      PromptKind = "Actual Investment"
	KindInvestmentGrowth      PromptKind = "Investment Growth"
)

// PromptKinds returns every kind in resolution order.
func PromptKinds() []PromptKind {
	return []PromptKind{
		KindPotentialMarketGrowth,
		KindActualMarketSize,
		KindFutureMarketSize,
		KindActualInvestment,
		KindInvestmentGrowth,
	}
}

// Valid reports whether k is one of the known kinds.
func (k PromptKind) Valid() bool {
	for _, known := range PromptKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Prompt is a search prompt bound to a topic's markets and domain. Text is
// used as the search query prefix; the query is Text followed by the topic.
type Prompt struct {
	Kind PromptKind `json:"kind"`
	Text string     `json:"text"`
}

// Query returns the search query for topic.
func (p Prompt) Query(topic string) string {
	return p.Text + topic
}
