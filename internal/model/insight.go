package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Field names every Insight carries.
const (
	FieldSource          = "Source"
	FieldInsightCategory = "Insight_category"

	// CategoryMarket is the only insight category produced today.
	CategoryMarket = "Market"
)

// RawResult is the output of one extraction attempt.
type RawResult struct {
	Result       *Result    `json:"result"`
	Topic        string     `json:"topic"`
	URL          string     `json:"url"`
	AnalysisType PromptKind `json:"analysis_type"`
}

// Insight is a flattened record tagged with its provenance URL.
type Insight struct {
	*Result
}

// Source returns the provenance URL.
func (i Insight) Source() string {
	return i.GetString(FieldSource)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Insight) UnmarshalJSON(data []byte) error {
	r := NewResult()
	if err := r.UnmarshalJSON(data); err != nil {
		return err
	}
	i.Result = r
	return nil
}

// TopicInsights maps each topic to its ordered insights. Topics keep
// first-seen order and the JSON form is an object keyed by topic.
type TopicInsights struct {
	topics  []string
	byTopic map[string][]Insight
}

// NewTopicInsights returns an empty mapping.
func NewTopicInsights() *TopicInsights {
	return &TopicInsights{byTopic: make(map[string][]Insight)}
}

// Ensure registers topic with an empty list if it is not present yet.
func (t *TopicInsights) Ensure(topic string) {
	if t.byTopic == nil {
		t.byTopic = make(map[string][]Insight)
	}
	if _, ok := t.byTopic[topic]; !ok {
		t.topics = append(t.topics, topic)
		t.byTopic[topic] = []Insight{}
	}
}

// Add appends ins to topic's list.
func (t *TopicInsights) Add(topic string, ins Insight) {
	t.Ensure(topic)
	t.byTopic[topic] = append(t.byTopic[topic], ins)
}

// Merge appends every topic and insight of other, in order.
func (t *TopicInsights) Merge(other *TopicInsights) {
	if other == nil {
		return
	}
	for _, topic := range other.topics {
		t.Ensure(topic)
		t.byTopic[topic] = append(t.byTopic[topic], other.byTopic[topic]...)
	}
}

// Topics returns the topics in first-seen order.
func (t *TopicInsights) Topics() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.topics))
	copy(out, t.topics)
	return out
}

// Get returns the insights for topic.
func (t *TopicInsights) Get(topic string) []Insight {
	if t == nil {
		return nil
	}
	return t.byTopic[topic]
}

// Len returns the number of topics.
func (t *TopicInsights) Len() int {
	if t == nil {
		return 0
	}
	return len(t.topics)
}

// Count returns the total number of insights across topics.
func (t *TopicInsights) Count() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, list := range t.byTopic {
		n += len(list)
	}
	return n
}

// MarshalJSON implements json.Marshaler.
func (t *TopicInsights) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, topic := range t.topics {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(topic)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(t.byTopic[topic])
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal insights for %q", topic)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TopicInsights) UnmarshalJSON(data []byte) error {
	r, err := ParseResult(data)
	if err != nil {
		return eris.Wrap(err, "model: decode topic insights")
	}
	out := NewTopicInsights()
	for _, topic := range r.Keys() {
		out.Ensure(topic)
		v, _ := r.Get(topic)
		if v == nil {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			return eris.Errorf("model: insights for %q must be a list", topic)
		}
		for _, item := range arr {
			rec, ok := item.(*Result)
			if !ok {
				return eris.Errorf("model: insight for %q must be an object", topic)
			}
			out.Add(topic, Insight{Result: rec})
		}
	}
	*t = *out
	return nil
}
