package model

// Candidate is a URL eligible for extraction under one topic and prompt kind.
type Candidate struct {
	Topic  string     `json:"Topic"`
	URL    string     `json:"URL"`
	Prompt PromptKind `json:"Prompt"`
}

// CandidateTable is the ordered hand-off between candidate collection and
// extraction. A URL appears at most once per (topic, kind) group.
type CandidateTable struct {
	rows []Candidate
	seen map[candidateKey]struct{}
}

type candidateKey struct {
	topic string
	kind  PromptKind
	url   string
}

// NewCandidateTable returns an empty table.
func NewCandidateTable() *CandidateTable {
	return &CandidateTable{seen: make(map[candidateKey]struct{})}
}

// Add appends c unless its URL is empty or already present in its group.
// It reports whether the row was added.
func (t *CandidateTable) Add(c Candidate) bool {
	if c.URL == "" {
		return false
	}
	if t.seen == nil {
		t.seen = make(map[candidateKey]struct{})
	}
	k := candidateKey{topic: c.Topic, kind: c.Prompt, url: c.URL}
	if _, dup := t.seen[k]; dup {
		return false
	}
	t.seen[k] = struct{}{}
	t.rows = append(t.rows, c)
	return true
}

// Append adds every row of other in order, applying the same dedupe rule.
func (t *CandidateTable) Append(other *CandidateTable) {
	if other == nil {
		return
	}
	for _, c := range other.rows {
		t.Add(c)
	}
}

// Len returns the row count.
func (t *CandidateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns a copy of all rows.
func (t *CandidateTable) Rows() []Candidate {
	if t == nil {
		return nil
	}
	out := make([]Candidate, len(t.rows))
	copy(out, t.rows)
	return out
}

// Filter returns up to n rows matching topic and kind in table order.
// n <= 0 means no limit.
func (t *CandidateTable) Filter(topic string, kind PromptKind, n int) []Candidate {
	if t == nil {
		return nil
	}
	var out []Candidate
	for _, c := range t.rows {
		if c.Topic != topic || c.Prompt != kind {
			continue
		}
		out = append(out, c)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// URLs returns the URL of every candidate, in order.
func URLs(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.URL
	}
	return out
}
