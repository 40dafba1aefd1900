package pipeline

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/market-insights/internal/model"
)

// emptyMarkers are answers the model gives when the page lacks a figure.
var emptyMarkers = []string{"na", "no amount found"}

// Valid reports whether r holds at least one section whose fields are all
// populated. A section is a top-level value that is itself a mapping.
func Valid(r *model.Result) bool {
	if r == nil {
		return false
	}
	fold := cases.Fold()
	for _, key := range r.Keys() {
		v, _ := r.Get(key)
		section, ok := v.(*model.Result)
		if !ok || section.Len() == 0 {
			continue
		}
		complete := true
		section.Each(func(_ string, field any) {
			if complete && !populated(fold, field) {
				complete = false
			}
		})
		if complete {
			return true
		}
	}
	return false
}

func populated(fold cases.Caser, v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return false
		}
		folded := fold.String(s)
		for _, marker := range emptyMarkers {
			if folded == marker {
				return false
			}
		}
		return true
	case *model.Result:
		return t.Len() > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
