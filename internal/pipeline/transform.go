package pipeline

import "github.com/sells-group/market-insights/internal/model"

// Transform flattens raw results into insights grouped by topic. Topics and
// insights keep the order the results were given in. The input is not
// modified.
func Transform(results []model.RawResult) *model.TopicInsights {
	out := model.NewTopicInsights()
	for _, r := range results {
		out.Add(r.Topic, Flatten(r))
	}
	return out
}

// Flatten merges every nested section of r's result into one record, copies
// top-level scalars unchanged and tags the record with its source URL and
// category. A later field overwrites an earlier one of the same name.
func Flatten(r model.RawResult) model.Insight {
	rec := model.NewResult()
	r.Result.Each(func(key string, v any) {
		section, ok := v.(*model.Result)
		if !ok {
			rec.Set(key, v)
			return
		}
		section.Each(func(field string, fv any) {
			rec.Set(field, fv)
		})
	})
	rec.Set(model.FieldSource, r.URL)
	rec.Set(model.FieldInsightCategory, model.CategoryMarket)
	return model.Insight{Result: rec}
}
