package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-insights/internal/model"
)

func TestFlatten(t *testing.T) {
	raw := model.RawResult{
		Result: mustResult(t, `{"A": {"x": 1}, "B": {"y": 2}, "z": 3}`),
		Topic:  "T",
		URL:    "u",
	}

	ins := Flatten(raw)
	b, err := json.Marshal(ins)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1,"y":2,"z":3,"Source":"u","Insight_category":"Market"}`, string(b))
	assert.Equal(t, "u", ins.Source())
}

func TestFlatten_LastWriteWins(t *testing.T) {
	raw := model.RawResult{
		Result: mustResult(t, `{"A": {"Description": "first", "CAGR": "5%"}, "B": {"Description": "second"}}`),
		URL:    "https://example.com",
	}

	ins := Flatten(raw)
	assert.Equal(t, "second", ins.GetString("Description"))
	assert.Equal(t, "5%", ins.GetString("CAGR"))
}

func TestFlatten_NilResult(t *testing.T) {
	ins := Flatten(model.RawResult{URL: "https://example.com"})
	assert.Equal(t, []string{model.FieldSource, model.FieldInsightCategory}, ins.Keys())
}

func TestTransform_GroupsAndOrders(t *testing.T) {
	raws := []model.RawResult{
		{Topic: "Cultivated meat", URL: "u1", AnalysisType: model.KindPotentialMarketGrowth, Result: mustResult(t, `{"Market Growth": {"CAGR": "9%"}}`)},
		{Topic: "Cultivated meat", URL: "u3", AnalysisType: model.KindFutureMarketSize, Result: mustResult(t, `{"Future Market Size": {"Future Estimated market size": "$25B"}}`)},
		{Topic: "Precision fermentation", URL: "u4", AnalysisType: model.KindActualInvestment, Result: mustResult(t, `{"Actual Investment": {"Amount": "USD 1 billion"}}`)},
	}

	out := Transform(raws)
	assert.Equal(t, []string{"Cultivated meat", "Precision fermentation"}, out.Topics())
	require.Len(t, out.Get("Cultivated meat"), 2)
	assert.Equal(t, "u1", out.Get("Cultivated meat")[0].Source())
	assert.Equal(t, "u3", out.Get("Cultivated meat")[1].Source())
	assert.Equal(t, 3, out.Count())
}

func TestTransform_Idempotent(t *testing.T) {
	raws := []model.RawResult{
		{Topic: "T", URL: "u", Result: mustResult(t, `{"A": {"x": "1"}, "k": "v"}`)},
	}

	first, err := json.Marshal(Transform(raws))
	require.NoError(t, err)
	second, err := json.Marshal(Transform(raws))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	// Input untouched.
	assert.Equal(t, []string{"A", "k"}, raws[0].Result.Keys())
}

func TestTransform_Empty(t *testing.T) {
	out := Transform(nil)
	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}
