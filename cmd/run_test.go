package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-insights/internal/model"
)

func writeTopicsCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "food_topics.csv")
	require.NoError(t, os.WriteFile(path, []byte("Topic\nCultivated meat\nPrecision fermentation\n\nCultivated meat\n"), 0o644))
	return path
}

func TestSelectTopics(t *testing.T) {
	file := writeTopicsCSV(t)

	all, err := selectTopics(file, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cultivated meat", "Precision fermentation"}, all)

	some, err := selectTopics(file, []string{" Precision fermentation"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Precision fermentation"}, some)

	_, err = selectTopics(file, []string{"Vertical farming"})
	assert.ErrorContains(t, err, "Vertical farming")

	direct, err := selectTopics("", []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, direct)

	_, err = selectTopics("", nil)
	assert.Error(t, err)
}

func TestDefaultOutputName(t *testing.T) {
	assert.Equal(t, "f_generated_market_insights.json", defaultOutputName("/data/food_topics.xlsx"))
	assert.Equal(t, "é_generated_market_insights.json", defaultOutputName("été.csv"))
	assert.Equal(t, "generated_market_insights.json", defaultOutputName(""))
}

func TestWriteJSON(t *testing.T) {
	insights := model.NewTopicInsights()
	insights.Ensure("Cultivated meat")

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeJSON(path, insights))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string][]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string][]any{"Cultivated meat": {}}, got)
}

func TestWriteJSON_BadPath(t *testing.T) {
	err := writeJSON(filepath.Join(t.TempDir(), "missing", "out.json"), []string{})
	assert.Error(t, err)
}
