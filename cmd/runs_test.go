package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-insights/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Request:   model.RunRequest{Topics: []string{"Cultivated meat"}, Domain: "Food"},
			Status:    model.RunStatusComplete,
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Request:   model.RunRequest{Topics: []string{"Clean beauty"}, Domain: "Beauty"},
			Status:    model.RunStatusFailed,
			Error:     "pipeline: search \"Potential Market Growth\" for \"Clean beauty\": serpapi: quota exceeded",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "DOMAIN")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "INSIGHTS")
	assert.Contains(t, output, "Cultivated meat")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "Beauty")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, "quota exceeded")
}

func TestEllipsize(t *testing.T) {
	assert.Equal(t, "short", ellipsize("short", 10))
	assert.Equal(t, "abcdefg...", ellipsize("abcdefghijklmnop", 10))
	assert.Equal(t, "Café Cr...", ellipsize("Café Crème Brûlée", 10))
}

func TestWriteIndented(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, writeIndented(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
