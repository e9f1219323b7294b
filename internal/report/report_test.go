package report_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/hwmond/internal/report"
)

func TestWrite(t *testing.T) {
	var buf strings.Builder
	fields := []report.Field{
		{Label: "Core temperature", Status: "OK", Value: "65 C"},
		{Label: "Dynamic P-state utilization", Status: "NOT_SUPPORTED"},
		{Label: "Fan speed", Status: "ERROR(5)"},
	}

	require.NoError(t, report.Write(&buf, "GPU: FakeGPU", fields))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "GPU: FakeGPU", lines[0])
	assert.Equal(t, strings.Repeat("-", len("GPU: FakeGPU")), lines[1])
	assert.Equal(t, "Core temperature:                OK 65 C", lines[2])
	assert.Equal(t, "Dynamic P-state utilization:     NOT_SUPPORTED", lines[3])
	assert.Equal(t, "Fan speed:                       ERROR(5)", lines[4])
	assert.Equal(t, "", lines[5])
	assert.Equal(t, "", lines[6])
}
