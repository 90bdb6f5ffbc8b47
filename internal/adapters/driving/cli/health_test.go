package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestHealthCmd_NoService(t *testing.T) {
	SetServices(Services{})

	_, _, err := execute(t, "", "health")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "health service not configured")
}

func TestHealthCmd_Healthy(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.health.Report = domain.HealthReport{
		Components: []domain.ComponentStatus{
			{Name: "vector_store", Healthy: true, Detail: "memory"},
			{Name: "llm", Healthy: true, Detail: "ollama llama3.2"},
		},
		DocumentCount: 4,
	}

	out, _, err := execute(t, "", "health")

	require.NoError(t, err)
	assert.Contains(t, out, "vector_store")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "Documents indexed: 4")
}

func TestHealthCmd_UnhealthyFails(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.health.Report = domain.HealthReport{
		Components: []domain.ComponentStatus{
			{Name: "llm", Healthy: false, Detail: "connection refused"},
		},
	}

	out, _, err := execute(t, "", "health")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhealthy")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "connection refused")
}

func TestHealthCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.health.Report = domain.HealthReport{
		Components:    []domain.ComponentStatus{{Name: "embedder", Healthy: true}},
		DocumentCount: 2,
	}

	out, _, err := execute(t, "", "health", "--json")

	require.NoError(t, err)
	var report domain.HealthReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.DocumentCount)
	require.Len(t, report.Components, 1)
	assert.Equal(t, "embedder", report.Components[0].Name)
}
