package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

// healthPingTimeout bounds each component check.
const healthPingTimeout = 5 * time.Second

// HealthService pings the embedder, generator and stores.
type HealthService struct {
	docs       driven.DocumentStore
	components []healthComponent
}

type healthComponent struct {
	name   string
	target any
}

// NewHealthService creates a health service. Components that do not
// implement driven.Pinger are reported healthy without a check.
func NewHealthService(docs driven.DocumentStore, embedder driven.Embedder, generator driven.Generator, vectors driven.VectorStore) *HealthService {
	return &HealthService{
		docs: docs,
		components: []healthComponent{
			{name: "embedding", target: embedder},
			{name: "llm", target: generator},
			{name: "vector_store", target: vectors},
		},
	}
}

// Check pings all components concurrently.
func (h *HealthService) Check(ctx context.Context) domain.HealthReport {
	statuses := make([]domain.ComponentStatus, len(h.components))

	var wg sync.WaitGroup
	for i, c := range h.components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i] = ping(ctx, c)
		}()
	}
	wg.Wait()

	report := domain.HealthReport{Components: statuses}
	if h.docs != nil {
		count, err := h.docs.CountDocuments(ctx)
		status := domain.ComponentStatus{Name: "document_store", Healthy: err == nil}
		if err != nil {
			status.Detail = err.Error()
		}
		report.Components = append(report.Components, status)
		report.DocumentCount = count
	}
	return report
}

func ping(ctx context.Context, c healthComponent) domain.ComponentStatus {
	status := domain.ComponentStatus{Name: c.name}
	if c.target == nil {
		status.Detail = "not configured"
		return status
	}
	pinger, ok := c.target.(driven.Pinger)
	if !ok {
		status.Healthy = true
		status.Detail = "no connectivity check"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := pinger.Ping(pingCtx); err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Healthy = true
	return status
}
