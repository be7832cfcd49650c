package chat

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/davext/chatgate/providers/ai"
)

// ProviderStatus is the health-probe classification for one provider.
// Error is empty when the provider is available.
type ProviderStatus struct {
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Probe reason strings, surfaced verbatim in the status endpoint.
const (
	reasonQuota       = "Insufficient balance."
	reasonAuth        = "Invalid API key."
	reasonUnavailable = "Service unavailable."
	reasonEmpty       = "No response received."
)

// HealthProbe issues minimal probe requests against every registered
// provider and classifies the outcomes.
type HealthProbe struct {
	registry *ai.Registry
	logger   *zap.Logger
}

// NewHealthProbe returns a HealthProbe over registry. A nil logger falls
// back to zap's no-op logger.
func NewHealthProbe(registry *ai.Registry, logger *zap.Logger) *HealthProbe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthProbe{registry: registry, logger: logger}
}

// Check probes every registered provider concurrently with a one-word prompt,
// reads only the first fragment of the reply, and abandons the stream so the
// underlying connection is released without draining the backend's full
// output. One provider's failure never affects another's probe; results are
// aggregated into a mapping from provider identifier to status.
func (probe *HealthProbe) Check(ctx context.Context) map[ai.ProviderID]ProviderStatus {
	ids := probe.registry.IDs()

	statuses := make(map[ai.ProviderID]ProviderStatus, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(id ai.ProviderID) {
			defer wg.Done()
			status := probe.checkOne(ctx, id)
			mu.Lock()
			statuses[id] = status
			mu.Unlock()
		}(id)
	}

	wg.Wait()
	return statuses
}

// checkOne probes a single provider and classifies the result.
func (probe *HealthProbe) checkOne(ctx context.Context, id ai.ProviderID) ProviderStatus {
	provider, err := probe.registry.Resolve(id)
	if err != nil {
		probe.logger.Warn("health probe could not resolve provider",
			zap.String("provider", string(id)), zap.Error(err))
		return ProviderStatus{Available: false, Error: reasonUnavailable}
	}

	stream, err := provider.StreamReply(ctx, []ai.Message{{Role: ai.RoleUser, Content: "Hi"}})
	if err != nil {
		return probe.classify(id, err)
	}

	// Read just the first fragment to verify the provider works, then
	// abandon the stream to avoid wasting backend resources.
	_, ok, err := stream.First()
	if err != nil {
		return probe.classify(id, err)
	}
	if !ok {
		return ProviderStatus{Available: false, Error: reasonEmpty}
	}

	return ProviderStatus{Available: true}
}

// classify maps a probe failure onto the closed reason taxonomy.
func (probe *HealthProbe) classify(id ai.ProviderID, err error) ProviderStatus {
	classified := ai.Classify(err)
	probe.logger.Warn("provider probe failed",
		zap.String("provider", string(id)), zap.Error(err))

	switch {
	case errors.Is(classified, ai.ErrQuota):
		return ProviderStatus{Available: false, Error: reasonQuota}
	case errors.Is(classified, ai.ErrAuth):
		return ProviderStatus{Available: false, Error: reasonAuth}
	default:
		return ProviderStatus{Available: false, Error: reasonUnavailable}
	}
}
