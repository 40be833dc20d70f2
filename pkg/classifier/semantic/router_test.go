package semantic

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
)

type fakeEmbeddingEngine struct {
	vectors map[string][]float32
	err     error
}

func (f fakeEmbeddingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func TestLoad_EmbedsEveryUtteranceForEveryRoute(t *testing.T) {
	engine := fakeEmbeddingEngine{vectors: map[string][]float32{
		"my vpn is down": {1, 0, 0},
	}}
	r := New(engine, 0.8, nil)

	err := r.Load(context.Background(), []models.SemanticRoute{
		{ID: "vpn_issue", Category: models.CategoryIncident, SubIntent: "vpn_down", Utterances: []string{"my vpn is down"}},
	})

	require.NoError(t, err)
	assert.Len(t, r.routes, 1)
	assert.Len(t, r.routes[0].UtteranceVectors, 1)
}

func TestLoad_DropsRouteWhoseUtteranceFailsToEmbed(t *testing.T) {
	engine := fakeEmbeddingEngine{err: errors.New("embedding provider unavailable")}
	r := New(engine, 0.8, nil)

	err := r.Load(context.Background(), []models.SemanticRoute{
		{ID: "vpn_issue", Category: models.CategoryIncident, SubIntent: "vpn_down", Utterances: []string{"my vpn is down"}},
	})

	require.NoError(t, err)
	assert.Empty(t, r.routes)
}

func TestRoute_ReturnsBestMatchAboveThreshold(t *testing.T) {
	engine := fakeEmbeddingEngine{vectors: map[string][]float32{
		"vpn is down": {1, 0, 0},
		"query text":  {1, 0, 0},
	}}
	r := New(engine, 0.5, nil)
	require.NoError(t, r.Load(context.Background(), []models.SemanticRoute{
		{ID: "vpn_issue", Category: models.CategoryIncident, SubIntent: "vpn_down", Utterances: []string{"vpn is down"}},
	}))

	result, ok := r.Route(context.Background(), "query text")

	require.True(t, ok)
	assert.Equal(t, "vpn_down", result.SubIntent)
	assert.InDelta(t, 1.0, result.Similarity, 0.001)
}

func TestRoute_BelowThresholdReturnsNoResult(t *testing.T) {
	engine := fakeEmbeddingEngine{vectors: map[string][]float32{
		"vpn is down":  {1, 0, 0},
		"unrelated":    {0, 1, 0},
	}}
	r := New(engine, 0.9, nil)
	require.NoError(t, r.Load(context.Background(), []models.SemanticRoute{
		{ID: "vpn_issue", Category: models.CategoryIncident, SubIntent: "vpn_down", Utterances: []string{"vpn is down"}},
	}))

	_, ok := r.Route(context.Background(), "unrelated")

	assert.False(t, ok)
}

func TestRoute_EmbeddingFailureDegradesToNoResult(t *testing.T) {
	engine := fakeEmbeddingEngine{err: errors.New("boom")}
	r := New(engine, 0.5, nil)

	_, ok := r.Route(context.Background(), "anything")

	assert.False(t, ok)
}

func TestRoute_NoLoadedRoutesReturnsNoResult(t *testing.T) {
	engine := fakeEmbeddingEngine{vectors: map[string][]float32{"x": {1, 0, 0}}}
	r := New(engine, 0.5, nil)

	_, ok := r.Route(context.Background(), "x")

	assert.False(t, ok)
}

func TestRoute_EmbeddingFailureRecordsMetric(t *testing.T) {
	reg := metrics.New()
	engine := fakeEmbeddingEngine{err: errors.New("boom")}
	r := New(engine, 0.5, reg)

	_, ok := r.Route(context.Background(), "anything")
	require.False(t, ok)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "intentcore_semantic_embedding_failures_total 1")
}
