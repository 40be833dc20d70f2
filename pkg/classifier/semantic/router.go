// Package semantic implements the vector-similarity classification tier:
// the second, mid-cost tier an inbound request falls through to when the
// pattern tier finds no confident match.
package semantic

import (
	"context"
	"log/slog"
	"math"

	"github.com/sony/gobreaker"

	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
)

// EmbeddingEngine computes a vector embedding for arbitrary text. The real
// provider is an out-of-scope collaborator (spec §1); Router only depends
// on this narrow contract.
type EmbeddingEngine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is what Router.Route returns for a winning route.
type Result struct {
	Category   models.IntentCategory
	SubIntent  string
	RouteID    string
	Similarity float64
}

// Router matches incoming text against a table of labeled example
// utterances by maximum cosine similarity. Utterance vectors are computed
// once at Load time; Route never calls the embedding engine for anything
// but the incoming text itself.
type Router struct {
	engine    EmbeddingEngine
	threshold float64
	routes    []models.SemanticRoute

	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
	metrics *metrics.Registry
}

// New returns a Router. threshold is the minimum cosine similarity for a
// route to be considered a hit (spec default 0.85). reg may be nil.
func New(engine EmbeddingEngine, threshold float64, reg *metrics.Registry) *Router {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "semantic-embedding",
		MaxRequests: 1,
	})
	return &Router{
		engine:    engine,
		threshold: threshold,
		breaker:   cb,
		log:       slog.With("component", "semantic-router"),
		metrics:   reg,
	}
}

// Load embeds every route's utterances and stores the resulting vectors.
// Routes whose utterances fail to embed are dropped with a logged warning
// rather than failing the whole load — a single bad utterance must not
// take the entire semantic tier down.
func (r *Router) Load(ctx context.Context, routes []models.SemanticRoute) error {
	loaded := make([]models.SemanticRoute, 0, len(routes))
	for _, route := range routes {
		vectors := make([][]float32, 0, len(route.Utterances))
		ok := true
		for _, u := range route.Utterances {
			vec, err := r.engine.Embed(ctx, u)
			if err != nil {
				r.log.Warn("failed to embed utterance, dropping route",
					"route_id", route.ID, "error", err)
				ok = false
				break
			}
			vectors = append(vectors, vec)
		}
		if !ok {
			continue
		}
		route.UtteranceVectors = vectors
		loaded = append(loaded, route)
	}
	r.routes = loaded
	return nil
}

// Route embeds text and returns the route with maximum cosine similarity
// to any of its utterances, if that similarity is >= threshold. If the
// embedding call fails (including via the circuit breaker tripping), Route
// returns no result and never raises — the spec requires the tier to
// degrade silently so the coordinator falls through to the LLM tier.
func (r *Router) Route(ctx context.Context, text string) (Result, bool) {
	v, err := r.breaker.Execute(func() (any, error) {
		return r.engine.Embed(ctx, text)
	})
	if err != nil {
		r.log.Warn("semantic embedding call failed, falling through", "error", err)
		if r.metrics != nil {
			r.metrics.ObserveSemanticEmbeddingFailure()
		}
		return Result{}, false
	}
	queryVec := v.([]float32)

	var (
		best      *models.SemanticRoute
		bestScore float64
	)
	for i := range r.routes {
		route := &r.routes[i]
		for _, uv := range route.UtteranceVectors {
			sim := cosineSimilarity(queryVec, uv)
			if sim > bestScore {
				bestScore = sim
				best = route
			}
		}
	}

	if best == nil || bestScore < r.threshold {
		return Result{}, false
	}

	return Result{
		Category:   best.Category,
		SubIntent:  best.SubIntent,
		RouteID:    best.ID,
		Similarity: bestScore,
	}, true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
