package retrieval

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stenolab/steno/pkg/domain/model"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWindowSize    = 200
	DefaultOverlap       = 50
	DefaultTopK          = 5
	DefaultEmbedAttempts = 2
	DefaultEmbedDelay    = time.Second
)

// Service is the retrieval engine: chunking, embedding, nearest-neighbor
// lookup and centroid aggregation. It owns no persistent state.
type Service struct {
	llm           gollem.LLMClient
	windowSize    int
	overlap       int
	topK          int
	embedAttempts int
	embedDelay    time.Duration
}

type Option func(*Service)

// WithWindow sets the chunk window size and overlap in characters.
// The overlap must be smaller than the window or chunking cannot advance.
func WithWindow(windowSize, overlap int) Option {
	return func(s *Service) {
		s.windowSize = windowSize
		s.overlap = overlap
	}
}

// WithTopK sets how many chunks Nearest returns
func WithTopK(k int) Option {
	return func(s *Service) {
		s.topK = k
	}
}

// WithEmbedRetry sets the per-chunk retry bound and the delay between
// attempts for EmbedAll
func WithEmbedRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		s.embedAttempts = attempts
		s.embedDelay = delay
	}
}

func New(llm gollem.LLMClient, opts ...Option) *Service {
	s := &Service{
		llm:           llm,
		windowSize:    DefaultWindowSize,
		overlap:       DefaultOverlap,
		topK:          DefaultTopK,
		embedAttempts: DefaultEmbedAttempts,
		embedDelay:    DefaultEmbedDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chunk splits text into a deterministic sliding window of chunks.
// Consecutive chunks overlap so that a sentence cut at a window boundary
// still appears whole in one of them. The union of the chunks always
// covers the full text.
func (s *Service) Chunk(text string) []string {
	return chunk(text, s.windowSize, s.overlap)
}

func chunk(text string, windowSize, overlap int) []string {
	if text == "" {
		return nil
	}
	step := windowSize - overlap
	if step <= 0 {
		step = windowSize
	}

	var chunks []string
	offset := 0
	for offset < len(text) {
		end := offset + windowSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[offset:end])
		offset += step
	}
	if offset < len(text) {
		chunks = append(chunks, text[offset:])
	}
	return chunks
}

// Embed returns the embedding vector of a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.llm.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(vectors) != 1 {
		return nil, goerr.New("unexpected embedding count", goerr.V("count", len(vectors)))
	}
	return toFloat32(vectors[0]), nil
}

// EmbedAll embeds every chunk concurrently. Each chunk is retried
// independently up to the configured bound; one chunk exhausting its
// retries fails the whole call.
func (s *Service) EmbedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	embeddings := make([][]float32, len(chunks))

	eg, ctx := errgroup.WithContext(ctx)
	for i, text := range chunks {
		eg.Go(func() error {
			var lastErr error
			for attempt := 0; attempt < s.embedAttempts; attempt++ {
				if attempt > 0 {
					select {
					case <-time.After(s.embedDelay):
					case <-ctx.Done():
						return ctx.Err()
					}
				}

				vector, err := s.Embed(ctx, text)
				if err == nil {
					embeddings[i] = vector
					return nil
				}
				lastErr = err
			}
			return goerr.Wrap(lastErr, "failed to embed chunk after retries",
				goerr.V("chunkIndex", i), goerr.V("attempts", s.embedAttempts))
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return embeddings, nil
}

// Nearest returns the chunks whose embeddings are most similar to the
// query vector, ordered by descending cosine similarity. Ties keep the
// chunk with the smaller original index first.
func (s *Service) Nearest(query []float32, embeddings [][]float32, chunks []string) ([]string, error) {
	if len(embeddings) != len(chunks) {
		return nil, goerr.New("embeddings and chunks must be parallel",
			goerr.V("embeddings", len(embeddings)), goerr.V("chunks", len(chunks)))
	}

	type scored struct {
		index      int
		similarity float64
	}
	ranked := make([]scored, len(chunks))
	for i, embedding := range embeddings {
		ranked[i] = scored{index: i, similarity: cosineSimilarity(query, embedding)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].similarity > ranked[b].similarity
	})

	k := s.topK
	if k > len(ranked) {
		k = len(ranked)
	}
	nearest := make([]string, k)
	for i := 0; i < k; i++ {
		nearest[i] = chunks[ranked[i].index]
	}
	return nearest, nil
}

// Centroid computes the element-wise mean of the vectors
func Centroid(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, goerr.New("cannot compute centroid of zero vectors")
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for i, vector := range vectors {
		if len(vector) != dim {
			return nil, goerr.New("vectors must share a dimension",
				goerr.V("expected", dim), goerr.V("got", len(vector)), goerr.V("index", i))
		}
		for j, v := range vector {
			sum[j] += float64(v)
		}
	}

	centroid := make([]float32, dim)
	n := float64(len(vectors))
	for j, v := range sum {
		centroid[j] = float32(v / n)
	}
	return centroid, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
