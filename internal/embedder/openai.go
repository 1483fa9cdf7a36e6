package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
	ProviderMock   = "mock"
)

// Remote provider limits and retry configuration
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"

	// MaxInputChars is the slice ceiling: any single text longer than
	// this is split into consecutive slices before batching.
	MaxInputChars = 8000
	// MaxBatchChars is the total-character budget per request batch
	MaxBatchChars = 16000

	MaxRetries        = 3
	InitialBackoffMs  = 500
	MaxBackoffMs      = 8000
	BackoffMultiplier = 2.0
)

// knownModelDimensions seeds the zero-vector width before the first
// successful response has been seen
var knownModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"jina-embeddings-v3":     1024,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// OpenAIProvider calls an OpenAI-embeddings-compatible HTTP batch
// endpoint. Oversized inputs are sliced and recombined by elementwise
// mean; batches that exhaust their retries degrade to zero vectors
// instead of failing the whole call, so one bad batch never aborts
// indexing of the rest of the workspace.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *Cache
	logger     *slog.Logger
	retry      RetryConfig
	dimensions atomic.Int32
}

// OpenAIOptions configures an OpenAIProvider
type OpenAIOptions struct {
	BaseURL    string // defaults to DefaultOpenAIBaseURL
	APIKey     string
	Model      string // defaults to DefaultOpenAIModel
	Dimensions int    // overrides the known-model table seed
	Cache      *Cache // optional vector cache
	Logger     *slog.Logger
}

// NewOpenAIProvider creates a remote embedding provider
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: API key not set", ErrNoProviderEnabled)
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &OpenAIProvider{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  opts.Cache,
		logger: logger,
		retry:  DefaultRetryConfig(),
	}
	if opts.Dimensions > 0 {
		p.dimensions.Store(int32(opts.Dimensions))
	} else if dim, ok := knownModelDimensions[model]; ok {
		p.dimensions.Store(int32(dim))
	}
	return p, nil
}

// SetRetryConfig overrides the retry configuration
func (o *OpenAIProvider) SetRetryConfig(cfg RetryConfig) {
	o.retry = cfg
}

// EmbeddingID returns the model+endpoint fingerprint
func (o *OpenAIProvider) EmbeddingID() string {
	return fmt.Sprintf("%s:%s:%s", ProviderOpenAI, o.model, o.baseURL)
}

// Dimensions returns the vector width: the configured or known-model
// seed until the first successful response refines it, 0 if neither is
// available yet.
func (o *OpenAIProvider) Dimensions() int {
	return int(o.dimensions.Load())
}

// MaxChunkSize returns the slice ceiling in characters
func (o *OpenAIProvider) MaxChunkSize() int {
	return MaxInputChars
}

// textPlan records where one input text's slices landed in the flat
// slice list, or that it was answered without a provider call
type textPlan struct {
	sliceIdx []int
	cached   []float32
	blank    bool
}

// Embed returns one vector per text, in input order. Blank inputs get a
// local zero vector without a network call. A batch whose retries are
// exhausted falls back to zero vectors for its texts; Embed itself
// returns an error only for invalid state or cancellation.
func (o *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()
	defer func() { recordEmbedDuration(time.Since(start).Seconds()) }()

	plans := make([]textPlan, len(texts))
	var flat []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			plans[i].blank = true
			recordBlankSkip()
			continue
		}
		if o.cache != nil {
			if vec, ok := o.cache.Get(ComputeHash(text)); ok {
				plans[i].cached = vec
				recordCacheHit()
				continue
			}
		}
		for _, slice := range sliceText(text, MaxInputChars) {
			plans[i].sliceIdx = append(plans[i].sliceIdx, len(flat))
			flat = append(flat, slice)
		}
	}

	sliceVecs := make([][]float32, len(flat))
	failed := make([]bool, len(flat))
	for _, batch := range packBatches(flat, MaxBatchChars) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		input := flat[batch.Start:batch.End]
		recordBatchSent()
		vectors, err := retryWithBackoff(ctx, o.retry, o.logger, func() ([][]float32, error) {
			return o.callAPI(ctx, input)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Retries exhausted: degrade this batch to zero vectors and
			// move on. Observable via the log and fallback counter.
			o.logger.Error("embedding.batch.failed",
				"model", o.model,
				"batch_size", len(input),
				"err", err)
			recordFallback(len(input))
			for i := batch.Start; i < batch.End; i++ {
				failed[i] = true
			}
			continue
		}
		for i, vec := range vectors {
			sliceVecs[batch.Start+i] = vec
		}
	}

	width := o.Dimensions()
	out := make([][]float32, len(texts))
	for i := range texts {
		plan := &plans[i]
		switch {
		case plan.blank:
			out[i] = zeroVector(width)
		case plan.cached != nil:
			out[i] = plan.cached
		default:
			vecs := make([][]float32, 0, len(plan.sliceIdx))
			clean := true
			for _, idx := range plan.sliceIdx {
				if failed[idx] {
					clean = false
					break
				}
				vecs = append(vecs, sliceVecs[idx])
			}
			if !clean {
				out[i] = zeroVector(width)
				continue
			}
			out[i] = meanVectors(vecs)
			// Zero-vector fallbacks are never cached; genuine output is
			if o.cache != nil {
				o.cache.Set(ComputeHash(texts[i]), out[i])
			}
		}
	}
	return out, nil
}

// callAPI performs one embeddings request for a batch of slices
func (o *OpenAIProvider) callAPI(ctx context.Context, input []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input":           input,
		"model":           o.model,
		"encoding_format": "float",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Data) != len(input) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrProviderFailed, len(apiResp.Data), len(input))
	}

	vectors := make([][]float32, len(input))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProviderFailed, data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrProviderFailed, i)
		}
	}

	// First successful response fixes the width for zero-vector fallbacks
	o.dimensions.Store(int32(len(vectors[0])))
	return vectors, nil
}

// Test embeds a sentinel string without the zero-vector degradation, so
// a misconfigured endpoint surfaces as an error
func (o *OpenAIProvider) Test(ctx context.Context) TestResult {
	vectors, err := retryWithBackoff(ctx, o.retry, o.logger, func() ([][]float32, error) {
		return o.callAPI(ctx, []string{testSentinel})
	})
	if err != nil {
		return TestResult{Error: err.Error()}
	}
	return TestResult{Success: true, Dimensions: len(vectors[0])}
}

// Close releases idle connections
func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
