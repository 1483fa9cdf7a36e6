package embedder

import (
	"bufio"
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

// Local provider configuration
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultLocalModel    = "nomic-embed-text"

	// LocalMaxChunkSize is the on-device input ceiling; longer inputs
	// are truncated rather than sliced.
	LocalMaxChunkSize = 2000
)

// ProgressStage identifies a phase of the model-download lifecycle
type ProgressStage string

const (
	StageInitiate ProgressStage = "initiate"
	StageDownload ProgressStage = "download"
	StageProgress ProgressStage = "progress"
	StageDone     ProgressStage = "done"
)

// ProgressEvent surfaces model-download lifecycle state to the UI layer
type ProgressEvent struct {
	Stage     ProgressStage `json:"stage"`
	Model     string        `json:"model"`
	Status    string        `json:"status,omitempty"`
	Completed int64         `json:"completed,omitempty"`
	Total     int64         `json:"total,omitempty"`
}

// ProgressFunc receives download progress events. May be nil.
type ProgressFunc func(ProgressEvent)

// LocalProvider wraps an embedding model served by a local Ollama
// runtime. The model is ensured present exactly once, lazily, on the
// first Embed call; concurrent first-callers share the load through the
// ModelCache. Load failures are configuration faults: they propagate
// immediately and are never degraded to zero vectors.
type LocalProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	cache      *Cache
	models     *ModelCache
	progress   ProgressFunc
	logger     *slog.Logger
	dimensions atomic.Int32
}

// LocalOptions configures a LocalProvider
type LocalOptions struct {
	BaseURL  string // defaults to DefaultOllamaBaseURL
	Model    string // defaults to DefaultLocalModel
	Cache    *Cache
	Progress ProgressFunc
	Logger   *slog.Logger
}

// NewLocalProvider creates a local embedding provider backed by models.
// models must not be nil; it owns the per-model load memoization.
func NewLocalProvider(models *ModelCache, opts LocalOptions) (*LocalProvider, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: nil model cache", ErrModelLoad)
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultLocalModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &LocalProvider{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Local models may be slower
		},
		cache:    opts.Cache,
		models:   models,
		progress: opts.Progress,
		logger:   logger,
	}
	if dim, ok := knownModelDimensions[model]; ok {
		p.dimensions.Store(int32(dim))
	}
	return p, nil
}

// EmbeddingID returns the model+runtime fingerprint
func (l *LocalProvider) EmbeddingID() string {
	return fmt.Sprintf("%s:%s:%s", ProviderLocal, l.model, l.baseURL)
}

// Dimensions returns the vector width once known, else the known-model
// seed, else 0
func (l *LocalProvider) Dimensions() int {
	return int(l.dimensions.Load())
}

// MaxChunkSize returns the local input ceiling in characters
func (l *LocalProvider) MaxChunkSize() int {
	return LocalMaxChunkSize
}

// Embed generates one L2-normalized vector per text, sequentially.
// Inputs above MaxChunkSize are truncated.
func (l *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := l.models.Ensure(ctx, l.model, l.loadModel); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, l.model, err)
	}

	start := time.Now()
	defer func() { recordEmbedDuration(time.Since(start).Seconds()) }()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(text) > LocalMaxChunkSize {
			text = text[:LocalMaxChunkSize]
			recordTruncation()
		}
		vec, err := l.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// loadModel verifies the model is present, pulling it if missing.
// Runs at most once per model via the ModelCache.
func (l *LocalProvider) loadModel(ctx context.Context) error {
	status, err := l.postJSON(ctx, "/api/show", map[string]string{"name": l.model}, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("model probe returned status %d", status)
	}
	return l.pullModel(ctx)
}

// pullModel streams the model download, relaying progress events
func (l *LocalProvider) pullModel(ctx context.Context) error {
	l.emit(ProgressEvent{Stage: StageInitiate, Model: l.model})
	l.logger.Info("embedding.model.pull", "model", l.model)

	body, err := json.Marshal(map[string]interface{}{"name": l.model, "stream": true})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pull request (is Ollama running at %s?): %w", l.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	started := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line struct {
			Status    string `json:"status"`
			Error     string `json:"error"`
			Completed int64  `json:"completed"`
			Total     int64  `json:"total"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Error != "" {
			return fmt.Errorf("pull failed: %s", line.Error)
		}
		if line.Total > 0 {
			stage := StageProgress
			if !started {
				stage = StageDownload
				started = true
			}
			l.emit(ProgressEvent{
				Stage:     stage,
				Model:     l.model,
				Status:    line.Status,
				Completed: line.Completed,
				Total:     line.Total,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read pull stream: %w", err)
	}

	l.emit(ProgressEvent{Stage: StageDone, Model: l.model})
	return nil
}

func (l *LocalProvider) emit(event ProgressEvent) {
	if l.progress != nil {
		l.progress(event)
	}
}

// embedOne calls the embeddings endpoint for a single text
func (l *LocalProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	if l.cache != nil {
		if vec, ok := l.cache.Get(ComputeHash(text)); ok {
			recordCacheHit()
			return vec, nil
		}
	}

	var apiResp struct {
		Embedding []float64 `json:"embedding"`
	}
	status, err := l.postJSON(ctx, "/api/embeddings", map[string]string{
		"model":  l.model,
		"prompt": text,
	}, &apiResp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: embeddings returned status %d", ErrProviderFailed, status)
	}
	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrProviderFailed)
	}

	vec := make([]float32, len(apiResp.Embedding))
	for i, v := range apiResp.Embedding {
		vec[i] = float32(v)
	}
	vec = NormalizeVector(vec)
	l.dimensions.Store(int32(len(vec)))

	if l.cache != nil {
		l.cache.Set(ComputeHash(text), vec)
	}
	return vec, nil
}

// postJSON posts a JSON body and optionally decodes a 200 response into out
func (l *LocalProvider) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request (is Ollama running at %s?): %w", l.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Test ensures the model and embeds a sentinel string
func (l *LocalProvider) Test(ctx context.Context) TestResult {
	return runTest(ctx, l)
}

// Close unloads the model from the runtime and forgets the memoized load
func (l *LocalProvider) Close() error {
	if l.models.Loaded(l.model) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// keep_alive 0 asks Ollama to release the model immediately
		if _, err := l.postJSON(ctx, "/api/generate", map[string]interface{}{
			"model":      l.model,
			"keep_alive": 0,
		}, nil); err != nil {
			l.logger.Warn("embedding.model.unload", "model", l.model, "err", err)
		}
		l.models.Forget(l.model)
	}
	l.httpClient.CloseIdleConnections()
	return nil
}
