// Package embedder turns text chunks into fixed-dimension vectors
// through a closed set of providers.
//
// All providers implement the same contract: ordered, 1:1 text-in,
// vector-out, with an EmbeddingID fingerprint the vector store uses to
// detect model changes.
//
// # Remote Provider (openai)
//
// The remote provider calls an OpenAI-embeddings-compatible batch
// endpoint. Three behaviors make it safe against external limits:
//
//   - Texts over the MaxInputChars ceiling are split into consecutive
//     slices; per-slice vectors are recombined by elementwise mean so
//     the caller still receives one vector per input.
//   - Slices are packed greedily into batches under the MaxBatchChars
//     budget, always admitting at least one slice per batch.
//   - Each batch is retried with exponential backoff up to MaxRetries;
//     exhausted batches degrade to zero vectors rather than failing the
//     call, so one bad batch never aborts indexing of the rest of the
//     workspace. The degradation is logged and counted.
//
// Blank inputs are answered with a local zero vector and never hit the
// network. Vector width is seeded from the known-model table and
// refined by the first successful response.
//
// # Local Provider (local)
//
// The local provider wraps a model served by an Ollama runtime. The
// model is ensured present lazily on first use through a process-wide
// ModelCache: concurrent first-callers share one in-flight load, and a
// failed load propagates immediately instead of degrading. Download
// progress streams out through a ProgressFunc for UI surfacing.
//
// # Selection
//
//	provider, err := embedder.New(embedder.Config{
//	    Provider: "openai",
//	    APIKey:   apiKey,
//	    Model:    "text-embedding-3-small",
//	}, models, logger)
//	defer provider.Close()
//
//	vectors, err := provider.Embed(ctx, texts)
//
// NewFromEnv auto-detects: an explicit VECTREE_EMBEDDING_PROVIDER wins,
// then OPENAI_API_KEY implies openai, then the deterministic mock
// provider serves as the offline fallback.
//
// Test embeds one sentinel string so configuration UIs can validate a
// provider before committing to a full index.
package embedder
