package retrieval

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hearth/internal/logging"
)

const (
	queueDepth      = 256
	numWorkers      = 4
	similarityFloor = 0.3
	defaultTopK     = 5
)

type upsertJob struct {
	id       string
	document string
}

// Retriever implements the Semantic Retriever: chunk-and-embed upserts run
// on a bounded background worker pool (grounded on the
// start/stop-channel reflection worker in
// internal/store/reflection_worker.go, rewritten over an errgroup-drained
// channel so Close() can await a clean drain rather than race a bare
// goroutine), and search never fails its caller.
type Retriever struct {
	embedder EmbeddingClient
	index    VectorIndex

	jobs   chan upsertJob
	group  *errgroup.Group
	cancel context.CancelFunc
}

// New builds a Retriever and starts its background upsert workers.
func New(embedder EmbeddingClient, index VectorIndex) *Retriever {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	r := &Retriever{
		embedder: embedder,
		index:    index,
		jobs:     make(chan upsertJob, queueDepth),
		group:    group,
		cancel:   cancel,
	}

	for i := 0; i < numWorkers; i++ {
		group.Go(func() error {
			r.worker(ctx)
			return nil
		})
	}
	return r
}

func (r *Retriever) worker(ctx context.Context) {
	log := logging.Get(logging.CategoryRetrieval)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-r.jobs:
			if !ok {
				return
			}
			if err := r.upsertNow(ctx, job.id, job.document); err != nil {
				log.Warn("background upsert for %s failed: %v", job.id, err)
			}
		}
	}
}

// IndexTurn chunks a turn's content and enqueues each chunk for background
// embedding and upsert. Indexing is best-effort: if the queue is
// saturated, the enqueue is dropped rather than blocking the foreground
// response.
func (r *Retriever) IndexTurn(turnID, content string) {
	log := logging.Get(logging.CategoryRetrieval)
	chunks := Chunk(content)
	for i, chunk := range chunks {
		job := upsertJob{id: fmt.Sprintf("%s#%d", turnID, i), document: chunk}
		select {
		case r.jobs <- job:
		default:
			log.Warn("upsert queue full, dropping chunk %s", job.id)
		}
	}
}

func (r *Retriever) upsertNow(ctx context.Context, id, document string) error {
	vector, err := r.embedder.Embed(ctx, document)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	return r.index.Upsert(ctx, id, document, vector, nil)
}

// queryResult pairs a match with its converted similarity score.
type queryResult struct {
	Match
	Similarity float64
}

// query runs the shared embed-then-search path used by both Search and
// SearchText.
func (r *Retriever) query(ctx context.Context, text string, k int) []queryResult {
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		logging.Get(logging.CategoryRetrieval).Warn("query embed failed, returning empty result: %v", err)
		return nil
	}

	matches, err := r.index.Query(ctx, vector, k)
	if err != nil {
		logging.Get(logging.CategoryRetrieval).Warn("query failed, returning empty result: %v", err)
		return nil
	}

	results := make([]queryResult, len(matches))
	for i, m := range matches {
		results[i] = queryResult{Match: m, Similarity: 1 - m.Distance}
	}
	return results
}

// Query returns up to k raw matches (k capped at 5). Never
// returns an error: an unavailable index yields an empty slice.
func (r *Retriever) Query(ctx context.Context, text string, k int) []Match {
	if k <= 0 || k > defaultTopK {
		k = defaultTopK
	}
	results := r.query(ctx, text, k)
	matches := make([]Match, len(results))
	for i, res := range results {
		matches[i] = res.Match
	}
	return matches
}

// Search implements tools/memory.Searcher: text-only output, filtered to
// results scoring at least 0.3 similarity
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > defaultTopK {
		limit = defaultTopK
	}
	results := r.query(ctx, query, limit)

	out := make([]string, 0, len(results))
	for _, res := range results {
		if res.Similarity < similarityFloor {
			continue
		}
		out = append(out, res.Document)
	}
	return out, nil
}

// Close stops accepting new upserts and waits (bounded by timeout) for
// in-flight workers to drain, so shutdown never abandons an embed call
// mid-flight.
func (r *Retriever) Close(timeout time.Duration) error {
	close(r.jobs)
	done := make(chan error, 1)
	go func() { done <- r.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.cancel()
		return fmt.Errorf("retrieval: workers did not drain within %s", timeout)
	}
}
