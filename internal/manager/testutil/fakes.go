package testutil

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/models"
)

// FakeAcquirer returns fixed transcripts and records the references it was asked for.
type FakeAcquirer struct {
	Transcripts []models.Transcript
	Err         error

	mu    sync.Mutex
	Calls []string
}

func (f *FakeAcquirer) Fetch(_ context.Context, reference string) ([]models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, reference)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Transcripts, nil
}

// FakeEmbedder maps each text to a vector through Vectorize, or to a constant
// vector of Dimension ones when Vectorize is nil.
type FakeEmbedder struct {
	Dimension int
	Vectorize func(text string) []float32
	Err       error

	mu      sync.Mutex
	Batches [][]string
}

func (f *FakeEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.Batches = append(f.Batches, texts)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.vector(text)
	}
	return vectors, nil
}

func (f *FakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CallCount returns how many embedding calls were made.
func (f *FakeEmbedder) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Batches)
}

func (f *FakeEmbedder) vector(text string) []float32 {
	if f.Vectorize != nil {
		return f.Vectorize(text)
	}
	dimension := f.Dimension
	if dimension <= 0 {
		dimension = 3
	}
	v := make([]float32, dimension)
	for i := range v {
		v[i] = 1
	}
	return v
}

// MemoryVectorStore is an in-process VectorStore ranking by cosine similarity.
type MemoryVectorStore struct {
	mu          sync.Mutex
	namespaces  map[models.Namespace]map[string]models.VectorRecord
	UpsertCalls int
	QueryCalls  int
	DeleteCalls int
	Err         error

	// UpsertErr fails Upsert after the first PartialRecords records are written.
	UpsertErr      error
	PartialRecords int
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{namespaces: make(map[models.Namespace]map[string]models.VectorRecord)}
}

func (s *MemoryVectorStore) NamespaceExists(_ context.Context, namespace models.Namespace) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return len(s.namespaces[namespace]) > 0, nil
}

func (s *MemoryVectorStore) Upsert(_ context.Context, namespace models.Namespace, records []models.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpsertCalls++
	if s.Err != nil {
		return s.Err
	}
	if s.namespaces[namespace] == nil {
		s.namespaces[namespace] = make(map[string]models.VectorRecord)
	}
	for i, record := range records {
		if s.UpsertErr != nil && i >= s.PartialRecords {
			return s.UpsertErr
		}
		s.namespaces[namespace][record.ID] = record
	}
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	return nil
}

func (s *MemoryVectorStore) DeleteNamespace(_ context.Context, namespace models.Namespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls++
	if s.Err != nil {
		return s.Err
	}
	delete(s.namespaces, namespace)
	return nil
}

func (s *MemoryVectorStore) Query(
	_ context.Context,
	namespace models.Namespace,
	vector []float32,
	topK int,
) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryCalls++
	if s.Err != nil {
		return nil, s.Err
	}

	matches := make([]models.Match, 0, len(s.namespaces[namespace]))
	for _, record := range s.namespaces[namespace] {
		matches = append(matches, models.Match{
			Text:  record.Metadata.Text,
			Score: cosine(vector, record.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryVectorStore) ListNamespaces(_ context.Context) ([]models.NamespaceStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make([]models.NamespaceStat, 0, len(s.namespaces))
	for namespace, records := range s.namespaces {
		stats = append(stats, models.NamespaceStat{Namespace: namespace, Records: len(records)})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Namespace < stats[j].Namespace })
	return stats, nil
}

// Records returns a copy of the records stored under namespace.
func (s *MemoryVectorStore) Records(namespace models.Namespace) []models.VectorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]models.VectorRecord, 0, len(s.namespaces[namespace]))
	for _, record := range s.namespaces[namespace] {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FakeGenerator replies with Replies in order, repeating the last one, and
// records every request.
type FakeGenerator struct {
	Replies []string
	Errs    []error
	Model   string

	mu       sync.Mutex
	Requests []interfaces.GenerationRequest
}

func (f *FakeGenerator) Generate(_ context.Context, request interfaces.GenerationRequest) (*interfaces.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.Requests)
	f.Requests = append(f.Requests, request)

	if call < len(f.Errs) && f.Errs[call] != nil {
		return nil, f.Errs[call]
	}

	text := ""
	if len(f.Replies) > 0 {
		text = f.Replies[min(call, len(f.Replies)-1)]
	}
	return &interfaces.Generation{
		Text:         text,
		InputTokens:  100,
		OutputTokens: 50,
	}, nil
}

func (f *FakeGenerator) GetModelName() string {
	if f.Model == "" {
		return "fake-model"
	}
	return f.Model
}
