package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/vectorindex"
)

type fakeEncoder struct {
	dim   int
	calls []string
	err   error
}

func (f *fakeEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, text)
	v := make([]float32, f.dim)
	v[0] = float32(len(text))
	return v, nil
}

func (f *fakeEncoder) Dimension() int { return f.dim }

type fakeIndex struct {
	upserted  []vectorindex.Record
	queried   []map[string]interface{}
	deleted   []map[string]interface{}
	matches   []vectorindex.Match
	upsertErr error
	queryErr  error
	deleteErr error
}

func (f *fakeIndex) Upsert(_ context.Context, records []vectorindex.Record) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, _ int, filter map[string]interface{}) ([]vectorindex.Match, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.queried = append(f.queried, filter)
	return f.matches, nil
}

func (f *fakeIndex) Delete(_ context.Context, filter map[string]interface{}) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, filter)
	return nil
}

func newTestIndexer(enc *fakeEncoder, idx *fakeIndex) *Indexer {
	ix := NewIndexer(enc, idx, zerolog.Nop())
	ix.now = func() time.Time { return time.Unix(1700000000, 0) }
	return ix
}

func TestSanitizeOwner(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Doe", "john_doe"},
		{"  Mrs.  Jane   O'Neil  ", "mrs_jane_oneil"},
		{"Ramesh-123", "ramesh123"},
		{"!!!", "unknown_patient"},
		{"", "unknown_patient"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
		{"José Álvarez", "jos_lvarez"},
		{strings.Repeat("日", 20), "unknown_patient"},
	}
	for _, tt := range tests {
		if got := SanitizeOwner(tt.in); got != tt.want {
			t.Errorf("SanitizeOwner(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChunkText_PacksSentences(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one."
	chunks := ChunkText(text, 300)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %v, want single chunk", chunks)
	}
	if chunks[0] != "First sentence here. Second sentence follows. Third one." {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestChunkText_SplitsAtCharLimit(t *testing.T) {
	text := "one two three. four five six. seven eight nine."
	chunks := ChunkText(text, 30)
	want := []string{"one two three. four five six.", "seven eight nine."}
	if len(chunks) != 2 || chunks[0] != want[0] || chunks[1] != want[1] {
		t.Errorf("chunks = %v, want %v", chunks, want)
	}
}

func TestChunkText_OversizedSentenceKept(t *testing.T) {
	chunks := ChunkText("a very long single sentence without breaks.", 10)
	if len(chunks) != 1 || chunks[0] != "a very long single sentence without breaks." {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestChunkText_NonEmptyInputNeverEmpty(t *testing.T) {
	if chunks := ChunkText("no terminal period here", 300); len(chunks) != 1 {
		t.Errorf("chunks = %v, want one chunk", chunks)
	}
}

func TestChunkText_Empty(t *testing.T) {
	if chunks := ChunkText("   ", 100); chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}

func TestUpsertReport(t *testing.T) {
	enc := &fakeEncoder{dim: 384}
	idx := &fakeIndex{}
	ix := newTestIndexer(enc, idx)

	text := "one two three. four five six. seven eight nine."
	if err := ix.UpsertReport(context.Background(), "John Doe", "rep-1", text); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	if len(idx.upserted) != 1 {
		t.Fatalf("upserted %d records, want 1", len(idx.upserted))
	}
	rec := idx.upserted[0]
	if want := fmt.Sprintf("john_doe_rep-1_%d_0", int64(1700000000)); rec.ID != want {
		t.Errorf("id = %q, want %q", rec.ID, want)
	}
	// metadata keeps the unsanitized name
	if rec.Metadata["user_id"] != "John Doe" || rec.Metadata["report_id"] != "rep-1" {
		t.Errorf("metadata = %v", rec.Metadata)
	}
	if rec.Metadata["text"] != text {
		t.Errorf("metadata text = %v", rec.Metadata["text"])
	}
	if rec.Metadata["chunk_index"] != 0 || rec.Metadata["timestamp"] != int64(1700000000) {
		t.Errorf("metadata = %v", rec.Metadata)
	}
	if len(rec.Values) != 384 {
		t.Errorf("vector dim = %d", len(rec.Values))
	}
}

func TestUpsertReport_EmptyText(t *testing.T) {
	idx := &fakeIndex{}
	ix := newTestIndexer(&fakeEncoder{dim: 384}, idx)
	if err := ix.UpsertReport(context.Background(), "x", "r", ""); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}
	if len(idx.upserted) != 0 {
		t.Errorf("upserted = %v, want none", idx.upserted)
	}
}

func TestUpsertReport_EncodeFailure(t *testing.T) {
	ix := newTestIndexer(&fakeEncoder{dim: 384, err: errors.New("sidecar down")}, &fakeIndex{})
	if err := ix.UpsertReport(context.Background(), "x", "r", "some text."); err == nil {
		t.Fatal("expected encode error to propagate")
	}
}

func TestQuery_FiltersByOwnerAndReturnsTexts(t *testing.T) {
	idx := &fakeIndex{matches: []vectorindex.Match{
		{ID: "a", Score: 0.9, Metadata: map[string]interface{}{"text": "Hemoglobin 13.5 normal."}},
		{ID: "b", Score: 0.7, Metadata: map[string]interface{}{"other": "no text"}},
		{ID: "c", Score: 0.6, Metadata: map[string]interface{}{"text": "Glucose 130 high."}},
	}}
	ix := newTestIndexer(&fakeEncoder{dim: 384}, idx)

	texts, err := ix.Query(context.Background(), "John Doe", "how is my hemoglobin", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(texts) != 2 || texts[0] != "Hemoglobin 13.5 normal." || texts[1] != "Glucose 130 high." {
		t.Errorf("texts = %v", texts)
	}
	if len(idx.queried) != 1 {
		t.Fatalf("queried %d times", len(idx.queried))
	}
	filter := idx.queried[0]["user_id"].(map[string]interface{})
	if filter["$eq"] != "John Doe" {
		t.Errorf("filter = %v", idx.queried[0])
	}
}

func TestQuery_NoOwnerIsUnfiltered(t *testing.T) {
	idx := &fakeIndex{}
	ix := newTestIndexer(&fakeEncoder{dim: 384}, idx)

	if _, err := ix.Query(context.Background(), "", "any question", 3); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(idx.queried) != 1 || idx.queried[0] != nil {
		t.Errorf("filter = %v, want nil", idx.queried)
	}
}

func TestOwnerText_JoinsChunks(t *testing.T) {
	idx := &fakeIndex{matches: []vectorindex.Match{
		{Metadata: map[string]interface{}{"text": "chunk one"}},
		{Metadata: map[string]interface{}{"text": "chunk two"}},
	}}
	ix := newTestIndexer(&fakeEncoder{dim: 384}, idx)

	out, err := ix.OwnerText(context.Background(), "Jane")
	if err != nil {
		t.Fatalf("OwnerText: %v", err)
	}
	if out != "chunk one\n\nchunk two" {
		t.Errorf("OwnerText = %q", out)
	}
}

func TestDelete_BestEffort(t *testing.T) {
	idx := &fakeIndex{deleteErr: errors.New("index unavailable")}
	ix := newTestIndexer(&fakeEncoder{dim: 384}, idx)

	// must not panic or surface the failure
	ix.DeleteByOwner(context.Background(), "John Doe")
	ix.DeleteByReport(context.Background(), "rep-1")
}

func TestDelete_Filters(t *testing.T) {
	idx := &fakeIndex{}
	ix := newTestIndexer(&fakeEncoder{dim: 384}, idx)

	ix.DeleteByOwner(context.Background(), "John Doe")
	ix.DeleteByReport(context.Background(), "rep-1")

	if len(idx.deleted) != 2 {
		t.Fatalf("deleted calls = %d, want 2", len(idx.deleted))
	}
	if idx.deleted[0]["user_id"].(map[string]interface{})["$eq"] != "John Doe" {
		t.Errorf("owner filter = %v", idx.deleted[0])
	}
	if idx.deleted[1]["report_id"].(map[string]interface{})["$eq"] != "rep-1" {
		t.Errorf("report filter = %v", idx.deleted[1])
	}
}

func TestDelete_EmptyIdentifierIsNoop(t *testing.T) {
	idx := &fakeIndex{}
	ix := newTestIndexer(&fakeEncoder{dim: 384}, idx)

	ix.DeleteByOwner(context.Background(), "")
	ix.DeleteByReport(context.Background(), "")

	if len(idx.deleted) != 0 {
		t.Errorf("deleted = %v, want none", idx.deleted)
	}
}
