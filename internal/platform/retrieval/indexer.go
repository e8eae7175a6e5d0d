// Package retrieval manages the vector index view of report text: chunking,
// owner-scoped upserts and queries, and cleanup when owners or reports are
// deleted. Index writes here are secondary to the relational store, so
// cleanup is best effort and never fails the surrounding operation.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/embedding"
	"github.com/medvault/medvault/internal/platform/vectorindex"
)

const (
	chunkCharLimit  = 300
	ownerFetchLimit = 1000
)

// SanitizeOwner normalizes a free-text patient name into a stable index key:
// ASCII letters, digits and spaces only, spaces collapsed to underscores,
// lowered, capped at 50 bytes. An empty result falls back to
// "unknown_patient".
func SanitizeOwner(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	s := strings.Join(strings.Fields(b.String()), "_")
	s = strings.ToLower(s)
	if len(s) > 50 {
		s = s[:50]
	}
	if s == "" {
		return "unknown_patient"
	}
	return s
}

// Indexer owns the embed-and-index pipeline for report text.
type Indexer struct {
	encoder embedding.Encoder
	index   vectorindex.Index
	now     func() time.Time
	logger  zerolog.Logger
}

// NewIndexer wires an encoder and a vector index into an Indexer.
func NewIndexer(encoder embedding.Encoder, index vectorindex.Index, logger zerolog.Logger) *Indexer {
	return &Indexer{
		encoder: encoder,
		index:   index,
		now:     time.Now,
		logger:  logger.With().Str("component", "retrieval").Logger(),
	}
}

// UpsertReport chunks text, embeds each chunk and writes the vectors. Chunk
// ids use the sanitized owner key plus an upload timestamp, so re-ingesting
// the same report adds new chunks rather than replacing old ones;
// report-level replacement goes through DeleteByReport first. Metadata keeps
// the original owner name, which is what queries and deletes filter on.
func (ix *Indexer) UpsertReport(ctx context.Context, ownerName, reportID, text string) error {
	chunks := ChunkText(text, chunkCharLimit)
	if len(chunks) == 0 {
		return nil
	}

	owner := SanitizeOwner(ownerName)
	stamp := ix.now().Unix()
	records := make([]vectorindex.Record, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := ix.encoder.Encode(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		records = append(records, vectorindex.Record{
			ID:     fmt.Sprintf("%s_%s_%d_%d", owner, reportID, stamp, i),
			Values: vec,
			Metadata: map[string]interface{}{
				"user_id":     ownerName,
				"report_id":   reportID,
				"text":        chunk,
				"timestamp":   stamp,
				"chunk_index": i,
			},
		})
	}

	if err := ix.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert %d chunks for %s: %w", len(records), owner, err)
	}
	ix.logger.Debug().Str("owner", owner).Str("report_id", reportID).Int("chunks", len(records)).Msg("indexed report text")
	return nil
}

// Query embeds question and returns the text of the topK nearest chunks,
// best match first. A non-empty ownerName restricts results to that owner;
// an empty one searches across all owners.
func (ix *Indexer) Query(ctx context.Context, ownerName, question string, topK int) ([]string, error) {
	vec, err := ix.encoder.Encode(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	var filter map[string]interface{}
	if ownerName != "" {
		filter = vectorindex.Eq("user_id", ownerName)
	}
	matches, err := ix.index.Query(ctx, vec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		if s, ok := m.Metadata["text"].(string); ok && s != "" {
			texts = append(texts, s)
		}
	}
	return texts, nil
}

// OwnerText fetches every chunk stored for the owner and joins them with
// blank lines. It issues a zero-vector query, which ranks nothing usefully
// but returns the metadata of up to ownerFetchLimit matching records.
func (ix *Indexer) OwnerText(ctx context.Context, ownerName string) (string, error) {
	zero := make([]float32, ix.encoder.Dimension())
	matches, err := ix.index.Query(ctx, zero, ownerFetchLimit, vectorindex.Eq("user_id", ownerName))
	if err != nil {
		return "", fmt.Errorf("fetch owner chunks: %w", err)
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		if s, ok := m.Metadata["text"].(string); ok && s != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

// DeleteByOwner removes every chunk stored for the owner. An empty name is a
// no-op; failures are logged and swallowed.
func (ix *Indexer) DeleteByOwner(ctx context.Context, ownerName string) {
	if ownerName == "" {
		return
	}
	if err := ix.index.Delete(ctx, vectorindex.Eq("user_id", ownerName)); err != nil {
		ix.logger.Warn().Err(err).Str("owner", ownerName).Msg("owner chunk cleanup failed")
	}
}

// DeleteByReport removes every chunk stored for a report. An empty id is a
// no-op; failures are logged and swallowed.
func (ix *Indexer) DeleteByReport(ctx context.Context, reportID string) {
	if reportID == "" {
		return
	}
	if err := ix.index.Delete(ctx, vectorindex.Eq("report_id", reportID)); err != nil {
		ix.logger.Warn().Err(err).Str("report_id", reportID).Msg("report chunk cleanup failed")
	}
}
