package retrieval

import "strings"

// ChunkText splits text into chunks of roughly maxChars characters, packing
// whole sentences greedily on "." boundaries. A single sentence longer than
// maxChars becomes its own chunk rather than being split mid-sentence, so
// non-empty input always yields at least one chunk.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 300
	}

	var chunks []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}

	for _, raw := range strings.Split(text, ".") {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		sentence += "."
		if b.Len() > 0 && b.Len()+1+len(sentence) >= maxChars {
			flush()
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sentence)
	}
	flush()

	return chunks
}
