package retrieval

// chunkSize and chunkOverlap implement the chunking rule: a turn's content
// is chunked at ~1,200 characters with ~200-character overlap; chunks
// shorter than 50 characters are skipped.
const (
	chunkSize    = 1200
	chunkOverlap = 200
	minChunkLen  = 50
)

// Chunk splits text into overlapping windows, dropping any trailing
// fragment too short to carry useful semantic signal.
func Chunk(text string) []string {
	if len(text) <= chunkSize {
		if len(text) < minChunkLen {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	stride := chunkSize - chunkOverlap
	for start := 0; start < len(text); start += stride {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunk := text[start:end]
		if len(chunk) >= minChunkLen {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}
