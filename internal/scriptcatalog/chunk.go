package scriptcatalog

import (
	"bufio"
	"regexp"
	"strings"
)

// ChunkSize is the fixed, non-overlapping slice size used to serve large
// sources piecewise (spec §3 "Chunk").
const ChunkSize = 100 * 1024

// ScriptChunk is one immutable slice of a script's source.
type ScriptChunk struct {
	ScriptID   string
	ChunkIndex int
	Content    string
}

// chunkScript splits src into ceil(len(src)/ChunkSize) non-overlapping
// chunks whose concatenated Content reproduces src exactly.
func chunkScript(scriptID, src string) []ScriptChunk {
	if src == "" {
		return nil
	}
	var chunks []ScriptChunk
	for i, idx := 0, 0; idx < len(src); i++ {
		end := idx + ChunkSize
		if end > len(src) {
			end = len(src)
		}
		chunks = append(chunks, ScriptChunk{ScriptID: scriptID, ChunkIndex: i, Content: src[idx:end]})
		idx = end
	}
	return chunks
}

// IdentifierIndexEntry is one occurrence of an identifier token in a
// script's source, with surrounding context for search results.
type IdentifierIndexEntry struct {
	ScriptID string
	URL      string
	Line     int // 1-based
	Column   int
	Context  string // up to 3 lines of context on either side
}

var identifierRe = regexp.MustCompile(`\b[A-Za-z_$][A-Za-z0-9_$]{2,}\b`)

// buildKeywordIndex tokenizes ps.Source line by line with identifierRe,
// lowercases each token, and appends an IdentifierIndexEntry per
// occurrence — duplicates within the same line are kept, since call-site
// count matters (spec §4.F).
func (c *Catalog) buildKeywordIndex(ps *ParsedScript) {
	c.mu.RLock()
	src := ps.Source
	c.mu.RUnlock()

	lines := strings.Split(src, "\n")
	additions := make(map[string][]IdentifierIndexEntry)

	for lineNo, line := range lines {
		locs := identifierRe.FindAllStringIndex(line, -1)
		for _, loc := range locs {
			token := line[loc[0]:loc[1]]
			key := strings.ToLower(token)
			additions[key] = append(additions[key], IdentifierIndexEntry{
				ScriptID: ps.ScriptID,
				URL:      ps.URL,
				Line:     lineNo + 1,
				Column:   loc[0],
				Context:  contextLines(lines, lineNo, 3),
			})
		}
	}

	c.mu.Lock()
	for key, entries := range additions {
		c.index[key] = append(c.index[key], entries...)
	}
	c.mu.Unlock()
}

// contextLines returns up to n lines before and after lineNo (0-based),
// joined with newlines.
func contextLines(lines []string, lineNo, n int) string {
	start := lineNo - n
	if start < 0 {
		start = 0
	}
	end := lineNo + n + 1
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// splitLinesScanner is kept for callers that want a streaming line reader
// over very large sources instead of strings.Split's all-at-once slice.
func splitLinesScanner(src string) *bufio.Scanner {
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}
