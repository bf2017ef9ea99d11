package scriptcatalog

import (
	"regexp"
	"sort"
	"strings"
)

// SearchOptions parameterizes searchInScripts (spec §4.F).
type SearchOptions struct {
	IsRegex       bool
	CaseSensitive bool
	ContextLines  int
	MaxMatches    int
}

func (o *SearchOptions) defaults() {
	if o.ContextLines <= 0 {
		o.ContextLines = 3
	}
	if o.MaxMatches <= 0 {
		o.MaxMatches = 100
	}
}

// SearchMatch is one hit returned by Search.
type SearchMatch struct {
	ScriptID string
	URL      string
	Line     int
	Column   int
	Context  string
}

// Search implements searchInScripts: a regex path that scans every known
// script's source, or an indexed path (non-regex) that looks up
// lowercased tokens containing keyword in the inverted index. Stops at
// opts.MaxMatches, in deterministic source order (scriptId, then line).
// CaseSensitive applies to the regex path only: index keys are lowercased,
// so the indexed path always matches case-insensitively.
func (c *Catalog) Search(keyword string, opts SearchOptions) ([]SearchMatch, error) {
	opts.defaults()

	if opts.IsRegex {
		return c.searchRegex(keyword, opts)
	}
	return c.searchIndexed(keyword, opts)
}

func (c *Catalog) searchRegex(pattern string, opts SearchOptions) ([]SearchMatch, error) {
	flags := ""
	if !opts.CaseSensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	scripts := make([]*ParsedScript, 0, len(c.byID))
	for _, ps := range c.byID {
		if ps.HasSource {
			scripts = append(scripts, ps)
		}
	}
	c.mu.RUnlock()

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].ScriptID < scripts[j].ScriptID })

	var out []SearchMatch
	for _, ps := range scripts {
		lines := strings.Split(ps.Source, "\n")
		for lineNo, line := range lines {
			if loc := re.FindStringIndex(line); loc != nil {
				out = append(out, SearchMatch{
					ScriptID: ps.ScriptID,
					URL:      ps.URL,
					Line:     lineNo + 1,
					Column:   loc[0],
					Context:  contextLines(lines, lineNo, opts.ContextLines),
				})
				if len(out) >= opts.MaxMatches {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func (c *Catalog) searchIndexed(keyword string, opts SearchOptions) ([]SearchMatch, error) {
	needle := keyword
	if !opts.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	c.mu.RLock()
	var keys []string
	for k := range c.index {
		if strings.Contains(k, strings.ToLower(needle)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []SearchMatch
	for _, k := range keys {
		for _, e := range c.index[k] {
			out = append(out, SearchMatch{ScriptID: e.ScriptID, URL: e.URL, Line: e.Line, Column: e.Column, Context: e.Context})
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScriptID != out[j].ScriptID {
			return out[i].ScriptID < out[j].ScriptID
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	if len(out) > opts.MaxMatches {
		out = out[:opts.MaxMatches]
	}
	return out, nil
}
