// Package scriptcatalog implements the Script Catalog (spec §4.F): a
// scriptId-keyed, chunked, keyword-indexed store of every script the
// browser parses, with search and function-tree extraction.
package scriptcatalog

import (
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cachecoord"
	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
)

// DiskSpill is the subset of artifactcache.Store the catalog needs,
// kept as an interface so scriptcatalog has no import-time dependency
// on database/sql or modernc.org/sqlite.
type DiskSpill interface {
	Get(key string) (value []byte, ok bool, err error)
	Put(key string, value []byte, nowUnixMilli int64) error
}

// ParsedScript is a script the debugger observed being parsed.
type ParsedScript struct {
	ScriptID   string
	URL        string
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
	SourceLen  int
	Source     string
	HasSource  bool
}

// Catalog is the process-wide script store.
type Catalog struct {
	mu       sync.RWMutex
	byID     map[string]*ParsedScript
	byURL    map[string][]*ParsedScript
	chunks   map[string][]ScriptChunk
	index    map[string][]IdentifierIndexEntry // lowercased token -> entries
	session  *cdp.Session
	fetch    func(scriptID string) (string, error)
	spill    DiskSpill
}

// SetDiskSpill enables the optional ENABLE_CACHE durable spill: fetched
// sources are persisted under their scriptId and consulted before
// issuing a fresh Debugger.getScriptSource call.
func (c *Catalog) SetDiskSpill(spill DiskSpill) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spill = spill
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		byID:  make(map[string]*ParsedScript),
		byURL: make(map[string][]*ParsedScript),
		chunks: make(map[string][]ScriptChunk),
		index: make(map[string][]IdentifierIndexEntry),
	}
}

// Start subscribes to Debugger.scriptParsed on session and begins
// recording ParsedScripts until ctx (session.Context()) is canceled.
func (c *Catalog) Start(session *cdp.Session) {
	c.mu.Lock()
	c.session = session
	c.fetch = func(scriptID string) (string, error) {
		src, err := proto.DebuggerGetScriptSource{ScriptID: proto.RuntimeScriptID(scriptID)}.Call(session.Page())
		if err != nil {
			return "", err
		}
		return src.ScriptSource, nil
	}
	c.mu.Unlock()

	go session.Page().Context(session.Context()).EachEvent(func(e *proto.DebuggerScriptParsed) {
		c.recordParsed(e)
	})()
}

func (c *Catalog) recordParsed(e *proto.DebuggerScriptParsed) {
	ps := &ParsedScript{
		ScriptID:  string(e.ScriptID),
		URL:       e.URL,
		StartLine: int(e.StartLine),
		StartCol:  int(e.StartColumn),
		EndLine:   int(e.EndLine),
		EndCol:    int(e.EndColumn),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[ps.ScriptID] = ps
	if ps.URL != "" {
		c.byURL[ps.URL] = append(c.byURL[ps.URL], ps)
	}
}

// resolve finds a ParsedScript by scriptId, or by URL (most recent match
// when multiple scripts share a URL, e.g. re-evaluated inline scripts).
func (c *Catalog) resolve(scriptID, url string) (*ParsedScript, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if scriptID != "" {
		ps, ok := c.byID[scriptID]
		if !ok {
			return nil, &errs.NotFound{Kind: "script", ID: scriptID, Listing: "script_list"}
		}
		return ps, nil
	}
	matches := c.byURL[url]
	if len(matches) == 0 {
		return nil, &errs.NotFound{Kind: "script", ID: url, Listing: "script_list"}
	}
	return matches[len(matches)-1], nil
}

// GetScriptSource resolves the target script, fetching and indexing its
// source on first access (spec §4.F). scriptID takes priority over url
// when both are given.
func (c *Catalog) GetScriptSource(scriptID, url string) (*ParsedScript, error) {
	ps, err := c.resolve(scriptID, url)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	has := ps.HasSource
	spill := c.spill
	c.mu.RUnlock()
	if has {
		return ps, nil
	}

	if spill != nil {
		if cached, ok, err := spill.Get(ps.ScriptID); err == nil && ok {
			c.mu.Lock()
			ps.Source = string(cached)
			ps.SourceLen = len(cached)
			ps.HasSource = true
			c.chunks[ps.ScriptID] = chunkScript(ps.ScriptID, ps.Source)
			c.mu.Unlock()
			c.buildKeywordIndex(ps)
			return ps, nil
		}
	}

	if c.fetch == nil {
		return nil, &errs.PreconditionFailed{Condition: "script catalog not started", Hint: "call debugger_enable first"}
	}
	src, err := c.fetch(ps.ScriptID)
	if err != nil {
		return nil, &errs.RemoteFailure{Command: "Debugger.getScriptSource", Cause: err}
	}

	c.mu.Lock()
	ps.Source = src
	ps.SourceLen = len(src)
	ps.HasSource = true
	c.chunks[ps.ScriptID] = chunkScript(ps.ScriptID, src)
	c.mu.Unlock()

	if spill != nil {
		_ = spill.Put(ps.ScriptID, []byte(src), time.Now().UnixMilli())
	}

	c.buildKeywordIndex(ps)

	return ps, nil
}

// List returns every known ParsedScript, for list_scripts.
func (c *Catalog) List() []*ParsedScript {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ParsedScript, 0, len(c.byID))
	for _, ps := range c.byID {
		out = append(out, ps)
	}
	return out
}

// Stats reports counts for get_stats / cache coordination.
type Stats struct {
	Scripts    int
	WithSource int
	TotalChunks int
	IndexTerms int
}

func (c *Catalog) StatsReport() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Scripts: len(c.byID), IndexTerms: len(c.index)}
	for _, ps := range c.byID {
		if ps.HasSource {
			s.WithSource++
		}
	}
	for _, chs := range c.chunks {
		s.TotalChunks += len(chs)
	}
	return s
}

// Clear wipes every in-memory map, used when the LLM switches target
// sites.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]*ParsedScript)
	c.byURL = make(map[string][]*ParsedScript)
	c.chunks = make(map[string][]ScriptChunk)
	c.index = make(map[string][]IdentifierIndexEntry)
}

// --- cachecoord.CacheInstance ---

type CacheAdapter struct{ *Catalog }

func (a CacheAdapter) Name() string { return "scriptcatalog" }

func (a CacheAdapter) Stats() cachecoord.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var bytes int64
	for _, chs := range a.chunks {
		for _, ch := range chs {
			bytes += int64(len(ch.Content))
		}
	}
	return cachecoord.Stats{Name: "scriptcatalog", Entries: len(a.byID), Bytes: bytes}
}

func (a CacheAdapter) Cleanup() int64 { return 0 } // scripts don't expire individually

func (a CacheAdapter) Clear() int64 {
	s := a.Stats()
	a.Catalog.Clear()
	return s.Bytes
}
