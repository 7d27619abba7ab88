package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const storeFileName = "memories.json"

// Store is the persistent, mutex-serialized memory store.
//
// It is the one piece of truly shared mutable state in the core: every
// mutating operation (Store, the access bump inside Retrieve/Search, Forget,
// Cleanup) is serialized against every other such operation on the same
// instance. Readers never observe a partially updated entry.
type Store struct {
	mu          sync.Mutex
	dir         string
	path        string
	entries     map[string]*Entry
	minStrength float64
	logger      *zap.Logger
	now         func() time.Time
}

// storeFile is the on-disk representation.
type storeFile struct {
	Version string    `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Entries []*Entry  `json:"entries"`
}

// Option configures a Store at construction.
type Option func(*Store)

// WithMinStrength sets the strength floor applied to retrieval defaults,
// search matching, and load-time pruning. Values outside (0, 1] keep the
// default.
func WithMinStrength(threshold float64) Option {
	return func(s *Store) {
		if threshold > 0 && threshold <= 1 {
			s.minStrength = threshold
		}
	}
}

// NewStore opens the store rooted at dir, creating it if needed. Entries
// whose strength has already dropped below the configured floor are dropped
// silently at load time.
func NewStore(dir string, logger *zap.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = filepath.Join(".crewkit", "memory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}

	s := &Store{
		dir:         dir,
		path:        filepath.Join(dir, storeFileName),
		entries:     make(map[string]*Entry),
		minStrength: DefaultMinStrength,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load memory store: %w", err)
	}

	return s, nil
}

// StoreOption customizes a Store call.
type StoreOption func(*storeOptions)

type storeOptions struct {
	confidence float64
	policy     DecayPolicy
	tags       []string
	related    []string
}

// WithConfidence sets the entry's confidence (default 1.0).
func WithConfidence(c float64) StoreOption {
	return func(o *storeOptions) { o.confidence = c }
}

// WithDecayPolicy overrides the scope's default decay policy.
func WithDecayPolicy(p DecayPolicy) StoreOption {
	return func(o *storeOptions) { o.policy = p }
}

// WithTags attaches tags to the entry.
func WithTags(tags ...string) StoreOption {
	return func(o *storeOptions) { o.tags = tags }
}

// WithRelated links the entry to other entry IDs.
func WithRelated(ids ...string) StoreOption {
	return func(o *storeOptions) { o.related = ids }
}

// Store creates a new entry and returns its content-derived ID. Identical
// content yields the identical ID, so storing the same content twice aliases
// to a single entry.
func (s *Store) Store(content any, scope Scope, source string, opts ...StoreOption) (string, error) {
	o := storeOptions{confidence: 1.0, policy: DefaultPolicy(scope)}
	for _, opt := range opts {
		opt(&o)
	}

	id, err := contentID(content)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[id] = &Entry{
		ID:           id,
		Content:      content,
		Scope:        scope,
		Source:       source,
		Confidence:   o.confidence,
		DecayPolicy:  o.policy,
		CreatedAt:    now,
		LastAccessed: now,
		Tags:         o.tags,
		RelatedIDs:   o.related,
	}

	if err := s.save(); err != nil {
		return "", err
	}

	s.logger.Debug("memory stored",
		zap.String("id", id),
		zap.String("scope", string(scope)),
		zap.String("source", source))

	return id, nil
}

// Query filters a Retrieve call. Zero values mean "any".
type Query struct {
	EntryID     string
	Scope       Scope
	Source      string
	Tags        []string
	MinStrength float64 // defaults to the store's configured floor when <= 0
	Limit       int     // defaults to 100 when <= 0
}

// Retrieve returns entries matching the query, sorted by descending current
// strength. Every match counts as an access: the entry's decay clock resets
// and its access count increments.
func (s *Store) Retrieve(q Query) ([]Entry, error) {
	if q.MinStrength <= 0 {
		q.MinStrength = s.minStrength
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var matched []*Entry

	for _, e := range s.entries {
		if q.EntryID != "" && e.ID != q.EntryID {
			continue
		}
		if q.Scope != "" && e.Scope != q.Scope {
			continue
		}
		if q.Source != "" && e.Source != q.Source {
			continue
		}
		if len(q.Tags) > 0 && !anyTagMatches(e.Tags, q.Tags) {
			continue
		}
		if e.Strength(now) < q.MinStrength {
			continue
		}

		e.access(now)
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Strength(now) > matched[j].Strength(now)
	})
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	results := snapshot(matched)

	if len(matched) > 0 {
		if err := s.save(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Search matches entries whose serialized content contains the query as a
// substring, case-insensitive. Deliberately naive; a similarity index can be
// substituted behind this contract. Matches count as accesses.
func (s *Store) Search(query string, scope Scope, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var matched []*Entry

	for _, e := range s.entries {
		if scope != "" && e.Scope != scope {
			continue
		}
		if e.Expired(s.minStrength, now) {
			continue
		}

		serialized, err := json.Marshal(e.Content)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(string(serialized)), needle) {
			continue
		}

		e.access(now)
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Strength(now) > matched[j].Strength(now)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	results := snapshot(matched)

	if len(matched) > 0 {
		if err := s.save(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Forget explicitly removes an entry. Returns false if the ID is unknown.
func (s *Store) Forget(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)

	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// Cleanup removes entries whose strength is below threshold at call time and
// returns how many were removed.
func (s *Store) Cleanup(threshold float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for id, e := range s.entries {
		if e.Expired(threshold, now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.entries, id)
	}

	if len(expired) > 0 {
		if err := s.save(); err != nil {
			return 0, err
		}
	}

	return len(expired), nil
}

// Stats summarizes the store's contents.
type Stats struct {
	TotalEntries int            `json:"total_entries"`
	ByScope      map[string]int `json:"by_scope"`
	BySource     map[string]int `json:"by_source"`
	AvgStrength  float64        `json:"avg_strength"`
}

// GetStats returns aggregate statistics over all entries.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stats := Stats{
		ByScope:  make(map[string]int),
		BySource: make(map[string]int),
	}

	var total float64
	for _, e := range s.entries {
		stats.TotalEntries++
		stats.ByScope[string(e.Scope)]++
		stats.BySource[e.Source]++
		total += e.Strength(now)
	}
	if stats.TotalEntries > 0 {
		stats.AvgStrength = total / float64(stats.TotalEntries)
	}

	return stats
}

// contentID derives a stable 16-hex-char identifier from canonical JSON.
// Identical content always yields the identical ID.
func contentID(content any) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}

func anyTagMatches(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// snapshot copies entries so callers never share the store's mutable state.
// Content goes through a JSON round trip, the same shape a reload produces,
// so map and slice values are not aliased into the store.
func snapshot(entries []*Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = *e
		out[i].Tags = append([]string(nil), e.Tags...)
		out[i].RelatedIDs = append([]string(nil), e.RelatedIDs...)
		if data, err := json.Marshal(e.Content); err == nil {
			var content any
			if json.Unmarshal(data, &content) == nil {
				out[i].Content = content
			}
		}
	}
	return out
}

// load reads the store from disk, dropping already-expired entries.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("corrupt memory file: %w", err)
	}

	now := s.now()
	for _, e := range f.Entries {
		if e == nil || e.ID == "" {
			continue
		}
		if e.Expired(s.minStrength, now) {
			continue
		}
		s.entries[e.ID] = e
	}

	return nil
}

// save writes the store atomically (tmp file + rename).
func (s *Store) save() error {
	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	f := storeFile{
		Version: "1.0",
		SavedAt: s.now(),
		Entries: entries,
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write memory store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename memory store: %w", err)
	}

	return nil
}
