package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestStoreAndRetrieve(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Store(map[string]any{"fact": "api uses rest"}, ScopeProject, "ArchitectAgent",
		WithTags("architecture"))
	require.NoError(t, err)
	require.Len(t, id, 16)

	entries, err := s.Retrieve(Query{Scope: ScopeProject})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "ArchitectAgent", entries[0].Source)
	assert.Equal(t, DecaySlow, entries[0].DecayPolicy)
	assert.Equal(t, 1, entries[0].AccessCount)
}

func TestStoreContentAddressing(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Store(map[string]any{"k": "v"}, ScopeProject, "a")
	require.NoError(t, err)
	id2, err := s.Store(map[string]any{"k": "v"}, ScopeProject, "b")
	require.NoError(t, err)
	id3, err := s.Store(map[string]any{"k": "other"}, ScopeProject, "a")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "identical content must alias to one entry")
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, s.GetStats().TotalEntries)
}

func TestRetrieveFilters(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store(map[string]any{"n": 1}, ScopeWorking, "agent-a", WithTags("x"))
	require.NoError(t, err)
	_, err = s.Store(map[string]any{"n": 2}, ScopeProject, "agent-b", WithTags("y"))
	require.NoError(t, err)

	byScope, err := s.Retrieve(Query{Scope: ScopeWorking})
	require.NoError(t, err)
	assert.Len(t, byScope, 1)

	bySource, err := s.Retrieve(Query{Source: "agent-b"})
	require.NoError(t, err)
	assert.Len(t, bySource, 1)

	byTag, err := s.Retrieve(Query{Tags: []string{"y"}})
	require.NoError(t, err)
	assert.Len(t, byTag, 1)

	none, err := s.Retrieve(Query{Tags: []string{"absent"}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRetrieveCopiesContent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Store(map[string]any{"k": "original"}, ScopeProject, "a")
	require.NoError(t, err)

	entries, err := s.Retrieve(Query{EntryID: id})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, ok := entries[0].Content.(map[string]any)
	require.True(t, ok)
	content["k"] = "mutated"

	again, err := s.Retrieve(Query{EntryID: id})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, map[string]any{"k": "original"}, again[0].Content,
		"mutating a returned entry must not reach the store")
}

func TestMinStrengthOption(t *testing.T) {
	s, err := NewStore(t.TempDir(), nil, WithMinStrength(0.6))
	require.NoError(t, err)

	_, err = s.Store(map[string]any{"k": "weak"}, ScopeProject, "a", WithConfidence(0.3))
	require.NoError(t, err)
	strong, err := s.Store(map[string]any{"k": "strong"}, ScopeProject, "a")
	require.NoError(t, err)

	entries, err := s.Retrieve(Query{Scope: ScopeProject})
	require.NoError(t, err)
	require.Len(t, entries, 1, "entries under the configured floor are filtered by default")
	assert.Equal(t, strong, entries[0].ID)

	all, err := s.Retrieve(Query{Scope: ScopeProject, MinStrength: 0.05})
	require.NoError(t, err)
	assert.Len(t, all, 2, "an explicit query floor overrides the configured one")
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store(map[string]any{"note": "authentication uses JWT tokens"}, ScopeProject, "a")
	require.NoError(t, err)
	_, err = s.Store(map[string]any{"note": "storage uses sqlite"}, ScopeProject, "a")
	require.NoError(t, err)

	hits, err := s.Search("jwt", "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	miss, err := s.Search("kubernetes", "", 10)
	require.NoError(t, err)
	assert.Empty(t, miss)
}

func TestForget(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Store(map[string]any{"k": "v"}, ScopeProject, "a")
	require.NoError(t, err)

	ok, err := s.Forget(id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Forget(id)
	require.NoError(t, err)
	assert.False(t, ok, "forgetting twice reports unknown id")

	entries, err := s.Retrieve(Query{EntryID: id})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanupRemovesWeakEntries(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store(map[string]any{"k": "short-lived"}, ScopeWorking, "a")
	require.NoError(t, err)
	_, err = s.Store(map[string]any{"k": "durable"}, ScopeSkill, "a")
	require.NoError(t, err)

	// advance the clock past several fast half-lives
	s.now = func() time.Time { return time.Now().Add(6 * time.Hour) }

	removed, err := s.Cleanup(DefaultMinStrength)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.GetStats().TotalEntries)
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir, nil)
	require.NoError(t, err)
	id, err := s1.Store(map[string]any{"fact": "persists"}, ScopeProject, "a", WithTags("t"))
	require.NoError(t, err)

	s2, err := NewStore(dir, nil)
	require.NoError(t, err)
	entries, err := s2.Retrieve(Query{EntryID: id})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"t"}, entries[0].Tags)
	assert.Equal(t, ScopeProject, entries[0].Scope)
}

func TestAgentMemoryAttribution(t *testing.T) {
	s := newTestStore(t)
	mem := NewAgentMemory("ReviewerAgent", s)

	_, err := mem.Remember(map[string]any{"lesson": "check error paths"}, ScopeSkill)
	require.NoError(t, err)
	_, err = mem.LearnFromFailure(map[string]any{"task_id": "t1", "reason": "boom"})
	require.NoError(t, err)

	own, err := mem.Recall(ScopeSkill, nil, 10)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "ReviewerAgent", own[0].Source)

	failures, err := mem.Recall(ScopeFailure, []string{"failure"}, 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
}
