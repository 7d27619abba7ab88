package memory

// AgentMemory is a per-agent facade over a shared Store. Writes are
// attributed to the agent; reads may span all sources.
type AgentMemory struct {
	agent string
	store *Store
}

// NewAgentMemory binds an agent name to a shared store.
func NewAgentMemory(agent string, store *Store) *AgentMemory {
	return &AgentMemory{agent: agent, store: store}
}

// Store exposes the underlying shared store.
func (m *AgentMemory) Store() *Store { return m.store }

// Remember stores content attributed to this agent.
func (m *AgentMemory) Remember(content any, scope Scope, opts ...StoreOption) (string, error) {
	return m.store.Store(content, scope, m.agent, opts...)
}

// Recall retrieves memories this agent created.
func (m *AgentMemory) Recall(scope Scope, tags []string, limit int) ([]Entry, error) {
	return m.store.Retrieve(Query{
		Scope:  scope,
		Source: m.agent,
		Tags:   tags,
		Limit:  limit,
	})
}

// RecallAll retrieves memories from all sources, not just this agent.
func (m *AgentMemory) RecallAll(scope Scope, limit int) ([]Entry, error) {
	return m.store.Retrieve(Query{Scope: scope, Limit: limit})
}

// LearnFromFailure stores a failure memory for later learning.
func (m *AgentMemory) LearnFromFailure(info map[string]any) (string, error) {
	return m.Remember(info, ScopeFailure, WithTags("failure", "learning"))
}

// LearnSkill stores a pattern in long-retention skill memory.
func (m *AgentMemory) LearnSkill(info map[string]any) (string, error) {
	return m.Remember(info, ScopeSkill, WithTags("skill", "pattern"))
}
