// Package artifacts provides a git-backed, ownership-enforced store for the
// project's shared documents: requirements, architecture, design decisions,
// and the rest of the mandatory set.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// Type classifies an artifact.
type Type string

const (
	TypeRequirements    Type = "requirements"
	TypeArchitecture    Type = "architecture"
	TypeDesignDecisions Type = "design_decisions"
	TypeAPIContracts    Type = "api_contracts"
	TypeCodingStandards Type = "coding_standards"
	TypeRiskRegister    Type = "risk_register"
	TypeSourceCode      Type = "source_code"
	TypeTestCode        Type = "test_code"
	TypeDocumentation   Type = "documentation"
	TypeConfig          Type = "config"
)

// mandatoryFiles maps each mandatory artifact type to its canonical filename.
var mandatoryFiles = map[Type]string{
	TypeRequirements:    "REQUIREMENTS.md",
	TypeArchitecture:    "ARCHITECTURE.md",
	TypeDesignDecisions: "DESIGN_DECISIONS.log",
	TypeAPIContracts:    "API_CONTRACTS.yaml",
	TypeCodingStandards: "CODING_STANDARDS.md",
	TypeRiskRegister:    "RISK_REGISTER.md",
}

// owners maps artifact types to the only agent allowed to modify them.
var owners = map[Type]string{
	TypeRequirements:    "ProductAgent",
	TypeArchitecture:    "ArchitectAgent",
	TypeDesignDecisions: "ArchitectAgent",
	TypeAPIContracts:    "ArchitectAgent",
	TypeCodingStandards: "ArchitectAgent",
	TypeRiskRegister:    "ProductAgent",
	TypeSourceCode:      "ImplementationAgent",
	TypeTestCode:        "BuildTestAgent",
}

// ErrOwnership is returned when an agent tries to modify an artifact it does
// not own.
var ErrOwnership = errors.New("artifact ownership violation")

// ErrNotFound is returned when an artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Version is one revision of an artifact.
type Version struct {
	VersionID string    `json:"version_id"`
	Content   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	CommitSHA string    `json:"commit_sha,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Artifact is a named document with version history.
type Artifact struct {
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Owner     string    `json:"owner"`
	Current   *Version  `json:"current_version,omitempty"`
	Versions  []Version `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Content returns the current content, empty when no version exists.
func (a *Artifact) Content() string {
	if a.Current == nil {
		return ""
	}
	return a.Current.Content
}

// Store is the git-backed artifact store. Git is best effort: when the
// repository cannot be opened, versions simply lack commit SHAs.
type Store struct {
	mu        sync.Mutex
	dir       string
	repo      *git.Repository
	artifacts map[string]*Artifact
	logger    *zap.Logger
}

type metadataFile struct {
	Version   string               `json:"version"`
	SavedAt   time.Time            `json:"saved_at"`
	Artifacts map[string]*Artifact `json:"artifacts"`
}

// NewStore opens the artifact store rooted at dir, creating the directory
// and git repository when missing.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = filepath.Join(".crewkit", "artifacts")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	s := &Store{
		dir:       dir,
		artifacts: make(map[string]*Artifact),
		logger:    logger,
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		repo, err = git.PlainInit(dir, false)
		if err != nil {
			logger.Warn("artifact store running without git", zap.Error(err))
			repo = nil
		}
	}
	s.repo = repo

	if err := s.loadMetadata(); err != nil {
		return nil, err
	}

	return s, nil
}

// Owner returns the agent that owns an artifact type. Unmapped types default
// to the design authority.
func Owner(t Type) string {
	if owner, ok := owners[t]; ok {
		return owner
	}
	return "ArchitectAgent"
}

// CanModify reports whether an agent may modify an artifact. Unknown names
// are free to create.
func (s *Store) CanModify(name, agentName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canModify(name, agentName)
}

func (s *Store) canModify(name, agentName string) bool {
	artifact, ok := s.artifacts[name]
	if !ok {
		return true
	}
	return artifact.Owner == agentName
}

// Create adds a new artifact owned by the type's owner agent.
func (s *Store) Create(name, content string, t Type, createdBy, message string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if message == "" {
		message = fmt.Sprintf("Created %s", name)
	}

	artifact := &Artifact{
		Name:      name,
		Type:      t,
		Owner:     Owner(t),
		CreatedAt: time.Now(),
	}
	version := Version{
		VersionID: "v1",
		Content:   content,
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
		Message:   message,
	}

	if err := s.writeVersion(artifact, &version, message); err != nil {
		return nil, err
	}
	s.artifacts[name] = artifact

	if err := s.saveMetadata(); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Update writes a new version of an existing artifact. Only the owner may
// update unless force is set.
func (s *Store) Update(name, content, updatedBy, message string, force bool) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, ok := s.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if !force && !s.canModify(name, updatedBy) {
		return nil, fmt.Errorf("%w: agent %s cannot modify %s (owner: %s)",
			ErrOwnership, updatedBy, name, artifact.Owner)
	}

	if message == "" {
		message = fmt.Sprintf("Updated %s", name)
	}

	version := Version{
		VersionID: fmt.Sprintf("v%d", len(artifact.Versions)+1),
		Content:   content,
		CreatedAt: time.Now(),
		CreatedBy: updatedBy,
		Message:   message,
	}

	if err := s.writeVersion(artifact, &version, message); err != nil {
		return nil, err
	}
	if err := s.saveMetadata(); err != nil {
		return nil, err
	}
	return artifact, nil
}

// writeVersion persists content, commits it, and attaches the version to the
// artifact. Callers hold s.mu.
func (s *Store) writeVersion(artifact *Artifact, version *Version, message string) error {
	path := filepath.Join(s.dir, artifact.Name)
	if err := os.WriteFile(path, []byte(version.Content), 0o600); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	if sha := s.commit(artifact.Name, version.CreatedBy, message); sha != "" {
		version.CommitSHA = sha
	}

	artifact.Current = version
	artifact.Versions = append(artifact.Versions, *version)
	return nil
}

// commit stages and commits one file with the acting agent as author.
// Returns the commit SHA, or empty when git is unavailable.
func (s *Store) commit(name, author, message string) string {
	if s.repo == nil {
		return ""
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		s.logger.Warn("git worktree unavailable", zap.Error(err))
		return ""
	}
	if _, err := wt.Add(name); err != nil {
		s.logger.Warn("git add failed", zap.String("file", name), zap.Error(err))
		return ""
	}

	sha, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@crewkit.local", author),
			When:  time.Now(),
		},
	})
	if err != nil {
		s.logger.Warn("git commit failed", zap.Error(err))
		return ""
	}
	return sha.String()
}

// Read returns the current content of an artifact, falling back to disk for
// files the metadata does not track.
func (s *Store) Read(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if artifact, ok := s.artifacts[name]; ok && artifact.Current != nil {
		return artifact.Content(), nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	return string(data), nil
}

// Get returns an artifact with its metadata.
func (s *Store) Get(name string) (*Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	artifact, ok := s.artifacts[name]
	return artifact, ok
}

// List returns artifacts filtered by type and owner; empty filters match all.
func (s *Store) List(t Type, owner string) []*Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Artifact
	for _, artifact := range s.artifacts {
		if t != "" && artifact.Type != t {
			continue
		}
		if owner != "" && artifact.Owner != owner {
			continue
		}
		out = append(out, artifact)
	}
	return out
}

// History returns up to limit most recent versions of an artifact.
func (s *Store) History(name string, limit int) []Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, ok := s.artifacts[name]
	if !ok {
		return nil
	}
	versions := artifact.Versions
	if limit > 0 && len(versions) > limit {
		versions = versions[len(versions)-limit:]
	}
	return append([]Version(nil), versions...)
}

// InitMandatory creates every mandatory artifact that does not yet exist,
// seeded from its template. Returns the names created.
func (s *Store) InitMandatory(createdBy string) ([]string, error) {
	if createdBy == "" {
		createdBy = "system"
	}

	var created []string
	for t, filename := range mandatoryFiles {
		s.mu.Lock()
		_, exists := s.artifacts[filename]
		s.mu.Unlock()
		if exists {
			continue
		}
		if _, err := s.Create(filename, Template(t), t, createdBy, fmt.Sprintf("Initialize %s", filename)); err != nil {
			return created, err
		}
		created = append(created, filename)
	}
	return created, nil
}

func (s *Store) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(s.dir, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var f metadataFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("corrupt artifact metadata: %w", err)
	}

	for name, artifact := range f.Artifacts {
		if artifact == nil {
			continue
		}
		artifact.Name = name
		if content, err := os.ReadFile(filepath.Join(s.dir, name)); err == nil {
			artifact.Current = &Version{
				VersionID: "current",
				Content:   string(content),
				CreatedAt: time.Now(),
				CreatedBy: artifact.Owner,
			}
		}
		s.artifacts[name] = artifact
	}
	return nil
}

// saveMetadata writes the index atomically. Callers hold s.mu.
func (s *Store) saveMetadata() error {
	f := metadataFile{
		Version:   "1.0",
		SavedAt:   time.Now(),
		Artifacts: s.artifacts,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}

	path := filepath.Join(s.dir, "metadata.json")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write artifact metadata: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename artifact metadata: %w", err)
	}
	return nil
}
