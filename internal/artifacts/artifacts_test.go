package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestCreateAndRead(t *testing.T) {
	s := newTestStore(t)

	artifact, err := s.Create("REQUIREMENTS.md", "# Requirements\n", TypeRequirements, "ProductAgent", "")
	require.NoError(t, err)

	assert.Equal(t, "ProductAgent", artifact.Owner)
	require.NotNil(t, artifact.Current)
	assert.Equal(t, "v1", artifact.Current.VersionID)
	assert.NotEmpty(t, artifact.Current.CommitSHA, "versions are committed to git")

	content, err := s.Read("REQUIREMENTS.md")
	require.NoError(t, err)
	assert.Equal(t, "# Requirements\n", content)
}

func TestOwnershipEnforcement(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("ARCHITECTURE.md", "# Architecture\n", TypeArchitecture, "ArchitectAgent", "")
	require.NoError(t, err)

	_, err = s.Update("ARCHITECTURE.md", "# Hijacked\n", "ImplementationAgent", "", false)
	assert.ErrorIs(t, err, ErrOwnership)

	artifact, err := s.Update("ARCHITECTURE.md", "# Revised\n", "ArchitectAgent", "", false)
	require.NoError(t, err)
	assert.Equal(t, "v2", artifact.Current.VersionID)

	forced, err := s.Update("ARCHITECTURE.md", "# Override\n", "ImplementationAgent", "", true)
	require.NoError(t, err, "force bypasses ownership")
	assert.Equal(t, "v3", forced.Current.VersionID)
}

func TestUpdateUnknownArtifact(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update("missing.md", "x", "ProductAgent", "", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerDefaults(t *testing.T) {
	assert.Equal(t, "ProductAgent", Owner(TypeRequirements))
	assert.Equal(t, "BuildTestAgent", Owner(TypeTestCode))
	assert.Equal(t, "ArchitectAgent", Owner(TypeDocumentation), "unmapped types default to the design authority")
}

func TestCanModify(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.CanModify("new.md", "anyone"), "unknown artifacts are free to create")

	_, err := s.Create("RISK_REGISTER.md", "# Risks\n", TypeRiskRegister, "ProductAgent", "")
	require.NoError(t, err)
	assert.True(t, s.CanModify("RISK_REGISTER.md", "ProductAgent"))
	assert.False(t, s.CanModify("RISK_REGISTER.md", "InfraAgent"))
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("DESIGN_DECISIONS.log", "v1 content", TypeDesignDecisions, "ArchitectAgent", "")
	require.NoError(t, err)
	for _, content := range []string{"v2 content", "v3 content", "v4 content"} {
		_, err = s.Update("DESIGN_DECISIONS.log", content, "ArchitectAgent", "", false)
		require.NoError(t, err)
	}

	all := s.History("DESIGN_DECISIONS.log", 0)
	require.Len(t, all, 4)

	recent := s.History("DESIGN_DECISIONS.log", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "v3", recent[0].VersionID)
	assert.Equal(t, "v4", recent[1].VersionID)

	assert.Nil(t, s.History("missing", 0))
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("REQUIREMENTS.md", "r", TypeRequirements, "ProductAgent", "")
	require.NoError(t, err)
	_, err = s.Create("ARCHITECTURE.md", "a", TypeArchitecture, "ArchitectAgent", "")
	require.NoError(t, err)

	assert.Len(t, s.List("", ""), 2)
	assert.Len(t, s.List(TypeRequirements, ""), 1)
	assert.Len(t, s.List("", "ArchitectAgent"), 1)
	assert.Empty(t, s.List(TypeSourceCode, ""))
}

func TestInitMandatory(t *testing.T) {
	s := newTestStore(t)

	created, err := s.InitMandatory("")
	require.NoError(t, err)
	assert.Len(t, created, len(mandatoryFiles))

	for _, name := range created {
		content, err := s.Read(name)
		require.NoError(t, err)
		assert.NotEmpty(t, content, "mandatory artifacts are seeded from templates")
	}

	again, err := s.InitMandatory("")
	require.NoError(t, err)
	assert.Empty(t, again, "existing artifacts are not recreated")
}

func TestReadFallsBackToDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "NOTES.md"), []byte("untracked"), 0o600))

	content, err := s.Read("NOTES.md")
	require.NoError(t, err)
	assert.Equal(t, "untracked", content)

	_, err = s.Read("absent.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMetadataPersistence(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir, nil)
	require.NoError(t, err)
	_, err = s1.Create("API_CONTRACTS.yaml", "contracts: []\n", TypeAPIContracts, "ArchitectAgent", "")
	require.NoError(t, err)

	s2, err := NewStore(dir, nil)
	require.NoError(t, err)

	artifact, ok := s2.Get("API_CONTRACTS.yaml")
	require.True(t, ok)
	assert.Equal(t, TypeAPIContracts, artifact.Type)
	assert.Equal(t, "ArchitectAgent", artifact.Owner)
	assert.Equal(t, "contracts: []\n", artifact.Content())
}

func TestTemplates(t *testing.T) {
	for typ := range mandatoryFiles {
		assert.NotEmpty(t, Template(typ), "type %s has a seed template", typ)
	}
	assert.NotEmpty(t, Template(TypeDocumentation), "unmapped types get a generated header")
}
