package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayout(t *testing.T) *Layout {
	t.Helper()
	layout, err := NewLayout(t.TempDir())
	require.NoError(t, err)
	return layout
}

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))
}

func TestNewLayout_CreatesRootAndTemp(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "storage")
	layout, err := NewLayout(root)
	require.NoError(t, err)

	assert.DirExists(t, layout.Root())
	assert.DirExists(t, layout.TempDir())
}

func TestEnsureSubjectTree(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.EnsureSubjectTree("Pharmacology", []string{"Unit 1", "Unit 2"})
	require.NoError(t, err)

	for _, dir := range []string{
		"Pharmacology/notes/Unit 1",
		"Pharmacology/notes/Unit 2",
		"Pharmacology/practice-tests",
		"Pharmacology/practicals",
		"Pharmacology/assignments",
	} {
		assert.DirExists(t, filepath.Join(layout.Root(), dir))
	}
}

func TestEnsureSubjectTree_Idempotent(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.EnsureSubjectTree("Anatomy", []string{"Unit 1"})
	require.NoError(t, err)
	_, err = layout.EnsureSubjectTree("Anatomy", []string{"Unit 1"})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(layout.Root(), "Anatomy", "notes"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestKindDir_NotesRequireUnit(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.KindDir("Anatomy", KindNotes, "")
	require.Error(t, err)
	assert.Equal(t, CodeMissingUnit, ErrCode(err))

	dir, err := layout.KindDir("Anatomy", KindNotes, "Unit 1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(layout.Root(), "Anatomy", "notes", "Unit 1"), dir)
}

func TestUploadDir_FallsBackToTemp(t *testing.T) {
	layout := newTestLayout(t)

	dir, err := layout.UploadDir("", "", "")
	require.NoError(t, err)
	assert.Equal(t, layout.TempDir(), dir)

	dir, err = layout.UploadDir("Anatomy", "", "")
	require.NoError(t, err)
	assert.Equal(t, layout.TempDir(), dir)
}

func TestUploadDir_CreatesDestination(t *testing.T) {
	layout := newTestLayout(t)

	dir, err := layout.UploadDir("Anatomy", "practicals", "")
	require.NoError(t, err)
	assert.DirExists(t, dir)

	_, err = layout.UploadDir("Anatomy", "bogus", "")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidKind, ErrCode(err))
}

func TestResolveReadPath_Canonical(t *testing.T) {
	layout := newTestLayout(t)
	path := filepath.Join(layout.Root(), "Anatomy", "practicals", "lab.pdf")
	writeTestFile(t, path)

	got, err := layout.ResolveReadPath("Anatomy", KindPracticals, "", "lab.pdf")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveReadPath_UnitAlternates(t *testing.T) {
	layout := newTestLayout(t)

	// Stored under "Unit_1" but requested as "Unit 1".
	path := filepath.Join(layout.Root(), "Pharmacology", "notes", "Unit_1", "intro.pdf")
	writeTestFile(t, path)

	got, err := layout.ResolveReadPath("Pharmacology", KindNotes, "Unit 1", "intro.pdf")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveReadPath_SubjectAlternates(t *testing.T) {
	layout := newTestLayout(t)

	path := filepath.Join(layout.Root(), "Organic_Chemistry", "practice-tests", "mock.pdf")
	writeTestFile(t, path)

	got, err := layout.ResolveReadPath("Organic Chemistry", KindPracticeTests, "", "mock.pdf")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveReadPath_NotFound(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.ResolveReadPath("Anatomy", KindPracticals, "", "missing.pdf")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
