package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedBackup writes a backup document directly, simulating state left by a
// previous run.
func seedBackup(t *testing.T, layout *Layout, doc BackupDocument) {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(layout.BackupFile(), data, 0644))
}

func TestReconcile_RegeneratesMissingMetadata(t *testing.T) {
	dir := t.TempDir()
	layout, err := NewLayout(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	ctx := context.Background()

	doc := emptyBackup()
	doc.Notes = append(doc.Notes, StoredFile{
		ID:             "1",
		Title:          "Intro Lecture",
		Description:    "first week",
		FileName:       "intro.pdf",
		StoredFileName: "intro_1700000000000.pdf",
		Subject:        "Pharmacology",
		Unit:           "Unit 1",
		Type:           "pdf",
	})
	doc.Subjects = append(doc.Subjects, Subject{ID: "s1", Name: "Pharmacology", Units: []string{"Unit 1"}})
	seedBackup(t, layout, doc)

	// Metadata store is empty: the side-table was lost.
	catalog := NewCatalog(layout, NewJSONFileStore(filepath.Join(dir, "file-metadata.json")))
	require.NoError(t, catalog.Load(ctx))
	require.Equal(t, 0, catalog.MetaCount())

	require.NoError(t, catalog.Reconcile(ctx))

	meta, ok := catalog.Meta("Pharmacology-notes-Unit 1-intro_1700000000000.pdf")
	require.True(t, ok)
	assert.Equal(t, "Intro Lecture", meta.Title)
	assert.Equal(t, "first week", meta.Description)
	assert.Equal(t, "intro.pdf", meta.OriginalFileName)
}

func TestReconcile_RebuildsSubjectsFromContent(t *testing.T) {
	dir := t.TempDir()
	layout, err := NewLayout(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	ctx := context.Background()

	doc := emptyBackup()
	doc.Notes = append(doc.Notes,
		StoredFile{StoredFileName: "a.pdf", Subject: "Pharmacology", Unit: "Unit 1"},
		StoredFile{StoredFileName: "b.pdf", Subject: "Pharmacology", Unit: "Unit 2"},
	)
	doc.Practicals = append(doc.Practicals,
		StoredFile{StoredFileName: "lab.pdf", Subject: "Anatomy"},
		StoredFile{StoredFileName: "junk.pdf", Subject: "temp"},
	)
	seedBackup(t, layout, doc)

	catalog := NewCatalog(layout, NewJSONFileStore(filepath.Join(dir, "file-metadata.json")))
	require.NoError(t, catalog.Load(ctx))
	require.NoError(t, catalog.Reconcile(ctx))

	subjects := catalog.Subjects()
	require.Len(t, subjects, 2)

	byName := map[string]Subject{}
	for _, s := range subjects {
		byName[s.Name] = s
		assert.NotEmpty(t, s.ID)
	}
	assert.Equal(t, []string{"Unit 1", "Unit 2"}, byName["Pharmacology"].Units)
	assert.Equal(t, []string{}, byName["Anatomy"].Units)
	assert.NotContains(t, byName, "temp")
}

func TestReconcile_KeepsExistingSubjects(t *testing.T) {
	dir := t.TempDir()
	layout, err := NewLayout(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	ctx := context.Background()

	doc := emptyBackup()
	doc.Subjects = append(doc.Subjects, Subject{ID: "keep", Name: "Pharmacology", Units: []string{}})
	doc.Notes = append(doc.Notes, StoredFile{StoredFileName: "a.pdf", Subject: "Other", Unit: "Unit 1"})
	seedBackup(t, layout, doc)

	catalog := NewCatalog(layout, NewJSONFileStore(filepath.Join(dir, "file-metadata.json")))
	require.NoError(t, catalog.Load(ctx))
	require.NoError(t, catalog.Reconcile(ctx))

	// Subjects were not empty, so no rebuild happens.
	subjects := catalog.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, "keep", subjects[0].ID)
}

func TestReconcile_NoChangesNoSave(t *testing.T) {
	dir := t.TempDir()
	layout, err := NewLayout(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	ctx := context.Background()

	catalog := NewCatalog(layout, NewJSONFileStore(filepath.Join(dir, "file-metadata.json")))
	require.NoError(t, catalog.Load(ctx))
	require.NoError(t, catalog.Reconcile(ctx))

	// Nothing to repair on an empty catalog: no backup file appears.
	_, err = os.Stat(layout.BackupFile())
	assert.True(t, os.IsNotExist(err))
}
