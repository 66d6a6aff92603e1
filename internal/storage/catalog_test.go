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

func newTestCatalog(t *testing.T) (*Catalog, *Layout) {
	t.Helper()
	dir := t.TempDir()
	layout, err := NewLayout(filepath.Join(dir, "storage"))
	require.NoError(t, err)

	catalog := NewCatalog(layout, NewJSONFileStore(filepath.Join(dir, "file-metadata.json")))
	require.NoError(t, catalog.Load(context.Background()))
	return catalog, layout
}

func noteRecord(subject, unit, storedName string) StoredFile {
	return StoredFile{
		ID:             "id-" + storedName,
		Title:          "Some Notes",
		FileName:       "original.pdf",
		StoredFileName: storedName,
		FileSize:       "1.5 KB",
		UploadDate:     "3/7/2026",
		Subject:        subject,
		Unit:           unit,
		Type:           "pdf",
	}
}

func TestRecordUpload_CreatesSubjectAndMetadata(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	rec := noteRecord("Pharmacology", "Unit 1", "intro_1700000000000.pdf")
	require.NoError(t, catalog.RecordUpload(ctx, rec, KindNotes))

	subjects := catalog.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, "Pharmacology", subjects[0].Name)
	assert.Equal(t, []string{"Unit 1"}, subjects[0].Units)

	meta, ok := catalog.Meta("Pharmacology-notes-Unit 1-intro_1700000000000.pdf")
	require.True(t, ok)
	assert.Equal(t, "Some Notes", meta.Title)
	assert.Equal(t, "original.pdf", meta.OriginalFileName)
}

func TestRecordUpload_DeduplicatesReupload(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	rec := noteRecord("Pharmacology", "Unit 1", "intro_1700000000000.pdf")
	require.NoError(t, catalog.RecordUpload(ctx, rec, KindNotes))

	rec.Title = "Updated Notes"
	require.NoError(t, catalog.RecordUpload(ctx, rec, KindNotes))

	backup := catalog.Backup()
	require.Len(t, backup.Notes, 1)
	assert.Equal(t, "Updated Notes", backup.Notes[0].Title)
}

func TestRecordUpload_SameNameDifferentUnit(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.RecordUpload(ctx, noteRecord("Pharmacology", "Unit 1", "intro.pdf"), KindNotes))
	require.NoError(t, catalog.RecordUpload(ctx, noteRecord("Pharmacology", "Unit 2", "intro.pdf"), KindNotes))

	backup := catalog.Backup()
	assert.Len(t, backup.Notes, 2)

	subjects := catalog.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, []string{"Unit 1", "Unit 2"}, subjects[0].Units)
}

func TestRemoveFile_Idempotent(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	rec := noteRecord("Pharmacology", "Unit 1", "intro.pdf")
	require.NoError(t, catalog.RecordUpload(ctx, rec, KindNotes))

	require.NoError(t, catalog.RemoveFile(ctx, "Pharmacology", KindNotes, "Unit 1", "intro.pdf"))
	assert.Empty(t, catalog.Backup().Notes)
	_, ok := catalog.Meta("Pharmacology-notes-Unit 1-intro.pdf")
	assert.False(t, ok)

	// Removing again is a no-op, not an error.
	require.NoError(t, catalog.RemoveFile(ctx, "Pharmacology", KindNotes, "Unit 1", "intro.pdf"))
}

func TestUpsertSubject_ReplacesExisting(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	first, err := catalog.UpsertSubject(ctx, "Anatomy", []string{"Unit 1"})
	require.NoError(t, err)

	second, err := catalog.UpsertSubject(ctx, "Anatomy", []string{"Unit 1", "Unit 2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	subjects := catalog.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, []string{"Unit 1", "Unit 2"}, subjects[0].Units)
}

func TestAddUnit(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := catalog.UpsertSubject(ctx, "Anatomy", []string{"Unit 1"})
	require.NoError(t, err)

	require.NoError(t, catalog.AddUnit(ctx, "Anatomy", "Unit 2"))
	require.NoError(t, catalog.AddUnit(ctx, "Anatomy", "Unit 2")) // duplicate ignored
	require.NoError(t, catalog.AddUnit(ctx, "Unknown", "Unit 1")) // unknown subject ignored

	subjects := catalog.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, []string{"Unit 1", "Unit 2"}, subjects[0].Units)
}

func TestRemoveSubject_CascadesAcrossKinds(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	note := noteRecord("Pharmacology", "Unit 1", "intro.pdf")
	require.NoError(t, catalog.RecordUpload(ctx, note, KindNotes))

	practical := noteRecord("Pharmacology", "", "lab.pdf")
	practical.Unit = ""
	require.NoError(t, catalog.RecordUpload(ctx, practical, KindPracticals))

	other := noteRecord("Anatomy", "Unit 1", "bones.pdf")
	require.NoError(t, catalog.RecordUpload(ctx, other, KindNotes))

	require.NoError(t, catalog.RemoveSubject(ctx, "Pharmacology"))

	backup := catalog.Backup()
	assert.Empty(t, backup.Practicals)
	require.Len(t, backup.Notes, 1)
	assert.Equal(t, "Anatomy", backup.Notes[0].Subject)

	_, ok := catalog.Meta("Pharmacology-notes-Unit 1-intro.pdf")
	assert.False(t, ok)
	_, ok = catalog.Meta("Pharmacology-practicals--lab.pdf")
	assert.False(t, ok)
	_, ok = catalog.Meta("Anatomy-notes-Unit 1-bones.pdf")
	assert.True(t, ok)
}

func TestCatalog_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	layout, err := NewLayout(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	metaPath := filepath.Join(dir, "file-metadata.json")
	ctx := context.Background()

	catalog := NewCatalog(layout, NewJSONFileStore(metaPath))
	require.NoError(t, catalog.Load(ctx))
	require.NoError(t, catalog.RecordUpload(ctx, noteRecord("Pharmacology", "Unit 1", "intro.pdf"), KindNotes))

	// A fresh catalog over the same files sees the same state.
	reloaded := NewCatalog(layout, NewJSONFileStore(metaPath))
	require.NoError(t, reloaded.Load(ctx))

	backup := reloaded.Backup()
	require.Len(t, backup.Notes, 1)
	assert.Equal(t, "intro.pdf", backup.Notes[0].StoredFileName)
	assert.NotEmpty(t, backup.LastBackup)

	meta, ok := reloaded.Meta("Pharmacology-notes-Unit 1-intro.pdf")
	require.True(t, ok)
	assert.Equal(t, "Some Notes", meta.Title)
}

func TestCatalog_LoadCorruptBackupStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	layout, err := NewLayout(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(layout.BackupFile(), []byte("{not json"), 0644))

	catalog := NewCatalog(layout, NewJSONFileStore(filepath.Join(dir, "file-metadata.json")))
	require.NoError(t, catalog.Load(context.Background()))
	assert.Empty(t, catalog.Subjects())
}

func TestCatalog_SaveWritesParseableBackup(t *testing.T) {
	catalog, layout := newTestCatalog(t)
	require.NoError(t, catalog.RecordUpload(context.Background(), noteRecord("Anatomy", "Unit 1", "a.pdf"), KindNotes))

	data, err := os.ReadFile(layout.BackupFile())
	require.NoError(t, err)

	var doc BackupDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Notes, 1)
}
