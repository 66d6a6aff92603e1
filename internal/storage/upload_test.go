package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*Pipeline, *Catalog, *Layout) {
	t.Helper()
	catalog, layout := newTestCatalog(t)
	return NewPipeline(layout, catalog), catalog, layout
}

func TestCheckFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mime     string
		wantErr  bool
	}{
		{"pdf", "notes.pdf", "application/pdf", false},
		{"jpeg", "photo.jpeg", "image/jpeg", false},
		{"png", "diagram.png", "image/png", false},
		{"gif", "anim.gif", "image/gif", false},
		{"docx rejected", "essay.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"mime mismatch", "notes.pdf", "text/html", true},
		{"no extension", "notes", "application/pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFile(tt.filename, tt.mime)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, CodeValidation, ErrCode(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSpool_KnownDestination(t *testing.T) {
	pipeline, _, layout := newTestPipeline(t)

	spooled, err := pipeline.Spool("Pharmacology", "notes", "Unit 1", "intro.pdf", "application/pdf",
		strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(layout.Root(), "Pharmacology", "notes", "Unit 1"), filepath.Dir(spooled.Path))
	assert.True(t, strings.HasPrefix(spooled.StoredName, "intro_"))
	assert.True(t, strings.HasSuffix(spooled.StoredName, ".pdf"))
	assert.FileExists(t, spooled.Path)
	assert.Equal(t, int64(len("pdf bytes")), spooled.Size)
}

func TestSpool_UnknownDestinationGoesToTemp(t *testing.T) {
	pipeline, _, layout := newTestPipeline(t)

	spooled, err := pipeline.Spool("", "", "", "intro.pdf", "application/pdf",
		strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, layout.TempDir(), filepath.Dir(spooled.Path))
}

func TestSpool_RejectsDisallowedFile(t *testing.T) {
	pipeline, _, layout := newTestPipeline(t)

	_, err := pipeline.Spool("Pharmacology", "notes", "Unit 1", "essay.docx", "application/msword",
		strings.NewReader("doc bytes"))
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrCode(err))

	// No directory side effects for the rejected upload.
	_, statErr := os.Stat(filepath.Join(layout.Root(), "Pharmacology"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCommit_MovesFromTempAndCatalogs(t *testing.T) {
	pipeline, catalog, layout := newTestPipeline(t)
	ctx := context.Background()

	spooled, err := pipeline.Spool("", "", "", "my notes.pdf", "application/pdf",
		strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	rec, err := pipeline.Commit(ctx, UploadFields{
		Title:   "Week 1 Notes",
		Subject: "Pharmacology",
		Type:    "notes",
		Unit:    "Unit 1",
	}, spooled)
	require.NoError(t, err)

	wantPath := filepath.Join(layout.Root(), "Pharmacology", "notes", "Unit 1", spooled.StoredName)
	assert.Equal(t, wantPath, rec.FilePath)
	assert.FileExists(t, wantPath)

	// Temp copy is gone.
	_, statErr := os.Stat(filepath.Join(layout.TempDir(), spooled.StoredName))
	assert.True(t, os.IsNotExist(statErr))

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Week 1 Notes", rec.Title)
	assert.Equal(t, "my notes.pdf", rec.FileName)
	assert.Equal(t, "pdf", rec.Type)
	assert.Equal(t, "9 Bytes", rec.FileSize)

	backup := catalog.Backup()
	require.Len(t, backup.Notes, 1)

	subjects := catalog.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, []string{"Unit 1"}, subjects[0].Units)
}

func TestCommit_ValidationFailureRemovesSpooledFile(t *testing.T) {
	pipeline, catalog, _ := newTestPipeline(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		fields UploadFields
	}{
		{"missing title", UploadFields{Subject: "Pharmacology", Type: "notes", Unit: "Unit 1"}},
		{"missing subject", UploadFields{Title: "T", Type: "notes", Unit: "Unit 1"}},
		{"missing type", UploadFields{Title: "T", Subject: "Pharmacology"}},
		{"notes without unit", UploadFields{Title: "T", Subject: "Pharmacology", Type: "notes"}},
		{"unknown type", UploadFields{Title: "T", Subject: "Pharmacology", Type: "lectures"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spooled, err := pipeline.Spool("", "", "", "intro.pdf", "application/pdf",
				strings.NewReader("pdf bytes"))
			require.NoError(t, err)

			_, err = pipeline.Commit(ctx, tt.fields, spooled)
			require.Error(t, err)

			// The spooled file is cleaned up and nothing is cataloged.
			_, statErr := os.Stat(spooled.Path)
			assert.True(t, os.IsNotExist(statErr))
			assert.Empty(t, catalog.Backup().Notes)
		})
	}
}

func TestCommit_ReuploadDeduplicates(t *testing.T) {
	pipeline, catalog, _ := newTestPipeline(t)
	ctx := context.Background()

	spooled, err := pipeline.Spool("Pharmacology", "practicals", "", "lab.pdf", "application/pdf",
		strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	fields := UploadFields{Title: "Lab 1", Subject: "Pharmacology", Type: "practicals"}
	_, err = pipeline.Commit(ctx, fields, spooled)
	require.NoError(t, err)

	// Committing the same stored name again replaces the record.
	_, err = pipeline.Commit(ctx, fields, spooled)
	require.NoError(t, err)

	assert.Len(t, catalog.Backup().Practicals, 1)
}
