package storage

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sncop/coursestore/internal/logger"
)

// Catalog is the single source of truth for what files exist and what their
// display titles are, short of rescanning disk. It holds two structures:
//
//   - the metadata side-table (map from composite key to FileMeta), which
//     supplies titles and descriptions for directory listings
//   - the backup document, the denormalized full dump (subjects plus the
//     four content arrays) persisted under the storage root
//
// All access funnels through one RWMutex so concurrent requests cannot
// interleave a mutation with a save and persist a stale snapshot. Both
// structures are flushed to disk after every mutation; each file is written
// atomically (temp + rename), though a crash between the two writes can
// still leave them out of step — the startup reconciler repairs that.
type Catalog struct {
	mu     sync.RWMutex
	layout *Layout
	meta   MetadataStore

	files  map[string]FileMeta
	backup BackupDocument
}

// NewCatalog creates a Catalog over the given layout and metadata store.
// Call Load before use.
func NewCatalog(layout *Layout, meta MetadataStore) *Catalog {
	return &Catalog{
		layout: layout,
		meta:   meta,
		files:  map[string]FileMeta{},
		backup: emptyBackup(),
	}
}

// Load reads both persisted structures. Parse failures reset the affected
// structure to its empty form and are logged; they are never fatal, because
// the directory tree remains the primary source of file truth.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.meta.Load(ctx)
	if err != nil {
		logger.Error("Failed to load metadata store, starting empty: %v", err)
		files = map[string]FileMeta{}
	}
	c.files = files
	logger.Info("Loaded %d file metadata entries", len(c.files))

	c.backup = emptyBackup()
	data, err := os.ReadFile(c.layout.BackupFile())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Failed to read backup document: %v", err)
		}
		return nil
	}

	var doc BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("Backup document is not valid JSON, starting empty: %v", err)
		return nil
	}

	// Old documents may predate one of the arrays.
	if doc.Subjects == nil {
		doc.Subjects = []Subject{}
	}
	if doc.Notes == nil {
		doc.Notes = []StoredFile{}
	}
	if doc.PracticeTests == nil {
		doc.PracticeTests = []StoredFile{}
	}
	if doc.Practicals == nil {
		doc.Practicals = []StoredFile{}
	}
	if doc.Assignments == nil {
		doc.Assignments = []StoredFile{}
	}
	c.backup = doc

	logger.Info("Loaded backup data with %d subjects, %d notes, %d practice tests, %d practicals, %d assignments",
		len(doc.Subjects), len(doc.Notes), len(doc.PracticeTests), len(doc.Practicals), len(doc.Assignments))
	return nil
}

// save persists both structures. The caller must hold c.mu.
func (c *Catalog) save(ctx context.Context) error {
	c.backup.LastBackup = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(c.backup, "", "  ")
	if err != nil {
		return ioErr("failed to serialize backup document", c.layout.BackupFile())
	}
	if err := writeFileAtomic(c.layout.BackupFile(), data); err != nil {
		return err
	}
	return c.meta.Save(ctx, c.files)
}

// RecordUpload registers a freshly persisted file: the backup array entry
// (deduplicated on stored name, subject and unit), the side-table entry, and
// the owning subject (created if absent, unit appended for notes). One save
// covers all three changes.
func (c *Catalog) RecordUpload(ctx context.Context, rec StoredFile, kind ContentKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.upsertFileLocked(rec, kind)
	c.ensureSubjectLocked(rec.Subject, kind, rec.Unit)
	return c.save(ctx)
}

func (c *Catalog) upsertFileLocked(rec StoredFile, kind ContentKind) {
	arr := c.backup.kindArray(kind)
	*arr = slices.DeleteFunc(*arr, func(f StoredFile) bool {
		if f.StoredFileName != rec.StoredFileName || f.Subject != rec.Subject {
			return false
		}
		return !kind.RequiresUnit() || f.Unit == rec.Unit
	})
	*arr = append(*arr, rec)

	c.files[MetadataKey(rec.Subject, kind, unitForKey(kind, rec.Unit), rec.StoredFileName)] = FileMeta{
		Title:            rec.Title,
		Description:      rec.Description,
		OriginalFileName: rec.FileName,
	}
}

func (c *Catalog) ensureSubjectLocked(name string, kind ContentKind, unit string) {
	idx := slices.IndexFunc(c.backup.Subjects, func(s Subject) bool { return s.Name == name })
	if idx < 0 {
		var units []string
		if kind.RequiresUnit() && unit != "" {
			units = []string{unit}
		}
		c.backup.Subjects = append(c.backup.Subjects, Subject{
			ID:    uuid.NewString(),
			Name:  name,
			Units: units,
		})
		return
	}
	if kind.RequiresUnit() && unit != "" && !slices.Contains(c.backup.Subjects[idx].Units, unit) {
		c.backup.Subjects[idx].Units = append(c.backup.Subjects[idx].Units, unit)
	}
}

// RemoveFile drops a file from the backup array and the side-table.
// Idempotent: removing an absent record is not an error.
func (c *Catalog) RemoveFile(ctx context.Context, subject string, kind ContentKind, unit, storedFileName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	arr := c.backup.kindArray(kind)
	*arr = slices.DeleteFunc(*arr, func(f StoredFile) bool {
		if f.StoredFileName != storedFileName || f.Subject != subject {
			return false
		}
		return !kind.RequiresUnit() || f.Unit == unit
	})
	delete(c.files, MetadataKey(subject, kind, unitForKey(kind, unit), storedFileName))
	return c.save(ctx)
}

// UpsertSubject creates a subject or replaces an existing one of the same
// name (units included).
func (c *Catalog) UpsertSubject(ctx context.Context, name string, units []string) (Subject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if units == nil {
		units = []string{}
	}
	subject := Subject{ID: uuid.NewString(), Name: name, Units: units}

	idx := slices.IndexFunc(c.backup.Subjects, func(s Subject) bool { return s.Name == name })
	if idx >= 0 {
		c.backup.Subjects[idx] = subject
	} else {
		c.backup.Subjects = append(c.backup.Subjects, subject)
	}
	return subject, c.save(ctx)
}

// AddUnit appends a unit to a subject's unit list if the subject is known
// and the unit is new. The unit directory itself is the caller's concern; a
// subject missing from the catalog is not an error (the directory may have
// been created out of band).
func (c *Catalog) AddUnit(ctx context.Context, subjectName, unitName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := slices.IndexFunc(c.backup.Subjects, func(s Subject) bool { return s.Name == subjectName })
	if idx < 0 || slices.Contains(c.backup.Subjects[idx].Units, unitName) {
		return nil
	}
	c.backup.Subjects[idx].Units = append(c.backup.Subjects[idx].Units, unitName)
	return c.save(ctx)
}

// RemoveSubject purges a subject and every one of its records from all four
// content arrays and the side-table.
func (c *Catalog) RemoveSubject(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.backup.Subjects = slices.DeleteFunc(c.backup.Subjects, func(s Subject) bool { return s.Name == name })
	for _, kind := range Kinds {
		arr := c.backup.kindArray(kind)
		for _, f := range *arr {
			if f.Subject == name {
				delete(c.files, MetadataKey(f.Subject, kind, unitForKey(kind, f.Unit), f.StoredFileName))
			}
		}
		*arr = slices.DeleteFunc(*arr, func(f StoredFile) bool { return f.Subject == name })
	}
	return c.save(ctx)
}

// Meta returns the side-table entry for a key, if any.
func (c *Catalog) Meta(key string) (FileMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.files[key]
	return meta, ok
}

// MetaCount returns the number of side-table entries.
func (c *Catalog) MetaCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// Subjects returns a copy of the subject list.
func (c *Catalog) Subjects() []Subject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySubjects(c.backup.Subjects)
}

// Assignments returns a copy of the assignments array.
func (c *Catalog) Assignments() []StoredFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.backup.Assignments)
}

// Backup returns a copy of the full backup document.
func (c *Catalog) Backup() BackupDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return BackupDocument{
		Subjects:      copySubjects(c.backup.Subjects),
		Notes:         slices.Clone(c.backup.Notes),
		PracticeTests: slices.Clone(c.backup.PracticeTests),
		Practicals:    slices.Clone(c.backup.Practicals),
		Assignments:   slices.Clone(c.backup.Assignments),
		LastBackup:    c.backup.LastBackup,
	}
}

func copySubjects(subjects []Subject) []Subject {
	out := make([]Subject, len(subjects))
	for i, s := range subjects {
		s.Units = slices.Clone(s.Units)
		out[i] = s
	}
	return out
}

// unitForKey returns the unit component for a metadata key: always empty for
// unit-less kinds so the key keeps its historical double hyphen.
func unitForKey(kind ContentKind, unit string) string {
	if !kind.RequiresUnit() {
		return ""
	}
	return strings.TrimSpace(unit)
}
