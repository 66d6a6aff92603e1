package storage

import (
	"os"
	"path/filepath"

	"github.com/sncop/coursestore/internal/logger"
)

// DirEntry is one file in a directory listing: size and mtime straight from
// disk, no catalog involvement.
type DirEntry struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
	Modified string `json:"modified"`
	Type     string `json:"type"`
}

// SyncEntry is one file in a storage-sync dump: the disk facts plus the
// display title and description merged in from the catalog.
type SyncEntry struct {
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Size        string `json:"size"`
	Modified    string `json:"modified"`
	Type        string `json:"type"`
	Subject     string `json:"subject"`
	Unit        string `json:"unit,omitempty"`
}

// SubjectContents groups a subject's files: notes keyed by unit, the other
// kinds as flat arrays. JSON keys match the kind path segments.
type SubjectContents struct {
	Notes         map[string][]SyncEntry `json:"notes"`
	PracticeTests []SyncEntry            `json:"practice-tests"`
	Practicals    []SyncEntry            `json:"practicals"`
	Assignments   []SyncEntry            `json:"assignments"`
}

func emptyContents() SubjectContents {
	return SubjectContents{
		Notes:         map[string][]SyncEntry{},
		PracticeTests: []SyncEntry{},
		Practicals:    []SyncEntry{},
		Assignments:   []SyncEntry{},
	}
}

// ListDirectory returns the files in one (subject, kind, unit) scope. A
// missing directory yields an empty list, matching the read model where the
// disk tree, not the catalog, decides what exists.
func (c *Catalog) ListDirectory(subject string, kind ContentKind, unit string) ([]DirEntry, error) {
	dir, err := c.layout.KindDir(subject, kind, unit)
	if err != nil {
		return nil, err
	}
	if !dirExists(dir) {
		return []DirEntry{}, nil
	}

	names, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]DirEntry, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		entries = append(entries, DirEntry{
			Filename: name,
			Size:     FormatFileSize(info.Size()),
			Modified: FormatUploadDate(info.ModTime()),
			Type:     ContentTypeLabel(name),
		})
	}
	return entries, nil
}

// subjectFiles walks a subject's four on-disk subtrees and merges each file
// with its side-table entry. Files without one fall back to a title derived
// from the stored filename.
func (c *Catalog) subjectFiles(subjectName string) SubjectContents {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subjectFilesLocked(subjectName)
}

func (c *Catalog) subjectFilesLocked(subjectName string) SubjectContents {
	contents := emptyContents()
	subjectPath := c.layout.SubjectDir(subjectName)

	notesPath := filepath.Join(subjectPath, KindNotes.Segment())
	if dirExists(notesPath) {
		units, err := listDirs(notesPath)
		if err != nil {
			logger.Error("Error reading notes units for %s: %v", subjectName, err)
		}
		for _, unit := range units {
			unitPath := filepath.Join(notesPath, unit)
			files, err := listFiles(unitPath)
			if err != nil {
				logger.Error("Error reading unit %s/%s: %v", subjectName, unit, err)
				continue
			}
			entries := make([]SyncEntry, 0, len(files))
			for _, name := range files {
				entries = append(entries, c.syncEntryLocked(unitPath, name, subjectName, KindNotes, unit))
			}
			contents.Notes[unit] = entries
		}
	}

	for _, kind := range []ContentKind{KindPracticeTests, KindPracticals, KindAssignments} {
		dir := filepath.Join(subjectPath, kind.Segment())
		if !dirExists(dir) {
			continue
		}
		files, err := listFiles(dir)
		if err != nil {
			logger.Error("Error reading %s for %s: %v", kind.Segment(), subjectName, err)
			continue
		}
		entries := make([]SyncEntry, 0, len(files))
		for _, name := range files {
			entries = append(entries, c.syncEntryLocked(dir, name, subjectName, kind, ""))
		}
		switch kind {
		case KindPracticeTests:
			contents.PracticeTests = entries
		case KindPracticals:
			contents.Practicals = entries
		default:
			contents.Assignments = entries
		}
	}
	return contents
}

func (c *Catalog) syncEntryLocked(dir, filename, subjectName string, kind ContentKind, unit string) SyncEntry {
	entry := SyncEntry{
		Filename: filename,
		Title:    FallbackTitle(filename),
		Type:     ContentTypeLabel(filename),
		Subject:  subjectName,
		Unit:     unit,
	}
	if info, err := os.Stat(filepath.Join(dir, filename)); err == nil {
		entry.Size = FormatFileSize(info.Size())
		entry.Modified = FormatUploadDate(info.ModTime())
	}
	if meta, ok := c.files[MetadataKey(subjectName, kind, unit, filename)]; ok {
		if meta.Title != "" {
			entry.Title = meta.Title
		}
		entry.Description = meta.Description
	}
	return entry
}

// StorageSync builds the full (or per-subject) catalog dump from the disk
// tree. If the scan yields nothing but the backup document has subjects,
// the dump is synthesized from the backup instead — the disk may be empty
// after a restore while the catalog still knows the world.
func (c *Catalog) StorageSync(subject string) map[string]SubjectContents {
	c.mu.RLock()
	defer c.mu.RUnlock()

	structure := map[string]SubjectContents{}

	if subject != "" {
		if dirExists(c.layout.SubjectDir(subject)) {
			structure[subject] = c.subjectFilesLocked(subject)
		}
	} else {
		dirs, err := listDirs(c.layout.Root())
		if err != nil {
			logger.Error("Error scanning storage root: %v", err)
		}
		for _, name := range dirs {
			if IsReservedName(name) {
				continue
			}
			structure[name] = c.subjectFilesLocked(name)
		}
	}

	if len(structure) == 0 && len(c.backup.Subjects) > 0 {
		logger.Info("Storage structure empty, using backup data")
		c.syncFromBackupLocked(structure)
	}
	return structure
}

func (c *Catalog) syncFromBackupLocked(structure map[string]SubjectContents) {
	for _, subjectData := range c.backup.Subjects {
		if IsReservedName(subjectData.Name) {
			continue
		}
		contents := emptyContents()

		for _, note := range c.backup.Notes {
			if note.Subject != subjectData.Name {
				continue
			}
			contents.Notes[note.Unit] = append(contents.Notes[note.Unit], backupSyncEntry(note, note.Unit))
		}
		for _, rec := range c.backup.PracticeTests {
			if rec.Subject == subjectData.Name {
				contents.PracticeTests = append(contents.PracticeTests, backupSyncEntry(rec, ""))
			}
		}
		for _, rec := range c.backup.Practicals {
			if rec.Subject == subjectData.Name {
				contents.Practicals = append(contents.Practicals, backupSyncEntry(rec, ""))
			}
		}
		for _, rec := range c.backup.Assignments {
			if rec.Subject == subjectData.Name {
				contents.Assignments = append(contents.Assignments, backupSyncEntry(rec, ""))
			}
		}
		structure[subjectData.Name] = contents
	}
}

func backupSyncEntry(rec StoredFile, unit string) SyncEntry {
	return SyncEntry{
		Filename:    rec.StoredFileName,
		Title:       rec.Title,
		Description: rec.Description,
		Size:        rec.FileSize,
		Modified:    rec.UploadDate,
		Type:        rec.Type,
		Subject:     rec.Subject,
		Unit:        unit,
	}
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ioErr("failed to read directory", dir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ioErr("failed to read directory", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
