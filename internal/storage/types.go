package storage

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StoredFile is one cataloged file as persisted in the backup document.
// Field names are an on-disk compatibility contract; renaming any JSON tag
// breaks existing sncop-backup.json files.
type StoredFile struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	FileName       string `json:"fileName"`       // original upload name
	StoredFileName string `json:"storedFileName"` // sanitized, timestamp-suffixed
	FileSize       string `json:"fileSize"`       // formatted at write time
	UploadDate     string `json:"uploadDate"`
	Subject        string `json:"subject"`
	Unit           string `json:"unit,omitempty"` // notes only
	Type           string `json:"type"`           // "pdf" or "image"
	FilePath       string `json:"filePath"`       // absolute path at write time
}

// Subject is a top-level academic category. Name doubles as the directory
// name under the storage root; Units lists the note unit subdirectories.
type Subject struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Units []string `json:"units"`
}

// FileMeta is the metadata side-table value: the human-facing fields a bare
// directory listing cannot supply.
type FileMeta struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	OriginalFileName string `json:"originalFileName"`
}

// BackupDocument is the denormalized full catalog persisted as
// sncop-backup.json under the storage root.
type BackupDocument struct {
	Subjects      []Subject    `json:"subjects"`
	Notes         []StoredFile `json:"notes"`
	PracticeTests []StoredFile `json:"practiceTests"`
	Practicals    []StoredFile `json:"practicals"`
	Assignments   []StoredFile `json:"assignments"`
	LastBackup    string       `json:"lastBackup"`
}

// emptyBackup returns a BackupDocument with all arrays allocated.
func emptyBackup() BackupDocument {
	return BackupDocument{
		Subjects:      []Subject{},
		Notes:         []StoredFile{},
		PracticeTests: []StoredFile{},
		Practicals:    []StoredFile{},
		Assignments:   []StoredFile{},
	}
}

// kindArray returns a pointer to the backup array holding the given kind.
func (b *BackupDocument) kindArray(k ContentKind) *[]StoredFile {
	switch k {
	case KindNotes:
		return &b.Notes
	case KindPracticeTests:
		return &b.PracticeTests
	case KindPracticals:
		return &b.Practicals
	default:
		return &b.Assignments
	}
}

// MetadataKey builds the composite side-table key. Unit is empty for
// unit-less kinds, which produces the historical double hyphen.
func MetadataKey(subject string, kind ContentKind, unit, storedFileName string) string {
	return subject + "-" + kind.Segment() + "-" + unit + "-" + storedFileName
}

// ReservedNames are directory names under the storage root that are never
// subjects.
var ReservedNames = []string{"temp", "profile-pictures"}

// IsReservedName reports whether name is reserved for internal use
// (case-insensitive).
func IsReservedName(name string) bool {
	lower := strings.ToLower(name)
	for _, r := range ReservedNames {
		if lower == r {
			return true
		}
	}
	return false
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count the way the catalog has always stored
// it: 1024-based, at most two decimals with trailing zeros dropped.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	s := strconv.FormatFloat(value, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s + " " + sizeUnits[i]
}

// FormatUploadDate renders the catalog's locale-style date (M/D/YYYY).
func FormatUploadDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}

// ContentTypeLabel classifies a filename as "pdf" or "image" by extension.
func ContentTypeLabel(filename string) string {
	if strings.Contains(strings.ToLower(filepath.Ext(filename)), "pdf") {
		return "pdf"
	}
	return "image"
}

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	timestampSuffix = regexp.MustCompile(`_\d{13}$`)
	wordStart       = regexp.MustCompile(`\b[a-z]`)
)

// StoredName derives a filesystem-safe, collision-resistant stored filename
// from the original upload name: strip the extension, replace everything
// outside [A-Za-z0-9_-] with underscores, append the millisecond timestamp,
// reattach the extension.
func StoredName(originalName string, now time.Time) string {
	ext := filepath.Ext(originalName)
	name := strings.TrimSuffix(filepath.Base(originalName), ext)
	sanitized := unsafeNameChars.ReplaceAllString(name, "_")
	return fmt.Sprintf("%s_%d%s", sanitized, now.UnixMilli(), ext)
}

// FallbackTitle derives a display title from a stored filename when the
// metadata side-table has no entry: extension and timestamp suffix stripped,
// underscores as spaces, each word title-cased (hyphenated words too:
// "cell-biology" becomes "Cell-Biology").
func FallbackTitle(filename string) string {
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	title = timestampSuffix.ReplaceAllString(title, "")
	title = strings.ReplaceAll(title, "_", " ")
	return wordStart.ReplaceAllStringFunc(title, strings.ToUpper)
}
