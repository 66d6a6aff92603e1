package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Layout maps logical (subject, kind, unit) scopes onto the directory tree
// under the storage root and resolves read paths, including the best-effort
// alternate spellings used when a canonical path misses.
//
// Subject and unit names are free user text and are used verbatim as
// directory names, so the same logical scope may have been written with
// inconsistent whitespace or case. The alternate search papers over that;
// callers must treat it as a recovery mechanism, not a guarantee.
type Layout struct {
	root string
}

// NewLayout creates a Layout rooted at the given directory, creating the
// root and the temp scratch directory if missing.
func NewLayout(root string) (*Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ioErr("failed to resolve storage root", root)
	}
	l := &Layout{root: abs}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, ioErr("failed to create storage root", abs)
	}
	if err := os.MkdirAll(l.TempDir(), 0755); err != nil {
		return nil, ioErr("failed to create temp directory", l.TempDir())
	}
	return l, nil
}

// Root returns the absolute storage root path.
func (l *Layout) Root() string {
	return l.root
}

// TempDir returns the scratch directory used while an upload's destination
// is still unknown.
func (l *Layout) TempDir() string {
	return filepath.Join(l.root, "temp")
}

// BackupFile returns the path of the backup document under the root.
func (l *Layout) BackupFile() string {
	return filepath.Join(l.root, "sncop-backup.json")
}

// SubjectDir returns the top-level directory for a subject.
func (l *Layout) SubjectDir(subject string) string {
	return filepath.Join(l.root, subject)
}

// KindDir returns the directory holding files of the given kind for a
// subject. Notes require a non-empty unit.
func (l *Layout) KindDir(subject string, kind ContentKind, unit string) (string, error) {
	if kind.RequiresUnit() {
		if strings.TrimSpace(unit) == "" {
			return "", &StoreError{Code: CodeMissingUnit, Message: "unit is required for notes"}
		}
		return filepath.Join(l.root, subject, kind.Segment(), unit), nil
	}
	return filepath.Join(l.root, subject, kind.Segment()), nil
}

// UploadDir resolves the destination directory for an incoming upload and
// creates it. When subject or typ is blank the destination cannot be known
// yet (multipart bodies arrive after headers), so the file is redirected to
// the temp scratch directory; the caller moves it once the parsed body
// supplies the real scope.
func (l *Layout) UploadDir(subject, typ, unit string) (string, error) {
	subject = strings.TrimSpace(subject)
	typ = strings.TrimSpace(typ)
	unit = strings.TrimSpace(unit)

	if subject == "" || typ == "" {
		return l.TempDir(), nil
	}

	kind, err := ParseKind(typ)
	if err != nil {
		return "", err
	}
	dir, err := l.KindDir(subject, kind, unit)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", ioErr("failed to create upload directory", dir)
	}
	return dir, nil
}

// EnsureSubjectTree idempotently creates the full directory skeleton for a
// subject: the subject directory, notes/ with one subdirectory per unit,
// practice-tests/, practicals/ and assignments/.
func (l *Layout) EnsureSubjectTree(name string, units []string) (string, error) {
	subjectPath := l.SubjectDir(name)

	notesPath := filepath.Join(subjectPath, KindNotes.Segment())
	dirs := []string{subjectPath, notesPath}
	for _, unit := range units {
		dirs = append(dirs, filepath.Join(notesPath, unit))
	}
	for _, k := range []ContentKind{KindPracticeTests, KindPracticals, KindAssignments} {
		dirs = append(dirs, filepath.Join(subjectPath, k.Segment()))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", ioErr("failed to create directory", dir)
		}
	}
	return subjectPath, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ResolveReadPath computes the canonical path for a stored file and checks
// existence. If the canonical path misses it probes alternate spellings
// (whitespace replaced with underscores, then hyphens, then a lowercased
// component) and returns the first that exists, or CodeNotFound.
func (l *Layout) ResolveReadPath(subject string, kind ContentKind, unit, filename string) (string, error) {
	canonical, err := l.KindDir(subject, kind, unit)
	if err != nil {
		return "", err
	}
	canonical = filepath.Join(canonical, filename)
	if fileExists(canonical) {
		return canonical, nil
	}

	for _, alt := range l.alternatePaths(subject, kind, unit, filename) {
		if fileExists(alt) {
			return alt, nil
		}
	}
	return "", &StoreError{Code: CodeNotFound, Message: "file not found", Path: canonical}
}

// alternatePaths lists fallback candidates in probe order. For notes the
// unit spelling varies first, then the subject; for unit-less kinds only the
// subject varies.
func (l *Layout) alternatePaths(subject string, kind ContentKind, unit, filename string) []string {
	underscored := whitespaceRun.ReplaceAllString(subject, "_")
	hyphenated := whitespaceRun.ReplaceAllString(subject, "-")

	if kind.RequiresUnit() {
		return []string{
			filepath.Join(l.root, subject, kind.Segment(), whitespaceRun.ReplaceAllString(unit, "_"), filename),
			filepath.Join(l.root, subject, kind.Segment(), whitespaceRun.ReplaceAllString(unit, "-"), filename),
			filepath.Join(l.root, subject, kind.Segment(), strings.ToLower(unit), filename),
			filepath.Join(l.root, underscored, kind.Segment(), unit, filename),
			filepath.Join(l.root, hyphenated, kind.Segment(), unit, filename),
		}
	}
	return []string{
		filepath.Join(l.root, underscored, kind.Segment(), filename),
		filepath.Join(l.root, hyphenated, kind.Segment(), filename),
		filepath.Join(l.root, strings.ToLower(subject), kind.Segment(), filename),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
