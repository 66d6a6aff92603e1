// Package storage implements the file storage core: the on-disk layout for
// (subject, content kind, unit) scopes, the catalog that tracks uploaded
// files across a metadata side-table and a denormalized JSON backup, the
// startup reconciler that repairs drift between the two, and the upload
// pipeline that ties them together.
package storage

import "strings"

// ContentKind identifies one of the four content categories a subject can
// hold. Every kind knows its directory segment and whether files of that
// kind live under a per-unit subdirectory.
//
// All dispatch on content categories goes through this type; raw category
// strings from requests are parsed exactly once via ParseKind.
type ContentKind int

const (
	// KindNotes holds lecture notes, organized by unit under notes/<unit>/.
	KindNotes ContentKind = iota

	// KindPracticeTests holds practice test files, flat under practice-tests/.
	KindPracticeTests

	// KindPracticals holds practical/lab files, flat under practicals/.
	KindPracticals

	// KindAssignments holds assignment files, flat under assignments/.
	KindAssignments
)

// Kinds lists all content kinds in backup-document order.
var Kinds = []ContentKind{KindNotes, KindPracticeTests, KindPracticals, KindAssignments}

// Segment returns the directory name (and URL path segment) for the kind.
func (k ContentKind) Segment() string {
	switch k {
	case KindNotes:
		return "notes"
	case KindPracticeTests:
		return "practice-tests"
	case KindPracticals:
		return "practicals"
	case KindAssignments:
		return "assignments"
	default:
		return "unknown"
	}
}

// RequiresUnit reports whether files of this kind are stored under a unit
// subdirectory. Only notes are unit-scoped.
func (k ContentKind) RequiresUnit() bool {
	return k == KindNotes
}

func (k ContentKind) String() string {
	return k.Segment()
}

// ParseKind maps a category segment to its ContentKind. The input is
// trimmed; unrecognized values return a StoreError with CodeInvalidKind.
func ParseKind(s string) (ContentKind, error) {
	switch strings.TrimSpace(s) {
	case "notes":
		return KindNotes, nil
	case "practice-tests":
		return KindPracticeTests, nil
	case "practicals":
		return KindPracticals, nil
	case "assignments":
		return KindAssignments, nil
	default:
		return 0, &StoreError{
			Code:    CodeInvalidKind,
			Message: "invalid content type: " + strings.TrimSpace(s),
		}
	}
}
