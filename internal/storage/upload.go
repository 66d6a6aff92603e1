package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sncop/coursestore/internal/logger"
)

// allowedExtensions is the upload allow-list. The same set is checked
// against the declared MIME type.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// Pipeline is the upload pipeline: it spools an incoming file to its early
// destination, then commits it once the parsed form fields are available.
//
// Multipart bodies arrive after headers, so the destination may not be known
// when the file stream starts. Spool uses the x-subject/x-type/x-unit header
// values when present and falls back to the temp scratch directory; Commit
// validates the authoritative body fields, relocates the file out of temp if
// needed, and records it in the catalog.
type Pipeline struct {
	layout  *Layout
	catalog *Catalog
}

// NewPipeline creates an upload pipeline over the given layout and catalog.
func NewPipeline(layout *Layout, catalog *Catalog) *Pipeline {
	return &Pipeline{layout: layout, catalog: catalog}
}

// SpooledFile describes a file written by Spool, prior to Commit.
type SpooledFile struct {
	// OriginalName is the client's filename.
	OriginalName string

	// StoredName is the generated on-disk filename.
	StoredName string

	// Path is where the file currently sits (may be the temp directory).
	Path string

	// Size is the byte count written.
	Size int64
}

// UploadFields are the parsed multipart form fields that drive validation
// and cataloging.
type UploadFields struct {
	Title       string
	Subject     string
	Type        string
	Unit        string
	Description string
}

// CheckFile validates the upload allow-list: the filename extension and the
// declared MIME type must both look like PDF or image content.
func CheckFile(originalName, mimeType string) error {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return validationErr("Only PDF and image files are allowed!")
	}
	mime := strings.ToLower(mimeType)
	if !strings.Contains(mime, "pdf") && !strings.Contains(mime, "jpeg") &&
		!strings.Contains(mime, "jpg") && !strings.Contains(mime, "png") &&
		!strings.Contains(mime, "gif") {
		return validationErr("Only PDF and image files are allowed!")
	}
	return nil
}

// Spool validates the file against the allow-list, picks the early
// destination from the header-supplied scope (temp when incomplete), and
// writes the stream under a freshly generated stored name.
func (p *Pipeline) Spool(hdrSubject, hdrType, hdrUnit, originalName, mimeType string, r io.Reader) (*SpooledFile, error) {
	if err := CheckFile(originalName, mimeType); err != nil {
		logger.Info("File rejected: %s (%s)", originalName, mimeType)
		return nil, err
	}

	dir, err := p.layout.UploadDir(hdrSubject, hdrType, hdrUnit)
	if err != nil {
		return nil, err
	}

	storedName := StoredName(originalName, time.Now())
	dest := filepath.Join(dir, storedName)

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, ioErr("failed to create upload file", dest)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, ioErr("failed to write upload file", dest)
	}

	logger.Debug("Spooled upload %s -> %s (%d bytes)", originalName, dest, size)
	return &SpooledFile{
		OriginalName: originalName,
		StoredName:   storedName,
		Path:         dest,
		Size:         size,
	}, nil
}

// Discard removes a spooled file after a failed upload so no partial state
// survives the request.
func (p *Pipeline) Discard(spooled *SpooledFile) {
	if spooled == nil {
		return
	}
	if err := os.Remove(spooled.Path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to discard spooled upload %s: %v", spooled.Path, err)
	}
}

// Commit validates the form fields, relocates the spooled file to its
// canonical directory if it sat in temp, and records it in the catalog. On
// validation failure the spooled file is removed and nothing is cataloged.
func (p *Pipeline) Commit(ctx context.Context, fields UploadFields, spooled *SpooledFile) (StoredFile, error) {
	kind, err := p.validate(fields)
	if err != nil {
		p.Discard(spooled)
		return StoredFile{}, err
	}

	subject := strings.TrimSpace(fields.Subject)
	unit := unitForKey(kind, fields.Unit)

	finalPath := spooled.Path
	if filepath.Dir(spooled.Path) == p.layout.TempDir() {
		dir, err := p.layout.KindDir(subject, kind, unit)
		if err != nil {
			p.Discard(spooled)
			return StoredFile{}, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			p.Discard(spooled)
			return StoredFile{}, ioErr("failed to create upload directory", dir)
		}
		finalPath = filepath.Join(dir, spooled.StoredName)
		if err := moveFile(spooled.Path, finalPath); err != nil {
			return StoredFile{}, err
		}
		logger.Debug("Moved file from temp to: %s", finalPath)
	}

	rec := StoredFile{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(fields.Title),
		Description:    strings.TrimSpace(fields.Description),
		FileName:       spooled.OriginalName,
		StoredFileName: spooled.StoredName,
		FileSize:       FormatFileSize(spooled.Size),
		UploadDate:     FormatUploadDate(time.Now()),
		Subject:        subject,
		Unit:           unit,
		Type:           ContentTypeLabel(spooled.OriginalName),
		FilePath:       finalPath,
	}

	if err := p.catalog.RecordUpload(ctx, rec, kind); err != nil {
		// The file is on disk but not persisted in the catalog; leave it
		// for the reconciler rather than deleting user data.
		return StoredFile{}, err
	}
	return rec, nil
}

func (p *Pipeline) validate(fields UploadFields) (ContentKind, error) {
	if strings.TrimSpace(fields.Title) == "" {
		return 0, validationErr("Title is required")
	}
	if strings.TrimSpace(fields.Subject) == "" {
		return 0, validationErr("Subject is required")
	}
	if strings.TrimSpace(fields.Type) == "" {
		return 0, validationErr("Type is required")
	}
	kind, err := ParseKind(fields.Type)
	if err != nil {
		return 0, err
	}
	if kind.RequiresUnit() && strings.TrimSpace(fields.Unit) == "" {
		return 0, validationErr("Unit is required for notes")
	}
	return kind, nil
}

// moveFile renames src to dest, falling back to copy+remove for
// cross-device moves.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return ioErr("failed to open file for move", src)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return ioErr("failed to create file for move", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return ioErr("failed to copy file", dest)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return ioErr("failed to finalize file", dest)
	}
	return os.Remove(src)
}
