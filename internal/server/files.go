package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sncop/coursestore/internal/logger"
	"github.com/sncop/coursestore/internal/storage"
)

// uploadResponse is the upload payload: the stored record with the content
// kind in `type` and the pdf/image label split out as `fileType`.
type uploadResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	FileName       string `json:"fileName"`
	StoredFileName string `json:"storedFileName"`
	FileSize       string `json:"fileSize"`
	UploadDate     string `json:"uploadDate"`
	Subject        string `json:"subject"`
	Unit           string `json:"unit"`
	Type           string `json:"type"`
	FilePath       string `json:"filePath"`
	FileType       string `json:"fileType"`
}

// upload handles multipart uploads. The x-subject/x-type/x-unit headers pick
// the spool destination before the body is parsed; the form fields are
// authoritative for validation and cataloging.
func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to read uploaded file", err)
		return
	}
	defer src.Close()

	spooled, err := s.pipeline.Spool(
		c.GetHeader("x-subject"),
		c.GetHeader("x-type"),
		c.GetHeader("x-unit"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		src,
	)
	if err != nil {
		failStore(c, "Failed to upload file", err)
		return
	}

	fields := storage.UploadFields{
		Title:       c.PostForm("title"),
		Subject:     c.PostForm("subject"),
		Type:        c.PostForm("type"),
		Unit:        c.PostForm("unit"),
		Description: c.PostForm("description"),
	}

	rec, err := s.pipeline.Commit(c.Request.Context(), fields, spooled)
	if err != nil {
		failStore(c, firstValidationMessage(err), err)
		return
	}

	logger.Info("File uploaded successfully: %s (%s)", rec.FileName, rec.StoredFileName)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File uploaded successfully",
		"file": uploadResponse{
			ID:             rec.ID,
			Title:          rec.Title,
			Description:    rec.Description,
			FileName:       rec.FileName,
			StoredFileName: rec.StoredFileName,
			FileSize:       rec.FileSize,
			UploadDate:     rec.UploadDate,
			Subject:        rec.Subject,
			Unit:           rec.Unit,
			Type:           strings.TrimSpace(fields.Type),
			FilePath:       rec.FilePath,
			FileType:       rec.Type,
		},
	})
}

// firstValidationMessage surfaces validation text directly; everything else
// gets the generic upload failure message.
func firstValidationMessage(err error) string {
	var se *storage.StoreError
	if errors.As(err, &se) {
		switch se.Code {
		case storage.CodeValidation, storage.CodeMissingUnit, storage.CodeInvalidKind:
			return se.Message
		}
	}
	return "Failed to upload file"
}

// listFiles handles the two-segment listing: GET /api/files/:subject/:type.
func (s *Server) listFiles(c *gin.Context) {
	s.list(c, c.Param("subject"), c.Param("type"), "")
}

// listOrServeFile handles the three-segment GET. For notes the third segment
// is a unit to list; for every other kind it is a filename to serve.
func (s *Server) listOrServeFile(c *gin.Context) {
	subject := c.Param("subject")
	typ := c.Param("type")
	third := c.Param("unit")

	kind, err := storage.ParseKind(typ)
	if err != nil {
		failStore(c, "Unknown content type", err)
		return
	}

	if kind.RequiresUnit() {
		s.list(c, subject, typ, third)
		return
	}
	s.serve(c, subject, kind, "", third)
}

// serveFile handles the four-segment GET (notes with unit).
func (s *Server) serveFile(c *gin.Context) {
	kind, err := storage.ParseKind(c.Param("type"))
	if err != nil {
		failStore(c, "Unknown content type", err)
		return
	}
	s.serve(c, c.Param("subject"), kind, c.Param("unit"), c.Param("filename"))
}

func (s *Server) list(c *gin.Context, subject, typ, unit string) {
	kind, err := storage.ParseKind(typ)
	if err != nil {
		failStore(c, "Unknown content type", err)
		return
	}

	files, err := s.catalog.ListDirectory(subject, kind, unit)
	if err != nil {
		failStore(c, "Failed to list files", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   files,
	})
}

func (s *Server) serve(c *gin.Context, subject string, kind storage.ContentKind, unit, filename string) {
	path, err := s.layout.ResolveReadPath(subject, kind, unit, filename)
	if err != nil {
		failStore(c, "File not found", err)
		return
	}

	c.Header("Content-Type", contentTypeFor(filename))
	c.File(path)
}

// contentTypeFor picks the response Content-Type from the file extension.
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg":
		return "image/jpg"
	case ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// deleteFileFlat handles the three-segment DELETE, where the :unit param
// actually carries the filename.
func (s *Server) deleteFileFlat(c *gin.Context) {
	s.deleteFile(c, c.Param("subject"), c.Param("type"), "", c.Param("unit"))
}

// deleteFileNested handles the four-segment DELETE (notes with unit).
func (s *Server) deleteFileNested(c *gin.Context) {
	s.deleteFile(c, c.Param("subject"), c.Param("type"), c.Param("unit"), c.Param("filename"))
}

func (s *Server) deleteFile(c *gin.Context, subject, typ, unit, filename string) {
	kind, err := storage.ParseKind(typ)
	if err != nil {
		failStore(c, "Unknown content type", err)
		return
	}

	path, err := s.layout.ResolveReadPath(subject, kind, unit, filename)
	if err != nil {
		failStore(c, "File not found", err)
		return
	}

	if err := os.Remove(path); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to delete file", err)
		return
	}

	if err := s.catalog.RemoveFile(c.Request.Context(), subject, kind, unit, filename); err != nil {
		failStore(c, "Failed to update catalog", err)
		return
	}

	logger.Info("Deleted file: %s", path)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File deleted successfully",
	})
}

type verifyFilesRequest struct {
	Files []verifyFileEntry `json:"files"`
}

type verifyFileEntry struct {
	ID             string `json:"id"`
	Subject        string `json:"subject"`
	Type           string `json:"type"`
	Unit           string `json:"unit"`
	StoredFileName string `json:"storedFileName"`
}

type verifiedFile struct {
	ID       string `json:"id"`
	Exists   bool   `json:"exists"`
	FilePath string `json:"filePath"`
}

// verifyFiles reports, for each referenced record, whether its file exists
// on disk at the canonical path.
func (s *Server) verifyFiles(c *gin.Context) {
	var req verifyFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Files == nil {
		fail(c, http.StatusBadRequest, "Files array is required", err)
		return
	}

	verified := make([]verifiedFile, 0, len(req.Files))
	for _, f := range req.Files {
		kind, err := storage.ParseKind(f.Type)
		if err != nil {
			verified = append(verified, verifiedFile{ID: f.ID, Exists: false, FilePath: "unknown"})
			continue
		}

		dir, err := s.layout.KindDir(f.Subject, kind, f.Unit)
		if err != nil {
			verified = append(verified, verifiedFile{ID: f.ID, Exists: false, FilePath: "unknown"})
			continue
		}

		path := filepath.Join(dir, f.StoredFileName)
		_, statErr := os.Stat(path)
		if statErr != nil {
			logger.Debug("File not found on server: %s", path)
		}
		verified = append(verified, verifiedFile{
			ID:       f.ID,
			Exists:   statErr == nil,
			FilePath: path,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"verifiedFiles": verified,
	})
}

// storageSync dumps the disk structure (with catalog titles merged in) plus
// the raw backup document, for one subject or all of them.
func (s *Server) storageSync(c *gin.Context) {
	subject := c.Param("subject")

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"storageStructure": s.catalog.StorageSync(subject),
		"backupData":       s.catalog.Backup(),
	})
}

// assignments returns the catalog's assignment records.
func (s *Server) assignments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.catalog.Assignments(),
	})
}

// health reports liveness and the storage root.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Server is running",
		"storage":   s.layout.Root(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
