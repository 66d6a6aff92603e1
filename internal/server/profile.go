package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sncop/coursestore/internal/logger"
)

const maxProfilePictureBytes = 5 * 1024 * 1024

var profileImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ProfileStore keeps user profile pictures in a flat directory outside the
// subject tree. One picture per user: uploading a new one removes the old.
type ProfileStore struct {
	dir string
}

// NewProfileStore creates the profile picture directory if needed.
func NewProfileStore(dir string) (*ProfileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile pictures dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile pictures dir: %w", err)
	}
	return &ProfileStore{dir: abs}, nil
}

// Dir returns the store's directory.
func (p *ProfileStore) Dir() string {
	return p.dir
}

// Save writes a new picture as profile_<userID>_<ms>.<ext> and removes any
// previous pictures belonging to the same user.
func (p *ProfileStore) Save(userID, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := profileImageExtensions[ext]; !ok {
		return "", fmt.Errorf("only image files (JPEG, PNG, GIF, WebP) are allowed")
	}

	filename := fmt.Sprintf("profile_%s_%d%s", userID, time.Now().UnixMilli(), ext)
	dest := filepath.Join(p.dir, filename)

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create profile picture: %w", err)
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write profile picture: %w", err)
	}

	p.removeOthers(userID, filename)
	return filename, nil
}

// Path returns the on-disk path for a stored picture, or an error if it does
// not exist.
func (p *ProfileStore) Path(filename string) (string, error) {
	path := filepath.Join(p.dir, filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes every picture belonging to userID. Returns how many files
// were removed.
func (p *ProfileStore) Remove(userID string) int {
	return p.removeOthers(userID, "")
}

func (p *ProfileStore) removeOthers(userID, keep string) int {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		logger.Warn("Failed to read profile pictures dir: %v", err)
		return 0
	}

	prefix := fmt.Sprintf("profile_%s_", userID)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || name == keep {
			continue
		}
		if err := os.Remove(filepath.Join(p.dir, name)); err != nil {
			logger.Warn("Failed to remove old profile picture %s: %v", name, err)
			continue
		}
		logger.Debug("Deleted old profile picture: %s", name)
		removed++
	}
	return removed
}

// uploadProfilePicture stores a new profile picture for the posted userId.
func (s *Server) uploadProfilePicture(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProfilePictureBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}

	userID := strings.TrimSpace(c.PostForm("userId"))
	if userID == "" {
		fail(c, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to read uploaded file", err)
		return
	}
	defer src.Close()

	filename, err := s.profiles.Save(userID, fileHeader.Filename, src)
	if err != nil {
		fail(c, http.StatusBadRequest, "Failed to upload profile picture", err)
		return
	}

	logger.Info("Profile picture uploaded: %s", filename)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Profile picture uploaded successfully",
		"avatarUrl": "/api/profile-pictures/" + filename,
		"filename":  filename,
	})
}

// serveProfilePicture serves a stored picture with long-lived cache headers.
func (s *Server) serveProfilePicture(c *gin.Context) {
	filename := c.Param("filename")

	path, err := s.profiles.Path(filename)
	if err != nil {
		fail(c, http.StatusNotFound, "Profile picture not found", nil)
		return
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := profileImageExtensions[ext]
	if !ok {
		contentType = "image/jpeg"
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000")
	c.File(path)
}

type removeProfilePictureRequest struct {
	UserID string `json:"userId"`
}

// removeProfilePicture deletes all pictures for a user.
func (s *Server) removeProfilePicture(c *gin.Context) {
	var req removeProfilePictureRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		fail(c, http.StatusBadRequest, "User ID is required", err)
		return
	}

	removed := s.profiles.Remove(strings.TrimSpace(req.UserID))
	logger.Info("Removed %d profile picture(s) for user %s", removed, req.UserID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile picture removed successfully",
	})
}
