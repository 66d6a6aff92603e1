package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sncop/coursestore/internal/logger"
	"github.com/sncop/coursestore/internal/storage"
)

type createSubjectRequest struct {
	Name  string   `json:"name" binding:"required"`
	Units []string `json:"units"`
}

// createSubject creates (or replaces) a subject and its directory tree.
func (s *Server) createSubject(c *gin.Context) {
	var req createSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Subject name is required", err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		fail(c, http.StatusBadRequest, "Subject name is required", nil)
		return
	}
	if storage.IsReservedName(name) {
		fail(c, http.StatusBadRequest, "Subject name is reserved", nil)
		return
	}

	if _, err := s.layout.EnsureSubjectTree(name, req.Units); err != nil {
		failStore(c, "Error creating subject structure", err)
		return
	}

	subject, err := s.catalog.UpsertSubject(c.Request.Context(), name, req.Units)
	if err != nil {
		failStore(c, "Error saving subject", err)
		return
	}

	logger.Info("Created subject structure: %s", name)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subject structure created successfully",
		"subject": subject,
	})
}

type addUnitRequest struct {
	UnitName string `json:"unitName" binding:"required"`
}

// addUnit creates a unit directory under an existing subject's notes tree.
func (s *Server) addUnit(c *gin.Context) {
	subjectName := c.Param("subjectName")

	var req addUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Unit name is required", err)
		return
	}
	unitName := strings.TrimSpace(req.UnitName)
	if unitName == "" {
		fail(c, http.StatusBadRequest, "Unit name is required", nil)
		return
	}

	dir, err := s.layout.KindDir(subjectName, storage.KindNotes, unitName)
	if err != nil {
		failStore(c, "Error creating unit directory", err)
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fail(c, http.StatusInternalServerError, "Error creating unit directory", err)
		return
	}

	if err := s.catalog.AddUnit(c.Request.Context(), subjectName, unitName); err != nil {
		failStore(c, "Error saving unit", err)
		return
	}

	logger.Info("Added unit %q to subject %q", unitName, subjectName)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Unit added successfully",
	})
}

// deleteSubject removes a subject's directory tree and every catalog entry
// that referenced it.
func (s *Server) deleteSubject(c *gin.Context) {
	subjectName := c.Param("subjectName")

	if storage.IsReservedName(subjectName) {
		fail(c, http.StatusBadRequest, "Cannot delete reserved directory", nil)
		return
	}

	dir := s.layout.SubjectDir(subjectName)
	if err := os.RemoveAll(dir); err != nil {
		fail(c, http.StatusInternalServerError, "Error deleting subject directory", err)
		return
	}

	if err := s.catalog.RemoveSubject(c.Request.Context(), subjectName); err != nil {
		failStore(c, "Error removing subject from catalog", err)
		return
	}

	logger.Info("Deleted subject: %s", subjectName)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subject deleted successfully",
	})
}
