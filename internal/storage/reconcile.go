package storage

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/sncop/coursestore/internal/logger"
)

// Reconcile repairs drift between the metadata side-table and the backup
// document. It runs once at startup, before the service accepts traffic:
//
//  1. Every backup record whose side-table key is missing gets a
//     regenerated entry from the record's own fields. This recovers
//     metadata recorded in the backup but lost before the side-table was
//     flushed.
//  2. If the subject list is empty while any content array is not, the
//     subjects are reconstructed from the distinct subject values across
//     all four arrays (reserved names excluded), with note units collected
//     per subject.
//
// If anything was repaired, both structures are persisted immediately.
func (c *Catalog) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	repaired := c.regenerateMetadataLocked()

	if len(c.backup.Subjects) == 0 && c.hasContentLocked() {
		c.rebuildSubjectsLocked()
		if len(c.backup.Subjects) > 0 {
			logger.Info("Reconstructed %d subjects from backup data", len(c.backup.Subjects))
			repaired = true
		}
	}

	if !repaired {
		return nil
	}
	return c.save(ctx)
}

func (c *Catalog) regenerateMetadataLocked() bool {
	repaired := false
	for _, kind := range Kinds {
		for _, rec := range *c.backup.kindArray(kind) {
			key := MetadataKey(rec.Subject, kind, unitForKey(kind, rec.Unit), rec.StoredFileName)
			if _, ok := c.files[key]; ok {
				continue
			}
			c.files[key] = FileMeta{
				Title:            rec.Title,
				Description:      rec.Description,
				OriginalFileName: rec.FileName,
			}
			repaired = true
		}
	}
	return repaired
}

func (c *Catalog) hasContentLocked() bool {
	for _, kind := range Kinds {
		if len(*c.backup.kindArray(kind)) > 0 {
			return true
		}
	}
	return false
}

func (c *Catalog) rebuildSubjectsLocked() {
	var names []string
	seen := map[string]bool{}
	for _, kind := range Kinds {
		for _, rec := range *c.backup.kindArray(kind) {
			if rec.Subject == "" || seen[rec.Subject] {
				continue
			}
			seen[rec.Subject] = true
			names = append(names, rec.Subject)
		}
	}

	for _, name := range names {
		if IsReservedName(name) {
			continue
		}
		var units []string
		for _, note := range c.backup.Notes {
			if note.Subject == name && note.Unit != "" && !slices.Contains(units, note.Unit) {
				units = append(units, note.Unit)
			}
		}
		if units == nil {
			units = []string{}
		}
		c.backup.Subjects = append(c.backup.Subjects, Subject{
			ID:    uuid.NewString(),
			Name:  name,
			Units: units,
		})
	}
}
