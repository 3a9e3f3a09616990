package services

import (
	"testing"

	"taxprep-referral-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedFolder(t *testing.T, db *gorm.DB, leadID, name string, parentID *string) *models.DocumentFolder {
	t.Helper()
	folder := &models.DocumentFolder{
		ID:       uuid.NewString(),
		Name:     name,
		LeadID:   leadID,
		ParentID: parentID,
	}
	require.NoError(t, db.Create(folder).Error)
	return folder
}

func seedDocument(t *testing.T, db *gorm.DB, leadID string, folderID *string, name string) *models.Document {
	t.Helper()
	doc := &models.Document{
		ID:         uuid.NewString(),
		LeadID:     leadID,
		FolderID:   folderID,
		FileName:   name,
		StorageKey: "documents/" + leadID + "/" + name,
	}
	require.NoError(t, db.Create(doc).Error)
	return doc
}

func TestMarkFolderDeletedRemovesSubtree(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db)
	leadID := uuid.NewString()

	root := seedFolder(t, db, leadID, "2025 Return", nil)
	child := seedFolder(t, db, leadID, "W-2s", &root.ID)
	grandchild := seedFolder(t, db, leadID, "Spouse", &child.ID)
	sibling := seedFolder(t, db, leadID, "Receipts", nil)

	seedDocument(t, db, leadID, &root.ID, "cover.pdf")
	seedDocument(t, db, leadID, &child.ID, "w2-employer.pdf")
	seedDocument(t, db, leadID, &grandchild.ID, "w2-spouse.pdf")
	kept := seedDocument(t, db, leadID, &sibling.ID, "receipt.jpg")
	loose := seedDocument(t, db, leadID, nil, "notes.txt")

	require.NoError(t, svc.MarkFolderDeleted(root.ID))

	var folderCount int64
	require.NoError(t, db.Model(&models.DocumentFolder{}).Count(&folderCount).Error)
	assert.Equal(t, int64(1), folderCount)

	var remaining []models.Document
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := []string{remaining[0].ID, remaining[1].ID}
	assert.Contains(t, ids, kept.ID)
	assert.Contains(t, ids, loose.ID)
}

func TestMarkFolderDeletedIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db)
	leadID := uuid.NewString()

	root := seedFolder(t, db, leadID, "2025 Return", nil)
	seedDocument(t, db, leadID, &root.ID, "cover.pdf")

	require.NoError(t, svc.MarkFolderDeleted(root.ID))
	require.NoError(t, svc.MarkFolderDeleted(root.ID))
	require.NoError(t, svc.MarkFolderDeleted(uuid.NewString()))
}
