// services/document_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"mime"
	"path/filepath"

	"taxprep-referral-system/models"
	"taxprep-referral-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentService struct {
	DB *gorm.DB
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{DB: db}
}

// CreateFolder adds a folder to a lead's document tree.
func (s *DocumentService) CreateFolder(c *fiber.Ctx) error {
	var req struct {
		Name     string  `json:"name"`
		LeadID   string  `json:"lead_id"`
		ParentID *string `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" || req.LeadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and lead_id are required"})
	}

	if req.ParentID != nil {
		var parent models.DocumentFolder
		if err := s.DB.Where("id = ? AND lead_id = ?", *req.ParentID, req.LeadID).
			First(&parent).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Parent folder not found"})
		}
	}

	folder := &models.DocumentFolder{
		ID:       uuid.NewString(),
		Name:     req.Name,
		LeadID:   req.LeadID,
		ParentID: req.ParentID,
	}
	if err := s.DB.Create(folder).Error; err != nil {
		log.Printf("DB Error creating folder: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create folder"})
	}
	return c.Status(fiber.StatusCreated).JSON(folder)
}

// UploadDocument stores one multipart file for a lead.
func (s *DocumentService) UploadDocument(c *fiber.Ctx) error {
	leadID := c.FormValue("lead_id")
	if leadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lead_id is required"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	var folderID *string
	if fid := c.FormValue("folder_id"); fid != "" {
		var folder models.DocumentFolder
		if err := s.DB.Where("id = ? AND lead_id = ?", fid, leadID).First(&folder).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Folder not found"})
		}
		folderID = &fid
	}

	doc := &models.Document{
		ID:          uuid.NewString(),
		LeadID:      leadID,
		FolderID:    folderID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   fileHeader.Size,
	}

	key := fmt.Sprintf("documents/%s/%s%s", leadID, doc.ID, filepath.Ext(fileHeader.Filename))
	if utils.R2Enabled() {
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			log.Printf("R2 upload failed for lead %s: %v", leadID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Upload to storage failed"})
		}
		doc.StorageKey = key
		doc.URL = url
	} else {
		path := utils.GetUploadPath(key)
		if err := utils.SaveFile(fileHeader, path); err != nil {
			log.Printf("Local save failed for lead %s: %v", leadID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save file"})
		}
		doc.StorageKey = path
		doc.URL = "/" + path
	}

	if uid, ok := c.Locals("user_id").(string); ok {
		doc.UploadedBy = uid
	}

	if err := s.DB.Create(doc).Error; err != nil {
		log.Printf("DB Error creating document: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record document"})
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// BulkUploadDocuments expands an uploaded zip into one Document per entry.
func (s *DocumentService) BulkUploadDocuments(c *fiber.Ctx) error {
	leadID := c.FormValue("lead_id")
	if leadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lead_id is required"})
	}

	fileHeader, err := c.FormFile("archive")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "archive is required"})
	}

	tmpPath := utils.GetUploadPath(fmt.Sprintf("tmp/%s.zip", uuid.NewString()))
	if err := utils.SaveFile(fileHeader, tmpPath); err != nil {
		log.Printf("Failed to stage archive for lead %s: %v", leadID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to stage archive"})
	}

	entries, err := utils.ExtractZip(tmpPath)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid archive: " + err.Error()})
	}

	var docs []models.Document
	for _, entry := range entries {
		contentType := mime.TypeByExtension(filepath.Ext(entry.Name))
		doc := models.Document{
			ID:          uuid.NewString(),
			LeadID:      leadID,
			FileName:    entry.Name,
			ContentType: contentType,
			SizeBytes:   int64(len(entry.Data)),
		}
		key := fmt.Sprintf("documents/%s/%s%s", leadID, doc.ID, filepath.Ext(entry.Name))
		if utils.R2Enabled() {
			url, err := utils.UploadBytesToR2(entry.Data, key, contentType)
			if err != nil {
				log.Printf("R2 upload failed for %s (lead %s): %v", entry.Name, leadID, err)
				continue
			}
			doc.StorageKey = key
			doc.URL = url
		} else {
			path := utils.GetUploadPath(key)
			if err := utils.SaveBytes(entry.Data, path); err != nil {
				log.Printf("Local save failed for %s (lead %s): %v", entry.Name, leadID, err)
				continue
			}
			doc.StorageKey = path
			doc.URL = "/" + path
		}
		docs = append(docs, doc)
	}

	if len(docs) > 0 {
		if err := s.DB.Create(&docs).Error; err != nil {
			log.Printf("DB Error recording bulk documents: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record documents"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"uploaded": len(docs), "documents": docs})
}

// GetLeadDocuments lists a lead's folders and documents.
func (s *DocumentService) GetLeadDocuments(c *fiber.Ctx) error {
	leadID := c.Params("lead_id")

	var folders []models.DocumentFolder
	if err := s.DB.Where("lead_id = ?", leadID).Find(&folders).Error; err != nil {
		log.Printf("DB Error fetching folders for lead %s: %v", leadID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch folders"})
	}

	var docs []models.Document
	if err := s.DB.Where("lead_id = ?", leadID).Order("created_at DESC").Find(&docs).Error; err != nil {
		log.Printf("DB Error fetching documents for lead %s: %v", leadID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch documents"})
	}

	return c.JSON(fiber.Map{"folders": folders, "documents": docs})
}

// DeleteDocument soft-deletes a single document row; the stored object is
// kept for retention.
func (s *DocumentService) DeleteDocument(c *fiber.Ctx) error {
	res := s.DB.Delete(&models.Document{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		log.Printf("DB Error deleting document: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete document"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Document not found"})
	}
	return c.JSON(fiber.Map{"message": "Document deleted"})
}

// DeleteFolder soft-deletes a folder and everything under it.
func (s *DocumentService) DeleteFolder(c *fiber.Ctx) error {
	id := c.Params("id")

	var folder models.DocumentFolder
	if err := s.DB.First(&folder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Folder not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.MarkFolderDeleted(id); err != nil {
		log.Printf("DB Error deleting folder tree %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete folder"})
	}
	return c.JSON(fiber.Map{"message": "Folder and contents deleted"})
}

// MarkFolderDeleted soft-deletes the folder subtree rooted at folderID:
// an explicit breadth-first walk, one transaction, idempotent (already
// deleted rows are simply not found again).
func (s *DocumentService) MarkFolderDeleted(folderID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		queue := []string{folderID}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]

			var children []models.DocumentFolder
			if err := tx.Where("parent_id = ?", id).Find(&children).Error; err != nil {
				return err
			}
			for _, child := range children {
				queue = append(queue, child.ID)
			}

			if err := tx.Delete(&models.Document{}, "folder_id = ?", id).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.DocumentFolder{}, "id = ?", id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
