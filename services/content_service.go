// services/content_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"google.golang.org/genai"
)

// ContentGenerator drafts the copy for one city landing page. The
// production implementation calls Gemini; tests plug in a stub.
type ContentGenerator interface {
	GeneratePage(ctx context.Context, city, state string) (title, metaDescription, body string, err error)
}

type ContentService struct {
	DB        *gorm.DB
	Generator ContentGenerator
}

func NewContentService(db *gorm.DB, generator ContentGenerator) *ContentService {
	return &ContentService{DB: db, Generator: generator}
}

var titleCaser = cases.Title(language.AmericanEnglish)

// SeedCities creates a pending LandingPage row per city. Existing slugs
// are skipped, so re-seeding is harmless.
func (s *ContentService) SeedCities(c *fiber.Ctx) error {
	var req struct {
		Cities []struct {
			City  string `json:"city"`
			State string `json:"state"`
		} `json:"cities"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.Cities) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cities list is required"})
	}

	created := 0
	for _, entry := range req.Cities {
		if entry.City == "" || entry.State == "" {
			continue
		}
		city := titleCaser.String(strings.ToLower(entry.City))
		state := strings.ToUpper(entry.State)
		pageSlug := slug.Make(fmt.Sprintf("tax-preparation-%s-%s", city, state))

		var count int64
		s.DB.Model(&models.LandingPage{}).Where("slug = ?", pageSlug).Count(&count)
		if count > 0 {
			continue
		}

		page := models.LandingPage{
			ID:     uuid.NewString(),
			City:   city,
			State:  state,
			Slug:   pageSlug,
			Status: models.LandingPageStatusPending,
		}
		if err := s.DB.Create(&page).Error; err != nil {
			log.Printf("DB Error seeding landing page %s: %v", pageSlug, err)
			continue
		}
		created++
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"created": created})
}

// GetLandingPages lists pages with their pipeline status.
func (s *ContentService) GetLandingPages(c *fiber.Ctx) error {
	query := s.DB.Model(&models.LandingPage{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var pages []models.LandingPage
	if err := query.Order("created_at ASC").Find(&pages).Error; err != nil {
		log.Printf("DB Error fetching landing pages: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch landing pages"})
	}
	return c.JSON(pages)
}

// GetLandingPageBySlug serves a published page to the marketing site.
func (s *ContentService) GetLandingPageBySlug(c *fiber.Ctx) error {
	var page models.LandingPage
	err := s.DB.Where("slug = ? AND status = ?", c.Params("slug"), models.LandingPageStatusPublished).
		First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(page)
}

// RetryFailedPages puts failed pages (admin action) back in the queue.
func (s *ContentService) RetryFailedPages(c *fiber.Ctx) error {
	res := s.DB.Model(&models.LandingPage{}).
		Where("status = ?", models.LandingPageStatusFailed).
		Updates(map[string]interface{}{"status": models.LandingPageStatusPending, "attempts": 0, "last_error": ""})
	if res.Error != nil {
		log.Printf("DB Error retrying failed pages: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reset pages"})
	}
	return c.JSON(fiber.Map{"requeued": res.RowsAffected})
}

// GenerateNextPending claims the oldest pending page, generates its copy
// and advances the status column. Returns false when the queue is empty.
// Called by the content worker loop.
func (s *ContentService) GenerateNextPending(ctx context.Context) (bool, error) {
	var page models.LandingPage
	err := s.DB.Where("status = ?", models.LandingPageStatusPending).
		Order("created_at ASC").First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Guarded claim: a second worker loses the race and moves on.
	res := s.DB.Model(&models.LandingPage{}).
		Where("id = ? AND status = ?", page.ID, models.LandingPageStatusPending).
		Updates(map[string]interface{}{
			"status":   models.LandingPageStatusGenerating,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return true, nil
	}

	title, meta, body, err := s.Generator.GeneratePage(ctx, page.City, page.State)
	if err != nil {
		log.Printf("[CONTENT] generation failed for %s, %s (attempt %d): %v",
			page.City, page.State, page.Attempts+1, err)
		next := models.LandingPageStatusPending
		if page.Attempts+1 >= models.MaxGenerationAttempts {
			next = models.LandingPageStatusFailed
		}
		s.DB.Model(&models.LandingPage{}).Where("id = ?", page.ID).
			Updates(map[string]interface{}{"status": next, "last_error": err.Error()})
		return true, nil
	}

	now := time.Now()
	return true, s.DB.Model(&models.LandingPage{}).Where("id = ?", page.ID).
		Updates(map[string]interface{}{
			"status":           models.LandingPageStatusPublished,
			"title":            title,
			"meta_description": meta,
			"body":             body,
			"last_error":       "",
			"published_at":     now,
		}).Error
}

// --- Gemini-backed generator ---

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	model := "gemini-1.5-flash-8b"
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) GeneratePage(ctx context.Context, city, state string) (string, string, string, error) {
	systemPrompt := "You write SEO landing pages for a tax preparation service. " +
		"Respond with three sections separated by '---': a page title (under 65 characters), " +
		"a meta description (under 160 characters), and 4-6 paragraphs of page copy. Plain text only."
	prompt := fmt.Sprintf("Write a landing page for tax preparation services in %s, %s. "+
		"Mention the city naturally and include a call to schedule an appointment.", city, state)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", "", "", err
	}

	parts := strings.SplitN(result.Text(), "---", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("unexpected generation format: %d sections", len(parts))
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}
