package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"taxprep-referral-system/models"
	"taxprep-referral-system/utils"

	"gorm.io/gorm"
)

// CRMSyncClient pushes lead changes to the external CRM service.
type CRMSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewCRMSyncClient(db *gorm.DB) *CRMSyncClient {
	baseURL := os.Getenv("CRM_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("CRM_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("REFERRAL_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("REFERRAL_SERVICE_TOKEN environment variable is required for CRM sync")
	}

	return &CRMSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// PushLeads sends a batch of leads to the CRM contacts endpoint.
func (c *CRMSyncClient) PushLeads(ctx context.Context, leads []models.Lead) error {
	payload, err := json.Marshal(map[string]interface{}{"contacts": leads})
	if err != nil {
		return fmt.Errorf("failed to marshal leads: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/contacts/sync", c.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call CRM service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("CRM service returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PollLeads ships new and changed leads every interval. One failed batch
// just waits for the next tick; nothing is marked synced until the CRM
// accepts it.
func PollLeads(ctx context.Context, client *CRMSyncClient, pollInterval time.Duration) {
	log.Println("Starting CRM lead sync...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("CRM lead sync stopped.")
			return
		case <-ticker.C:
			var leads []models.Lead
			err := client.DB.
				Where("crm_synced_at IS NULL OR updated_at > crm_synced_at").
				Limit(100).
				Find(&leads).Error
			if err != nil {
				log.Printf("[CRM_SYNC] DB error: %v", err)
				continue
			}
			if len(leads) == 0 {
				continue
			}

			if err := client.PushLeads(ctx, leads); err != nil {
				log.Printf("[CRM_SYNC] push failed, will retry: %v", err)
				continue
			}

			now := time.Now()
			ids := make([]string, len(leads))
			for i, lead := range leads {
				ids[i] = lead.ID
			}
			if err := client.DB.Model(&models.Lead{}).
				Where("id IN ?", ids).
				Update("crm_synced_at", now).Error; err != nil {
				log.Printf("[CRM_SYNC] failed to stamp synced leads: %v", err)
				continue
			}
			log.Printf("[CRM_SYNC] synced %d lead(s)", len(leads))
		}
	}
}
