package workers

import (
	"context"
	"log"
	"time"

	"taxprep-referral-system/services"
)

// RunContentPipeline drains the landing-page generation queue: each tick
// it claims and generates pending pages until the queue is empty, then
// waits for the next tick. Generation errors are bookkept on the row by
// the service; the loop itself only stops on ctx cancel.
func RunContentPipeline(ctx context.Context, content *services.ContentService, pollInterval time.Duration) {
	log.Println("Starting landing-page content pipeline...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Content pipeline stopped.")
			return
		case <-ticker.C:
			for {
				more, err := content.GenerateNextPending(ctx)
				if err != nil {
					log.Printf("[CONTENT] pipeline error: %v", err)
					break
				}
				if !more {
					break
				}
				// Space out upstream API calls.
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}
