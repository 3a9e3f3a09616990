// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for outbound calls (CRM sync, webhooks).
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
