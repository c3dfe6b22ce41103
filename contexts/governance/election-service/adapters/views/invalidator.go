package views

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	application "agora/contexts/governance/election-service/application"

	json "github.com/goccy/go-json"
)

// WebhookInvalidator asks the rendering layer to rebuild stale pages by
// posting the paths to its revalidation endpoint.
type WebhookInvalidator struct {
	URL    string
	Token  string
	Client *http.Client
	Logger *slog.Logger
}

func (w WebhookInvalidator) Revalidate(ctx context.Context, paths ...string) error {
	logger := application.ResolveLogger(w.Logger)
	if strings.TrimSpace(w.URL) == "" {
		logger.Debug("view revalidation skipped",
			"event", "election_view_revalidation_skipped",
			"module", application.ModuleName,
			"layer", "adapter",
			"paths", paths,
		)
		return nil
	}
	body, err := json.Marshal(map[string]any{"paths": paths})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.Token)
	}
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revalidation endpoint returned %d", resp.StatusCode)
	}
	logger.Debug("views revalidated",
		"event", "election_view_revalidated",
		"module", application.ModuleName,
		"layer", "adapter",
		"paths", len(paths),
	)
	return nil
}
