package netclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tankarena/protocol"
)

// FetchSession GET 会话地址拿到 userID；必须在 Dial 之前完成
func FetchSession(ctx context.Context, client *http.Client, sessionURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sessionURL, nil)
	if err != nil {
		return "", fmt.Errorf("session request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session request: unexpected status %s", resp.Status)
	}
	var s protocol.Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	if s.UserID == "" {
		return "", fmt.Errorf("decode session: empty userID")
	}
	return s.UserID, nil
}
