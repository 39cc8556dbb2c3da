package relayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// historyPath maps the caller's role to the endpoint of that conversation:
// as santa the caller talks to their giftee and vice versa.
func historyPath(role string) (string, error) {
	switch role {
	case RoleSanta:
		return "giftee", nil
	case RoleGiftee:
		return "santa", nil
	default:
		return "", fmt.Errorf("relayclient: role must be %q or %q", RoleSanta, RoleGiftee)
	}
}

type historyResponse struct {
	Messages []Message `json:"messages"`
}

type errorResponse struct {
	Error *ServerError `json:"error"`
}

// History loads the stored conversation the caller takes part in as role.
func (c *Client) History(ctx context.Context, role string) ([]Message, error) {
	p, err := historyPath(role)
	if err != nil {
		return nil, err
	}
	url := c.opts.BaseURL + "/raffles/" + c.opts.RaffleID.String() + "/chat/" + p
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header = c.authHeader()
	req.Header.Set("Accept", "application/json")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != nil {
			return nil, e.Error
		}
		return nil, fmt.Errorf("relayclient: history: status %d", resp.StatusCode)
	}
	var out historyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("relayclient: history: %w", err)
	}
	return out.Messages, nil
}
