// Package subgraph queries the external token index that is the source of
// truth for token existence.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const tokenQuery = `query GetToken($tokenAddress: ID!) {token(id: $tokenAddress) {id}}`

// A Client talks to the subgraph GraphQL endpoint.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

// TokenExists reports whether the index knows a token with the given
// address.
func (c *Client) TokenExists(ctx context.Context, tokenAddress string) (bool, error) {
	payload := struct {
		Query     string            `json:"query"`
		Variables map[string]string `json:"variables"`
	}{
		Query:     tokenQuery,
		Variables: map[string]string{"tokenAddress": tokenAddress},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	cli := c.HTTPClient
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return false, fmt.Errorf("query subgraph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("subgraph returned status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token *struct {
				ID string `json:"id"`
			} `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return result.Data.Token != nil && result.Data.Token.ID == tokenAddress, nil
}
