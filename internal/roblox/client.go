// Package roblox resolves Roblox usernames for account linking.
package roblox

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://users.roblox.com"

type Client struct {
	client *resty.Client
}

func NewClient() *Client {
	return &Client{client: resty.New().SetBaseURL(defaultBaseURL)}
}

// NewClientWithBaseURL exists for tests against a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{client: resty.New().SetBaseURL(baseURL)}
}

type Account struct {
	ID       int64
	Username string
}

// ResolveUsername looks up the Roblox account behind a username. Returns
// nil when the username does not exist.
func (c *Client) ResolveUsername(ctx context.Context, username string) (*Account, error) {
	type usersRequest struct {
		Usernames          []string `json:"usernames"`
		ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
	}
	type usersResponse struct {
		Data []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(usersRequest{Usernames: []string{username}, ExcludeBannedUsers: true}).
		SetResult(&usersResponse{}).
		Post("/v1/usernames/users")
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode(), string(resp.Body()))
	}

	result := resp.Result().(*usersResponse)
	if len(result.Data) == 0 {
		return nil, nil
	}

	return &Account{ID: result.Data[0].ID, Username: result.Data[0].Name}, nil
}
