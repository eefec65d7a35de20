package main

import (
	"chat-relay/domain/chat"
	"chat-relay/infrastructure/httpapi"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client reads the inspection API of a running relay.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Stats() (httpapi.StatsResponse, error) {
	var stats httpapi.StatsResponse
	return stats, c.get("/api/stats", &stats)
}

func (c *Client) Users() ([]httpapi.User, error) {
	var users []httpapi.User
	return users, c.get("/api/users", &users)
}

func (c *Client) Messages(roomID string) ([]chat.Message, error) {
	var messages []chat.Message
	return messages, c.get("/api/messages?roomId="+url.QueryEscape(roomID), &messages)
}

func (c *Client) get(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("relay unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
