package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "http://127.0.0.1:23119"
	defaultTimeout = 30 * time.Second

	caywPath    = "/better-bibtex/cayw?selected=1&format=translate&translator=csljson"
	jsonRPCPath = "/better-bibtex/json-rpc"
)

// Author is one CSL-JSON creator. Institutions only carry Literal.
type Author struct {
	Literal string
	Given   string
	Family  string
}

func (a Author) String() string {
	if a.Literal != "" {
		return a.Literal
	}
	return strings.TrimSpace(a.Given + " " + a.Family)
}

// Item is the part of a CSL-JSON item the converter needs.
type Item struct {
	ID      string
	Key     string
	Type    string
	Title   string
	Authors []Author
}

// Client talks to the Better BibTeX plugin of a running Zotero.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// SelectedItems returns the items currently selected in the Zotero window.
func (c *Client) SelectedItems(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+caywPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch selected items: %w", err)
	}
	return parseItems(body)
}

func parseItems(body []byte) ([]Item, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid CSL-JSON response")
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("expected CSL-JSON array, got %s", parsed.Type)
	}

	var items []Item
	for _, raw := range parsed.Array() {
		item := Item{
			ID:    raw.Get("id").String(),
			Key:   raw.Get("item-key").String(),
			Type:  raw.Get("type").String(),
			Title: raw.Get("title").String(),
		}
		for _, a := range raw.Get("author").Array() {
			item.Authors = append(item.Authors, Author{
				Literal: a.Get("literal").String(),
				Given:   a.Get("given").String(),
				Family:  a.Get("family").String(),
			})
		}
		items = append(items, item)
	}
	return items, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// ItemNotes returns the HTML of every child note of the item.
func (c *Client) ItemNotes(ctx context.Context, itemID string) ([]string, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "item.notes",
		Params:  []any{[]string{itemID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+jsonRPCPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes of %s: %w", itemID, err)
	}

	if rpcErr := gjson.GetBytes(body, "error.message"); rpcErr.Exists() {
		return nil, fmt.Errorf("item.notes %s: %s", itemID, rpcErr.String())
	}
	// Item ids are citation keys or URIs, index the map instead of building
	// an escaped gjson path.
	result := gjson.GetBytes(body, "result").Map()
	var notes []string
	for _, note := range result[itemID].Array() {
		notes = append(notes, note.String())
	}
	return notes, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
