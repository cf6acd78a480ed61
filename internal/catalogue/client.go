package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.zotero.org"
	apiVersion     = "3"
	pageSize       = 100
)

// RawTag is one tag object as the catalogue API returns it.
type RawTag struct {
	Tag string `json:"tag"`
}

// ItemData is the data envelope of one catalogue record.
type ItemData struct {
	Key              string   `json:"key"`
	ItemType         string   `json:"itemType"`
	Title            string   `json:"title"`
	Date             string   `json:"date"`
	PublicationTitle string   `json:"publicationTitle"`
	Filename         string   `json:"filename"`
	ContentType      string   `json:"contentType"`
	ParentItem       string   `json:"parentItem"`
	Tags             []RawTag `json:"tags"`
}

// Item is one record as returned by the catalogue API, with the metadata
// envelope the server wraps around the data.
type Item struct {
	Key  string   `json:"key"`
	Data ItemData `json:"data"`
	Meta struct {
		NumChildren int `json:"numChildren"`
	} `json:"meta"`
}

// Client talks to the Zotero Web API for one group library. All corpus
// acquisition happens through it, before the analysis engine ever runs.
type Client struct {
	baseURL     string
	groupID     string
	libraryType string
	apiKey      string
	http        *http.Client
}

// NewClient builds a client for the given group library.
func NewClient(groupID, libraryType, apiKey string) *Client {
	if libraryType == "" {
		libraryType = "groups"
	}
	return &Client{
		baseURL:     defaultBaseURL,
		groupID:     groupID,
		libraryType: libraryType,
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Items fetches every item in the library, following the API's offset
// pagination until an empty batch comes back.
func (c *Client) Items(ctx context.Context) ([]Item, error) {
	var all []Item
	for start := 0; ; start += pageSize {
		batch, err := c.fetchPage(ctx, "/items", start)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
	}
	return all, nil
}

// Children fetches the sub-records (attachments, notes) of one item.
func (c *Client) Children(ctx context.Context, itemKey string) ([]Item, error) {
	return c.get(ctx, fmt.Sprintf("/items/%s/children", url.PathEscape(itemKey)), nil)
}

func (c *Client) fetchPage(ctx context.Context, path string, start int) ([]Item, error) {
	params := url.Values{}
	params.Set("start", strconv.Itoa(start))
	params.Set("limit", strconv.Itoa(pageSize))
	return c.get(ctx, path, params)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]Item, error) {
	endpoint := fmt.Sprintf("%s/%s/%s%s", c.baseURL, c.libraryType, url.PathEscape(c.groupID), path)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Zotero-API-Version", apiVersion)
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalogue request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalogue request %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalogue response %s: %w", path, err)
	}
	return items, nil
}
