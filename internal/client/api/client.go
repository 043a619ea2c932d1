package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// ErrServerUnavailable is returned when the server reports the slot store
// as unavailable.
var ErrServerUnavailable = errors.New("server_unavailable")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client. token may be empty for anonymous use.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HealthCheck checks if the server is reachable
func (c *Client) HealthCheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}

// Occupancy returns occupied / total for every category.
func (c *Client) Occupancy() ([]models.Occupancy, error) {
	var result models.OccupancyResponse
	if err := c.getJSON("/api/occupancy", &result); err != nil {
		return nil, err
	}
	return result.Categories, nil
}

// Grid returns every slot of a category with its display state.
func (c *Client) Grid(category models.Category) ([]models.SlotView, error) {
	var result models.SlotGridResponse
	if err := c.getJSON("/api/slots?category="+url.QueryEscape(string(category)), &result); err != nil {
		return nil, err
	}
	return result.Slots, nil
}

// Slot returns the detail view of one slot.
func (c *Client) Slot(slotID string) (*models.SlotDetail, error) {
	var result models.SlotDetail
	if err := c.getJSON("/api/slots/"+url.PathEscape(slotID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logs returns the deduplicated log, newest first. An empty slotID lists
// every slot.
func (c *Client) Logs(slotID string) ([]models.LogRecord, error) {
	path := "/api/logs"
	if slotID != "" {
		path += "?slot=" + url.QueryEscape(slotID)
	}
	var result models.LogsResponse
	if err := c.getJSON(path, &result); err != nil {
		return nil, err
	}
	return result.Logs, nil
}

// Assign parks a vehicle in a slot. A rejected assignment is returned as a
// response with Committed false, not as an error.
func (c *Client) Assign(slotID string, req models.AssignRequest) (*models.TransitionResponse, error) {
	return c.transition(http.MethodPost, "/api/slots/"+url.PathEscape(slotID)+"/assign", req)
}

// Release frees a slot.
func (c *Client) Release(slotID string) (*models.TransitionResponse, error) {
	return c.transition(http.MethodPost, "/api/slots/"+url.PathEscape(slotID)+"/release", nil)
}

// Scan sends a scanned slot code with a park or leave action.
func (c *Client) Scan(req models.ScanRequest) (*models.TransitionResponse, error) {
	return c.transition(http.MethodPost, "/api/scan", req)
}

func (c *Client) newRequest(method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) getJSON(path string, out interface{}) error {
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) transition(method, path string, body interface{}) (*models.TransitionResponse, error) {
	req, err := c.newRequest(method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusConflict:
	case http.StatusUnprocessableEntity:
		// Engine rejections carry a reason; request validation failures do not.
		data, _ := io.ReadAll(resp.Body)
		var result models.TransitionResponse
		if err := json.Unmarshal(data, &result); err == nil && result.Reason != "" {
			return &result, nil
		}
		return nil, errorFromBody(resp.StatusCode, data)
	case http.StatusServiceUnavailable:
		return nil, ErrServerUnavailable
	default:
		return nil, responseError(resp)
	}

	var result models.TransitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	return errorFromBody(resp.StatusCode, data)
}

func errorFromBody(status int, data []byte) error {
	var errResp models.ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("server returned %d: %s", status, errResp.Message)
	}
	return fmt.Errorf("server returned %d: %s", status, string(data))
}
