package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Deepesh976/ro-iot/internal/models"
)

var timeNow = time.Now

type apiClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// do issues a request against the api server and decodes the response into
// out. Error bodies from the server are surfaced with their message intact.
func (c *apiClient) do(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode >= http.StatusBadRequest {
		var apiError models.BaseError
		if err := json.Unmarshal(data, &apiError); err == nil && apiError.Error != "" {
			return fmt.Errorf("%s (status %d)", apiError.Error, res.StatusCode)
		}
		return fmt.Errorf("request failed with status %d: %s", res.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *apiClient) Get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *apiClient) Post(path string, in, out interface{}) error {
	return c.do(http.MethodPost, path, in, out)
}

func (c *apiClient) Patch(path string, in, out interface{}) error {
	return c.do(http.MethodPatch, path, in, out)
}

func (c *apiClient) Delete(path string, out interface{}) error {
	return c.do(http.MethodDelete, path, nil, out)
}
