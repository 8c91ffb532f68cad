package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int    // Status is the HTTP status code
	Message string // Message is the server's error text
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// get performs a GET request and decodes the JSON response.
func (c *Client) get(path string, result any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", path, err)
	}

	return decodeResponse(resp, result)
}

// postJSON performs a POST request with a JSON body and decodes the response.
func (c *Client) postJSON(path string, body any, result any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body:\n%w", err)
	}

	return c.post(path, "application/json", raw, result)
}

// post sends raw with the given content type and decodes the response.
func (c *Client) post(path, contentType string, raw []byte, result any) error {
	resp, err := c.http.Post(c.baseURL+path, contentType, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("POST %s:\n%w", path, err)
	}

	return decodeResponse(resp, result)
}

// decodeResponse decodes a 200 body into result, or returns an *APIError.
func decodeResponse(resp *http.Response, result any) error {
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)

		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
