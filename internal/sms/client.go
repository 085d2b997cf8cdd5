// Package sms is the outbound messaging gateway client. The gateway
// exposes an HTTP API with basic auth and a form-encoded body per
// message; there is no batch endpoint, so callers send one request per
// recipient. A send is a single attempt with no retry or backoff.
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client posts messages to the gateway's Messages endpoint.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	http       *http.Client
}

// NewClient builds a gateway client. from is the sender number all
// alerts are dispatched from.
func NewClient(baseURL, accountSID, authToken, from string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Send delivers one message to a single recipient in international
// format. A non-2xx status is an error; the response body is included
// for the logs.
func (c *Client) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("From", c.from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
