// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// defaultHTTPClient is used by commands that query a running bot.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// botClient provides HTTP access to a running bot's status API.
type botClient struct {
	baseURL string
	http    *http.Client
}

func newBotClient(addr string) *botClient {
	return &botClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
// A refused connection yields CodeCLIGatewayNotRunning.
func (c *botClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return scribeerr.New(scribeerr.CodeCLIGatewayNotRunning, "bot is not running (connection refused)")
		}
		return scribeerr.Wrap(err, scribeerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return scribeerr.Errorf(scribeerr.CodeCLIRequestFailure, "bot returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeCLIResponseInvalid, "invalid response")
	}
	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
