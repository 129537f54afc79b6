// Package api talks to the remote game server. Every call is a GET against
// the tier the game id routes to; authentication travels in the query.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/tier"
)

const (
	nextTurnPath     = "GetNextTurn3"
	processInputPath = "ProcessInput2"
	popupPath        = "GetPopupAPI"
	chatPath         = "SubmitChat"
	gameListPath     = "APIs/GetGameList"
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Code     int
	Endpoint string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Code)
}

type Client struct {
	http   *http.Client
	router tier.Router
	ext    string
	log    *zap.Logger
}

// New builds a client. Tier base URLs are expected to end with a slash.
func New(router tier.Router, ext string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:   httpClient,
		router: router,
		ext:    ext,
		log:    log.Named("api"),
	}
}

func (c *Client) endpoint(base, path string) string {
	return base + path + "." + c.ext
}

func identityParams(id engine.Identity) url.Values {
	q := url.Values{}
	q.Set("gameName", strconv.Itoa(id.GameID))
	q.Set("playerID", strconv.Itoa(id.PlayerID))
	q.Set("authKey", id.AuthKey)
	return q
}

func (c *Client) get(ctx context.Context, name, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", name, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Endpoint: name}
	}
	return body, nil
}

// NextTurn asks for whatever changed after id.LastUpdate. The body is
// returned untouched; see package wire for its format.
func (c *Client) NextTurn(ctx context.Context, id engine.Identity) ([]byte, error) {
	q := identityParams(id)
	q.Set("lastUpdate", strconv.FormatInt(id.LastUpdate, 10))
	u := c.endpoint(c.router.BaseURL(id.GameID), nextTurnPath) + "?" + q.Encode()
	return c.get(ctx, nextTurnPath, u)
}

// ProcessInput submits one player action. params are added to the identity
// parameters and extra is appended verbatim after them. The response body
// carries no state and is discarded.
func (c *Client) ProcessInput(ctx context.Context, id engine.Identity, params url.Values, extra string) error {
	q := identityParams(id)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u := c.endpoint(c.router.BaseURL(id.GameID), processInputPath) + "?" + q.Encode() + extra
	_, err := c.get(ctx, processInputPath, u)
	return err
}

func (c *Client) PopupContent(ctx context.Context, id engine.Identity, popupType string, index int) ([]byte, error) {
	q := identityParams(id)
	q.Set("popupType", popupType)
	q.Set("index", strconv.Itoa(index))
	u := c.endpoint(c.router.BaseURL(id.GameID), popupPath) + "?" + q.Encode()
	return c.get(ctx, popupPath, u)
}

func (c *Client) SubmitChat(ctx context.Context, id engine.Identity, text string) error {
	q := identityParams(id)
	q.Set("chatText", text)
	u := c.endpoint(c.router.BaseURL(id.GameID), chatPath) + "?" + q.Encode()
	_, err := c.get(ctx, chatPath, u)
	return err
}

// GameList is only served by the live tier.
func (c *Client) GameList(ctx context.Context) ([]byte, error) {
	return c.get(ctx, gameListPath, c.endpoint(c.router.LiveURL, gameListPath))
}
