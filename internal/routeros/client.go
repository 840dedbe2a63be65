package routeros

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

// ErrUnreachable covers transport failures talking to a router. The
// caller decides whether to retry now or leave it to the reconciler.
var ErrUnreachable = errors.New("router unreachable")

// Client speaks the RouterOS v7 REST API of one hotspot router. Allow
// rules are hotspot users keyed by session token, so pushing the same
// grant twice is a no-op.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

func NewClient(address string, apiPort int, username, password string) *Client {
	return &Client{
		baseURL:  fmt.Sprintf("http://%s:%d/rest", address, apiPort),
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type hotspotUser struct {
	ID          string `json:".id,omitempty"`
	Name        string `json:"name"`
	LimitUptime string `json:"limit-uptime,omitempty"`
	RateLimit   string `json:"rate-limit,omitempty"`
	MACAddress  string `json:"mac-address,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

type hotspotActive struct {
	ID         string `json:".id"`
	User       string `json:"user"`
	Address    string `json:"address"`
	MACAddress string `json:"mac-address"`
	Uptime     string `json:"uptime"`
	BytesIn    string `json:"bytes-in"`
	BytesOut   string `json:"bytes-out"`
}

type systemResource struct {
	Uptime      string `json:"uptime"`
	CPULoad     string `json:"cpu-load"`
	FreeMemory  string `json:"free-memory"`
	TotalMemory string `json:"total-memory"`
	BoardName   string `json:"board-name"`
	Version     string `json:"version"`
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("router returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode router response: %w", err)
		}
	}
	return nil
}

var errNotFound = errors.New("router object not found")

// Ping verifies the API is answering.
func (c *Client) Ping(ctx context.Context) error {
	var res systemResource
	return c.do(ctx, http.MethodGet, "/system/resource", nil, &res)
}

// PushGrant installs an allow rule for a session token with the grant's
// remaining TTL. Re-pushing an already installed token only refreshes it.
func (c *Client) PushGrant(ctx context.Context, sessionToken string, ttl time.Duration, rateLimit string, deviceMAC *string) error {
	if ttl <= 0 {
		return fmt.Errorf("refusing to push grant %s with no remaining time", sessionToken)
	}

	user := hotspotUser{
		Name:        sessionToken,
		LimitUptime: formatUptime(ttl),
		RateLimit:   rateLimit,
		Comment:     "furaha-grant",
	}
	if deviceMAC != nil {
		user.MACAddress = *deviceMAC
	}

	existing, err := c.findUser(ctx, sessionToken)
	if err != nil {
		return err
	}
	if existing != nil {
		return c.do(ctx, http.MethodPatch, "/ip/hotspot/user/"+url.PathEscape(existing.ID), user, nil)
	}
	return c.do(ctx, http.MethodPut, "/ip/hotspot/user", user, nil)
}

// Revoke removes the allow rule and kicks any live session for the
// token. A token the router no longer knows is treated as revoked.
func (c *Client) Revoke(ctx context.Context, sessionToken string) error {
	actives, err := c.listActive(ctx)
	if err != nil {
		return err
	}
	for _, a := range actives {
		if a.User == sessionToken {
			if err := c.do(ctx, http.MethodDelete, "/ip/hotspot/active/"+url.PathEscape(a.ID), nil, nil); err != nil && !errors.Is(err, errNotFound) {
				return err
			}
		}
	}

	user, err := c.findUser(ctx, sessionToken)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	if err := c.do(ctx, http.MethodDelete, "/ip/hotspot/user/"+url.PathEscape(user.ID), nil, nil); err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	return nil
}

// ListActiveSessions returns the router's live hotspot session table.
func (c *Client) ListActiveSessions(ctx context.Context) ([]model.RouterSession, error) {
	actives, err := c.listActive(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]model.RouterSession, 0, len(actives))
	for _, a := range actives {
		sessions = append(sessions, model.RouterSession{
			RouterEntryID: a.ID,
			SessionToken:  a.User,
			MAC:           a.MACAddress,
			IP:            a.Address,
			Uptime:        a.Uptime,
			BytesIn:       parseInt(a.BytesIn),
			BytesOut:      parseInt(a.BytesOut),
		})
	}
	return sessions, nil
}

// KickSession drops one live session by its router-side entry id without
// touching the allow rule.
func (c *Client) KickSession(ctx context.Context, routerEntryID string) error {
	err := c.do(ctx, http.MethodDelete, "/ip/hotspot/active/"+url.PathEscape(routerEntryID), nil, nil)
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}

// Status reads system telemetry for the admin dashboard.
func (c *Client) Status(ctx context.Context) (*model.RouterStatus, error) {
	var res systemResource
	if err := c.do(ctx, http.MethodGet, "/system/resource", nil, &res); err != nil {
		return nil, err
	}

	actives, err := c.listActive(ctx)
	if err != nil {
		return nil, err
	}

	status := &model.RouterStatus{
		Model:          res.BoardName,
		Version:        res.Version,
		Uptime:         res.Uptime,
		CPULoad:        float64(parseInt(res.CPULoad)),
		ActiveSessions: len(actives),
	}
	if total := parseInt(res.TotalMemory); total > 0 {
		used := total - parseInt(res.FreeMemory)
		status.MemoryUsage = float64(used) / float64(total) * 100
	}
	return status, nil
}

func (c *Client) listActive(ctx context.Context) ([]hotspotActive, error) {
	var actives []hotspotActive
	if err := c.do(ctx, http.MethodGet, "/ip/hotspot/active", nil, &actives); err != nil {
		return nil, err
	}
	return actives, nil
}

func (c *Client) findUser(ctx context.Context, name string) (*hotspotUser, error) {
	var users []hotspotUser
	if err := c.do(ctx, http.MethodGet, "/ip/hotspot/user?name="+url.QueryEscape(name), nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// formatUptime renders a duration in RouterOS HH:MM:SS form.
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
