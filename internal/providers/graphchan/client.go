// Package graphchan is the checkpoint-based sweep adapter: it reads root
// messages from a Microsoft Teams channel via the Graph API, persists bodies
// and attachments locally, and leaves "processed" bookkeeping to the
// caller's checkpoint. Rate limiting (429 + Retry-After) and transient 5xx
// responses are retried with a bounded attempt budget.
package graphchan

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/sirupsen/logrus"

	"github.com/littlecapa/finbox/internal/sink"
	"github.com/littlecapa/finbox/internal/sweep"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Config carries the Azure AD app registration and the team the channels
// live in.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Team         string // display name or GUID
	UseDeviceCode bool

	// BaseURL overrides the Graph endpoint (tests). Defaults to v1.0.
	BaseURL string
	// HTTPClient overrides the transport (tests). Defaults to a client
	// with a 60s per-call timeout.
	HTTPClient *http.Client
}

// Client implements sweep.Client over the Graph API.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	token   string
	graph   *msgraphsdk.GraphServiceClient

	teamID     string
	channelIDs map[string]string // display name -> id

	// location the last listing ran against; Fetch operates on it.
	currentTeamID    string
	currentChannelID string

	sleep func(time.Duration)
	log   *logrus.Entry
}

// New creates an unauthenticated channel client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		http:       httpClient,
		channelIDs: make(map[string]string),
		sleep:      time.Sleep,
		log:        logrus.WithField("component", "graphchan").WithField("tenant", cfg.TenantID),
	}
}

// Login acquires a bearer token and builds the Graph SDK client used for
// team/channel name resolution. A no-op when already authenticated.
func (c *Client) Login(ctx context.Context) error {
	if c.token != "" {
		c.log.Debug("already logged in")
		return nil
	}

	token, err := c.acquireToken(ctx)
	if err != nil {
		return err
	}
	c.token = token

	graph, err := msgraphsdk.NewGraphServiceClientWithCredentials(
		&staticTokenCredential{token: token}, nil)
	if err != nil {
		c.token = ""
		return sweep.WrapError(sweep.KindAuthFailed, err, "creating graph client")
	}
	c.graph = graph
	c.log.Info("logged in")
	return nil
}

// Logout drops the stateless token. Kept for interface parity with the
// mailbox adapter.
func (c *Client) Logout(ctx context.Context) error {
	c.token = ""
	c.graph = nil
	c.log.Debug("logged out")
	return nil
}

// LocationExists resolves the channel (by display name or GUID) within the
// configured team and probes it. A missing channel is a normal false; a
// missing team is a run-level error.
func (c *Client) LocationExists(ctx context.Context, name string) (bool, error) {
	teamID, err := c.resolveTeam(ctx)
	if err != nil {
		return false, err
	}

	channelID, err := c.resolveChannel(ctx, teamID, name)
	if err != nil {
		if sweep.KindOf(err) == sweep.KindNotFound {
			return false, nil
		}
		return false, err
	}

	url := fmt.Sprintf("%s/teams/%s/channels/%s", c.baseURL, teamID, channelID)
	if err := c.get(ctx, url, nil); err != nil {
		var se *sweep.Error
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListPendingIDs pages through the channel's messages and returns the ids of
// root messages (thread replies are excluded) in the service's delivery
// order.
func (c *Client) ListPendingIDs(ctx context.Context, location string) ([]string, error) {
	teamID, channelID, err := c.resolve(ctx, location)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/teams/%s/channels/%s/messages?$top=50", c.baseURL, teamID, channelID)
	var ids []string
	for url != "" {
		var page struct {
			Value    []channelMessage `json:"value"`
			NextLink string           `json:"@odata.nextLink"`
		}
		if err := c.get(ctx, url, &page); err != nil {
			return nil, sweep.WrapError(sweep.KindListFailed, err, "listing channel messages")
		}
		for _, m := range page.Value {
			if m.MessageType == "message" && m.ID != "" {
				ids = append(ids, m.ID)
			}
		}
		url = page.NextLink
	}
	c.currentTeamID, c.currentChannelID = teamID, channelID
	c.log.WithField("count", len(ids)).Debug("pending ids listed")
	return ids, nil
}

// Fetch retrieves one channel message by id.
func (c *Client) Fetch(ctx context.Context, id string) (*sweep.Message, error) {
	url := fmt.Sprintf("%s/teams/%s/channels/%s/messages/%s",
		c.baseURL, c.currentTeamID, c.currentChannelID, id)

	var m channelMessage
	if err := c.get(ctx, url, &m); err != nil {
		return nil, sweep.WrapError(sweep.KindFetchFailed, err, "fetching message %s", id)
	}
	if m.ID == "" {
		m.ID = id
	}
	return m.toSweepMessage(), nil
}

// SaveBody writes a text rendering of the message: an author/created/subject
// header block followed by the (HTML or plain) body content.
func (c *Client) SaveBody(ctx context.Context, msg *sweep.Message, basePath string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Author: %s\n", msg.Author)
	fmt.Fprintf(&b, "Created: %s\n", msg.Created.Format(time.RFC3339))
	if msg.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	}
	b.WriteString("\n--- MESSAGE BODY (HTML or text) ---\n\n")
	b.WriteString(msg.Body)

	path, err := sink.BodyPath(basePath, sink.BodyFilename(msg.Subject, msg.ID, ".txt"))
	if err != nil {
		return err
	}
	if err := sink.WriteFile(path, []byte(b.String())); err != nil {
		return err
	}
	c.log.WithField("path", path).Info("body saved")
	return nil
}

// SaveAttachments writes embedded attachments after decoding and downloads
// by-reference ones with the session's credentials. A failed download falls
// back to a pointer file carrying the reference URL; a malformed embedded
// payload is logged and skipped.
func (c *Client) SaveAttachments(ctx context.Context, msg *sweep.Message, basePath string) error {
	log := c.log.WithField("id", msg.ID)
	for i, att := range msg.Attachments {
		name := att.Name
		if name == "" {
			name = "attachment"
		}
		filename := sink.AttachmentFilename(name, msg.ID, i)

		switch {
		case att.ContentB64 != "":
			data, err := base64.StdEncoding.DecodeString(att.ContentB64)
			if err != nil {
				log.WithError(err).WithField("name", name).Warn("malformed embedded attachment, skipping")
				continue
			}
			path, err := sink.AttachmentPath(basePath, filename)
			if err != nil {
				return err
			}
			if err := sink.WriteFile(path, data); err != nil {
				log.WithError(err).WithField("name", name).Warn("could not write attachment")
			}

		case att.RefURL != "":
			data, err := c.download(ctx, att.RefURL)
			if err != nil {
				log.WithError(err).WithField("name", name).Info("download failed, storing reference URL")
				pointer, perr := sink.AttachmentPath(basePath, filename+".url.txt")
				if perr != nil {
					return perr
				}
				if werr := sink.WriteFile(pointer, []byte(att.RefURL)); werr != nil {
					log.WithError(werr).WithField("name", name).Warn("could not write pointer file")
				}
				continue
			}
			path, err := sink.AttachmentPath(basePath, filename)
			if err != nil {
				return err
			}
			if err := sink.WriteFile(path, data); err != nil {
				log.WithError(err).WithField("name", name).Warn("could not write attachment")
			}

		default:
			log.WithField("name", name).Warn("attachment has neither payload nor reference, skipping")
		}
	}
	return nil
}

// MarkProcessed is a no-op: processed ids live in the caller's checkpoint,
// not on the service.
func (c *Client) MarkProcessed(ctx context.Context, id, source, target string) error {
	c.log.WithField("id", id).Debug("mark processed (checkpoint flavor, no-op)")
	return nil
}

// download performs one authenticated GET of a by-reference payload. No
// retry budget here; the caller's fallback is the pointer file.
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sweep.WrapError(sweep.KindProtocol, err, "building download request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, sweep.WrapError(sweep.KindProtocol, err, "downloading %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sweep.APIError(resp.StatusCode, "downloading %s", url)
	}
	return readBody(resp)
}

var _ sweep.Client = (*Client)(nil)
