// Package imapmail is the move-based sweep adapter: it talks IMAP to a
// mailbox (Gmail app passwords work), persists bodies as raw .eml files,
// and marks messages processed by physically moving them out of the source
// folder (copy, flag \Deleted, expunge).
package imapmail

import (
	"context"
	"sort"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/sirupsen/logrus"

	"github.com/littlecapa/finbox/internal/sink"
	"github.com/littlecapa/finbox/internal/sweep"
)

// Config carries the IMAP endpoint and credentials.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Client implements sweep.Client over IMAP.
type Client struct {
	cfg      Config
	conn     *imapclient.Client
	selected string
	log      *logrus.Entry
}

// New creates an unconnected mailbox client. Host/port default to Gmail.
func New(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "imap.gmail.com"
	}
	if cfg.Port == "" {
		cfg.Port = "993"
	}
	return &Client{
		cfg: cfg,
		log: logrus.WithField("component", "imapmail").WithField("user", cfg.Username),
	}
}

// Login dials the server over TLS and authenticates. A no-op when already
// logged in.
func (c *Client) Login(ctx context.Context) error {
	if c.conn != nil {
		c.log.Debug("already logged in")
		return nil
	}

	addr := c.cfg.Host + ":" + c.cfg.Port
	conn, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return sweep.WrapError(sweep.KindProtocol, err, "connecting to %s", addr)
	}

	if err := conn.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return sweep.WrapError(sweep.KindAuthFailed, err,
			"login failed for %s: check username/app password or IMAP access", c.cfg.Username)
	}

	c.conn = conn
	c.log.Info("logged in")
	return nil
}

// Logout ends the session. A no-op when never logged in.
func (c *Client) Logout(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Logout().Wait()
	c.conn = nil
	c.selected = ""
	if err != nil {
		return sweep.WrapError(sweep.KindProtocol, err, "logout")
	}
	c.log.Info("logged out")
	return nil
}

// LocationExists lists all selectable folders and checks for name. An
// absent folder is a normal false, not an error.
func (c *Client) LocationExists(ctx context.Context, name string) (bool, error) {
	folders, err := c.conn.List("", "*", nil).Collect()
	if err != nil {
		return false, sweep.WrapError(sweep.KindProtocol, err, "listing folders")
	}
	for _, f := range folders {
		if hasAttr(f.Attrs, imap.MailboxAttrNoSelect) {
			continue
		}
		if f.Mailbox == name {
			return true, nil
		}
	}
	return false, nil
}

// ListPendingIDs selects the folder and returns every message UID in it,
// sorted descending so the newest messages are processed first.
func (c *Client) ListPendingIDs(ctx context.Context, location string) ([]string, error) {
	if err := c.selectMailbox(location); err != nil {
		return nil, err
	}

	data, err := c.conn.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, sweep.WrapError(sweep.KindListFailed, err, "searching %q", location)
	}

	uids := data.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })

	ids := make([]string, len(uids))
	for i, uid := range uids {
		ids[i] = strconv.FormatUint(uint64(uid), 10)
	}
	c.log.WithField("count", len(ids)).Debug("pending ids listed")
	return ids, nil
}

// Fetch retrieves envelope and full RFC822 payload for one UID in the
// currently selected folder.
func (c *Client) Fetch(ctx context.Context, id string) (*sweep.Message, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	section := &imap.FetchItemBodySection{Peek: true}
	opts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	cmd := c.conn.Fetch(imap.UIDSetNum(uid), opts)
	defer cmd.Close()

	item := cmd.Next()
	if item == nil {
		return nil, sweep.NewError(sweep.KindFetchFailed, "message %s not found", id)
	}
	buf, err := item.Collect()
	if err != nil {
		return nil, sweep.WrapError(sweep.KindFetchFailed, err, "collecting message %s", id)
	}

	raw := buf.FindBodySection(section)
	if raw == nil {
		return nil, sweep.NewError(sweep.KindFetchFailed, "message %s returned no body section", id)
	}

	msg := &sweep.Message{ID: id, Raw: raw}
	if buf.Envelope != nil {
		msg.Subject = buf.Envelope.Subject
		msg.Created = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			msg.Author = buf.Envelope.From[0].Addr()
		}
	}
	msg.Body, msg.Attachments = extractParts(raw, c.log.WithField("id", id))
	return msg, nil
}

// SaveBody writes the raw RFC822 payload as an .eml file named after the
// sanitized subject and the UID.
func (c *Client) SaveBody(ctx context.Context, msg *sweep.Message, basePath string) error {
	path, err := sink.BodyPath(basePath, sink.BodyFilename(msg.Subject, msg.ID, ".eml"))
	if err != nil {
		return err
	}
	if err := sink.WriteFile(path, msg.Raw); err != nil {
		return err
	}
	c.log.WithField("path", path).Info("body saved")
	return nil
}

// SaveAttachments writes every decoded attachment. A bad part is logged and
// skipped so the remaining attachments (and the message itself) survive.
func (c *Client) SaveAttachments(ctx context.Context, msg *sweep.Message, basePath string) error {
	log := c.log.WithField("id", msg.ID)
	saved := 0
	for i, att := range msg.Attachments {
		if len(att.Content) == 0 {
			log.WithField("name", att.Name).Warn("attachment has no payload, skipping")
			continue
		}
		path, err := sink.AttachmentPath(basePath, sink.AttachmentFilename(att.Name, msg.ID, i))
		if err != nil {
			return err
		}
		if err := sink.WriteFile(path, att.Content); err != nil {
			log.WithError(err).WithField("name", att.Name).Warn("could not write attachment")
			continue
		}
		saved++
	}
	log.WithField("saved", saved).Debug("attachments saved")
	return nil
}

// MarkProcessed moves the message: copy to target, flag the source copy
// \Deleted, expunge. A failed flag or expunge is only a warning; the copy
// having succeeded is what matters.
func (c *Client) MarkProcessed(ctx context.Context, id, source, target string) error {
	uid, err := parseUID(id)
	if err != nil {
		return err
	}
	if err := c.selectMailbox(source); err != nil {
		return err
	}

	set := imap.UIDSetNum(uid)
	if _, err := c.conn.Copy(set, target).Wait(); err != nil {
		return sweep.WrapError(sweep.KindProtocol, err, "copying message %s to %q", id, target)
	}

	store := c.conn.Store(set, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if err := store.Close(); err != nil {
		c.log.WithError(err).WithField("id", id).Warn("could not flag source copy as deleted")
	}

	if err := c.conn.Expunge().Close(); err != nil {
		c.log.WithError(err).WithField("id", id).Warn("expunge failed")
	}

	c.log.WithField("id", id).Infof("moved from %q to %q", source, target)
	return nil
}

func (c *Client) selectMailbox(name string) error {
	if c.selected == name {
		return nil
	}
	if _, err := c.conn.Select(name, nil).Wait(); err != nil {
		return sweep.WrapError(sweep.KindProtocol, err, "selecting %q", name)
	}
	c.selected = name
	return nil
}

func hasAttr(attrs []imap.MailboxAttr, want imap.MailboxAttr) bool {
	for _, a := range attrs {
		if a == want {
			return true
		}
	}
	return false
}

func parseUID(id string) (imap.UID, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, sweep.WrapError(sweep.KindFetchFailed, err, "invalid message id %q", id)
	}
	return imap.UID(uid), nil
}

var _ sweep.Client = (*Client)(nil)
