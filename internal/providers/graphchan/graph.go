package graphchan

import (
	"context"
	"strings"
	"time"

	"github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/littlecapa/finbox/internal/sweep"
)

// channelMessage is the subset of the Graph chatMessage resource the sweep
// cares about.
type channelMessage struct {
	ID          string `json:"id"`
	MessageType string `json:"messageType"`
	Subject     string `json:"subject"`
	Created     string `json:"createdDateTime"`
	From        struct {
		User struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"user"`
	} `json:"from"`
	Body struct {
		Content string `json:"content"`
	} `json:"body"`
	Attachments []struct {
		OdataType    string `json:"@odata.type"`
		Name         string `json:"name"`
		ContentBytes string `json:"contentBytes"`
		PreviewURL   string `json:"previewUrl"`
		SourceURL    string `json:"sourceUrl"`
	} `json:"attachments"`
}

func (m *channelMessage) toSweepMessage() *sweep.Message {
	author := m.From.User.DisplayName
	if author == "" {
		author = m.From.User.ID
	}
	if author == "" {
		author = "unknown"
	}

	created, err := time.Parse(time.RFC3339, m.Created)
	if err != nil {
		created = time.Time{}
	}

	msg := &sweep.Message{
		ID:      m.ID,
		Subject: m.Subject,
		Author:  author,
		Created: created,
		Body:    m.Body.Content,
	}
	for _, a := range m.Attachments {
		att := sweep.Attachment{Name: a.Name}
		switch {
		case strings.Contains(a.OdataType, "fileAttachment"):
			att.ContentB64 = a.ContentBytes
		case strings.Contains(a.OdataType, "referenceAttachment"):
			att.RefURL = a.PreviewURL
			if att.RefURL == "" {
				att.RefURL = a.SourceURL
			}
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	return msg
}

// resolve maps a channel display name or GUID to the (team id, channel id)
// pair the message endpoints want.
func (c *Client) resolve(ctx context.Context, location string) (string, string, error) {
	teamID, err := c.resolveTeam(ctx)
	if err != nil {
		return "", "", err
	}
	channelID, err := c.resolveChannel(ctx, teamID, location)
	if err != nil {
		return "", "", err
	}
	return teamID, channelID, nil
}

// resolveTeam turns the configured team display name into an id, caching the
// result for the session. A value that already looks like a GUID is used
// as-is.
func (c *Client) resolveTeam(ctx context.Context) (string, error) {
	if c.teamID != "" {
		return c.teamID, nil
	}
	if looksLikeGUID(c.cfg.Team) {
		c.teamID = c.cfg.Team
		return c.teamID, nil
	}
	if c.graph == nil {
		return "", sweep.NewError(sweep.KindAuthFailed, "not authenticated")
	}

	var teams []models.Teamable
	if c.cfg.UseDeviceCode {
		result, err := c.graph.Me().JoinedTeams().Get(ctx, nil)
		if err != nil {
			return "", sweep.WrapError(sweep.KindAPI, err, "listing joined teams")
		}
		teams = result.GetValue()
	} else {
		result, err := c.graph.Teams().Get(ctx, nil)
		if err != nil {
			return "", sweep.WrapError(sweep.KindAPI, err, "listing teams")
		}
		teams = result.GetValue()
	}

	for _, t := range teams {
		name := t.GetDisplayName()
		id := t.GetId()
		if name != nil && id != nil && strings.EqualFold(*name, c.cfg.Team) {
			c.teamID = *id
			return c.teamID, nil
		}
	}
	return "", sweep.NewError(sweep.KindNotFound, "team %q not found", c.cfg.Team)
}

// resolveChannel turns a channel display name into an id within teamID,
// caching per name. GUIDs pass through.
func (c *Client) resolveChannel(ctx context.Context, teamID, name string) (string, error) {
	if looksLikeGUID(name) || strings.HasPrefix(name, "19:") {
		return name, nil
	}
	if id, ok := c.channelIDs[name]; ok {
		return id, nil
	}
	if c.graph == nil {
		return "", sweep.NewError(sweep.KindAuthFailed, "not authenticated")
	}

	result, err := c.graph.Teams().ByTeamId(teamID).Channels().Get(ctx, nil)
	if err != nil {
		return "", sweep.WrapError(sweep.KindAPI, err, "listing channels of team %s", teamID)
	}
	for _, ch := range result.GetValue() {
		chName := ch.GetDisplayName()
		chID := ch.GetId()
		if chName != nil && chID != nil && strings.EqualFold(*chName, name) {
			c.channelIDs[name] = *chID
			return *chID, nil
		}
	}
	return "", sweep.NewError(sweep.KindNotFound, "channel %q not found", name)
}

// looksLikeGUID is a cheap structural check, enough to skip a directory
// lookup for values that are already ids.
func looksLikeGUID(s string) bool {
	return len(s) == 36 && strings.Count(s, "-") == 4
}
