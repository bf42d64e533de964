// Package automation assembles the sweep flavors from config: the
// move-based mailbox sweep and the checkpoint-based channel sweep.
package automation

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/littlecapa/finbox/internal/config"
	"github.com/littlecapa/finbox/internal/providers/graphchan"
	"github.com/littlecapa/finbox/internal/providers/imapmail"
	"github.com/littlecapa/finbox/internal/sweep"
	"github.com/littlecapa/finbox/internal/sweep/checkpoint"
)

// MailboxRequest selects folders and destination for one mailbox sweep.
// Zero values fall back to the configured defaults.
type MailboxRequest struct {
	SourceFolder string `json:"source_folder,omitempty"`
	TargetFolder string `json:"target_folder,omitempty"`
	SavePath     string `json:"save_path,omitempty"`
}

// ChannelRequest selects the channel and destination for one channel sweep.
type ChannelRequest struct {
	Channel  string `json:"channel,omitempty"`
	SavePath string `json:"save_path,omitempty"`
}

// RunMailboxSweep processes the source folder of the configured IMAP
// account: every message is saved under the save path and moved to the
// target folder.
func RunMailboxSweep(ctx context.Context, cfg config.MailboxConfig, req MailboxRequest, events sweep.EventSink) sweep.Result {
	source := orDefault(req.SourceFolder, cfg.SourceFolder)
	target := orDefault(req.TargetFolder, cfg.TargetFolder)
	savePath := orDefault(req.SavePath, cfg.SavePath)

	port := ""
	if cfg.Port != 0 {
		port = strconv.Itoa(cfg.Port)
	}
	client := imapmail.New(imapmail.Config{
		Host:     cfg.Host,
		Port:     port,
		Username: cfg.User,
		Password: cfg.Password,
	})

	runner := &sweep.Runner{
		Client:   client,
		Flavor:   "mailbox",
		Source:   source,
		Target:   target,
		BasePath: savePath,
		Events:   events,
		Log:      logrus.WithField("component", "sweep.mailbox").WithField("source", source),
	}
	return runner.Run(ctx)
}

// RunChannelSweep processes the configured Teams channel: new root messages
// are saved under the save path and recorded in the local checkpoint.
func RunChannelSweep(ctx context.Context, cfg config.GraphConfig, req ChannelRequest, events sweep.EventSink) sweep.Result {
	channel := orDefault(req.Channel, cfg.Channel)
	savePath := orDefault(req.SavePath, cfg.SavePath)
	log := logrus.WithField("component", "sweep.channel").WithField("channel", channel)

	tracker, err := checkpoint.Load(savePath)
	if err != nil {
		log.WithError(err).Error("could not load checkpoint")
		return sweep.Result{Summary: "loading checkpoint: " + err.Error()}
	}

	client := graphchan.New(graphchan.Config{
		TenantID:      cfg.TenantID,
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		Team:          cfg.Team,
		UseDeviceCode: cfg.UseDeviceCode,
	})

	runner := &sweep.Runner{
		Client:   client,
		Flavor:   "channel",
		Source:   channel,
		BasePath: savePath,
		Tracker:  tracker,
		Events:   events,
		Log:      log,
	}
	return runner.Run(ctx)
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
