package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is the only thing a sweep run returns. Errors never cross this
// boundary; Summary carries a human-readable reason on failure.
type Result struct {
	Success   bool   `json:"success"`
	Summary   string `json:"summary"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// EventSink receives sweep progress events. Implemented by the JetStream
// publisher; a nil sink disables publishing.
type EventSink interface {
	Publish(subject string, payload []byte, msgID string) error
}

// Runner drives one end-to-end sweep: login, validate locations, list
// pending ids, process each id (fetch, attachments, body, mark), logout.
// One Runner owns one session; runs against the same base path must be
// serialized by the caller.
type Runner struct {
	Client   Client
	Flavor   string // "mailbox" or "channel", used for logging and event subjects
	Source   string
	Target   string // empty for checkpoint-based flavors
	BasePath string
	Tracker  Tracker   // nil for move-based flavors
	Events   EventSink // optional
	Log      *logrus.Entry
}

func (r *Runner) log() *logrus.Entry {
	if r.Log != nil {
		return r.Log
	}
	return logrus.WithField("component", "sweep."+r.Flavor)
}

// Run executes the sweep. Per-item failures are logged and counted but do
// not stop the loop; run-level preconditions (auth, location existence,
// listing) abort with a descriptive summary. Logout is always attempted.
func (r *Runner) Run(ctx context.Context) Result {
	log := r.log()
	log.Debug("sweep run started")

	defer func() {
		if err := r.Client.Logout(ctx); err != nil {
			log.WithError(err).Error("logout failed")
		}
		log.Debug("sweep run finished")
	}()

	if err := r.Client.Login(ctx); err != nil {
		log.WithError(err).Error("login failed")
		return r.fail(fmt.Sprintf("login failed: %v", err))
	}

	ok, err := r.Client.LocationExists(ctx, r.Source)
	if err != nil {
		log.WithError(err).WithField("location", r.Source).Error("source check failed")
		return r.fail(fmt.Sprintf("checking source location %q: %v", r.Source, err))
	}
	if !ok {
		log.WithField("location", r.Source).Error("source location does not exist")
		return r.fail(fmt.Sprintf("source location %q does not exist", r.Source))
	}

	if r.Target != "" {
		ok, err := r.Client.LocationExists(ctx, r.Target)
		if err != nil {
			log.WithError(err).WithField("location", r.Target).Error("target check failed")
			return r.fail(fmt.Sprintf("checking target location %q: %v", r.Target, err))
		}
		if !ok {
			log.WithField("location", r.Target).Error("target location does not exist")
			return r.fail(fmt.Sprintf("target location %q does not exist, please create it", r.Target))
		}
	}

	ids, err := r.Client.ListPendingIDs(ctx, r.Source)
	if err != nil {
		log.WithError(err).Error("listing pending ids failed")
		return r.fail(fmt.Sprintf("listing %q: %v", r.Source, err))
	}
	if len(ids) == 0 {
		log.Info("no new items to process")
		return Result{Success: true, Summary: fmt.Sprintf("no new items in %q", r.Source)}
	}

	total := len(ids)
	processed := 0
	log.WithField("total", total).Info("processing pending items")

	for _, id := range ids {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("run cancelled, stopping loop")
			break
		}
		if r.Tracker != nil && r.Tracker.Seen(id) {
			log.WithField("id", id).Debug("already processed, skipping")
			continue
		}
		if err := r.processItem(ctx, id); err != nil {
			log.WithError(err).WithField("id", id).Error("item failed")
			continue
		}
		if r.Tracker != nil {
			r.Tracker.MarkDone(id)
		}
		processed++
		r.publishEvent("item", map[string]interface{}{"id": id})
	}

	if r.Tracker != nil {
		if err := r.Tracker.Flush(); err != nil {
			log.WithError(err).Error("saving checkpoint failed")
			return Result{
				Success:   false,
				Summary:   fmt.Sprintf("saving checkpoint after %d of %d processed: %v", processed, total, err),
				Processed: processed,
				Total:     total,
			}
		}
	}

	summary := fmt.Sprintf("%d of %d processed", processed, total)
	log.Info(summary)
	r.publishEvent("done", map[string]interface{}{"processed": processed, "total": total})
	return Result{Success: true, Summary: summary, Processed: processed, Total: total}
}

// processItem handles one message end to end. Attachment failures are
// tolerated; body persistence and mark-processed are mandatory for the item
// to count.
func (r *Runner) processItem(ctx context.Context, id string) error {
	log := r.log().WithField("id", id)

	msg, err := r.Client.Fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if msg.HasAttachments() {
		if err := r.Client.SaveAttachments(ctx, msg, r.BasePath); err != nil {
			// Attachment trouble never skips the rest of the item.
			log.WithError(err).Warn("could not save attachments")
		} else {
			log.Info("attachments saved")
		}
	} else {
		log.Debug("no attachments")
	}

	if err := r.Client.SaveBody(ctx, msg, r.BasePath); err != nil {
		return fmt.Errorf("save body: %w", err)
	}

	if err := r.Client.MarkProcessed(ctx, id, r.Source, r.Target); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	log.Debug("item processed")
	return nil
}

func (r *Runner) fail(reason string) Result {
	return Result{Success: false, Summary: reason}
}

func (r *Runner) publishEvent(event string, fields map[string]interface{}) {
	if r.Events == nil {
		return
	}
	fields["flavor"] = r.Flavor
	fields["source"] = r.Source
	fields["ts"] = time.Now().Unix()
	payload, _ := json.Marshal(fields)
	subject := fmt.Sprintf("sweep.%s.%s", r.Flavor, event)
	msgID := fmt.Sprintf("%s|%s|%v", subject, r.Source, fields["id"])
	if err := r.Events.Publish(subject, payload, msgID); err != nil {
		r.log().WithError(err).Warn("could not publish sweep event")
	}
}
