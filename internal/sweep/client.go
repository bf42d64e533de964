package sweep

import (
	"context"
	"time"
)

// Message is the fetched unit of work. It is built on demand per id and
// never cached across ids.
type Message struct {
	ID      string
	Subject string
	Author  string
	Created time.Time

	// Raw holds the full wire payload (RFC822 bytes for mail). Adapters
	// that deliver structured content leave it nil and fill Body instead.
	Raw  []byte
	Body string

	Attachments []Attachment
}

// HasAttachments reports whether the already-fetched message carries
// attachments. Pure inspection, no network call.
func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// Attachment is either embedded (Content or ContentB64) or by reference
// (RefURL pointing at an externally hosted payload).
type Attachment struct {
	Name string
	// Content holds decoded inline bytes.
	Content []byte
	// ContentB64 holds a still-encoded inline payload; decoding happens at
	// save time so a malformed attachment fails in isolation.
	ContentB64 string
	// RefURL must be fetched with the adapter's credentials; on failure a
	// pointer file is written instead.
	RefURL string
}

// Client is the capability set the orchestrator is written against. Two
// concrete variants exist: the IMAP mailbox adapter and the Graph channel
// adapter.
type Client interface {
	// Login establishes the session. Calling it while authenticated is a
	// no-op. Fails with KindAuthFailed or KindAuthUnavailable.
	Login(ctx context.Context) error

	// Logout releases the session. Never an error when not logged in.
	Logout(ctx context.Context) error

	// LocationExists reports whether the named folder/channel exists.
	// Absence is a normal false result, not an error.
	LocationExists(ctx context.Context, name string) (bool, error)

	// ListPendingIDs returns the ordered ids waiting in the location. An
	// empty slice means nothing to process.
	ListPendingIDs(ctx context.Context, location string) ([]string, error)

	// Fetch retrieves one message by id.
	Fetch(ctx context.Context, id string) (*Message, error)

	// SaveBody persists the message body under basePath/Bodies.
	SaveBody(ctx context.Context, msg *Message, basePath string) error

	// SaveAttachments persists each attachment under basePath/Attachments.
	// A single bad attachment is logged and skipped, not propagated.
	SaveAttachments(ctx context.Context, msg *Message, basePath string) error

	// MarkProcessed transitions the message out of the source location.
	// Move-based adapters copy+delete+expunge; checkpoint-based adapters
	// treat this as a no-op and rely on the Tracker instead.
	MarkProcessed(ctx context.Context, id, source, target string) error
}

// Tracker is the variant-specific processed-id hook. The mailbox flavor runs
// without one (the physical move is its marker); the channel flavor plugs in
// a checkpoint-backed tracker.
type Tracker interface {
	// Seen reports whether the id was processed by an earlier run.
	Seen(id string) bool
	// MarkDone records the id as processed.
	MarkDone(id string)
	// Flush persists the set. Called once at the end of the run.
	Flush() error
}
