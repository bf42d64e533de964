package sweep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient scripts every Client call and records the order they happened
// in.
type fakeClient struct {
	loginErr    error
	locations   map[string]bool
	locationErr error
	ids         []string
	listErr     error
	fetchErr    map[string]error
	attachErr   map[string]error
	bodyErr     map[string]error
	markErr     map[string]error
	attachments map[string][]Attachment

	calls     []string
	loggedOut bool
}

func (f *fakeClient) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	return f.loginErr
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedOut = true
	return nil
}

func (f *fakeClient) LocationExists(ctx context.Context, name string) (bool, error) {
	f.calls = append(f.calls, "exists:"+name)
	if f.locationErr != nil {
		return false, f.locationErr
	}
	return f.locations[name], nil
}

func (f *fakeClient) ListPendingIDs(ctx context.Context, location string) ([]string, error) {
	f.calls = append(f.calls, "list:"+location)
	return f.ids, f.listErr
}

func (f *fakeClient) Fetch(ctx context.Context, id string) (*Message, error) {
	f.calls = append(f.calls, "fetch:"+id)
	if err := f.fetchErr[id]; err != nil {
		return nil, err
	}
	return &Message{ID: id, Subject: "m" + id, Attachments: f.attachments[id]}, nil
}

func (f *fakeClient) SaveBody(ctx context.Context, msg *Message, basePath string) error {
	f.calls = append(f.calls, "body:"+msg.ID)
	return f.bodyErr[msg.ID]
}

func (f *fakeClient) SaveAttachments(ctx context.Context, msg *Message, basePath string) error {
	f.calls = append(f.calls, "attach:"+msg.ID)
	return f.attachErr[msg.ID]
}

func (f *fakeClient) MarkProcessed(ctx context.Context, id, source, target string) error {
	f.calls = append(f.calls, "mark:"+id)
	return f.markErr[id]
}

func newFake(locations map[string]bool, ids []string) *fakeClient {
	return &fakeClient{
		locations:   locations,
		ids:         ids,
		fetchErr:    map[string]error{},
		attachErr:   map[string]error{},
		bodyErr:     map[string]error{},
		markErr:     map[string]error{},
		attachments: map[string][]Attachment{},
	}
}

// memTracker is an in-memory Tracker with an optional Flush failure.
type memTracker struct {
	seen     map[string]struct{}
	flushErr error
	flushed  bool
}

func (m *memTracker) Seen(id string) bool {
	_, ok := m.seen[id]
	return ok
}

func (m *memTracker) MarkDone(id string) {
	m.seen[id] = struct{}{}
}

func (m *memTracker) Flush() error {
	m.flushed = true
	return m.flushErr
}

// capturedEvent is one EventSink publish.
type capturedEvent struct {
	subject string
	msgID   string
}

type memSink struct {
	events []capturedEvent
}

func (m *memSink) Publish(subject string, payload []byte, msgID string) error {
	m.events = append(m.events, capturedEvent{subject: subject, msgID: msgID})
	return nil
}

func TestRunProcessesAllItems(t *testing.T) {
	client := newFake(map[string]bool{"Aktien": true, "Archive_Aktien": true}, []string{"3", "2", "1"})
	sink := &memSink{}
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien", Target: "Archive_Aktien", BasePath: t.TempDir(), Events: sink}

	res := r.Run(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, "3 of 3 processed", res.Summary)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Total)
	assert.True(t, client.loggedOut)

	var subjects []string
	for _, ev := range sink.events {
		subjects = append(subjects, ev.subject)
	}
	assert.Equal(t, []string{
		"sweep.mailbox.item", "sweep.mailbox.item", "sweep.mailbox.item", "sweep.mailbox.done",
	}, subjects)
}

func TestRunEmptySourceSucceeds(t *testing.T) {
	client := newFake(map[string]bool{"Aktien": true, "Archive_Aktien": true}, nil)
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien", Target: "Archive_Aktien"}

	res := r.Run(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, `no new items in "Aktien"`, res.Summary)
	assert.Equal(t, 0, res.Processed)
}

func TestRunMissingSourceFailsBeforeFetch(t *testing.T) {
	client := newFake(map[string]bool{}, []string{"1"})
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Nope", Target: "Archive"}

	res := r.Run(context.Background())

	require.False(t, res.Success)
	assert.Contains(t, res.Summary, `"Nope"`)
	assert.NotContains(t, client.calls, "fetch:1")
	assert.True(t, client.loggedOut)
}

func TestRunMissingTargetFails(t *testing.T) {
	client := newFake(map[string]bool{"Aktien": true}, []string{"1"})
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien", Target: "Archive"}

	res := r.Run(context.Background())

	require.False(t, res.Success)
	assert.Contains(t, res.Summary, `target location "Archive" does not exist, please create it`)
}

func TestRunNoTargetSkipsTargetCheck(t *testing.T) {
	client := newFake(map[string]bool{"General": true}, nil)
	r := &Runner{Client: client, Flavor: "channel", Source: "General"}

	res := r.Run(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, []string{"login", "exists:General", "list:General", "logout"}, client.calls)
}

func TestRunLoginFailureStillLogsOut(t *testing.T) {
	client := newFake(nil, nil)
	client.loginErr = NewError(KindAuthFailed, "bad credentials")
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien"}

	res := r.Run(context.Background())

	require.False(t, res.Success)
	assert.Contains(t, res.Summary, "login failed")
	assert.True(t, client.loggedOut)
}

func TestRunItemFailureIsIsolated(t *testing.T) {
	client := newFake(map[string]bool{"Aktien": true, "Archive": true}, []string{"1", "2", "3"})
	client.fetchErr["2"] = NewError(KindFetchFailed, "gone")
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien", Target: "Archive"}

	res := r.Run(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, "2 of 3 processed", res.Summary)
	assert.Contains(t, client.calls, "fetch:3")
}

func TestRunBodyFailureSkipsOnlyThatItem(t *testing.T) {
	client := newFake(map[string]bool{"Aktien": true, "Archive": true}, []string{"1", "2"})
	client.bodyErr["1"] = NewError(KindStorage, "disk full")
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien", Target: "Archive"}

	res := r.Run(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, "1 of 2 processed", res.Summary)
	// the failed item must not be marked processed
	assert.NotContains(t, client.calls, "mark:1")
	assert.Contains(t, client.calls, "mark:2")
}

func TestRunAttachmentFailureDoesNotSkipItem(t *testing.T) {
	client := newFake(map[string]bool{"Aktien": true, "Archive": true}, []string{"1"})
	client.attachments["1"] = []Attachment{{Name: "report.pdf", Content: []byte("x")}}
	client.attachErr["1"] = NewError(KindStorage, "cannot write")
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien", Target: "Archive"}

	res := r.Run(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, "1 of 1 processed", res.Summary)
	assert.Contains(t, client.calls, "body:1")
	assert.Contains(t, client.calls, "mark:1")
}

func TestRunTrackerSkipsSeenIDs(t *testing.T) {
	client := newFake(map[string]bool{"General": true}, []string{"a", "b"})
	tracker := &memTracker{seen: map[string]struct{}{"a": {}}}
	r := &Runner{Client: client, Flavor: "channel", Source: "General", Tracker: tracker}

	res := r.Run(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, "1 of 2 processed", res.Summary)
	assert.NotContains(t, client.calls, "fetch:a")
	assert.True(t, tracker.Seen("b"))
	assert.True(t, tracker.flushed)
}

func TestRunCheckpointFlushFailureFailsRun(t *testing.T) {
	client := newFake(map[string]bool{"General": true}, []string{"a"})
	tracker := &memTracker{seen: map[string]struct{}{}, flushErr: NewError(KindStorage, "read-only fs")}
	r := &Runner{Client: client, Flavor: "channel", Source: "General", Tracker: tracker}

	res := r.Run(context.Background())

	require.False(t, res.Success)
	assert.Contains(t, res.Summary, "saving checkpoint after 1 of 1 processed")
	assert.Equal(t, 1, res.Processed)
}

func TestRunCancelledContextStopsLoop(t *testing.T) {
	client := newFake(map[string]bool{"Aktien": true, "Archive": true}, []string{"1", "2"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Client: client, Flavor: "mailbox", Source: "Aktien", Target: "Archive"}

	res := r.Run(ctx)

	require.True(t, res.Success)
	assert.Equal(t, 0, res.Processed)
	assert.NotContains(t, client.calls, "fetch:1")
}
