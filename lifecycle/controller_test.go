package lifecycle

import (
	"context"
	"errors"
	"testing"

	"taskbot/gateway"
	"taskbot/model"
	"taskbot/store"
)

type fakeGateway struct {
	channelNames []string
	memberRoles  map[string][]string

	createRoleErr    error
	createChannelErr error

	createdRoles    []string
	deletedRoles    []string
	createdChannels []string
	deletedChannels []string
	parents         map[string]string // channelID -> parentID
	sendAllowed     map[string]bool   // channelID -> last permission state
	sentMessages    []string
	pinned          []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		memberRoles: make(map[string][]string),
		parents:     make(map[string]string),
		sendAllowed: make(map[string]bool),
	}
}

func (f *fakeGateway) CreateRole(_ context.Context, _, name string) (string, error) {
	if f.createRoleErr != nil {
		return "", f.createRoleErr
	}
	id := "role-" + name
	f.createdRoles = append(f.createdRoles, id)
	return id, nil
}

func (f *fakeGateway) DeleteRole(_ context.Context, _, roleID string) error {
	f.deletedRoles = append(f.deletedRoles, roleID)
	return nil
}

func (f *fakeGateway) CreateTaskChannel(_ context.Context, _, name, parentID, _ string) (string, error) {
	if f.createChannelErr != nil {
		return "", f.createChannelErr
	}
	id := "chan-" + name
	f.createdChannels = append(f.createdChannels, name)
	f.parents[id] = parentID
	f.sendAllowed[id] = true
	return id, nil
}

func (f *fakeGateway) DeleteChannel(_ context.Context, channelID string) error {
	f.deletedChannels = append(f.deletedChannels, channelID)
	return nil
}

func (f *fakeGateway) SetChannelParent(_ context.Context, channelID, parentID string) error {
	f.parents[channelID] = parentID
	return nil
}

func (f *fakeGateway) SetSendMessages(_ context.Context, _, channelID string, allow bool) error {
	f.sendAllowed[channelID] = allow
	return nil
}

func (f *fakeGateway) SendMessage(_ context.Context, channelID, content string) (string, error) {
	f.sentMessages = append(f.sentMessages, content)
	return "msg-" + channelID, nil
}

func (f *fakeGateway) PinMessage(_ context.Context, _, messageID string) error {
	f.pinned = append(f.pinned, messageID)
	return nil
}

func (f *fakeGateway) AddReaction(context.Context, string, string, string) error { return nil }

func (f *fakeGateway) GrantRole(context.Context, string, string, string) error { return nil }

func (f *fakeGateway) MemberRoles(_ context.Context, _, userID string) ([]string, error) {
	return f.memberRoles[userID], nil
}

func (f *fakeGateway) ListChannelNames(context.Context, string) ([]string, error) {
	return f.channelNames, nil
}

// fakeResponder records the acknowledgement sequence.
type fakeResponder struct {
	replies  []string
	deferred bool
	edits    []string
}

func (r *fakeResponder) Reply(content string, _ bool) error {
	r.replies = append(r.replies, content)
	return nil
}

func (r *fakeResponder) Defer(bool) error {
	r.deferred = true
	return nil
}

func (r *fakeResponder) Edit(content string) error {
	r.edits = append(r.edits, content)
	return nil
}

// resolved reports whether the command acknowledgement completed on some
// path: a direct reply, or a deferred ack followed by an edit.
func (r *fakeResponder) resolved() bool {
	return len(r.replies) > 0 || (r.deferred && len(r.edits) > 0)
}

func newTestController(gw *fakeGateway) (*Controller, store.TaskStore) {
	s := store.NewMemoryStore()
	c := NewController(s, gw, Config{
		TaskCategoryID:      "cat-active",
		CompletedCategoryID: "cat-done",
		AdminRoleID:         "role-admin",
		TryoutRoleID:        "role-tryout",
	})
	return c, s
}

func adminCommand(kind string) gateway.CommandEvent {
	return gateway.CommandEvent{
		Kind:         kind,
		GuildID:      "g1",
		ChannelID:    "chan-origin",
		InvokerID:    "admin",
		InvokerAdmin: true,
	}
}

func TestNonAdminRejected(t *testing.T) {
	gw := newFakeGateway()
	c, _ := newTestController(gw)

	ev := adminCommand("newtask")
	ev.InvokerAdmin = false
	ev.Name = "x"
	ev.UserLimit = 3

	r := &fakeResponder{}
	c.HandleCommand(context.Background(), ev, r)

	if len(gw.createdRoles) != 0 || len(gw.createdChannels) != 0 {
		t.Error("unauthorized command must attempt no side effects")
	}
	if len(r.replies) != 1 || r.replies[0] != "❌ No permission." {
		t.Errorf("expected permission error, got %v", r.replies)
	}
}

func TestAdminRoleMembershipAccepted(t *testing.T) {
	gw := newFakeGateway()
	gw.memberRoles["mod"] = []string{"role-admin"}
	c, _ := newTestController(gw)

	ev := adminCommand("close")
	ev.InvokerID = "mod"
	ev.InvokerAdmin = false

	r := &fakeResponder{}
	c.HandleCommand(context.Background(), ev, r)

	if allowed, ok := gw.sendAllowed["chan-origin"]; !ok || allowed {
		t.Error("configured admin role should be authorized to close")
	}
}

func TestNewTaskRejectsInvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -5} {
		gw := newFakeGateway()
		c, _ := newTestController(gw)

		ev := adminCommand("newtask")
		ev.Name = "logo"
		ev.UserLimit = limit

		r := &fakeResponder{}
		c.HandleCommand(context.Background(), ev, r)

		if len(gw.createdRoles) != 0 || len(gw.createdChannels) != 0 {
			t.Errorf("limit %d: no channel or role may be created", limit)
		}
		if !r.resolved() {
			t.Errorf("limit %d: acknowledgement left unresolved", limit)
		}
	}
}

func TestNewTaskSequentialNumbering(t *testing.T) {
	t.Run("existing gaps", func(t *testing.T) {
		gw := newFakeGateway()
		gw.channelNames = []string{"task-1", "general", "task-3", "task-notanumber"}
		c, s := newTestController(gw)

		ev := adminCommand("newtask")
		ev.Name = "logo"
		ev.UserLimit = 2
		ev.Amount = "50 USDC"
		ev.Description = "draw"

		r := &fakeResponder{}
		c.HandleCommand(context.Background(), ev, r)

		if len(gw.createdChannels) != 1 || gw.createdChannels[0] != "task-4" {
			t.Fatalf("expected task-4, got %v", gw.createdChannels)
		}
		rec, err := s.Get(context.Background(), "chan-task-4")
		if err != nil {
			t.Fatalf("record not stored: %v", err)
		}
		if rec.State != model.StateOpen || rec.ApprovedCount != 0 {
			t.Errorf("bad initial record: %+v", rec)
		}
		if rec.Link != "N/A" {
			t.Errorf("missing link should default to N/A, got %q", rec.Link)
		}
		if gw.parents["chan-task-4"] != "cat-active" {
			t.Errorf("channel not placed under active category: %q", gw.parents["chan-task-4"])
		}
		if len(gw.sentMessages) != 1 || len(gw.pinned) != 1 {
			t.Errorf("announcement not sent and pinned: msgs=%d pins=%d", len(gw.sentMessages), len(gw.pinned))
		}
		if !r.deferred || len(r.edits) != 1 {
			t.Errorf("newtask must defer then edit: deferred=%v edits=%v", r.deferred, r.edits)
		}
	})

	t.Run("no existing tasks", func(t *testing.T) {
		gw := newFakeGateway()
		gw.channelNames = []string{"general", "random"}
		c, _ := newTestController(gw)

		ev := adminCommand("newtask")
		ev.Name = "logo"
		ev.UserLimit = 1
		r := &fakeResponder{}
		c.HandleCommand(context.Background(), ev, r)

		if len(gw.createdChannels) != 1 || gw.createdChannels[0] != "task-1" {
			t.Fatalf("expected task-1, got %v", gw.createdChannels)
		}
	})
}

func TestNewTaskCompensatesOnChannelFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.createChannelErr = errors.New("category full")
	c, s := newTestController(gw)

	ev := adminCommand("newtask")
	ev.Name = "logo"
	ev.UserLimit = 2

	r := &fakeResponder{}
	c.HandleCommand(context.Background(), ev, r)

	if len(gw.deletedRoles) != 1 {
		t.Errorf("orphaned role not cleaned up: deleted=%v", gw.deletedRoles)
	}
	if _, err := s.Get(context.Background(), "chan-task-1"); !errors.Is(err, model.ErrNotFound) {
		t.Error("no record may exist after failed provisioning")
	}
	if !r.resolved() {
		t.Error("failure path left acknowledgement unresolved")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	c, s := newTestController(gw)

	rec, _ := model.NewTaskRecord("chan-origin", "x", 2, "a", "d", "", "r1")
	s.Create(context.Background(), rec)

	for i := 0; i < 2; i++ {
		r := &fakeResponder{}
		c.HandleCommand(context.Background(), adminCommand("close"), r)
		if !r.resolved() {
			t.Fatalf("close #%d unresolved", i+1)
		}
	}

	if allowed := gw.sendAllowed["chan-origin"]; allowed {
		t.Error("channel should be locked after close")
	}
	got, _ := s.Get(context.Background(), "chan-origin")
	if got.State != model.StateClosed {
		t.Errorf("expected Closed, got %s", got.State)
	}
}

func TestOpenThenClose(t *testing.T) {
	gw := newFakeGateway()
	c, s := newTestController(gw)

	rec, _ := model.NewTaskRecord("chan-origin", "x", 2, "a", "d", "", "r1")
	rec.State = model.StateClosed
	s.Create(context.Background(), rec)

	c.HandleCommand(context.Background(), adminCommand("open"), &fakeResponder{})
	got, _ := s.Get(context.Background(), "chan-origin")
	if got.State != model.StateOpen || !gw.sendAllowed["chan-origin"] {
		t.Fatalf("open failed: state=%s allowed=%v", got.State, gw.sendAllowed["chan-origin"])
	}

	c.HandleCommand(context.Background(), adminCommand("close"), &fakeResponder{})
	got, _ = s.Get(context.Background(), "chan-origin")
	if got.State != model.StateClosed || gw.sendAllowed["chan-origin"] {
		t.Fatalf("close after open failed: state=%s allowed=%v", got.State, gw.sendAllowed["chan-origin"])
	}
}

func TestEndArchivesAndMoves(t *testing.T) {
	gw := newFakeGateway()
	c, s := newTestController(gw)

	rec, _ := model.NewTaskRecord("chan-origin", "x", 2, "a", "d", "", "r1")
	s.Create(context.Background(), rec)

	r := &fakeResponder{}
	c.HandleCommand(context.Background(), adminCommand("end"), r)

	got, _ := s.Get(context.Background(), "chan-origin")
	if got.State != model.StateArchived {
		t.Errorf("expected Archived, got %s", got.State)
	}
	if gw.parents["chan-origin"] != "cat-done" {
		t.Errorf("channel not moved to completed category: %q", gw.parents["chan-origin"])
	}
	if gw.sendAllowed["chan-origin"] {
		t.Error("ended channel must have sends disabled")
	}
}

func TestOpenRejectsArchivedTask(t *testing.T) {
	gw := newFakeGateway()
	c, s := newTestController(gw)

	rec, _ := model.NewTaskRecord("chan-origin", "x", 2, "a", "d", "", "r1")
	rec.State = model.StateArchived
	s.Create(context.Background(), rec)
	gw.sendAllowed["chan-origin"] = false

	r := &fakeResponder{}
	c.HandleCommand(context.Background(), adminCommand("open"), r)

	got, _ := s.Get(context.Background(), "chan-origin")
	if got.State != model.StateArchived {
		t.Errorf("archived task resurrected: %s", got.State)
	}
	if gw.sendAllowed["chan-origin"] {
		t.Error("archived channel must stay locked")
	}
	if len(r.replies) != 1 {
		t.Errorf("expected a rejection reply, got %v", r.replies)
	}
}

func TestCloseUntrackedChannelIsGatewayOnly(t *testing.T) {
	gw := newFakeGateway()
	c, _ := newTestController(gw)

	ev := adminCommand("close")
	ev.TargetChannelID = "chan-untracked"

	r := &fakeResponder{}
	c.HandleCommand(context.Background(), ev, r)

	if allowed, ok := gw.sendAllowed["chan-untracked"]; !ok || allowed {
		t.Error("untracked channel should still get the permission edit")
	}
	if !r.resolved() {
		t.Error("acknowledgement unresolved")
	}
}
