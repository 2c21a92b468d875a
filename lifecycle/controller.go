package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"taskbot/gateway"
	"taskbot/metrics"
	"taskbot/model"
	"taskbot/store"
)

var taskChannelName = regexp.MustCompile(`^task-(\d+)$`)

// Config is the controller's slice of the environment: where task channels
// live and who counts as an administrator.
type Config struct {
	TaskCategoryID      string
	CompletedCategoryID string
	AdminRoleID         string // optional
	TryoutRoleID        string // optional, mentioned in announcements
}

// Controller handles the four admin commands. Every handler resolves its
// responder exactly once on every path.
type Controller struct {
	store store.TaskStore
	gw    gateway.Gateway
	cfg   Config
}

func NewController(s store.TaskStore, gw gateway.Gateway, cfg Config) *Controller {
	return &Controller{store: s, gw: gw, cfg: cfg}
}

func (c *Controller) HandleCommand(ctx context.Context, ev gateway.CommandEvent, r gateway.Responder) {
	admin, err := c.isAdmin(ctx, ev)
	if err != nil {
		log.Printf("[lifecycle] admin check for %s: %v", ev.InvokerID, err)
		c.reply(r, "❌ Could not verify permissions.", true)
		metrics.Commands.WithLabelValues(ev.Kind, "error").Inc()
		return
	}
	if !admin {
		c.reply(r, "❌ No permission.", true)
		metrics.Commands.WithLabelValues(ev.Kind, "denied").Inc()
		return
	}

	switch ev.Kind {
	case "newtask":
		c.newTask(ctx, ev, r)
	case "close":
		c.closeTask(ctx, ev, r)
	case "open":
		c.openTask(ctx, ev, r)
	case "end":
		c.endTask(ctx, ev, r)
	default:
		log.Printf("[lifecycle] unknown command %q", ev.Kind)
		c.reply(r, "❌ Unknown command.", true)
	}
}

// isAdmin accepts the platform administrator bit or membership in the
// configured admin role.
func (c *Controller) isAdmin(ctx context.Context, ev gateway.CommandEvent) (bool, error) {
	if ev.InvokerAdmin {
		return true, nil
	}
	if c.cfg.AdminRoleID == "" {
		return false, nil
	}
	roles, err := c.gw.MemberRoles(ctx, ev.GuildID, ev.InvokerID)
	if err != nil {
		return false, err
	}
	for _, id := range roles {
		if id == c.cfg.AdminRoleID {
			return true, nil
		}
	}
	return false, nil
}

/* -------- newtask -------- */

func (c *Controller) newTask(ctx context.Context, ev gateway.CommandEvent, r gateway.Responder) {
	if ev.UserLimit <= 0 {
		c.reply(r, "❌ userlimit must be positive.", true)
		metrics.Commands.WithLabelValues("newtask", "invalid").Inc()
		return
	}

	// Provisioning is slow; acknowledge now, report the outcome by edit.
	if err := r.Defer(true); err != nil {
		log.Printf("[lifecycle] defer newtask ack: %v", err)
		return
	}
	opID := uuid.NewString()

	channelName, err := c.nextTaskName(ctx, ev.GuildID)
	if err != nil {
		log.Printf("[lifecycle] op=%s list channels: %v", opID, err)
		c.fail(r, "newtask")
		return
	}

	roleID, err := c.gw.CreateRole(ctx, ev.GuildID, channelName)
	if err != nil {
		log.Printf("[lifecycle] op=%s create role: %v", opID, err)
		c.fail(r, "newtask")
		return
	}

	channelID, err := c.gw.CreateTaskChannel(ctx, ev.GuildID, channelName, c.cfg.TaskCategoryID, ev.InvokerID)
	if err != nil {
		log.Printf("[lifecycle] op=%s create channel: %v", opID, err)
		c.compensate(ctx, ev.GuildID, roleID, "")
		c.fail(r, "newtask")
		return
	}

	rec, err := model.NewTaskRecord(channelID, ev.Name, ev.UserLimit, ev.Amount, ev.Description, ev.Link, roleID)
	if err == nil {
		err = c.store.Create(ctx, rec)
	}
	if err != nil {
		log.Printf("[lifecycle] op=%s store record: %v", opID, err)
		c.compensate(ctx, ev.GuildID, roleID, channelID)
		c.fail(r, "newtask")
		return
	}

	// Announcement failures after this point are logged but do not unwind
	// the task; the channel and record are already live.
	msgID, err := c.gw.SendMessage(ctx, channelID, c.announcement(rec, channelName))
	if err != nil {
		log.Printf("[lifecycle] op=%s announce: %v", opID, err)
	} else if err := c.gw.PinMessage(ctx, channelID, msgID); err != nil {
		log.Printf("[lifecycle] op=%s pin announcement: %v", opID, err)
	}

	log.Printf("[lifecycle] op=%s created %s (%s) limit=%d", opID, channelName, channelID, ev.UserLimit)
	c.edit(r, fmt.Sprintf("✅ Task **%s** created in <#%s>.", ev.Name, channelID))
	metrics.Commands.WithLabelValues("newtask", "ok").Inc()
}

// nextTaskName numbers channels sequentially: one past the highest existing
// task-<n>, starting at task-1.
func (c *Controller) nextTaskName(ctx context.Context, guildID string) (string, error) {
	names, err := c.gw.ListChannelNames(ctx, guildID)
	if err != nil {
		return "", err
	}
	next := 1
	for _, name := range names {
		m := taskChannelName.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return fmt.Sprintf("task-%d", next), nil
}

// compensate tears down whatever provisioning already succeeded, best
// effort.
func (c *Controller) compensate(ctx context.Context, guildID, roleID, channelID string) {
	if channelID != "" {
		if err := c.gw.DeleteChannel(ctx, channelID); err != nil {
			log.Printf("[lifecycle] cleanup channel %s: %v", channelID, err)
		}
	}
	if roleID != "" {
		if err := c.gw.DeleteRole(ctx, guildID, roleID); err != nil {
			log.Printf("[lifecycle] cleanup role %s: %v", roleID, err)
		}
	}
}

func (c *Controller) announcement(rec *model.TaskRecord, channelName string) string {
	mention := ""
	if c.cfg.TryoutRoleID != "" {
		mention = fmt.Sprintf("<@&%s>", c.cfg.TryoutRoleID)
	}
	return fmt.Sprintf(`%s

📌 **New Task Created**

`+"```"+`
Task Name   : %s
Channel     : %s
User Limit  : %d
Amount      : %s
Description : %s
`+"```"+`

🔗 Task Link: %s

📸 Upload screenshot here.
Auto-approved ✅ until limit is reached.`,
		mention, rec.TaskName, channelName, rec.UserLimit, rec.Amount, rec.Description, rec.Link)
}

/* -------- close / open / end -------- */

func (c *Controller) closeTask(ctx context.Context, ev gateway.CommandEvent, r gateway.Responder) {
	channelID := targetChannel(ev)

	if err := c.transition(ctx, channelID, model.StateClosed); err != nil {
		c.replyStateError(r, "close", err)
		return
	}
	if err := c.gw.SetSendMessages(ctx, ev.GuildID, channelID, false); err != nil {
		log.Printf("[lifecycle] close %s: %v", channelID, err)
		c.reply(r, "❌ Failed to close channel.", true)
		metrics.Commands.WithLabelValues("close", "error").Inc()
		return
	}
	c.reply(r, fmt.Sprintf("🔒 <#%s> closed.", channelID), false)
	metrics.Commands.WithLabelValues("close", "ok").Inc()
}

func (c *Controller) openTask(ctx context.Context, ev gateway.CommandEvent, r gateway.Responder) {
	channelID := targetChannel(ev)

	if err := c.transition(ctx, channelID, model.StateOpen); err != nil {
		c.replyStateError(r, "open", err)
		return
	}
	if err := c.gw.SetSendMessages(ctx, ev.GuildID, channelID, true); err != nil {
		log.Printf("[lifecycle] open %s: %v", channelID, err)
		c.reply(r, "❌ Failed to open channel.", true)
		metrics.Commands.WithLabelValues("open", "error").Inc()
		return
	}
	c.reply(r, fmt.Sprintf("🔓 <#%s> opened.", channelID), false)
	metrics.Commands.WithLabelValues("open", "ok").Inc()
}

func (c *Controller) endTask(ctx context.Context, ev gateway.CommandEvent, r gateway.Responder) {
	channelID := targetChannel(ev)

	if err := c.transition(ctx, channelID, model.StateArchived); err != nil {
		c.replyStateError(r, "end", err)
		return
	}
	if err := c.gw.SetChannelParent(ctx, channelID, c.cfg.CompletedCategoryID); err != nil {
		log.Printf("[lifecycle] move %s to completed: %v", channelID, err)
		c.reply(r, "❌ Failed to end task.", true)
		metrics.Commands.WithLabelValues("end", "error").Inc()
		return
	}
	if err := c.gw.SetSendMessages(ctx, ev.GuildID, channelID, false); err != nil {
		log.Printf("[lifecycle] lock ended channel %s: %v", channelID, err)
	}
	c.reply(r, fmt.Sprintf("✅ <#%s> moved to COMPLETED.", channelID), false)
	metrics.Commands.WithLabelValues("end", "ok").Inc()
}

// transition moves the record to the requested state. Archived is terminal:
// any transition away from it fails with model.ErrArchived. Channels without
// a record are legal targets; the permission edits still apply (the command
// then acts on the platform alone).
func (c *Controller) transition(ctx context.Context, channelID string, to model.TaskState) error {
	_, err := c.store.Mutate(ctx, channelID, func(rec *model.TaskRecord) error {
		if rec.State == model.StateArchived && to != model.StateArchived {
			return model.ErrArchived
		}
		rec.State = to
		return nil
	})
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Controller) replyStateError(r gateway.Responder, kind string, err error) {
	if errors.Is(err, model.ErrArchived) {
		msg := "❌ Task has already ended."
		if kind == "open" {
			msg = "❌ Task has ended and cannot be reopened."
		}
		c.reply(r, msg, true)
		metrics.Commands.WithLabelValues(kind, "invalid").Inc()
		return
	}
	log.Printf("[lifecycle] %s transition: %v", kind, err)
	c.reply(r, "❌ Failed to update task.", true)
	metrics.Commands.WithLabelValues(kind, "error").Inc()
}

func targetChannel(ev gateway.CommandEvent) string {
	if ev.TargetChannelID != "" {
		return ev.TargetChannelID
	}
	return ev.ChannelID
}

/* -------- responder plumbing -------- */

func (c *Controller) reply(r gateway.Responder, content string, ephemeral bool) {
	if err := r.Reply(content, ephemeral); err != nil {
		log.Printf("[lifecycle] reply: %v", err)
	}
}

func (c *Controller) edit(r gateway.Responder, content string) {
	if err := r.Edit(content); err != nil {
		log.Printf("[lifecycle] edit reply: %v", err)
	}
}

func (c *Controller) fail(r gateway.Responder, kind string) {
	c.edit(r, "❌ Failed to create task.")
	metrics.Commands.WithLabelValues(kind, "error").Inc()
}
