package approval

import (
	"context"
	"errors"
	"fmt"
	"log"

	"taskbot/gateway"
	"taskbot/metrics"
	"taskbot/model"
	"taskbot/store"
)

const (
	approvedEmoji = "✅"
	lockedNotice  = "🚫 User limit reached (**%d**). Channel locked."
)

// errAlreadySettled aborts a Mutate whose re-check found nothing to do.
var errAlreadySettled = errors.New("submission already settled")

// Engine grants capacity-limited credit for accepted proof submissions.
// The whole check-grant-record sequence for a channel runs under that
// channel's mutex, so overlapping submissions are serialized and the record
// can never exceed its user limit or credit a participant twice.
type Engine struct {
	store store.TaskStore
	gw    gateway.Gateway
	locks *keyedMutex
}

func NewEngine(s store.TaskStore, gw gateway.Gateway) *Engine {
	return &Engine{store: s, gw: gw, locks: newKeyedMutex()}
}

// HandleMessage evaluates one inbound message. Rejections are silent; all
// gateway faults are logged and leave the record consistent.
func (e *Engine) HandleMessage(ctx context.Context, ev gateway.MessageEvent) {
	unlock := e.locks.Lock(ev.ChannelID)
	defer unlock()

	rec, err := e.store.Get(ctx, ev.ChannelID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		log.Printf("[engine] load record for %s: %v", ev.ChannelID, err)
		return
	}

	verdict := Evaluate(ev, rec)
	if !verdict.Accept {
		metrics.SubmissionsEvaluated.WithLabelValues("rejected").Inc()
		return
	}

	// Explicit state guard: Full and Closed channels still evaluate
	// submissions but never grant.
	if rec.State != model.StateOpen {
		metrics.SubmissionsEvaluated.WithLabelValues("locked").Inc()
		return
	}
	if rec.IsApproved(ev.AuthorID) {
		metrics.SubmissionsEvaluated.WithLabelValues("duplicate").Inc()
		return
	}

	// Role membership is a derived signal: someone holding the role without
	// being in the participant set was credited outside the bot, so leave
	// the counter alone.
	roles, err := e.gw.MemberRoles(ctx, ev.GuildID, ev.AuthorID)
	if err != nil {
		log.Printf("[engine] member roles for %s: %v", ev.AuthorID, err)
		return
	}
	for _, id := range roles {
		if id == rec.RoleID {
			log.Printf("[engine] %s already holds role %s outside the record, skipping", ev.AuthorID, rec.RoleID)
			metrics.SubmissionsEvaluated.WithLabelValues("duplicate").Inc()
			return
		}
	}

	// Grant first; the counter only moves once the role is actually held.
	if err := e.gw.GrantRole(ctx, ev.GuildID, ev.AuthorID, rec.RoleID); err != nil {
		log.Printf("[engine] grant role %s to %s: %v", rec.RoleID, ev.AuthorID, err)
		return
	}

	becameFull := false
	updated, err := e.store.Mutate(ctx, ev.ChannelID, func(r *model.TaskRecord) error {
		if r.State != model.StateOpen {
			return errAlreadySettled
		}
		if !r.Approve(ev.AuthorID) {
			return errAlreadySettled
		}
		becameFull = r.State == model.StateFull
		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		return
	}
	if err != nil {
		// The participant keeps the role; the membership check above keeps
		// a retry from granting twice.
		log.Printf("[engine] record approval for %s in %s: %v", ev.AuthorID, ev.ChannelID, err)
		return
	}

	metrics.SubmissionsEvaluated.WithLabelValues("accepted").Inc()
	metrics.ApprovalsGranted.Inc()

	if err := e.gw.AddReaction(ctx, ev.ChannelID, ev.MessageID, approvedEmoji); err != nil {
		log.Printf("[engine] react to %s: %v", ev.MessageID, err)
	}

	if becameFull {
		e.lockFullChannel(ctx, ev.GuildID, updated)
	}
}

// lockFullChannel runs the capacity-reached transition. It fires exactly
// once per task because only the mutation that moves the record to Full
// reports becameFull.
func (e *Engine) lockFullChannel(ctx context.Context, guildID string, rec *model.TaskRecord) {
	metrics.CapacityLocks.Inc()
	log.Printf("[engine] task %s reached its limit of %d", rec.ChannelID, rec.UserLimit)

	if err := e.gw.SetSendMessages(ctx, guildID, rec.ChannelID, false); err != nil {
		log.Printf("[engine] lock channel %s: %v", rec.ChannelID, err)
	}
	notice := fmt.Sprintf(lockedNotice, rec.UserLimit)
	if _, err := e.gw.SendMessage(ctx, rec.ChannelID, notice); err != nil {
		log.Printf("[engine] capacity notice for %s: %v", rec.ChannelID, err)
	}
}
