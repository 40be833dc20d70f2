// Package hitl implements the HITLController (C8b): the human-in-the-loop
// approval state machine gating HIGH/CRITICAL routing decisions, with TTL
// expiration, escalation, and best-effort approver notification.
package hitl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/opsintent/intentcore/pkg/apperrors"
	"github.com/opsintent/intentcore/pkg/checkpoint"
	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
	"github.com/opsintent/intentcore/pkg/notify"
)

const (
	approvalKeyPrefix = "approvals/"
	pendingKeyPrefix  = "approvals/pending/"
)

// Controller owns ApprovalRequest state in a CheckpointStore. Every
// transition is a single CAS against the stored version, matching
// GuidedDialogEngine's discipline for the same reason: concurrent callers
// (an approver and the expiration sweeper, say) must never silently
// clobber each other.
type Controller struct {
	store         checkpoint.Store
	notifier      notify.Notifier
	channel       string
	approvalTTL   time.Duration
	escalationCap int
	sweepInterval time.Duration

	metrics *metrics.Registry
	log     *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns a Controller. notifier may be nil (no notification channel
// configured); RequestApproval and the sweeper then skip delivery rather
// than failing the state transition, matching the Notifier contract's
// "failure to notify must never fail the approval state change" clause.
func New(store checkpoint.Store, notifier notify.Notifier, channel string, approvalTTL time.Duration, escalationCap int, sweepInterval time.Duration, reg *metrics.Registry) *Controller {
	return &Controller{
		store:         store,
		notifier:      notifier,
		channel:       channel,
		approvalTTL:   approvalTTL,
		escalationCap: escalationCap,
		sweepInterval: sweepInterval,
		metrics:       reg,
		log:           slog.With("component", "hitl-controller"),
		stopCh:        make(chan struct{}),
	}
}

// RequestApproval creates a pending ApprovalRequest for decision and fans
// out a creation notification to every approver concurrently. It waits
// for those notification attempts to finish, but an undelivered
// notification is only logged and never fails the request.
func (c *Controller) RequestApproval(ctx context.Context, decision models.RoutingDecision, assessment models.RiskAssessment, approvers []string) (string, error) {
	now := time.Now()
	approval := models.ApprovalRequest{
		ApprovalID:      uuid.NewString(),
		Decision:        decision,
		RiskLevel:       assessment.RiskLevel,
		RequestedAt:     now,
		ExpiresAt:       now.Add(c.approvalTTL),
		Status:          models.ApprovalPending,
		EscalationLevel: 0,
		Approvers:       approvers,
	}

	if err := c.save(ctx, approval, 0); err != nil {
		return "", err
	}
	if err := c.indexPending(ctx, approval); err != nil {
		c.log.Warn("failed to write pending index", "approval_id", approval.ApprovalID, "error", err)
	}

	if c.metrics != nil {
		c.metrics.ObserveHITLCreated(string(assessment.RiskLevel))
	}

	c.notifyApprovers(ctx, approval, notify.EventCreated, "", "")
	return approval.ApprovalID, nil
}

// Approve transitions a pending approval to approved.
func (c *Controller) Approve(ctx context.Context, id, approverID, comment string) error {
	return c.transition(ctx, id, func(a *models.ApprovalRequest) error {
		a.Status = models.ApprovalApproved
		a.ApproverID = approverID
		a.DecisionComment = comment
		return nil
	}, notify.EventApproved, approverID, comment)
}

// Reject transitions a pending approval to rejected.
func (c *Controller) Reject(ctx context.Context, id, approverID, comment string) error {
	return c.transition(ctx, id, func(a *models.ApprovalRequest) error {
		a.Status = models.ApprovalRejected
		a.ApproverID = approverID
		a.DecisionComment = comment
		return nil
	}, notify.EventRejected, approverID, comment)
}

// Cancel transitions a pending approval to cancelled.
func (c *Controller) Cancel(ctx context.Context, id string) error {
	return c.transition(ctx, id, func(a *models.ApprovalRequest) error {
		a.Status = models.ApprovalCancelled
		return nil
	}, notify.EventCancelled, "", "")
}

// ListPending returns every pending approval assigned to approverID.
func (c *Controller) ListPending(ctx context.Context, approverID string) ([]models.ApprovalRequest, error) {
	entries, err := c.store.List(ctx, pendingKeyPrefix+approverID+"/")
	if err != nil {
		return nil, fmt.Errorf("hitl: listing pending for %s: %w", approverID, err)
	}

	out := make([]models.ApprovalRequest, 0, len(entries))
	for _, entry := range entries {
		var ref pendingIndexEntry
		if err := json.Unmarshal(entry.Payload, &ref); err != nil {
			continue
		}
		approval, err := c.load(ctx, ref.ApprovalID)
		if err != nil {
			continue
		}
		if approval.Status == models.ApprovalPending {
			out = append(out, approval)
		}
	}
	return out, nil
}

// transition loads the approval, applies mutate only if it is still
// pending, and CASes the result. A non-pending approval (already terminal,
// or escalated) is reported as ErrApprovalTerminal rather than silently
// overwritten.
func (c *Controller) transition(ctx context.Context, id string, mutate func(*models.ApprovalRequest) error, event notify.Event, approverID, comment string) error {
	entry, err := c.store.Load(ctx, approvalKeyPrefix+id)
	if err != nil {
		if err == checkpoint.ErrNotFound {
			return fmt.Errorf("hitl: %s: %w", id, apperrors.ErrApprovalNotFound)
		}
		return fmt.Errorf("hitl: loading approval %s: %w", id, err)
	}

	var approval models.ApprovalRequest
	if err := json.Unmarshal(entry.Payload, &approval); err != nil {
		return fmt.Errorf("hitl: decoding approval %s: %w", id, err)
	}

	if approval.Status != models.ApprovalPending {
		return fmt.Errorf("hitl: %s: %w", id, apperrors.ErrApprovalTerminal)
	}

	approval = approval.Clone()
	if err := mutate(&approval); err != nil {
		return err
	}

	payload, err := json.Marshal(approval)
	if err != nil {
		return fmt.Errorf("hitl: marshal approval: %w", err)
	}

	if _, err := c.store.CAS(ctx, approvalKeyPrefix+id, payload, entry.Version, 0); err != nil {
		if err == checkpoint.ErrVersionConflict {
			// Reload once: if someone else already landed a terminal
			// transition, report that rather than retrying blindly.
			reloaded, loadErr := c.load(ctx, id)
			if loadErr == nil && reloaded.Status != models.ApprovalPending {
				return fmt.Errorf("hitl: %s: %w", id, apperrors.ErrApprovalTerminal)
			}
			return fmt.Errorf("hitl: %s: %w", id, apperrors.ErrConflict)
		}
		return fmt.Errorf("hitl: CAS approval %s: %w", id, err)
	}

	if approval.Status.IsTerminal() && c.metrics != nil {
		c.metrics.ObserveHITLTerminal(string(approval.RiskLevel), string(approval.Status), time.Since(approval.RequestedAt).Seconds())
	}

	c.notifyApprovers(ctx, approval, event, approverID, comment)
	return nil
}

func (c *Controller) load(ctx context.Context, id string) (models.ApprovalRequest, error) {
	entry, err := c.store.Load(ctx, approvalKeyPrefix+id)
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	var approval models.ApprovalRequest
	if err := json.Unmarshal(entry.Payload, &approval); err != nil {
		return models.ApprovalRequest{}, err
	}
	return approval, nil
}

func (c *Controller) save(ctx context.Context, approval models.ApprovalRequest, expectedVersion int64) error {
	payload, err := json.Marshal(approval)
	if err != nil {
		return fmt.Errorf("hitl: marshal approval: %w", err)
	}
	if _, err := c.store.Save(ctx, approvalKeyPrefix+approval.ApprovalID, payload, 0); err != nil {
		return fmt.Errorf("hitl: saving approval %s: %w", approval.ApprovalID, err)
	}
	return nil
}

type pendingIndexEntry struct {
	ApprovalID string `json:"approval_id"`
}

func (c *Controller) indexPending(ctx context.Context, approval models.ApprovalRequest) error {
	payload, err := json.Marshal(pendingIndexEntry{ApprovalID: approval.ApprovalID})
	if err != nil {
		return err
	}
	for _, approverID := range approval.Approvers {
		key := fmt.Sprintf("%s%s/%s", pendingKeyPrefix, approverID, approval.ApprovalID)
		if _, err := c.store.Save(ctx, key, payload, c.approvalTTL); err != nil {
			return err
		}
	}
	return nil
}

// notifyApprovers fans the given event out to every approver concurrently
// via errgroup, without letting a notification failure block or fail the
// already-committed state transition (spec §4.8's Notifier contract).
func (c *Controller) notifyApprovers(ctx context.Context, approval models.ApprovalRequest, event notify.Event, approverID, comment string) {
	if c.notifier == nil || len(approval.Approvers) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range approval.Approvers {
		target := target
		g.Go(func() error {
			result := c.notifier.Notify(gctx, notify.Request{
				Approval:   approval,
				Event:      event,
				ApproverID: approverID,
				Comment:    comment,
			}, c.channel)
			if !result.Delivered {
				c.log.Warn("approval notification undelivered",
					"approval_id", approval.ApprovalID, "approver", target,
					"attempts", result.Attempts, "error", result.Err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// StartSweeper launches the background TTL sweep goroutine (spec §5:
// "a background sweeper runs every 30s over prefix=approvals/"). It
// mirrors the teacher's ticker+jitter worker loop, generalized from
// polling a database table to scanning the checkpoint store.
func (c *Controller) StartSweeper(ctx context.Context) {
	c.wg.Add(1)
	go c.runSweeper(ctx)
}

// StopSweeper signals the sweeper to stop and waits for it to finish. Safe
// to call multiple times.
func (c *Controller) StopSweeper() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Controller) runSweeper(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.jittered(c.sweepInterval))
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.sweepOnce(ctx); err != nil {
				c.log.Error("sweep failed", "error", err)
			}
			ticker.Reset(c.jittered(c.sweepInterval))
		}
	}
}

// jittered returns d plus up to 10% random jitter, spreading sweeper load
// across multiple running instances the way the teacher's poll loop does.
func (c *Controller) jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	jitter := d / 10
	return d - jitter/2 + time.Duration(rand.Int64N(int64(jitter)+1))
}

// sweepOnce scans every pending approval and expires/escalates those past
// their TTL. Idempotent: an approval already observed terminal by the
// time CAS runs is simply skipped, not treated as an error.
func (c *Controller) sweepOnce(ctx context.Context) error {
	entries, err := c.store.List(ctx, approvalKeyPrefix)
	if err != nil {
		return fmt.Errorf("hitl: listing approvals for sweep: %w", err)
	}

	now := time.Now()
	pendingCount := 0
	for _, entry := range entries {
		var approval models.ApprovalRequest
		if err := json.Unmarshal(entry.Payload, &approval); err != nil {
			continue
		}
		if approval.Status == models.ApprovalPending {
			pendingCount++
		}
		if !approval.IsExpiredAt(now) {
			continue
		}
		if err := c.expireOne(ctx, approval, entry.Version); err != nil {
			c.log.Warn("failed to expire approval", "approval_id", approval.ApprovalID, "error", err)
		}
	}

	if c.metrics != nil {
		c.metrics.SetHITLPending(pendingCount)
	}
	return nil
}

// expireOne transitions one pending-but-overdue approval out of pending: to
// escalated if another level remains under the cap, spawning the next
// escalation-chain request, or to rejected once the cap is reached.
func (c *Controller) expireOne(ctx context.Context, approval models.ApprovalRequest, version int64) error {
	atCap := approval.EscalationLevel >= c.escalationCap

	resolved := approval.Clone()
	if atCap {
		resolved.Status = models.ApprovalRejected
	} else {
		resolved.Status = models.ApprovalEscalated
	}

	payload, err := json.Marshal(resolved)
	if err != nil {
		return err
	}
	if _, err := c.store.CAS(ctx, approvalKeyPrefix+approval.ApprovalID, payload, version, 0); err != nil {
		if err == checkpoint.ErrVersionConflict {
			return nil // someone else already transitioned it; idempotent no-op
		}
		return err
	}

	if atCap {
		if c.metrics != nil {
			c.metrics.ObserveHITLTerminal(string(resolved.RiskLevel), string(resolved.Status), time.Since(resolved.RequestedAt).Seconds())
		}
		c.notifyApprovers(ctx, resolved, notify.EventRejected, "", "")
		return nil // chain terminates; the original request is rejected per spec §4.8
	}

	c.notifyApprovers(ctx, resolved, notify.EventExpired, "", "")

	now := time.Now()
	next := models.ApprovalRequest{
		ApprovalID:      uuid.NewString(),
		Decision:        resolved.Decision,
		RiskLevel:       resolved.RiskLevel,
		RequestedAt:     now,
		ExpiresAt:       now.Add(c.approvalTTL),
		Status:          models.ApprovalPending,
		EscalationLevel: resolved.EscalationLevel + 1,
		Approvers:       resolved.Approvers,
	}
	if err := c.save(ctx, next, 0); err != nil {
		return err
	}
	if err := c.indexPending(ctx, next); err != nil {
		c.log.Warn("failed to write pending index for escalation", "approval_id", next.ApprovalID, "error", err)
	}
	if c.metrics != nil {
		c.metrics.ObserveHITLCreated(string(next.RiskLevel))
	}
	c.notifyApprovers(ctx, next, notify.EventEscalated, "", "")
	return nil
}
