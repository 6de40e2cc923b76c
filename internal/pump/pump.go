// Package pump runs the serial claim -> route -> render -> transport -> ack
// tick loop of spec.md 4.6, generalizing the teacher's per-printer RunAgent
// dial-loop-with-retry into one loop over every job family that sleeps
// pollMs after each tick.
package pump

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/backend"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/bridgelog"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/render"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/route"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/session"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/transport"
)

// Scope supplies the pump with the session/config state it needs each
// tick. internal/agent implements it (scope.go) against the Agent's
// mutex-guarded State.
type Scope interface {
	RestaurantID() (string, bool)
	ConsumerID() string
	DeviceName() string
	ClaimLimit() int
	AssignedPrinterID() *string
	SetAssignedPrinterID(*string)
	RPCFlags() *model.RPCAvailability
	RecordStats(fn func(*model.RuntimeStats))
}

// Pump owns the tick loop. It is safe to call Tick concurrently; overlap
// is rejected rather than queued, the same re-entry guard the teacher's
// dial loop gets from running in its own goroutine per printer.
type Pump struct {
	backend    *backend.Client
	session    *session.Manager
	logger     *bridgelog.Logger
	scope      Scope
	tcp        *transport.TCPWriter
	http       *transport.HTTPFiscalClient
	appVersion string

	processing atomic.Bool
}

// New returns a Pump wired to the given backend, session manager,
// transports, and scope.
func New(client *backend.Client, sess *session.Manager, logger *bridgelog.Logger, scope Scope, tcp *transport.TCPWriter, httpClient *transport.HTTPFiscalClient, appVersion string) *Pump {
	return &Pump{
		backend:    client,
		session:    sess,
		logger:     logger,
		scope:      scope,
		tcp:        tcp,
		http:       httpClient,
		appVersion: appVersion,
	}
}

// Run ticks every pollMs() until ctx is cancelled.
func (p *Pump) Run(ctx context.Context, pollMs func() int) {
	for {
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(pollMs()) * time.Millisecond):
		}
	}
}

// Tick executes one serial pass: ensureSignedIn, heartbeat, kitchen jobs,
// then fiscal/non-fiscal jobs gated on their RPC availability flags
// (spec.md 4.6). A tick already in flight is skipped rather than queued.
func (p *Pump) Tick(ctx context.Context) {
	if !p.processing.CompareAndSwap(false, true) {
		return
	}
	defer p.processing.Store(false)

	restaurantID, ok := p.scope.RestaurantID()
	if !ok {
		return
	}

	if _, err := p.session.EnsureSignedIn(ctx); err != nil {
		p.fail(fmt.Errorf("ensure signed in: %w", err))
		return
	}

	if err := p.heartbeat(ctx, restaurantID); err != nil {
		p.logger.Warn("heartbeat failed: %v", err)
	}

	consumerID := p.scope.ConsumerID()
	limit := p.scope.ClaimLimit()

	if err := p.runKitchenJobs(ctx, restaurantID, consumerID, limit); err != nil {
		p.fail(fmt.Errorf("kitchen jobs: %w", err))
		return
	}

	flags := p.scope.RPCFlags()
	if flags.PhysicalReceiptAvailable() {
		p.runFiscalJobs(ctx, restaurantID, consumerID, limit)
	}
	if flags.NonFiscalReceiptAvailable() {
		p.runNonFiscalJobs(ctx, restaurantID, consumerID, limit)
	}

	p.succeed()
}

func (p *Pump) fail(err error) {
	p.logger.Error("tick: %v", err)
	now := time.Now()
	p.scope.RecordStats(func(s *model.RuntimeStats) {
		s.LastRunAt = &now
		s.LastError = err.Error()
	})
}

func (p *Pump) succeed() {
	now := time.Now()
	p.scope.RecordStats(func(s *model.RuntimeStats) {
		s.LastRunAt = &now
		s.LastError = ""
	})
}

func (p *Pump) runKitchenJobs(ctx context.Context, restaurantID, consumerID string, limit int) error {
	rows, err := p.backend.ClaimKitchenJobs(ctx, restaurantID, consumerID, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	p.scope.RecordStats(func(s *model.RuntimeStats) { s.Claimed += len(rows) })

	restaurant, err := p.backend.FetchRestaurant(ctx, restaurantID)
	if err != nil {
		return err
	}
	var routes model.LiveRoutes
	if restaurant != nil {
		routes = model.ParseLiveRoutes(restaurant.Settings)
	} else {
		routes = model.ParseLiveRoutes(nil)
	}

	for _, row := range rows {
		p.processKitchenJob(ctx, consumerID, row, routes)
	}
	return nil
}

func (p *Pump) processKitchenJob(ctx context.Context, consumerID string, row backend.ClaimedKitchenJob, routes model.LiveRoutes) {
	job := model.KitchenJob{
		ID:         row.ID,
		Department: row.Department,
		Payload:    row.Payload,
		Route:      row.Route,
		Created:    parseTimestamp(row.CreatedAt),
	}

	target, err := route.Resolve(job, routes)
	if err != nil {
		p.completeKitchen(ctx, job.ID, consumerID, false, err.Error())
		return
	}

	ticket := render.RenderKitchenTicket(job)
	if err := p.tcp.Send(ctx, target.Host, target.Port, ticket); err != nil {
		p.completeKitchen(ctx, job.ID, consumerID, false, err.Error())
		return
	}

	p.scope.RecordStats(func(s *model.RuntimeStats) { s.Printed++ })
	p.completeKitchen(ctx, job.ID, consumerID, true, "")
}

func (p *Pump) completeKitchen(ctx context.Context, jobID, consumerID string, success bool, errMsg string) {
	if !success {
		p.scope.RecordStats(func(s *model.RuntimeStats) { s.Failed++ })
	}
	if err := p.backend.CompleteKitchenJob(ctx, jobID, consumerID, success, errMsg, nil); err != nil {
		p.logger.Warn("ack kitchen job %s failed: %v", jobID, err)
	}
}

func (p *Pump) runFiscalJobs(ctx context.Context, restaurantID, consumerID string, limit int) {
	rows, err := p.backend.ClaimFiscalJobs(ctx, restaurantID, consumerID, limit)
	if err != nil {
		if backend.IsFunctionNotFound(err) {
			if p.scope.RPCFlags().DisablePhysicalReceipt() {
				p.logger.Warn("physical_receipt_claim_jobs no longer available, disabling fiscal receipts")
			}
			return
		}
		p.logger.Error("claim fiscal jobs: %v", err)
		return
	}

	for _, row := range rows {
		p.processFiscalJob(ctx, consumerID, row)
	}
}

func (p *Pump) processFiscalJob(ctx context.Context, consumerID string, row backend.ClaimedFiscalJob) {
	job := model.FiscalJob{ID: row.ID, Payload: row.Payload, Created: parseTimestamp(row.CreatedAt)}
	doc := render.RenderFiscalDocument(job)

	result, err := p.http.Post(ctx, job.Payload.Route.Host, job.Payload.Route.Port, job.Payload.Route.APIPath, doc)
	if err != nil {
		p.completeFiscal(ctx, job.ID, consumerID, false, "", truncateError(err))
		return
	}

	receiptID := result.ReceiptID
	if receiptID == "" {
		receiptID = syntheticReceiptID()
	}
	p.scope.RecordStats(func(s *model.RuntimeStats) { s.Printed++ })
	p.completeFiscal(ctx, job.ID, consumerID, true, receiptID, "")
}

func (p *Pump) completeFiscal(ctx context.Context, jobID, consumerID string, success bool, receiptID, errMsg string) {
	if !success {
		p.scope.RecordStats(func(s *model.RuntimeStats) { s.Failed++ })
	}
	if err := p.backend.CompleteFiscalJob(ctx, jobID, consumerID, success, receiptID, errMsg, nil); err != nil {
		if backend.IsFunctionNotFound(err) {
			if p.scope.RPCFlags().DisablePhysicalReceipt() {
				p.logger.Warn("physical_receipt_complete_job no longer available, disabling fiscal receipts")
			}
			return
		}
		p.logger.Warn("ack fiscal job %s failed: %v", jobID, err)
	}
}

func (p *Pump) runNonFiscalJobs(ctx context.Context, restaurantID, consumerID string, limit int) {
	rows, err := p.backend.ClaimNonFiscalJobs(ctx, restaurantID, consumerID, limit)
	if err != nil {
		if backend.IsFunctionNotFound(err) {
			if p.scope.RPCFlags().DisableNonFiscalReceipt() {
				p.logger.Warn("non_fiscal_receipt_claim_jobs no longer available, disabling non-fiscal receipts")
			}
			return
		}
		p.logger.Error("claim non-fiscal jobs: %v", err)
		return
	}

	for _, row := range rows {
		p.processNonFiscalJob(ctx, consumerID, row)
	}
}

func (p *Pump) processNonFiscalJob(ctx context.Context, consumerID string, row backend.ClaimedNonFiscalJob) {
	job := model.NonFiscalReceiptJob{ID: row.ID, Payload: row.Payload, Created: parseTimestamp(row.CreatedAt)}
	ticket := render.RenderNonFiscalReceipt(job)

	target := route.NormalizePort(job.Payload.Route.Port)
	if err := p.tcp.Send(ctx, job.Payload.Route.Host, target, ticket); err != nil {
		p.completeNonFiscal(ctx, job.ID, consumerID, false, truncateError(err))
		return
	}

	p.scope.RecordStats(func(s *model.RuntimeStats) { s.Printed++ })
	p.completeNonFiscal(ctx, job.ID, consumerID, true, "")
}

func (p *Pump) completeNonFiscal(ctx context.Context, jobID, consumerID string, success bool, errMsg string) {
	if !success {
		p.scope.RecordStats(func(s *model.RuntimeStats) { s.Failed++ })
	}
	if err := p.backend.CompleteNonFiscalJob(ctx, jobID, consumerID, success, errMsg, nil); err != nil {
		if backend.IsFunctionNotFound(err) {
			if p.scope.RPCFlags().DisableNonFiscalReceipt() {
				p.logger.Warn("non_fiscal_receipt_complete_job no longer available, disabling non-fiscal receipts")
			}
			return
		}
		p.logger.Warn("ack non-fiscal job %s failed: %v", jobID, err)
	}
}

func parseTimestamp(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func truncateError(err error) string {
	msg := err.Error()
	const max = 500
	if len(msg) > max {
		return msg[:max]
	}
	return msg
}

// syntheticReceiptID mints a fallback id when a fiscal device's response
// carries no recognizable receipt marker (spec.md 4.6 step 4).
func syntheticReceiptID() string {
	id := uuid.New().String()
	hex := id[:8]
	return fmt.Sprintf("RT-%s-%d", hex, time.Now().Unix())
}
