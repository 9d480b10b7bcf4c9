package core

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// RelayState is a state of the relay loop
type RelayState int

const (
	StatePolling RelayState = iota
	StatePlanning
	StateSubmitting
	StateAwaitingConfirmation
)

func (s RelayState) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StatePlanning:
		return "planning"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// RelayLoop relays finalized headers and lane messages from a source chain to a target chain,
// and relays delivery confirmations of those messages back to the source chain.
//
// All of its state is private to one direction and re-derived from chain reads on every poll,
// so a restarted loop resumes correctly from whatever has landed on chain.
type RelayLoop struct {
	bridge string
	name   string
	src    Chain
	dst    Chain
	mode   RelayMode
	cfg    RelayConfig

	lanes    []*LaneState
	tracker  *FinalityTracker
	strategy *MessageRelayStrategy
	policy   *RetryPolicy
	clock    Clock
	sink     EventSink

	state RelayState
	queue []*PendingSubmission
	// bridgedTarget is the best target header verified by the source chain
	bridgedTarget *HeaderFact
}

// NewRelayLoop validates the config and returns a loop in the Polling state
func NewRelayLoop(dc DirectionConfig) (*RelayLoop, error) {
	if err := dc.Validate(); err != nil {
		return nil, err
	}
	laneIDs, err := dc.Relay.LaneIDs()
	if err != nil {
		return nil, err
	}
	lanes := make([]*LaneState, len(laneIDs))
	for i, id := range laneIDs {
		lanes[i] = NewLaneState(id, dc.Relay.MaxUnconfirmed, dc.Relay.ConfirmationLowWater)
	}
	clock := dc.Clock
	if clock == nil {
		clock = SystemClock()
	}
	sink := dc.Sink
	if sink == nil {
		sink = DefaultEventSink()
	}
	return &RelayLoop{
		bridge:   dc.Bridge,
		name:     dc.Name(),
		src:      dc.Source,
		dst:      dc.Target,
		mode:     dc.Mode,
		cfg:      dc.Relay,
		lanes:    lanes,
		tracker:  NewFinalityTracker(dc.Relay.OnlyMandatoryHeaders),
		strategy: NewMessageRelayStrategy(dc.Relay.MaxUnconfirmed, dc.Relay.BatchSize, dc.Relay.LanePriority),
		policy:   NewRetryPolicy(dc.Relay),
		clock:    clock,
		sink:     sink,
		state:    StatePolling,
	}, nil
}

func (rl *RelayLoop) Name() string {
	return rl.name
}

func (rl *RelayLoop) State() RelayState {
	return rl.state
}

func (rl *RelayLoop) Tracker() *FinalityTracker {
	return rl.tracker
}

func (rl *RelayLoop) Lanes() []*LaneState {
	return rl.lanes
}

// Pending returns the submissions planned in the current cycle that are not resolved yet
func (rl *RelayLoop) Pending() []*PendingSubmission {
	return rl.queue
}

// Run drives the state machine until ctx is done
func (rl *RelayLoop) Run(ctx context.Context) error {
	rl.emit(ctx, Event{Type: EventLoopStarted})
	defer rl.emit(context.WithoutCancel(ctx), Event{Type: EventLoopStopped})

	for {
		if err := rl.Step(ctx); err != nil {
			return err
		}
	}
}

// Step runs the handler of the current state once. It returns an error only when ctx is done.
func (rl *RelayLoop) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch rl.state {
	case StatePolling:
		return rl.poll(ctx)
	case StatePlanning:
		return rl.plan(ctx)
	case StateSubmitting:
		return rl.submit(ctx)
	case StateAwaitingConfirmation:
		return rl.await(ctx)
	default:
		panic(fmt.Sprintf("unexpected relay state: %v", rl.state))
	}
}

func (rl *RelayLoop) logger() *log.RelayLogger {
	return log.GetLogger().WithModule("core.relay").WithDirection(rl.name)
}

func (rl *RelayLoop) emit(ctx context.Context, ev Event) {
	ev.Time = rl.clock.Now()
	ev.Direction = rl.name
	rl.sink.HandleEvent(ctx, ev)
}

// sleep waits for d or until ctx is done
func (rl *RelayLoop) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-rl.clock.After(d):
		return nil
	}
}

// poll reads both chains until it succeeds. Reads are retried without limit,
// backing off on the loop clock.
func (rl *RelayLoop) poll(ctx context.Context) error {
	logger := rl.logger()
	for try := uint(1); ; try++ {
		err := rl.readState(ctx)
		if err == nil {
			rl.state = StatePlanning
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if rl.policy.MaxAttempts > 0 && try%rl.policy.MaxAttempts == 0 {
			logger.ErrorContext(ctx, "failed to read chain state", err, "try", try)
		} else {
			logger.InfoContext(ctx,
				"retrying to read chain state",
				"try", try,
				"try_limit", rl.policy.MaxAttempts,
				"error", err.Error(),
			)
		}
		if err := rl.sleep(ctx, rl.policy.NextDelay(try)); err != nil {
			return err
		}
	}
}

func (rl *RelayLoop) readState(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RelayLoop.readState", WithDirectionAttributes(rl.bridge, rl.src, rl.dst), withPackage(rl.src))
	defer span.End()

	var available, relayed, targetFinal, bridgedTarget *HeaderFact
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		available, err = rl.src.ReadFinalizedHeader(egCtx)
		return errors.Wrapf(err, "failed to read the finalized header of %s", rl.src.ChainID())
	})
	eg.Go(func() error {
		var err error
		relayed, err = rl.dst.ReadBestBridgedHeader(egCtx)
		return errors.Wrapf(err, "failed to read the bridged header on %s", rl.dst.ChainID())
	})
	if rl.mode.relaysMessages() {
		eg.Go(func() error {
			var err error
			targetFinal, err = rl.dst.ReadFinalizedHeader(egCtx)
			return errors.Wrapf(err, "failed to read the finalized header of %s", rl.dst.ChainID())
		})
		eg.Go(func() error {
			var err error
			bridgedTarget, err = rl.src.ReadBestBridgedHeader(egCtx)
			return errors.Wrapf(err, "failed to read the bridged header on %s", rl.src.ChainID())
		})
	}
	if err := eg.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if available == nil {
		err := errors.Errorf("%s has no finalized header", rl.src.ChainID())
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var mandatory []*HeaderFact
	if rl.mode.relaysHeaders() && relayed != nil && available.NewerThan(relayed) {
		var err error
		if mandatory, err = rl.src.ReadMandatoryHeaders(ctx, relayed.Number+1, available.Number); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return errors.Wrapf(err, "failed to read mandatory headers of %s", rl.src.ChainID())
		}
	}
	rl.tracker.Update(available, relayed, mandatory)
	rl.bridgedTarget = bridgedTarget
	progress := rl.tracker.Progress()
	rl.emit(ctx, Event{Type: EventHeaderProgress, Progress: &progress})

	if rl.cfg.OnlyMandatoryHeaders && rl.mode.relaysHeaders() {
		if err := rl.requireConfirmationHeader(ctx); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	if !rl.mode.relaysMessages() {
		return nil
	}
	for _, ls := range rl.lanes {
		if err := rl.refreshLane(ctx, ls, targetFinal); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

func (rl *RelayLoop) refreshLane(ctx context.Context, ls *LaneState, targetFinal *HeaderFact) error {
	lane := ls.Lane()
	relayed := rl.tracker.BestRelayed()

	// read at the source header known to the target so that every undelivered message is provable
	outbound, err := rl.src.ReadOutboundLaneState(NewQueryContext(ctx, headerNumber(relayed)), lane)
	if err != nil {
		return errors.Wrapf(err, "failed to read outbound lane %s on %s", lane, rl.src.ChainID())
	}
	inbound, err := rl.dst.ReadInboundLaneState(NewQueryContext(ctx, headerNumber(targetFinal)), lane)
	if err != nil {
		return errors.Wrapf(err, "failed to read inbound lane %s on %s", lane, rl.dst.ChainID())
	}
	if err := ls.Refresh(outbound, inbound); err != nil {
		return err
	}

	switch {
	case rl.bridgedTarget == nil:
		// the source chain cannot verify any receipt yet
		if err := ls.RefreshConfirmable(&InboundLaneState{Lane: lane}); err != nil {
			return err
		}
	case rl.bridgedTarget.Number < headerNumber(targetFinal):
		confirmable, err := rl.dst.ReadInboundLaneState(NewQueryContext(ctx, rl.bridgedTarget.Number), lane)
		if err != nil {
			return errors.Wrapf(err, "failed to read inbound lane %s on %s at %d", lane, rl.dst.ChainID(), rl.bridgedTarget.Number)
		}
		if err := ls.RefreshConfirmable(confirmable); err != nil {
			return err
		}
	}

	if rl.cfg.OnlyMandatoryHeaders && rl.mode.relaysHeaders() {
		if available := rl.tracker.BestAvailable(); available.NewerThan(relayed) {
			latest, err := rl.src.ReadOutboundLaneState(NewQueryContext(ctx, available.Number), lane)
			if err != nil {
				return errors.Wrapf(err, "failed to read outbound lane %s on %s", lane, rl.src.ChainID())
			}
			_, undelivered := ls.UndeliveredRange()
			// the target frees unconfirmed capacity only once it learns the confirmations of the source
			confirmed := undelivered && latest.LatestReceivedNonce > outbound.LatestReceivedNonce
			if latest.LatestGeneratedNonce > outbound.LatestGeneratedNonce || confirmed {
				rl.tracker.RequireHeader(available.Number)
			}
		}
	}

	backlog := ls.Backlog()
	rl.emit(ctx, Event{Type: EventLaneBacklog, Backlog: &backlog})
	return nil
}

// requireConfirmationHeader requires the latest source header when the reverse direction of a lane
// needs a confirmation that can only be proven at a source header the target chain does not know.
// The receipts of the reverse direction live in the inbound lane of the source chain.
func (rl *RelayLoop) requireConfirmationHeader(ctx context.Context) error {
	available, relayed := rl.tracker.BestAvailable(), rl.tracker.BestRelayed()
	if relayed == nil || !available.NewerThan(relayed) {
		return nil
	}
	for _, ls := range rl.lanes {
		lane := ls.Lane()
		delivered, err := rl.src.ReadInboundLaneState(NewQueryContext(ctx, available.Number), lane)
		if err != nil {
			return errors.Wrapf(err, "failed to read inbound lane %s on %s", lane, rl.src.ChainID())
		}
		sent, err := rl.dst.ReadOutboundLaneState(NewQueryContext(ctx, 0), lane)
		if err != nil {
			return errors.Wrapf(err, "failed to read outbound lane %s on %s", lane, rl.dst.ChainID())
		}
		reverse := NewLaneState(lane, rl.cfg.MaxUnconfirmed, rl.cfg.ConfirmationLowWater)
		if err := reverse.Refresh(sent, delivered); err != nil {
			return err
		}
		if !reverse.NeedsConfirmation() {
			continue
		}
		provable, err := rl.src.ReadInboundLaneState(NewQueryContext(ctx, relayed.Number), lane)
		if err != nil {
			return errors.Wrapf(err, "failed to read inbound lane %s on %s at %d", lane, rl.src.ChainID(), relayed.Number)
		}
		if provable.LatestReceivedNonce < delivered.LatestReceivedNonce {
			rl.tracker.RequireHeader(available.Number)
			return nil
		}
	}
	return nil
}

func (rl *RelayLoop) plan(ctx context.Context) error {
	rl.queue = nil
	if rl.mode.relaysHeaders() {
		if h := rl.tracker.NextToRelay(); h != nil {
			p := &Payload{Kind: SubmissionHeaderRelay, Header: h}
			rl.emit(ctx, Event{Type: EventActionPlanned, Payload: p})
			rl.queue = append(rl.queue, &PendingSubmission{Payload: p})
		}
	}
	if rl.mode.relaysMessages() {
		action := rl.strategy.Plan(rl.lanes, rl.tracker.BestRelayed())
		if action.Kind != ActionIdle {
			rl.emit(ctx, Event{Type: EventActionPlanned, Action: &action})
			rl.queue = append(rl.queue, &PendingSubmission{Payload: rl.payloadFor(action)})
		}
	}

	if len(rl.queue) == 0 {
		rl.state = StatePolling
		return rl.sleep(ctx, rl.cfg.PollInterval)
	}
	rl.state = StateSubmitting
	return nil
}

func (rl *RelayLoop) payloadFor(action RelayAction) *Payload {
	switch action.Kind {
	case ActionDeliverMessages:
		return &Payload{
			Kind:    SubmissionMessageDelivery,
			Lane:    action.Lane,
			Nonces:  action.Nonces,
			ProofAt: rl.tracker.BestRelayed(),
		}
	case ActionConfirmReceipts:
		return &Payload{
			Kind:      SubmissionReceiptConfirmation,
			Lane:      action.Lane,
			UpToNonce: action.UpToNonce,
			ProofAt:   rl.bridgedTarget,
		}
	default:
		panic(fmt.Sprintf("no payload for action %s", action))
	}
}

// chainFor returns the chain a payload is submitted to
func (rl *RelayLoop) chainFor(kind SubmissionKind) Chain {
	if kind == SubmissionReceiptConfirmation {
		return rl.src
	}
	return rl.dst
}

func (rl *RelayLoop) submit(ctx context.Context) error {
	ps := rl.queue[0]
	if ps.AttemptCount == 0 {
		ps.FirstAttemptTime = rl.clock.Now()
	}
	ps.AttemptCount++
	ps.Handle = nil
	chain := rl.chainFor(ps.Payload.Kind)

	ctx, span := tracer.Start(ctx, "RelayLoop.submit",
		WithChainAttributes(chain.ChainID()),
		trace.WithAttributes(AttributeKeySubmissionKind.String(ps.Payload.Kind.String())),
	)
	defer span.End()

	if err := rl.prove(ctx, ps.Payload); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return rl.fail(ctx, ps, err)
	}

	// a cancelled cycle must not submit anything
	if err := ctx.Err(); err != nil {
		return err
	}
	rl.emit(ctx, Event{Type: EventSubmissionAttempted, Payload: ps.Payload, Attempt: ps.AttemptCount})
	handle, err := chain.Submit(ctx, ps.Payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return rl.fail(ctx, ps, err)
	}
	ps.Handle = handle
	rl.state = StateAwaitingConfirmation
	return nil
}

// prove attaches the proof a payload needs, built at ProofAt
func (rl *RelayLoop) prove(ctx context.Context, p *Payload) error {
	switch p.Kind {
	case SubmissionMessageDelivery:
		proof, err := rl.src.ProveMessages(NewQueryContext(ctx, headerNumber(p.ProofAt)), p.Lane, p.Nonces)
		if err != nil {
			return errors.Wrapf(err, "failed to prove messages %s of lane %s", p.Nonces, p.Lane)
		}
		p.Proof = proof
	case SubmissionReceiptConfirmation:
		proof, err := rl.dst.ProveInboundLane(NewQueryContext(ctx, headerNumber(p.ProofAt)), p.Lane)
		if err != nil {
			return errors.Wrapf(err, "failed to prove inbound lane %s", p.Lane)
		}
		p.Proof = proof
	}
	return nil
}

func (rl *RelayLoop) await(ctx context.Context) error {
	ps := rl.queue[0]
	chain := rl.chainFor(ps.Payload.Kind)

	res, err := chain.AwaitInclusion(ctx, ps.Handle, rl.cfg.InclusionTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// the transaction is left to resolve on chain
			return ctxErr
		}
		return rl.fail(ctx, ps, err)
	}

	switch res.Status {
	case InclusionIncluded:
		rl.resolve(ctx, ps, EventSubmissionSucceeded, nil)
		return nil
	case InclusionTimedOut:
		return rl.fail(ctx, ps, ErrTransient.Wrapf("%s not included within %s", ps.Handle.ID(), rl.cfg.InclusionTimeout))
	default:
		err := res.Err
		if err == nil {
			err = ErrRejected.Wrap(res.Reason)
		}
		return rl.fail(ctx, ps, err)
	}
}

// fail reacts to a failed attempt according to the class of err
func (rl *RelayLoop) fail(ctx context.Context, ps *PendingSubmission, err error) error {
	switch Classify(err) {
	case ClassCanceled:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	case ClassStale:
		rl.resolve(ctx, ps, EventSubmissionStale, err)
		return nil
	case ClassRejected, ClassFatal:
		rl.emit(ctx, Event{Type: EventSubmissionFailed, Payload: ps.Payload, Attempt: ps.AttemptCount, Err: err})
		rl.replan()
		return nil
	}

	rl.emit(ctx, Event{Type: EventSubmissionFailed, Payload: ps.Payload, Attempt: ps.AttemptCount, Err: err})
	elapsed := rl.clock.Now().Sub(ps.FirstAttemptTime)
	if rl.policy.ShouldAbandon(ps.AttemptCount, elapsed) {
		rl.emit(ctx, Event{
			Type:    EventSubmissionAbandoned,
			Payload: ps.Payload,
			Attempt: ps.AttemptCount,
			Err:     ErrExhausted.Wrapf("%d attempts in %s: %v", ps.AttemptCount, elapsed, err),
		})
		rl.replan()
		return nil
	}
	rl.state = StateSubmitting
	return rl.sleep(ctx, rl.policy.NextDelay(ps.AttemptCount)+rl.policy.JitterDelay())
}

// resolve completes a submission whose effect is on chain, whoever submitted it
func (rl *RelayLoop) resolve(ctx context.Context, ps *PendingSubmission, evType EventType, err error) {
	if ps.Payload.Kind == SubmissionHeaderRelay {
		rl.tracker.MarkSubmitted(ps.Payload.Header)
	}
	rl.emit(ctx, Event{Type: evType, Payload: ps.Payload, Attempt: ps.AttemptCount, Err: err})
	rl.queue = rl.queue[1:]
	if len(rl.queue) > 0 {
		rl.state = StateSubmitting
	} else {
		rl.state = StatePolling
	}
}

// replan drops the planned submissions and starts over from fresh chain state
func (rl *RelayLoop) replan() {
	rl.queue = nil
	rl.state = StatePolling
}

// RelayHandle is a running relay loop
type RelayHandle struct {
	loop   *RelayLoop
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start validates the config and runs a relay loop in the background.
// Configuration errors are returned here and no loop is started.
func Start(ctx context.Context, dc DirectionConfig) (*RelayHandle, error) {
	loop, err := NewRelayLoop(dc)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &RelayHandle{
		loop:   loop,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		h.err = loop.Run(ctx)
	}()
	return h, nil
}

// Stop cancels the loop and waits until it returns
func Stop(h *RelayHandle) error {
	h.cancel()
	<-h.done
	if errors.Is(h.err, context.Canceled) {
		return nil
	}
	return h.err
}

func (h *RelayHandle) Loop() *RelayLoop {
	return h.loop
}

// Done is closed when the loop returns
func (h *RelayHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the error the loop returned. It must be called after Done is closed.
func (h *RelayHandle) Err() error {
	return h.err
}

// StartService runs both directions of a bridge until ctx is done
func StartService(ctx context.Context, bridge string, left, right Chain, cfg RelayConfig, mode RelayMode, sink EventSink) error {
	var loops []*RelayLoop
	for _, pair := range [][2]Chain{{left, right}, {right, left}} {
		loop, err := NewRelayLoop(DirectionConfig{
			Bridge: bridge,
			Source: pair[0],
			Target: pair[1],
			Relay:  cfg,
			Mode:   mode,
			Sink:   sink,
		})
		if err != nil {
			return err
		}
		loops = append(loops, loop)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, loop := range loops {
		eg.Go(func() error {
			return loop.Run(egCtx)
		})
	}
	if err := eg.Wait(); err != nil && !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
		return err
	}
	return nil
}
