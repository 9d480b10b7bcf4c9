package core_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *eventRecorder) HandleEvent(_ context.Context, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) types() []core.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []core.EventType
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

func (r *eventRecorder) last(typ core.EventType) *core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == typ {
			ev := r.events[i]
			return &ev
		}
	}
	return nil
}

type testHandle string

func (h testHandle) ID() string { return string(h) }

// atHeight matches a QueryContext at the given height
type atHeight uint64

func (m atHeight) Matches(x any) bool {
	qc, ok := x.(core.QueryContext)
	return ok && qc.Height() == uint64(m)
}

func (m atHeight) String() string {
	return fmt.Sprintf("is a query context at height %d", uint64(m))
}

// payloadOf matches a payload of the given kind
type payloadOf core.SubmissionKind

func (m payloadOf) Matches(x any) bool {
	p, ok := x.(*core.Payload)
	return ok && p.Kind == core.SubmissionKind(m)
}

func (m payloadOf) String() string {
	return fmt.Sprintf("is a %s payload", core.SubmissionKind(m))
}

var included = &core.InclusionResult{Status: core.InclusionIncluded}

func sourceHeader(number uint64) *core.HeaderFact {
	return &core.HeaderFact{ChainID: "source", Number: number}
}

func targetHeader(number uint64) *core.HeaderFact {
	return &core.HeaderFact{ChainID: "target", Number: number}
}

func testRelayConfig() core.RelayConfig {
	cfg := core.DefaultRelayConfig()
	cfg.RetryBaseDelay = time.Second
	cfg.RetryMaxDelay = 10 * time.Second
	cfg.RetryMaxAttempts = 3
	cfg.SubmitDelayJitter = 0
	return cfg
}

func newMockChains(ctrl *gomock.Controller) (*core.MockChain, *core.MockChain) {
	src := core.NewMockChain(ctrl)
	dst := core.NewMockChain(ctrl)
	src.EXPECT().ChainID().Return("source").AnyTimes()
	dst.EXPECT().ChainID().Return("target").AnyTimes()
	return src, dst
}

func newTestLoop(t *testing.T, src, dst core.Chain, mode core.RelayMode, cfg core.RelayConfig) (*core.RelayLoop, *fakeClock, *eventRecorder) {
	t.Helper()
	log.InitLoggerWithWriter("debug", "text", os.Stdout, false)

	clock := newFakeClock()
	events := &eventRecorder{}
	loop, err := core.NewRelayLoop(core.DirectionConfig{
		Bridge: "test",
		Source: src,
		Target: dst,
		Relay:  cfg,
		Mode:   mode,
		Sink:   events,
		Clock:  clock,
	})
	require.NoError(t, err)
	require.Equal(t, core.StatePolling, loop.State())
	return loop, clock, events
}

func step(t *testing.T, ctx context.Context, loop *core.RelayLoop, want core.RelayState) {
	t.Helper()
	require.NoError(t, loop.Step(ctx))
	require.Equal(t, want, loop.State())
}

// expectHeaderReads sets up the reads of a headers-only direction
func expectHeaderReads(src, dst *core.MockChain, available, relayed *core.HeaderFact) {
	src.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(available, nil).AnyTimes()
	dst.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(relayed, nil).AnyTimes()
	src.EXPECT().ReadMandatoryHeaders(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
}

func TestRelayLoopRelaysHeaderThenMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	loop, _, events := newTestLoop(t, src, dst, core.RelayHeadersAndMessages, testRelayConfig())
	ctx := context.Background()

	src.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(sourceHeader(10), nil)
	dst.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(sourceHeader(5), nil)
	dst.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(targetHeader(3), nil)
	src.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(nil, nil)
	src.EXPECT().ReadMandatoryHeaders(gomock.Any(), uint64(6), uint64(10)).Return(nil, nil)
	src.EXPECT().ReadOutboundLaneState(atHeight(5), testLane).Return(&core.OutboundLaneState{
		Lane:                 testLane,
		OldestUnprunedNonce:  1,
		LatestGeneratedNonce: 3,
		AtBlock:              5,
	}, nil)
	dst.EXPECT().ReadInboundLaneState(atHeight(3), testLane).Return(&core.InboundLaneState{Lane: testLane}, nil)

	var delivered *core.Payload
	gomock.InOrder(
		dst.EXPECT().Submit(gomock.Any(), payloadOf(core.SubmissionHeaderRelay)).Return(testHandle("header"), nil),
		dst.EXPECT().AwaitInclusion(gomock.Any(), testHandle("header"), gomock.Any()).Return(included, nil),
		src.EXPECT().ProveMessages(atHeight(5), testLane, core.NonceRange{Begin: 1, End: 3}).Return([]byte("proof"), nil),
		dst.EXPECT().Submit(gomock.Any(), payloadOf(core.SubmissionMessageDelivery)).DoAndReturn(
			func(_ context.Context, p *core.Payload) (core.SubmissionHandle, error) {
				delivered = p
				return testHandle("delivery"), nil
			}),
		dst.EXPECT().AwaitInclusion(gomock.Any(), testHandle("delivery"), gomock.Any()).Return(included, nil),
	)

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StateSubmitting)
	require.Len(t, loop.Pending(), 2)
	step(t, ctx, loop, core.StateAwaitingConfirmation)
	step(t, ctx, loop, core.StateSubmitting)
	require.Nil(t, loop.Tracker().NextToRelay())
	step(t, ctx, loop, core.StateAwaitingConfirmation)
	step(t, ctx, loop, core.StatePolling)

	require.Equal(t, []byte("proof"), delivered.Proof)
	require.EqualValues(t, 5, delivered.ProofAt.Number)
	require.Equal(t, []core.EventType{
		core.EventHeaderProgress,
		core.EventLaneBacklog,
		core.EventActionPlanned,
		core.EventActionPlanned,
		core.EventSubmissionAttempted,
		core.EventSubmissionSucceeded,
		core.EventSubmissionAttempted,
		core.EventSubmissionSucceeded,
	}, events.types())
}

func TestRelayLoopConfirmsReceiptsProvableToSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	cfg := testRelayConfig()
	loop, _, _ := newTestLoop(t, src, dst, core.RelayMessagesOnly, cfg)
	ctx := context.Background()

	src.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(sourceHeader(10), nil)
	dst.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(sourceHeader(10), nil)
	dst.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(targetHeader(8), nil)
	src.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(targetHeader(6), nil)
	src.EXPECT().ReadOutboundLaneState(atHeight(10), testLane).Return(&core.OutboundLaneState{
		Lane:                 testLane,
		OldestUnprunedNonce:  1,
		LatestGeneratedNonce: 5,
		AtBlock:              10,
	}, nil)
	dst.EXPECT().ReadInboundLaneState(atHeight(8), testLane).Return(&core.InboundLaneState{Lane: testLane, LatestReceivedNonce: 5}, nil)
	// the source chain only knows the target chain up to 6
	dst.EXPECT().ReadInboundLaneState(atHeight(6), testLane).Return(&core.InboundLaneState{Lane: testLane, LatestReceivedNonce: 4}, nil)

	var confirmation *core.Payload
	gomock.InOrder(
		dst.EXPECT().ProveInboundLane(atHeight(6), testLane).Return([]byte("lane proof"), nil),
		src.EXPECT().Submit(gomock.Any(), payloadOf(core.SubmissionReceiptConfirmation)).DoAndReturn(
			func(_ context.Context, p *core.Payload) (core.SubmissionHandle, error) {
				confirmation = p
				return testHandle("confirmation"), nil
			}),
		src.EXPECT().AwaitInclusion(gomock.Any(), testHandle("confirmation"), cfg.InclusionTimeout).Return(included, nil),
	)

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StateSubmitting)
	step(t, ctx, loop, core.StateAwaitingConfirmation)
	step(t, ctx, loop, core.StatePolling)

	require.EqualValues(t, 4, confirmation.UpToNonce)
	require.Equal(t, []byte("lane proof"), confirmation.Proof)
}

func TestRelayLoopStaleSubmissionIsSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	loop, clock, events := newTestLoop(t, src, dst, core.RelayHeadersOnly, testRelayConfig())
	ctx := context.Background()

	expectHeaderReads(src, dst, sourceHeader(10), sourceHeader(5))
	dst.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, core.ErrStale.Wrap("header already imported")).Times(1)

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StateSubmitting)
	step(t, ctx, loop, core.StatePolling)

	require.Empty(t, loop.Pending())
	require.Nil(t, loop.Tracker().NextToRelay())
	require.Empty(t, clock.Sleeps())
	require.NotNil(t, events.last(core.EventSubmissionStale))
	require.Nil(t, events.last(core.EventSubmissionFailed))
}

func TestRelayLoopRejectedSubmissionIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	loop, clock, events := newTestLoop(t, src, dst, core.RelayHeadersOnly, testRelayConfig())
	ctx := context.Background()

	expectHeaderReads(src, dst, sourceHeader(10), sourceHeader(5))
	dst.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, core.ErrRejected.Wrap("invalid finality proof")).Times(1)

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StateSubmitting)
	step(t, ctx, loop, core.StatePolling)

	require.Empty(t, loop.Pending())
	require.Empty(t, clock.Sleeps())
	failed := events.last(core.EventSubmissionFailed)
	require.NotNil(t, failed)
	require.ErrorIs(t, failed.Err, core.ErrRejected)
	require.Nil(t, events.last(core.EventSubmissionAbandoned))
}

func TestRelayLoopTransientFailureIsRetriedThenAbandoned(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	loop, clock, events := newTestLoop(t, src, dst, core.RelayHeadersOnly, testRelayConfig())
	ctx := context.Background()

	expectHeaderReads(src, dst, sourceHeader(10), sourceHeader(5))
	dst.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused")).Times(3)

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StateSubmitting)
	step(t, ctx, loop, core.StateSubmitting)
	require.EqualValues(t, 1, loop.Pending()[0].AttemptCount)
	step(t, ctx, loop, core.StateSubmitting)
	step(t, ctx, loop, core.StatePolling)

	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
	abandoned := events.last(core.EventSubmissionAbandoned)
	require.NotNil(t, abandoned)
	require.EqualValues(t, 3, abandoned.Attempt)
	require.ErrorIs(t, abandoned.Err, core.ErrExhausted)
}

func TestRelayLoopResubmitsAfterInclusionTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	loop, clock, events := newTestLoop(t, src, dst, core.RelayHeadersOnly, testRelayConfig())
	ctx := context.Background()

	expectHeaderReads(src, dst, sourceHeader(10), sourceHeader(5))
	gomock.InOrder(
		dst.EXPECT().Submit(gomock.Any(), payloadOf(core.SubmissionHeaderRelay)).Return(testHandle("first"), nil),
		dst.EXPECT().AwaitInclusion(gomock.Any(), testHandle("first"), gomock.Any()).Return(&core.InclusionResult{Status: core.InclusionTimedOut}, nil),
		dst.EXPECT().Submit(gomock.Any(), payloadOf(core.SubmissionHeaderRelay)).Return(testHandle("second"), nil),
		dst.EXPECT().AwaitInclusion(gomock.Any(), testHandle("second"), gomock.Any()).Return(included, nil),
	)

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StateSubmitting)
	step(t, ctx, loop, core.StateAwaitingConfirmation)
	step(t, ctx, loop, core.StateSubmitting)
	step(t, ctx, loop, core.StateAwaitingConfirmation)
	step(t, ctx, loop, core.StatePolling)

	require.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
	succeeded := events.last(core.EventSubmissionSucceeded)
	require.NotNil(t, succeeded)
	require.EqualValues(t, 2, succeeded.Attempt)
}

func TestRelayLoopDoesNotSubmitAfterCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	loop, _, events := newTestLoop(t, src, dst, core.RelayMessagesOnly, testRelayConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(sourceHeader(10), nil)
	dst.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(sourceHeader(10), nil)
	dst.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(targetHeader(3), nil)
	src.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(targetHeader(3), nil)
	src.EXPECT().ReadOutboundLaneState(atHeight(10), testLane).Return(&core.OutboundLaneState{
		Lane:                 testLane,
		OldestUnprunedNonce:  1,
		LatestGeneratedNonce: 2,
		AtBlock:              10,
	}, nil)
	dst.EXPECT().ReadInboundLaneState(atHeight(3), testLane).Return(&core.InboundLaneState{Lane: testLane}, nil)
	src.EXPECT().ProveMessages(atHeight(10), testLane, core.NonceRange{Begin: 1, End: 2}).DoAndReturn(
		func(core.QueryContext, core.LaneID, core.NonceRange) ([]byte, error) {
			cancel()
			return []byte("proof"), nil
		})

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StateSubmitting)
	require.ErrorIs(t, loop.Step(ctx), context.Canceled)
	require.Nil(t, events.last(core.EventSubmissionAttempted))
}

func TestRelayLoopBacksOffFailedReads(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	cfg := testRelayConfig()
	loop, clock, _ := newTestLoop(t, src, dst, core.RelayHeadersOnly, cfg)
	ctx := context.Background()

	// reads keep failing beyond retry-max-attempts
	unavailable := errors.New("connection refused")
	gomock.InOrder(
		src.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(nil, unavailable).Times(4),
		src.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(sourceHeader(10), nil),
	)
	dst.EXPECT().ReadBestBridgedHeader(gomock.Any()).Return(sourceHeader(5), nil).AnyTimes()
	src.EXPECT().ReadMandatoryHeaders(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	step(t, ctx, loop, core.StatePlanning)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, clock.Sleeps())
	require.EqualValues(t, 10, loop.Tracker().BestAvailable().Number)
}

func TestRelayLoopRequiresHeaderForReverseConfirmation(t *testing.T) {
	cases := map[string]struct {
		provable   uint64
		wantHeader bool
	}{
		"target knows the deliveries": {provable: 3, wantHeader: false},
		"target is behind":            {provable: 1, wantHeader: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src, dst := newMockChains(ctrl)
			cfg := testRelayConfig()
			cfg.OnlyMandatoryHeaders = true
			loop, _, _ := newTestLoop(t, src, dst, core.RelayHeadersOnly, cfg)
			ctx := context.Background()

			expectHeaderReads(src, dst, sourceHeader(10), sourceHeader(5))
			// messages of the target chain delivered to the source chain wait for their confirmation
			src.EXPECT().ReadInboundLaneState(atHeight(10), testLane).Return(&core.InboundLaneState{Lane: testLane, LatestReceivedNonce: 3}, nil)
			dst.EXPECT().ReadOutboundLaneState(atHeight(0), testLane).Return(&core.OutboundLaneState{
				Lane:                 testLane,
				OldestUnprunedNonce:  1,
				LatestGeneratedNonce: 3,
			}, nil)
			src.EXPECT().ReadInboundLaneState(atHeight(5), testLane).Return(&core.InboundLaneState{Lane: testLane, LatestReceivedNonce: tc.provable}, nil)

			step(t, ctx, loop, core.StatePlanning)
			if tc.wantHeader {
				require.Equal(t, sourceHeader(10), loop.Tracker().NextToRelay())
			} else {
				require.Nil(t, loop.Tracker().NextToRelay())
			}
		})
	}
}

func TestRelayLoopCompetingRelayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	cfg := testRelayConfig()
	loop, clock, events := newTestLoop(t, src, dst, core.RelayHeadersOnly, cfg)
	ctx := context.Background()

	// another relayer has already imported the latest header
	expectHeaderReads(src, dst, sourceHeader(10), sourceHeader(10))

	step(t, ctx, loop, core.StatePlanning)
	step(t, ctx, loop, core.StatePolling)

	require.Equal(t, []time.Duration{cfg.PollInterval}, clock.Sleeps())
	require.Nil(t, events.last(core.EventActionPlanned))
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)

	cases := map[string]func(*core.DirectionConfig){
		"zero max unconfirmed": func(dc *core.DirectionConfig) { dc.Relay.MaxUnconfirmed = 0 },
		"malformed lane":       func(dc *core.DirectionConfig) { dc.Relay.Lanes = []string{"lane"} },
		"duplicate lane":       func(dc *core.DirectionConfig) { dc.Relay.Lanes = []string{"00000000", "0x00000000"} },
		"same chain":           func(dc *core.DirectionConfig) { dc.Target = dc.Source },
		"unknown priority":     func(dc *core.DirectionConfig) { dc.Relay.LanePriority = "random" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			dc := core.DirectionConfig{
				Bridge: "test",
				Source: src,
				Target: dst,
				Relay:  testRelayConfig(),
			}
			mutate(&dc)
			h, err := core.Start(context.Background(), dc)
			require.ErrorIs(t, err, core.ErrInvalidConfig)
			require.Nil(t, h)
		})
	}
}

func TestStartAndStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	src, dst := newMockChains(ctrl)
	expectHeaderReads(src, dst, sourceHeader(10), sourceHeader(10))

	events := &eventRecorder{}
	h, err := core.Start(context.Background(), core.DirectionConfig{
		Bridge: "test",
		Source: src,
		Target: dst,
		Relay:  testRelayConfig(),
		Mode:   core.RelayHeadersOnly,
		Sink:   events,
		Clock:  newFakeClock(),
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return events.last(core.EventHeaderProgress) != nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, core.Stop(h))
	<-h.Done()

	types := events.types()
	require.Equal(t, core.EventLoopStarted, types[0])
	require.Equal(t, core.EventLoopStopped, types[len(types)-1])
}
