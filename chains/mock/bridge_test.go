package mock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/mock"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func testRelayConfig() core.RelayConfig {
	cfg := core.DefaultRelayConfig()
	cfg.Lanes = []string{lane.String()}
	cfg.MaxUnconfirmed = 8
	cfg.BatchSize = 2
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RetryBaseDelay = 10 * time.Millisecond
	cfg.RetryMaxDelay = 100 * time.Millisecond
	cfg.SubmitDelayJitter = 0
	cfg.InclusionTimeout = 2 * time.Second
	return cfg
}

func initBridge(t *testing.T, src, dst *mock.Chain) {
	t.Helper()
	require.NoError(t, submit(t, dst, &core.Payload{Kind: core.SubmissionInitBridge, Header: finalized(t, src)}))
}

func outboundState(t *testing.T, chain *mock.Chain) *core.OutboundLaneState {
	out, err := chain.ReadOutboundLaneState(core.NewQueryContext(context.Background(), 0), lane)
	require.NoError(t, err)
	return out
}

func TestRelayService(t *testing.T) {
	left := newTestChain(t, "left", "right")
	right := newTestChain(t, "right", "left")
	initBridge(t, left, right)
	initBridge(t, right, left)
	sendMessages(t, left, 5)
	sendMessages(t, right, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- core.StartService(ctx, "test", left, right, testRelayConfig(), core.RelayHeadersAndMessages, core.MultiSink{})
	}()

	// every message is delivered and its receipt confirmed back to the sending chain
	require.Eventually(t, func() bool {
		l, r := outboundState(t, left), outboundState(t, right)
		return l.LatestReceivedNonce == 5 && r.LatestReceivedNonce == 3
	}, 20*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("relay service did not stop")
	}

	for _, chain := range []*mock.Chain{left, right} {
		out := outboundState(t, chain)
		require.NoError(t, out.Validate())
		assert.Equal(t, out.LatestReceivedNonce+1, out.OldestUnprunedNonce, "delivered messages are pruned")
	}
	in, err := right.ReadInboundLaneState(core.NewQueryContext(context.Background(), 0), lane)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), in.LatestReceivedNonce)
}

func TestRelayServiceOnlyMandatoryHeaders(t *testing.T) {
	// no mandatory header for the whole test, so every relayed header is required by a lane
	configure := func(c *mock.ChainConfig) {
		c.AuthoritySetPeriod = 1000
		c.MaxUnconfirmed = 2
	}
	left := newTestChainWith(t, "left", "right", configure)
	right := newTestChainWith(t, "right", "left", configure)
	initBridge(t, left, right)
	initBridge(t, right, left)
	sendMessages(t, left, 6)

	cfg := testRelayConfig()
	cfg.OnlyMandatoryHeaders = true
	cfg.MaxUnconfirmed = 2

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- core.StartService(ctx, "test", left, right, cfg, core.RelayHeadersAndMessages, core.MultiSink{})
	}()

	// delivery stops at the unconfirmed cap until the confirmations are relayed back
	require.Eventually(t, func() bool {
		return outboundState(t, left).LatestReceivedNonce == 6
	}, 20*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("relay service did not stop")
	}

	in, err := right.ReadInboundLaneState(core.NewQueryContext(context.Background(), 0), lane)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), in.LatestReceivedNonce)
	out := outboundState(t, left)
	assert.Equal(t, uint64(6), out.LatestGeneratedNonce)
	assert.Equal(t, uint64(7), out.OldestUnprunedNonce)
}

func TestRelayDirection(t *testing.T) {
	left := newTestChain(t, "left", "right")
	right := newTestChain(t, "right", "left")
	initBridge(t, left, right)
	initBridge(t, right, left)
	sendMessages(t, left, 4)

	var delivered []core.NonceRange
	sink := core.EventSinkFunc(func(_ context.Context, ev core.Event) {
		if ev.Type == core.EventSubmissionSucceeded && ev.Payload.Kind == core.SubmissionMessageDelivery {
			delivered = append(delivered, ev.Payload.Nonces)
		}
	})

	// messages only: the headers of left are relayed by hand
	h, err := core.Start(context.Background(), core.DirectionConfig{
		Bridge: "test",
		Source: left,
		Target: right,
		Relay:  testRelayConfig(),
		Mode:   core.RelayMessagesOnly,
		Sink:   sink,
	})
	require.NoError(t, err)

	l := finalized(t, left)
	for _, header := range mandatoryUpTo(t, left, right, l) {
		require.NoError(t, submit(t, right, &core.Payload{Kind: core.SubmissionHeaderRelay, Header: header}))
	}

	require.Eventually(t, func() bool {
		in, err := right.ReadInboundLaneState(core.NewQueryContext(context.Background(), 0), lane)
		require.NoError(t, err)
		return in.LatestReceivedNonce == 4
	}, 20*time.Second, 50*time.Millisecond)
	require.NoError(t, core.Stop(h))

	assert.Equal(t, []core.NonceRange{{Begin: 1, End: 2}, {Begin: 3, End: 4}}, delivered)
}

// mandatoryUpTo returns the headers of src that dst must import to reach h
func mandatoryUpTo(t *testing.T, src, dst *mock.Chain, h *core.HeaderFact) []*core.HeaderFact {
	best, err := dst.ReadBestBridgedHeader(context.Background())
	require.NoError(t, err)
	headers, err := src.ReadMandatoryHeaders(context.Background(), best.Number+1, h.Number)
	require.NoError(t, err)
	if len(headers) == 0 || headers[len(headers)-1].Number != h.Number {
		headers = append(headers, h)
	}
	return headers
}
