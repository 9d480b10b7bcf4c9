package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func header(number uint64) *core.HeaderFact {
	return &core.HeaderFact{ChainID: "source", Number: number}
}

func mandatoryHeader(number uint64) *core.HeaderFact {
	return &core.HeaderFact{ChainID: "source", Number: number, Mandatory: true}
}

func TestFinalityTrackerNotInitialized(t *testing.T) {
	ft := core.NewFinalityTracker(false)
	ft.Update(header(10), nil, nil)
	require.Nil(t, ft.BestRelayed())
	require.Nil(t, ft.NextToRelay())
}

func TestFinalityTrackerRelaysBestAvailable(t *testing.T) {
	ft := core.NewFinalityTracker(false)
	ft.Update(header(10), header(5), nil)
	require.Equal(t, header(10), ft.NextToRelay())

	ft.MarkSubmitted(header(10))
	require.Nil(t, ft.NextToRelay())

	// the target chain caught up
	ft.Update(header(10), header(10), nil)
	require.Nil(t, ft.NextToRelay())

	progress := ft.Progress()
	require.EqualValues(t, 10, progress.BestRelayed.Number)
	require.EqualValues(t, 10, progress.BestAvailable.Number)
}

func TestFinalityTrackerMonotonic(t *testing.T) {
	ft := core.NewFinalityTracker(false)
	ft.Update(header(20), header(15), nil)

	// a lagging node returns older values
	ft.Update(header(18), header(12), nil)
	require.EqualValues(t, 15, ft.BestRelayed().Number)
	require.EqualValues(t, 20, ft.BestAvailable().Number)
	require.Equal(t, header(20), ft.NextToRelay())
}

func TestFinalityTrackerCompetingRelayer(t *testing.T) {
	ft := core.NewFinalityTracker(false)
	ft.Update(header(20), header(10), nil)
	require.Equal(t, header(20), ft.NextToRelay())

	// another relayer imported 20 meanwhile
	ft.Update(header(20), header(20), nil)
	require.Nil(t, ft.NextToRelay())
	require.EqualValues(t, 20, ft.BestRelayed().Number)
}

func TestFinalityTrackerSubmittedMarkIsDroppedOnUpdate(t *testing.T) {
	ft := core.NewFinalityTracker(false)
	ft.Update(header(20), header(10), nil)
	ft.MarkSubmitted(header(20))
	require.Nil(t, ft.NextToRelay())

	// the import has been reverted on the target chain
	ft.Update(header(20), header(10), nil)
	require.Equal(t, header(20), ft.NextToRelay())
}

func TestFinalityTrackerMandatoryHeadersFirst(t *testing.T) {
	ft := core.NewFinalityTracker(false)
	ft.Update(header(30), header(10), []*core.HeaderFact{mandatoryHeader(25), mandatoryHeader(15), mandatoryHeader(8), mandatoryHeader(31)})

	require.Equal(t, mandatoryHeader(15), ft.NextToRelay())
	ft.MarkSubmitted(mandatoryHeader(15))
	require.Equal(t, mandatoryHeader(25), ft.NextToRelay())
	ft.MarkSubmitted(mandatoryHeader(25))
	require.Equal(t, header(30), ft.NextToRelay())
}

func TestFinalityTrackerOnlyMandatory(t *testing.T) {
	ft := core.NewFinalityTracker(true)
	ft.Update(header(30), header(10), nil)
	require.Nil(t, ft.NextToRelay())

	ft.Update(header(30), header(10), []*core.HeaderFact{mandatoryHeader(20)})
	require.Equal(t, mandatoryHeader(20), ft.NextToRelay())

	ft.Update(header(30), header(20), nil)
	require.Nil(t, ft.NextToRelay())

	// messages are waiting at 30
	ft.RequireHeader(30)
	require.Equal(t, header(30), ft.NextToRelay())

	ft.Update(header(31), header(30), nil)
	require.Nil(t, ft.NextToRelay())
}
