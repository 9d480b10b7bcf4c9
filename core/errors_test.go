package core_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err  error
		want core.ErrorClass
	}{
		"unknown error":     {errors.New("connection reset"), core.ClassTransient},
		"transient":         {core.ErrTransient.Wrap("timeout"), core.ClassTransient},
		"stale":             {core.ErrStale.Wrap("nonce already received"), core.ClassStale},
		"wrapped stale":     {errors.Wrap(core.ErrStale.Wrap("header already imported"), "failed to submit"), core.ClassStale},
		"fmt wrapped stale": {fmt.Errorf("submit: %w", core.ErrStale), core.ClassStale},
		"rejected":          {core.ErrRejected.Wrap("bad proof"), core.ClassRejected},
		"invariant":         {core.ErrInvariant.Wrap("received > generated"), core.ClassRejected},
		"invalid config":    {core.ErrInvalidConfig.Wrap("batch-size"), core.ClassFatal},
		"unknown lane":      {core.ErrUnknownLane, core.ClassFatal},
		"signer":            {core.ErrSigner, core.ClassFatal},
		"canceled":          {errors.Wrap(context.Canceled, "read"), core.ClassCanceled},
		"deadline":          {context.DeadlineExceeded, core.ClassTransient},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, core.Classify(tc.err))
		})
	}
}
