package coreutil

import (
	"fmt"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/debug"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/otelcore"
)

// UnwrapChain finds the first chain under the decorators of c that matches the specified
// type argument.
//
// In the following example, UnwrapChain returns the *substrate.Chain wrapped by the tracing decorator:
//
//	chain, err := coreutil.UnwrapChain[*substrate.Chain](chain)
func UnwrapChain[C core.Chain](c core.Chain) (C, error) {
	chain := c
	for {
		switch unwrapped := chain.(type) {
		case C:
			return unwrapped, nil
		case *otelcore.Chain:
			chain = unwrapped.Chain
		case *debug.Chain:
			chain = unwrapped.OriginChain
		default:
			var zero C
			return zero, fmt.Errorf("failed to unwrap chain: expected=%T, actual=%T", zero, unwrapped)
		}
	}
}

// UnwrapMessageSender returns the innermost chain under the decorators of c if it can send messages
func UnwrapMessageSender(c core.Chain) (core.MessageSender, error) {
	chain := c
	for {
		switch wrapper := chain.(type) {
		case *otelcore.Chain:
			chain = wrapper.Chain
			continue
		case *debug.Chain:
			chain = wrapper.OriginChain
			continue
		}
		sender, ok := chain.(core.MessageSender)
		if !ok {
			return nil, fmt.Errorf("chain %s cannot send messages: %T", c.ChainID(), chain)
		}
		return sender, nil
	}
}
