package main

import (
	"log"

	debug "github.com/hyperledger-labs/yui-bridge-relayer/chains/debug/module"
	mock "github.com/hyperledger-labs/yui-bridge-relayer/chains/mock/module"
	substrate "github.com/hyperledger-labs/yui-bridge-relayer/chains/substrate/module"
	"github.com/hyperledger-labs/yui-bridge-relayer/cmd"
)

func main() {
	if err := cmd.Execute(
		substrate.Module{},
		mock.Module{},
		debug.Module{},
	); err != nil {
		log.Fatal(err)
	}
}
