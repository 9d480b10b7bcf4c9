package core

import (
	"testing"

	"go.uber.org/mock/gomock"
)

func TestGetPackageName(t *testing.T) {
	ctrl := gomock.NewController(t)
	tests := []struct {
		name string
		v    any
		want string
	}{
		{
			name: "interface with pointer",
			v:    tracer,
			want: "go.opentelemetry.io/otel/internal/global",
		},
		{
			name: "chain",
			v:    NewMockChain(ctrl),
			want: "github.com/hyperledger-labs/yui-bridge-relayer/core",
		},
		{
			name: "value",
			v:    NonceRange{Begin: 1, End: 2},
			want: "github.com/hyperledger-labs/yui-bridge-relayer/core",
		},
		{
			name: "nil",
			v:    nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPackageName(tt.v); got != tt.want {
				t.Errorf("getPackageName() = %v, want %v", got, tt.want)
			}
		})
	}
}
