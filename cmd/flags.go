package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

const (
	flagFile        = "file"
	flagHealthAddr  = "health-addr"
	flagMetricsAddr = "metrics-addr"
	flagHeight      = "height"

	flagLane                 = "lane"
	flagMaxUnconfirmed       = "max-unconfirmed"
	flagPollInterval         = "poll-interval"
	flagBatchSize            = "batch-size"
	flagConfirmationLowWater = "confirmation-low-water"
	flagRetryBaseDelay       = "retry-base-delay"
	flagRetryMaxDelay        = "retry-max-delay"
	flagRetryMaxAttempts     = "retry-max-attempts"
	flagRetryMaxElapsed      = "retry-max-elapsed"
	flagSubmitDelayJitter    = "submit-delay-jitter"
	flagInclusionTimeout     = "inclusion-timeout"
	flagOnlyMandatoryHeaders = "only-mandatory-headers"
	flagLanePriority         = "lane-priority"
)

func fileFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().StringP(flagFile, "f", "", "fetch the chain config from the specified YAML or JSON file")
	return cmd
}

func heightFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().Uint64(flagHeight, 0, "height of the states to query, 0 means the latest finalized one")
	return cmd
}

// relayFlags registers a flag for every key of core.RelayConfig.
// The defaults are only shown in the help, see applyRelayFlags.
func relayFlags(cmd *cobra.Command) *cobra.Command {
	def := core.DefaultRelayConfig()
	flags := cmd.Flags()
	flags.StringSlice(flagLane, def.Lanes, "lanes to relay, as 4-byte hex ids")
	flags.Uint64(flagMaxUnconfirmed, def.MaxUnconfirmed, "max number of delivered but unconfirmed messages per lane")
	flags.Duration(flagPollInterval, def.PollInterval, "interval between polls of the chain states")
	flags.Uint64(flagBatchSize, def.BatchSize, "max number of messages in a delivery")
	flags.Uint64(flagConfirmationLowWater, def.ConfirmationLowWater, "number of unconfirmed messages above which confirmations are relayed")
	flags.Duration(flagRetryBaseDelay, def.RetryBaseDelay, "first delay between retries of a submission")
	flags.Duration(flagRetryMaxDelay, def.RetryMaxDelay, "upper bound of the delay between retries")
	flags.Uint(flagRetryMaxAttempts, def.RetryMaxAttempts, "max number of attempts of a submission")
	flags.Duration(flagRetryMaxElapsed, def.RetryMaxElapsed, "max time spent retrying a submission, 0 disables the limit")
	flags.Duration(flagSubmitDelayJitter, def.SubmitDelayJitter, "max random delay added to each submission")
	flags.Duration(flagInclusionTimeout, def.InclusionTimeout, "max time to wait for the inclusion of a submission")
	flags.Bool(flagOnlyMandatoryHeaders, def.OnlyMandatoryHeaders, "relay only the headers the bridged light client cannot skip")
	flags.String(flagLanePriority, string(def.LanePriority), "order of the lanes within a cycle (lane-id or confirmations-first)")
	return cmd
}

// applyRelayFlags overrides the keys of cfg whose flag has been set on the command line
func applyRelayFlags(cmd *cobra.Command, cfg *core.RelayConfig) error {
	return overrideRelayConfig(cmd.Flags(), cfg)
}

func overrideRelayConfig(flags *pflag.FlagSet, cfg *core.RelayConfig) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && flags.Changed(name) {
			err = apply()
		}
	}
	set(flagLane, func() (e error) { cfg.Lanes, e = flags.GetStringSlice(flagLane); return })
	set(flagMaxUnconfirmed, func() (e error) { cfg.MaxUnconfirmed, e = flags.GetUint64(flagMaxUnconfirmed); return })
	set(flagPollInterval, func() (e error) { cfg.PollInterval, e = flags.GetDuration(flagPollInterval); return })
	set(flagBatchSize, func() (e error) { cfg.BatchSize, e = flags.GetUint64(flagBatchSize); return })
	set(flagConfirmationLowWater, func() (e error) {
		cfg.ConfirmationLowWater, e = flags.GetUint64(flagConfirmationLowWater)
		return
	})
	set(flagRetryBaseDelay, func() (e error) { cfg.RetryBaseDelay, e = flags.GetDuration(flagRetryBaseDelay); return })
	set(flagRetryMaxDelay, func() (e error) { cfg.RetryMaxDelay, e = flags.GetDuration(flagRetryMaxDelay); return })
	set(flagRetryMaxAttempts, func() (e error) { cfg.RetryMaxAttempts, e = flags.GetUint(flagRetryMaxAttempts); return })
	set(flagRetryMaxElapsed, func() (e error) { cfg.RetryMaxElapsed, e = flags.GetDuration(flagRetryMaxElapsed); return })
	set(flagSubmitDelayJitter, func() (e error) { cfg.SubmitDelayJitter, e = flags.GetDuration(flagSubmitDelayJitter); return })
	set(flagInclusionTimeout, func() (e error) { cfg.InclusionTimeout, e = flags.GetDuration(flagInclusionTimeout); return })
	set(flagOnlyMandatoryHeaders, func() (e error) {
		cfg.OnlyMandatoryHeaders, e = flags.GetBool(flagOnlyMandatoryHeaders)
		return
	})
	set(flagLanePriority, func() error {
		p, e := flags.GetString(flagLanePriority)
		cfg.LanePriority = core.LanePriority(p)
		return e
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func serviceFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagHealthAddr, "", "address of the gRPC health server, disabled if empty")
	cmd.Flags().String(flagMetricsAddr, "", "address of the Prometheus metrics endpoint, disabled if empty")
	return relayFlags(cmd)
}
