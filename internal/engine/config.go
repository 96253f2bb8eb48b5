package engine

import (
	"github.com/goran-ethernal/PaymentIndexor/internal/filter"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/goran-ethernal/PaymentIndexor/pkg/config"
)

// ConfigFromProvider builds an engine configuration from the validated file configuration.
func ConfigFromProvider(p config.ProviderConfig, targets []config.TargetConfig) (Config, error) {
	finality, err := types.ParseDataFinality(p.Finality)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		StartingBlock:   p.StartingBlock,
		Finality:        finality,
		ContractAddress: p.ContractAddress,
		EventKey:        p.EventKey,
		BatchSize:       p.BatchSize,
		Targets:         make([]filter.Target, 0, len(targets)),
	}
	for _, t := range targets {
		cfg.Targets = append(cfg.Targets, filter.Target{Recipient: t.Recipient, Asset: t.Asset})
	}

	return cfg, nil
}
