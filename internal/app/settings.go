package app

import (
	"quorum/internal/config"
	"quorum/internal/fusion"
	"quorum/internal/gateway/exchange"
	"quorum/internal/orchestrator"
	"quorum/internal/risk"
)

func SettingsFromConfig(cfg *config.Config) orchestrator.Settings {
	return orchestrator.Settings{
		Thresholds: fusion.Thresholds{
			ConfidenceFloor: cfg.Fusion.ConfidenceFloor,
			TieMargin:       cfg.Fusion.TieMargin,
		},
		Limits: LimitsFromConfig(cfg.Risk),
	}
}

func LimitsFromConfig(r config.RiskConfig) risk.Limits {
	return risk.Limits{
		MinConfidence:        r.MinConfidence,
		MaxDailyLoss:         r.MaxDailyLoss,
		MaxPositionSizeScale: r.MaxPositionSizeScale,
		MaxRiskLevel:         r.MaxRiskLevel,
		MinBalanceThreshold:  r.MinBalanceThreshold,
	}
}

func ConstraintsFromConfig(e config.ExchangeConfig) exchange.Constraints {
	return exchange.Constraints{
		MaxLeverage:  e.MaxLeverage,
		MinOrderSize: e.MinOrderSize,
		LotPrecision: int32(e.LotPrecision),
		TakerFee:     e.TakerFee,
	}
}
