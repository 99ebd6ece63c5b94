package gateway

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/platform/easypay"
	"github.com/fatflowers/paygate/internal/platform/shakeout"
	"github.com/fatflowers/paygate/pkg/config"
)

// NewEasyPayFromConfig builds the EasyPay adapter with its REST client.
func NewEasyPayFromConfig(cfg *config.Config) (*EasyPay, error) {
	c := cfg.Payment.EasyPay
	client, err := easypay.NewClient(easypay.Options{BaseURL: c.BaseURL, VendorCode: c.VendorCode, Timeout: c.Timeout})
	if err != nil {
		return nil, err
	}
	return NewEasyPay(c, client), nil
}

func provideShakeout(cfg *config.Config) (*Shakeout, error) {
	c := cfg.Payment.Shakeout
	client, err := shakeout.NewClient(shakeout.Options{BaseURL: c.BaseURL, APIKey: c.APIKey, Timeout: c.Timeout})
	if err != nil {
		return nil, err
	}
	return NewShakeout(c, client), nil
}

func provideSelector(l *zap.SugaredLogger, cfg *config.Config, ep *EasyPay, so *Shakeout) (*Selector, error) {
	s, err := NewSelector(cfg.Payment.ActiveGateway, ep, so)
	if err != nil {
		l.Errorw("invalid payment configuration", "active_gateway", cfg.Payment.ActiveGateway, "err", err)
		return nil, err
	}
	l.Infow("payment gateways ready", "active", s.Active())
	return s, nil
}

var Module = fx.Options(
	fx.Provide(NewEasyPayFromConfig, provideShakeout, provideSelector),
)
