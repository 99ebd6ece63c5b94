package main

// @title           Paygate API
// @version         1.0
// @description     Invoice issuing and payment webhooks for the Shakeout and EasyPay gateways.

// @contact.name   Paygate maintainers

// @host      localhost:8888
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/app"
)

func main() {
	os.Exit(run())
}

// run starts the application, waits for SIGINT/SIGTERM and stops it.
func run() int {
	// The configured logger may not exist yet when startup fails.
	fallback := zap.NewExample().Sugar()

	a := fx.New(app.Module)

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancelStart()
	if err := a.Start(startCtx); err != nil {
		fallback.Errorw("paygate failed to start", "err", err)
		return 1
	}

	sig := <-a.Done()
	fallback.Infow("paygate shutting down", "signal", sig.String())

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		fallback.Errorw("paygate failed to stop cleanly", "err", err)
		return 1
	}
	return 0
}
