package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/paygate/internal/app/api/server"
	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/internal/app/service/invoice"
	notificationhandler "github.com/fatflowers/paygate/internal/app/service/notification_handler"
	notificationlog "github.com/fatflowers/paygate/internal/app/service/notification_log"
	"github.com/fatflowers/paygate/internal/app/service/order"
	"github.com/fatflowers/paygate/internal/app/service/statistics"
	"github.com/fatflowers/paygate/internal/platform/db"
	"github.com/fatflowers/paygate/internal/platform/lock"
	"github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/logger"
	"github.com/fatflowers/paygate/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	lock.Module,
	metrics.Module,
	gateway.Module,
	order.Module,
	statistics.Module,
	invoice.Module,
	notificationlog.Module,
	notificationhandler.Module,
	server.Module,
)
