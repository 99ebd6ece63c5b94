package invoice

import (
	"go.uber.org/fx"

	"github.com/fatflowers/paygate/internal/app/service/order"
)

var Module = fx.Options(
	fx.Provide(
		func(r *order.Repository) OrderStore { return r },
		fx.Annotate(NewLogNotifier, fx.As(new(Notifier))),
		NewService,
	),
)
