package http

import (
	"go.uber.org/fx"

	exportadmintransport "github.com/mct-integration/orderbridge/internal/transport/http/exportadmin"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	exportadmintransport.Module,
)
