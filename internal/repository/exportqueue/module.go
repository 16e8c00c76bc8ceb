package exportqueue

import "go.uber.org/fx"

// Module provides the export queue repository to Fx.
var Module = fx.Provide(NewRepository)
