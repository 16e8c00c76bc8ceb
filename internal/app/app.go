package app

import (
	"go.uber.org/fx"

	"github.com/mct-integration/orderbridge/internal/config"
	"github.com/mct-integration/orderbridge/internal/database"
	"github.com/mct-integration/orderbridge/internal/lock"
	"github.com/mct-integration/orderbridge/internal/logger"
	"github.com/mct-integration/orderbridge/internal/messaging"
	"github.com/mct-integration/orderbridge/internal/observability"
	"github.com/mct-integration/orderbridge/internal/platform"
	repositoryexportqueue "github.com/mct-integration/orderbridge/internal/repository/exportqueue"
	repositoryhistory "github.com/mct-integration/orderbridge/internal/repository/history"
	repositorysetting "github.com/mct-integration/orderbridge/internal/repository/setting"
	"github.com/mct-integration/orderbridge/internal/scheduler"
	httpserver "github.com/mct-integration/orderbridge/internal/server/http"
	serviceexport "github.com/mct-integration/orderbridge/internal/service/export"
	transporthttp "github.com/mct-integration/orderbridge/internal/transport/http"
	transportsftp "github.com/mct-integration/orderbridge/internal/transport/sftp"
	"github.com/mct-integration/orderbridge/internal/worker"
	workerexportorder "github.com/mct-integration/orderbridge/internal/worker/exportorder"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	database.Module,
	lock.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	platform.Module,
	repositoryexportqueue.Module,
	repositoryhistory.Module,
	repositorysetting.Module,
	transportsftp.Module,
	serviceexport.Module,
)

// HTTP wires the admin HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background message consumption.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerexportorder.Module,
)

// Module is the default application wiring: the full exporter with admin
// HTTP surface, inbound worker, and the periodic scheduler.
var Module = fx.Options(
	HTTP,
	worker.Module,
	workerexportorder.Module,
	scheduler.Module,
)
