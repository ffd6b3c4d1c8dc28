package http

import (
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/karloscodes/cartridge"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soundpulse/internal/pkg/metrics"
)

var metricsHandler = adaptor.HTTPHandler(promhttp.HandlerFor(
	metrics.Registry(),
	promhttp.HandlerOpts{},
))

// MetricsAction exposes the Prometheus scrape endpoint.
func MetricsAction(ctx *cartridge.Context) error {
	return metricsHandler(ctx.Ctx)
}
