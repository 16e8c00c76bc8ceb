// Package exportadmin exposes the operator surface of the export pipeline.
package exportadmin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mct-integration/orderbridge/internal/dto"
	"github.com/mct-integration/orderbridge/internal/entity"
	"github.com/mct-integration/orderbridge/internal/presentation/http/response"
	service "github.com/mct-integration/orderbridge/internal/service/export"
	"github.com/mct-integration/orderbridge/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/mct-integration/orderbridge/transport/http/exportadmin")

// Handler exposes export queue endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an export admin Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/export")
	g.GET("/queue", h.listQueue)
	g.GET("/queue/:orderId/xml", h.queueRowXML)
	g.GET("/queue/:orderId/history", h.orderHistory)
	g.DELETE("/queue/:orderId", h.deleteRow)
	g.DELETE("/queue", h.deleteQueue)
	g.POST("/run", h.run)
	g.POST("/purge", h.purge)
}

func (h *Handler) listQueue(c echo.Context) error {
	b := response.New(c)

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return b.WithError(errorbank.BadRequest("invalid limit")).Build()
		}
		limit = parsed
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "export.listQueue")
	defer span.End()

	rows, err := h.svc.ListQueue(ctx, limit)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.QueueRowResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) queueRowXML(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseOrderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "export.queueRowXML", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	xml, err := h.svc.QueueRowXML(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}

	return c.Blob(http.StatusOK, "application/xml", []byte(xml))
}

func (h *Handler) orderHistory(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseOrderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "export.orderHistory", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	entries, err := h.svc.OrderHistory(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.HistoryEntryResponse{
			ID:      e.ID,
			OrderID: e.OrderID,
			Message: e.Message,
			SavedAt: e.SavedAt,
		})
	}
	return b.WithData(out).Build()
}

func (h *Handler) deleteRow(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseOrderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "export.deleteRow", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if err := h.svc.DeleteQueueRow(ctx, orderID); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func (h *Handler) deleteQueue(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "export.deleteQueue")
	defer span.End()

	deleted, err := h.svc.DeleteQueue(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.PurgeResponse{Deleted: deleted}).Build()
}

// run triggers an immediate send cycle, bypassing the interval gate. The
// single-flight lock still applies.
func (h *Handler) run(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "export.run")
	defer span.End()

	sent, err := h.svc.SendCycle(ctx, true)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.SendCycleResponse{Sent: sent}).Build()
}

func (h *Handler) purge(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "export.purge")
	defer span.End()

	deleted, err := h.svc.Purge(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.PurgeResponse{Deleted: deleted}).Build()
}

func parseOrderID(c echo.Context) (int64, error) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid order id", errorbank.WithCause(err))
	}
	return orderID, nil
}

func toDTO(row *entity.ExportRow) dto.QueueRowResponse {
	return dto.QueueRowResponse{
		OrderID: row.OrderID,
		SavedAt: row.SavedAt,
		SentAt:  row.SentAt,
		Pending: row.Pending(),
	}
}
