package handler

import (
	"context"
	"errors"
	"net/http"

	"erp-shipping/internal/api"
	"erp-shipping/internal/model"
	"erp-shipping/internal/processor"
	"erp-shipping/internal/shipping"
	"erp-shipping/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Shipping is implemented by *shipping.Service
type Shipping interface {
	FetchRates(ctx context.Context, req *shipping.RatesRequest) ([]model.Quote, []shipping.Alert, error)
	CreateShipment(ctx context.Context, req *shipping.BookRequest) (*model.BookingResult, *shipping.Alert, error)
	PrintLabel(ctx context.Context, provider, shipmentID string) (*model.Label, *shipping.Alert, error)
	UpdateTracking(ctx context.Context, req *shipping.TrackingRequest) (*model.TrackingRecord, *shipping.Alert, error)
	TrackShipment(ctx context.Context, shipment string) (*model.TrackingRecord, *shipping.Alert, error)
}

// Sweeper is implemented by *processor.TrackingSweeper
type Sweeper interface {
	Run(ctx context.Context) (*processor.SweepResult, error)
}

// Handler exposes the shipping workflows over HTTP
type Handler struct {
	shipping Shipping
	sweeper  Sweeper
	logger   *logrus.Logger
}

// NewHandler creates a new shipping handler
func NewHandler(svc Shipping, sweeper Sweeper, logger *logrus.Logger) *Handler {
	return &Handler{
		shipping: svc,
		sweeper:  sweeper,
		logger:   logger,
	}
}

// RegisterRoutes mounts the shipping routes on r
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)

	g := r.Group("/api/v1/shipping")
	g.POST("/rates", h.FetchRates)
	g.POST("/shipments/:shipment/book", h.CreateShipment)
	g.GET("/labels", h.PrintLabel)
	g.POST("/shipments/:shipment/tracking", h.UpdateTracking)
	g.POST("/tracking/sweep", h.RunSweep)
}

// Health reports that the service is up
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// FetchRates returns the quotes of every enabled carrier, cheapest first
func (h *Handler) FetchRates(c *gin.Context) {
	var req shipping.RatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	quotes, alerts, err := h.shipping.FetchRates(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}
	c.JSON(http.StatusOK, RatesResponse{Quotes: quotes, Alerts: alerts})
}

// CreateShipment books the selected quote for a Shipment
func (h *Handler) CreateShipment(c *gin.Context) {
	var req shipping.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.Shipment = c.Param("shipment")

	result, alert, err := h.shipping.CreateShipment(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if alert != nil {
		c.JSON(http.StatusBadGateway, AlertResponse{Alert: alert})
		return
	}
	c.JSON(http.StatusOK, result)
}

// PrintLabel returns the label of a booked shipment
func (h *Handler) PrintLabel(c *gin.Context) {
	var query LabelQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, err)
		return
	}

	label, alert, err := h.shipping.PrintLabel(c.Request.Context(), query.ServiceProvider, query.ShipmentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if alert != nil {
		c.JSON(http.StatusBadGateway, AlertResponse{Alert: alert})
		return
	}
	c.JSON(http.StatusOK, label)
}

// UpdateTracking refreshes the tracking state of a Shipment. Without a body
// the stored provider and carrier id of the Shipment are used.
func (h *Handler) UpdateTracking(c *gin.Context) {
	var req shipping.TrackingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	req.Shipment = c.Param("shipment")

	var (
		record *model.TrackingRecord
		alert  *shipping.Alert
		err    error
	)
	if req.ServiceProvider == "" {
		record, alert, err = h.shipping.TrackShipment(c.Request.Context(), req.Shipment)
	} else {
		record, alert, err = h.shipping.UpdateTracking(c.Request.Context(), &req)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if alert != nil {
		c.JSON(http.StatusBadGateway, AlertResponse{Alert: alert})
		return
	}
	c.JSON(http.StatusOK, TrackingResponse{Updated: record != nil, Tracking: record})
}

// RunSweep runs the tracking sweep now and returns its summary
func (h *Handler) RunSweep(c *gin.Context) {
	result, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: CodeBadRequest, Error: err.Error()})
}

// fail maps a workflow error onto the HTTP status the caller can act on
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case shipping.IsValidationError(err):
		status, code = http.StatusUnprocessableEntity, CodeValidation
	case api.IsConfigError(err):
		status, code = http.StatusPreconditionFailed, CodeCarrierConfig
	case errors.Is(err, api.ErrUnknownProvider):
		status, code = http.StatusBadRequest, CodeUnknownProvider
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, CodeCanceled
	}

	if status == http.StatusInternalServerError {
		h.logger.WithField("path", c.FullPath()).WithError(err).Error("Request failed")
	}
	c.JSON(status, ErrorResponse{Code: code, Error: err.Error()})
}
