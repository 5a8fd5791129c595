// Package httpapi exposes the booking service over JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// BookingService is the subset of booking.Service the handlers call.
type BookingService interface {
	CheckAvailability(ctx context.Context, request booking.AvailabilityRequest) (booking.AvailabilityResult, error)
	FindOpenStarts(ctx context.Context, request booking.SearchRequest) (booking.OpenStarts, error)
	ValidateLedger(ctx context.Context, request booking.LedgerRequest) (booking.LedgerValidation, error)
	CalculatePrice(ctx context.Context, request booking.PriceRequest) (booking.PriceQuote, error)
	CommitReservation(ctx context.Context, request booking.CommitRequest) (booking.CommitResult, error)
}

// Handler serves the booking routes.
type Handler struct {
	service BookingService
	logger  *zap.Logger
}

// NewHandler binds the routes to service. A nil logger discards output.
func NewHandler(service BookingService, logger *zap.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("httpapi: booking service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}, nil
}

// NewRouter builds the gin engine with CORS and the health check.
func NewRouter(allowedOrigins []string, handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	branch := router.Group("/api/branches/:branch")
	branch.POST("/availability", handler.handleAvailability)
	branch.POST("/open-starts", handler.handleOpenStarts)
	branch.POST("/ledger/validate", handler.handleLedger)
	branch.POST("/pricing", handler.handlePricing)
	branch.POST("/reservations", handler.handleCommit)

	return router
}

// Serve runs router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, router http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("teetime listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind booking.ErrorKind) int {
	switch kind {
	case booking.KindInputValidation:
		return http.StatusBadRequest
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindResourceConflict:
		return http.StatusConflict
	case booking.KindPolicyViolation, booking.KindLedgerInsufficient, booking.KindLedgerExpired, booking.KindLedgerMissing:
		return http.StatusUnprocessableEntity
	case booking.KindUpstreamUnavailable:
		return http.StatusBadGateway
	case booking.KindPartialCommit:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

func (handler *Handler) respondError(ctx *gin.Context, err error) {
	kind := booking.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(status, errorResponse(string(kind), err.Error()))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
