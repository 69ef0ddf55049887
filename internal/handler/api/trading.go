package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	icache "TradePilot/internal/service/cache"
	"TradePilot/internal/service/ratelimit"
	"TradePilot/internal/usecase"
	xhttp "TradePilot/pkg/http"
	xlogger "TradePilot/pkg/logger"
)

const (
	historyCacheTTL = 30 * time.Second

	forecastBurst  = 5.0
	forecastPerSec = 1.0
	simulateBurst  = 2.0
	simulatePerSec = 0.5
)

// TradingHandler exposes the forecast pipeline and portfolio ledger over
// echo routes.
type TradingHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.ForecastPipeline
	ledger    *usecase.Ledger
	sim       *usecase.Simulator
	barStore  domrepo.BarStore
	ledStore  domrepo.LedgerStore
	limiter   *ratelimit.Limiter
	respCache icache.BytesCache
}

func NewTradingHandler(
	logger *xlogger.Logger,
	pipeline *usecase.ForecastPipeline,
	ledger *usecase.Ledger,
	sim *usecase.Simulator,
	barStore domrepo.BarStore,
	ledStore domrepo.LedgerStore,
) *TradingHandler {
	return &TradingHandler{
		logger:    logger,
		pipeline:  pipeline,
		ledger:    ledger,
		sim:       sim,
		barStore:  barStore,
		ledStore:  ledStore,
		limiter:   ratelimit.New(),
		respCache: icache.NewTTLCache(),
	}
}

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/portfolio", h.Portfolio)
	g.POST("/trades", h.Trade)
	g.POST("/simulate", h.Simulate)
	g.POST("/snapshot", h.Snapshot)
	g.GET("/history", h.History)
	g.GET("/transactions", h.Transactions)
}

func (h *TradingHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if !h.limiter.Allow("forecast:"+ticker, forecastBurst, forecastPerSec) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many forecast requests for "+ticker, http.StatusTooManyRequests))
	}

	res, err := h.pipeline.Forecast(c.Request().Context(), ticker)
	if err != nil {
		h.logger.Warn("forecast failed",
			xlogger.String("ticker", ticker),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, failureToAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingHandler) Portfolio(c echo.Context) error {
	summary, err := h.ledger.Summary(c.Request().Context())
	if err != nil {
		h.logger.Error("portfolio summary error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, summary)
}

func (h *TradingHandler) Trade(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	intent := models.TradeIntent{
		Action: models.TradeAction(strings.ToUpper(req.Action)),
		Ticker: req.Ticker,
		Shares: req.Shares,
		Price:  req.Price,
	}

	result, err := h.ledger.ExecuteTrade(c.Request().Context(), intent, nil, nil)
	if err != nil {
		if models.FailureOf(err) != nil {
			return xhttp.AppErrorResponse(c, failureToAppError(err))
		}
		h.logger.Error("trade execution error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, result)
}

func (h *TradingHandler) Simulate(c echo.Context) error {
	ip := c.RealIP()
	if !h.limiter.Allow("simulate:"+ip, simulateBurst, simulatePerSec) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many simulation requests", http.StatusTooManyRequests))
	}

	report, err := h.sim.Tick(c.Request().Context())
	if err != nil {
		h.logger.Error("simulation tick error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *TradingHandler) Snapshot(c echo.Context) error {
	snap, err := h.ledger.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("snapshot error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *TradingHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := historyKey(req.Days)
	if b, ok, _ := h.respCache.GetBytes(key); ok && len(b) > 0 {
		return c.JSONBlob(http.StatusOK, b)
	}

	history, err := h.ledger.History(c.Request().Context(), req.Days)
	if err != nil {
		h.logger.Error("history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	payload := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    history,
	}
	if b, err := json.Marshal(payload); err == nil {
		_ = h.respCache.SetBytes(key, b, historyCacheTTL)
	}
	return xhttp.SuccessResponse(c, history)
}

func (h *TradingHandler) Transactions(c echo.Context) error {
	req := &models.TransactionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	txns, err := h.ledger.Transactions(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("transactions error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, txns, int64(len(txns)))
}

func (h *TradingHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	deps := map[string]string{}
	healthy := true

	if err := h.barStore.Health(ctx); err != nil {
		deps["bar_store"] = err.Error()
		healthy = false
	} else {
		deps["bar_store"] = "ok"
	}
	if err := h.ledStore.Health(ctx); err != nil {
		deps["ledger_store"] = err.Error()
		healthy = false
	} else {
		deps["ledger_store"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]interface{}{
		"status":       status,
		"dependencies": deps,
	})
}

func historyKey(days int) string {
	return fmt.Sprintf("history:%d", days)
}

// failureToAppError maps the domain failure taxonomy onto HTTP statuses.
func failureToAppError(err error) *xhttp.AppError {
	f := models.FailureOf(err)
	if f == nil {
		return xhttp.InternalError("Something went wrong").WithError(err)
	}

	switch f.Kind {
	case models.DataUnavailable:
		return xhttp.NotFoundError(f.Detail).WithError(err)
	case models.InsufficientData:
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", f.Detail).WithError(err)
	case models.PredictionFailed:
		return xhttp.ServiceUnavailableError(f.Detail).WithError(err)
	case models.InsufficientFunds:
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_FUNDS", "Insufficient funds").WithError(err)
	case models.InsufficientShares:
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_SHARES", "Insufficient shares").WithError(err)
	case models.InvalidTradeParameters:
		return xhttp.BadRequestError(f.Detail).WithError(err)
	default:
		return xhttp.InternalError(f.Detail).WithError(err)
	}
}
