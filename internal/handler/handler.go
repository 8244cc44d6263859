package handler

import (
	"net/http"
	"strconv"

	"github.com/Astemirdum/odl-service/internal/errs"
	"github.com/Astemirdum/odl-service/internal/model"
	"github.com/Astemirdum/odl-service/pkg/validate"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	XUserName = "X-User-Name"
)

type Handler struct {
	svc CirculationService
	log *zap.Logger
}

func New(svc CirculationService, log *zap.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig(h.log)),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/pools/:poolUid/checkout", h.Checkout, patronContext)
	api.POST("/pools/:poolUid/checkin", h.Checkin, patronContext)
	api.POST("/pools/:poolUid/hold", h.PlaceHold, patronContext)
	api.DELETE("/pools/:poolUid/hold", h.ReleaseHold, patronContext)
	api.GET("/loans", h.GetLoans, patronContext)
	api.GET("/holds", h.GetHolds, patronContext)

	// the distributor's push channel; it may GET or POST the callback URL
	api.GET("/notifications/:loanID", h.Notify)
	api.POST("/notifications/:loanID", h.Notify)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Checkout attempts a loan and falls back to the hold queue; the response
// status tells the caller which branch it got.
func (h *Handler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.svc.Borrow(ctx, patronID(c), c.Param("poolUid"))
	if err != nil {
		return httpError(err)
	}
	if res.Kind == model.LoanQueued {
		return c.JSON(http.StatusAccepted, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Checkin(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Checkin(ctx, patronID(c), c.Param("poolUid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PlaceHold(c echo.Context) error {
	ctx := c.Request().Context()
	hold, err := h.svc.PlaceHold(ctx, patronID(c), c.Param("poolUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, hold)
}

func (h *Handler) ReleaseHold(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.ReleaseHold(ctx, patronID(c), c.Param("poolUid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetLoans(c echo.Context) error {
	loans, err := h.svc.GetLoans(c.Request().Context(), patronID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) GetHolds(c echo.Context) error {
	holds, err := h.svc.GetHolds(c.Request().Context(), patronID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, holds)
}

func (h *Handler) Notify(c echo.Context) error {
	loanID, err := strconv.Atoi(c.Param("loanID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad loan id")
	}
	if err := h.svc.Notify(c.Request().Context(), loanID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

func patronID(c echo.Context) string {
	return c.Request().Header.Get(XUserName)
}

func patronContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get(XUserName) == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUserName.Error())
		}
		return next(c)
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrNotCheckedOut),
		errors.Is(err, errs.ErrNotOnHold):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAlreadyCheckedOut),
		errors.Is(err, errs.ErrAlreadyOnHold),
		errors.Is(err, errs.ErrCurrentlyAvailable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrNoLicenses),
		errors.Is(err, errs.ErrNoAvailableCopies):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errs.ErrCannotLoan),
		errors.Is(err, errs.ErrCannotFulfill),
		errors.Is(err, errs.ErrCannotReleaseHold),
		errors.Is(err, errs.ErrBadResponse):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
