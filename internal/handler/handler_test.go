package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Astemirdum/odl-service/internal/errs"
	"github.com/Astemirdum/odl-service/internal/handler"
	"github.com/Astemirdum/odl-service/internal/model"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/Astemirdum/odl-service/internal/handler/mocks"
)

var ts = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestHandler_Checkout(t *testing.T) {
	t.Parallel()
	type input struct {
		patron  string
		poolUid string
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockCirculationService, req input)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
	}{
		{
			name: "granted",
			mockBehavior: func(r *service_mocks.MockCirculationService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patron, req.poolUid).
					Return(model.LoanResult{
						Kind: model.LoanGranted,
						Loan: &model.Loan{PoolUid: req.poolUid, CheckoutID: "c-1", StartDate: ts},
					}, nil)
			},
			input: input{patron: "p1", poolUid: "pool-1"},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"kind":"GRANTED","loan":{"poolUid":"pool-1","checkoutId":"c-1","startDate":"2024-03-01T12:00:00Z"}}`,
			},
		},
		{
			name: "queued",
			mockBehavior: func(r *service_mocks.MockCirculationService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patron, req.poolUid).
					Return(model.LoanResult{
						Kind: model.LoanQueued,
						Hold: &model.Hold{PoolUid: req.poolUid, StartDate: ts, Position: 2},
					}, nil)
			},
			input: input{patron: "p2", poolUid: "pool-1"},
			response: response{
				expectedCode: http.StatusAccepted,
				expectedBody: `{"kind":"QUEUED","hold":{"poolUid":"pool-1","startDate":"2024-03-01T12:00:00Z","position":2}}`,
			},
		},
		{
			name: "err. already checked out",
			mockBehavior: func(r *service_mocks.MockCirculationService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patron, req.poolUid).
					Return(model.LoanResult{}, errs.ErrAlreadyCheckedOut)
			},
			input: input{patron: "p1", poolUid: "pool-1"},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"already checked out"}`,
			},
		},
		{
			name:         "err. no username",
			mockBehavior: func(r *service_mocks.MockCirculationService, req input) {},
			input:        input{patron: "", poolUid: "pool-1"},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"username is required"}`,
			},
		},
		{
			name: "err. pool not found",
			mockBehavior: func(r *service_mocks.MockCirculationService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patron, req.poolUid).
					Return(model.LoanResult{}, errs.ErrNotFound)
			},
			input: input{patron: "p1", poolUid: "nope"},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
		},
		{
			name: "err. remote refused",
			mockBehavior: func(r *service_mocks.MockCirculationService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patron, req.poolUid).
					Return(model.LoanResult{}, errs.ErrCannotLoan)
			},
			input: input{patron: "p1", poolUid: "pool-1"},
			response: response{
				expectedCode: http.StatusBadGateway,
				expectedBody: `{"message":"cannot loan"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockCirculationService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)
			e := h.NewRouter()

			r := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/pools/%s/checkout", tt.input.poolUid), http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tt.input.patron != "" {
				r.Header.Set(handler.XUserName, tt.input.patron)
			}
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Checkin(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockCirculationService)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		expectedCode int
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().Checkin(context.Background(), "p1", "pool-1").Return(nil)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name: "err. not checked out",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().Checkin(context.Background(), "p1", "pool-1").Return(errs.ErrNotCheckedOut)
			},
			expectedCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockCirculationService(c)
			h := handler.New(svc, zap.NewExample())
			e := h.NewRouter()

			r := httptest.NewRequest(http.MethodPost, "/api/v1/pools/pool-1/checkin", http.NoBody)
			r.Header.Set(handler.XUserName, "p1")
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)
			require.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestHandler_Holds(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	h := handler.New(svc, zap.NewExample())
	e := h.NewRouter()

	svc.EXPECT().
		PlaceHold(context.Background(), "p1", "pool-1").
		Return(model.Hold{PoolUid: "pool-1", StartDate: ts, Position: 1}, nil)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/pools/pool-1/hold", http.NoBody)
	r.Header.Set(handler.XUserName, "p1")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t,
		`{"poolUid":"pool-1","startDate":"2024-03-01T12:00:00Z","position":1}`,
		strings.Trim(w.Body.String(), "\n"))

	svc.EXPECT().
		PlaceHold(context.Background(), "p1", "pool-1").
		Return(model.Hold{}, errs.ErrCurrentlyAvailable)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/pools/pool-1/hold", http.NoBody)
	r.Header.Set(handler.XUserName, "p1")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, r)
	require.Equal(t, http.StatusConflict, w.Code)

	svc.EXPECT().ReleaseHold(context.Background(), "p1", "pool-1").Return(nil)

	r = httptest.NewRequest(http.MethodDelete, "/api/v1/pools/pool-1/hold", http.NoBody)
	r.Header.Set(handler.XUserName, "p1")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_Notify(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	h := handler.New(svc, zap.NewExample())
	e := h.NewRouter()

	svc.EXPECT().Notify(context.Background(), 42).Return(nil)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/42", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/notifications/abc", http.NoBody)
	w = httptest.NewRecorder()
	e.ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
