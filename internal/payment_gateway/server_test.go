package payment_gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/mpesa-stk-gateway/internal/domain/callback"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/platform/mpesa"
	"github.com/mpesa-stk-gateway/internal/stk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInitiator struct{}

func (stubInitiator) Initiate(context.Context, *stk.PaymentRequest) (*stk.InitiateResult, error) {
	return &stk.InitiateResult{CheckoutRequestID: "ws_CO_1", MerchantRequestID: "m-1", BusinessID: "caan-developers"}, nil
}

type stubReconciler struct{}

func (stubReconciler) Reconcile(context.Context, []byte) stk.AckResponse {
	return stk.AckResponse{ResultCode: 0, ResultDesc: stk.AckStored}
}

func (stubReconciler) Finalize(context.Context, *mpesa.Callback, []byte, callback.Source) (*stk.FinalizeResult, error) {
	return nil, errors.New("not used")
}

type stubTransactionService struct{}

func (stubTransactionService) GetTransaction(_ context.Context, id string) (*payment.Transaction, error) {
	return nil, payment.ErrTransactionNotFound{CheckoutRequestID: id}
}

func (stubTransactionService) ListCallbacks(context.Context, string, int) ([]*callback.Record, error) {
	return []*callback.Record{}, nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(checks map[string]Pinger) *Server {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.Config{Server: config.ServerConfig{Port: 8080}}
	return NewServer(logger, cfg, stubInitiator{}, stubReconciler{}, stubTransactionService{}, checks)
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(nil)

	t.Run("Push", func(t *testing.T) {
		rr := serve(s, http.MethodPost, "/api/v1/stk/push", `{"mpesa_number":"0712345678","amount":1,"account_reference":"A","transaction_desc":"B","business_id":"caan-developers"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
	})

	t.Run("Callback", func(t *testing.T) {
		rr := serve(s, http.MethodPost, "/api/v1/stk/callback", `{}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Callback received successfully"}`, rr.Body.String())
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		for _, path := range []string{"/api/v1/stk/push", "/api/v1/stk/callback"} {
			for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
				rr := serve(s, method, path, "")
				assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, method+" "+path)
				assert.JSONEq(t, `{"error":"Method not allowed"}`, rr.Body.String())
			}
		}
	})

	t.Run("TransactionNotFound", func(t *testing.T) {
		rr := serve(s, http.MethodGet, "/api/v1/transactions/ws_CO_X", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		rr := serve(s, http.MethodGet, "/nope", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Metrics", func(t *testing.T) {
		rr := serve(s, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, strings.Contains(rr.Body.String(), "go_goroutines"))
	})
}

func TestServer_Health(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		s := newTestServer(map[string]Pinger{
			"postgres": pingerFunc(func(context.Context) error { return nil }),
		})

		rr := serve(s, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, map[string]interface{}{"postgres": "ok"}, body["checks"])
	})

	t.Run("Degraded", func(t *testing.T) {
		s := newTestServer(map[string]Pinger{
			"postgres": pingerFunc(func(context.Context) error { return nil }),
			"mongodb":  pingerFunc(func(context.Context) error { return errors.New("server selection timeout") }),
		})

		rr := serve(s, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body["status"])
	})
}
