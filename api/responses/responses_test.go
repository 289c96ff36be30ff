package responses

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
	"github.com/medimart-health/medimart-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusCreated, map[string]string{"id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["id"] != "abc" {
		t.Errorf("unexpected payload: %+v", envelope.Data)
	}
}

func TestWriteErrorMapsTypedCodes(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{errors.New(errors.CodeValidation, "bad input"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{errors.New(errors.CodeNotFound, "missing"), http.StatusNotFound, "NOT_FOUND"},
		{errors.New(errors.CodeInsufficientStock, "oversold"), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{errors.New(errors.CodeForbidden, "nope"), http.StatusForbidden, "FORBIDDEN"},
		{errors.New(errors.CodeStateConflict, "bad transition"), http.StatusUnprocessableEntity, "STATE_CONFLICT"},
		{errors.New(errors.CodeInvalidSignature, "forged"), http.StatusBadRequest, "INVALID_SIGNATURE"},
		{errors.New(errors.CodeGateway, "down"), http.StatusBadGateway, "GATEWAY_UNAVAILABLE"},
		{stderrors.New("plain"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.wantCode, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), rec, testLogger(), tc.err)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var envelope types.ErrorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Errorf("code = %s, want %s", envelope.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, testLogger(), stderrors.New("pq: secret table is broken"))

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Message != "internal server error" {
		t.Errorf("internal details leaked: %q", envelope.Error.Message)
	}
}
