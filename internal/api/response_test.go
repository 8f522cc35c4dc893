package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"boombot/pkg/boombot"
)

func TestWriteErrorResponse(t *testing.T) {
	t.Run("structured error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		writeErrorResponse(rr, req, http.StatusInternalServerError, boombot.UpstreamError("gemini", 500, errors.New("backend down")))

		if rr.Code != http.StatusBadGateway {
			t.Fatalf("expected status 502, got %d", rr.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ErrorCode != "UPSTREAM_ERROR" || resp.Code != http.StatusBadGateway {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if resp.Message != "gemini request failed with status 500: backend down" {
			t.Fatalf("unexpected message %q", resp.Message)
		}
		if resp.Hint != "❌ Generation API Error:\ngemini request failed with status 500: backend down" {
			t.Fatalf("unexpected hint %q", resp.Hint)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		writeErrorResponse(rr, req, http.StatusTeapot, errors.New("odd"))

		if rr.Code != http.StatusTeapot {
			t.Fatalf("expected fallback status, got %d", rr.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Message != "odd" || resp.ErrorCode != "" || resp.Hint != "" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	cases := map[boombot.ErrorCode]int{
		boombot.ErrCodeInvalidInput:    http.StatusBadRequest,
		boombot.ErrCodeInvalidSector:   http.StatusUnprocessableEntity,
		boombot.ErrCodeRateLimited:     http.StatusTooManyRequests,
		boombot.ErrCodeUpstream:        http.StatusBadGateway,
		boombot.ErrCodeEmptyResponse:   http.StatusBadGateway,
		boombot.ErrCodeUpstreamTimeout: http.StatusGatewayTimeout,
		boombot.ErrCodeConfig:          http.StatusInternalServerError,
		boombot.ErrCodeInternal:        http.StatusInternalServerError,
		boombot.ErrorCode("UNKNOWN"):   http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := mapErrorCodeToHTTPStatus(code); got != want {
			t.Fatalf("%s: expected %d, got %d", code, want, got)
		}
	}
}
