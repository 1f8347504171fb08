package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorBidTooLow(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/products/tempdata/x", nil)
	rec := httptest.NewRecorder()

	RespondError(rec, req, fmt.Errorf("place bid: %w", apperr.NewBidTooLow(decimal.NewFromInt(500))))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "bid_too_low", rec.Header().Get(apperr.KindHeader))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "bid_too_low", body["kind"])
	assert.NotNil(t, body["minimumBid"])
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{nope"))
	var dst map[string]any
	err := DecodeJSON(req, &dst)
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestParseUUID(t *testing.T) {
	_, err := ParseUUID("id", "123")
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
