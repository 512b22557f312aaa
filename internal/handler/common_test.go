package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetkit/booking/internal/scheduling"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: bad duration", scheduling.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: host", scheduling.ErrNotFound), http.StatusNotFound},
		{"conflict", scheduling.ErrConflict, http.StatusConflict},
		{"expired", scheduling.ErrExpired, http.StatusGone},
		{"invalid state", fmt.Errorf("%w: request is confirmed", scheduling.ErrInvalidState), http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			require.NoError(t, respondError(c, tc.err))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	c, rec := newTestContext(t)
	require.NoError(t, respondError(c, errors.New("dial tcp 10.0.0.5:3306: timeout")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5", "driver detail never leaks to clients")
}

func TestGetHostID(t *testing.T) {
	for _, v := range []any{uint64(7), int(7), int64(7), float64(7), "7"} {
		c, _ := newTestContext(t)
		c.Set("host_id", v)
		id, err := getHostID(c)
		require.NoError(t, err, "value %T", v)
		assert.Equal(t, uint64(7), id)
	}

	c, _ := newTestContext(t)
	_, err := getHostID(c)
	assert.Error(t, err, "missing host_id")

	c, _ = newTestContext(t)
	c.Set("host_id", "not-a-number")
	_, err = getHostID(c)
	assert.Error(t, err)
}

func TestParamID(t *testing.T) {
	c, _ := newTestContext(t)
	c.SetParamNames("id")
	c.SetParamValues("42")
	id, ok := paramID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		c, _ := newTestContext(t)
		c.SetParamNames("id")
		c.SetParamValues(bad)
		_, ok := paramID(c, "id")
		assert.False(t, ok, "value %q", bad)
	}
}
