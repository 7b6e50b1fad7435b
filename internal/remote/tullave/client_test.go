package tullave_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vblancom/tullave-services/internal/remote"
	"github.com/vblancom/tullave-services/internal/remote/tullave"
)

func newClient(t *testing.T, handler http.HandlerFunc) *tullave.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := tullave.NewClient(srv.URL, "test-token", 5*time.Second, time.Minute)
	t.Cleanup(c.Close)
	return c
}

func TestInformation_SendsBearerTokenAndDecodes(t *testing.T) {
	var gotAuth, gotAccept, gotPath string

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.Write([]byte(`{
			"cardNumber": "1010000012345678",
			"profileCode": "01",
			"profile": "Adulto",
			"bankCode": "23",
			"bankName": "Banco Popular",
			"userName": "Maria",
			"userLastName": "Gomez"
		}`))
	})

	info, err := c.Information(context.Background(), "12345678")
	require.NoError(t, err)

	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, "application/json", gotAccept)
	require.Equal(t, "/card/getInformation/12345678", gotPath)
	require.Equal(t, "1010000012345678", info.CardNumber)
	require.Equal(t, "Maria Gomez", info.HolderName())
}

func TestValidity_Path(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/card/valid/555", r.URL.Path)
		w.Write([]byte(`{"card":"555","isValid":true,"status":"ACTIVE","statusCode":0}`))
	})

	status, err := c.Validity(context.Background(), "555")
	require.NoError(t, err)
	require.True(t, status.IsValid)
	require.Equal(t, "ACTIVE", status.Status)
}

func TestErrorBody_BecomesAPIError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorCode":"CARD-404","errorMessage":"card does not exist"}`))
	})

	_, err := c.Information(context.Background(), "999")
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "CARD-404", apiErr.Code)
	require.Equal(t, "card does not exist", apiErr.Message)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestUnauthorizedWithoutBody_BecomesAuthenticationFailed(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := c.Information(context.Background(), "123")
		require.ErrorIs(t, err, remote.ErrAuthenticationFailed)
	}
}

func TestServerErrorWithoutBody_BecomesGenericAPIError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Information(context.Background(), "123")
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Contains(t, apiErr.Message, "500")
}

func TestBadSchema_BecomesDecodeError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cardNumber": 42}`))
	})

	_, err := c.Information(context.Background(), "123")
	var decodeErr *remote.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Error(t, errors.Unwrap(decodeErr))
}

func TestTransportFailure_BecomesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close() // connection refused from here on

	c := tullave.NewClient(base, "token", time.Second, time.Minute)
	defer c.Close()

	_, err := c.Information(context.Background(), "123")
	var transportErr *remote.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestBalance_CachedWithinTTL(t *testing.T) {
	calls := 0
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"card":"77","balance":4200,"balanceDate":"2026-08-01","virtualBalance":0,"virtualBalanceDate":""}`))
	})

	first, err := c.Balance(context.Background(), "77")
	require.NoError(t, err)
	require.Equal(t, "4200", first.Amount().String())

	second, err := c.Balance(context.Background(), "77")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}
