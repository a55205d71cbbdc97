package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeTransaction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body InitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(150050), body.Amount)
		assert.Equal(t, "KES", body.Currency)
		assert.Equal(t, "DON-1", body.Reference)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"DON-1"}}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test", time.Second)
	auth, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email: "donor@example.com", Amount: 150050, Currency: "KES", Reference: "DON-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", auth.AuthorizationURL)
	assert.Equal(t, "abc", auth.AccessCode)
	assert.Equal(t, "DON-1", auth.Reference)
}

func TestVerifyTransaction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/DON-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"id":42,"status":"success","reference":"DON-1","amount":150000,"fees":2250,"currency":"KES","channel":"mobile_money","paid_at":"2026-01-05T10:00:00.000Z","customer":{"email":"donor@example.com"},"authorization":{"mobile_money_number":"0712345678"},"metadata":{"donor_name":"Jane"}}}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test", time.Second)
	tx, err := client.VerifyTransaction(context.Background(), "DON-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, tx.Status)
	assert.Equal(t, int64(150000), tx.Amount)
	assert.Equal(t, int64(2250), tx.Fees)
	assert.Equal(t, "mobile_money", tx.Channel)
	require.NotNil(t, tx.PaidAt)
	assert.Equal(t, "Jane", tx.MetadataString("donor_name"))
	assert.Equal(t, "0712345678", tx.Authorization.MobileMoneyNumber)
	assert.NotEmpty(t, tx.Raw)
}

func TestGatewayErrorKeepsUpstreamPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid currency"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test", time.Second)
	_, err := client.InitializeTransaction(context.Background(), InitializeRequest{Email: "a@b.co", Amount: 100, Reference: "r"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Equal(t, "Invalid currency", gwErr.Message)
	assert.JSONEq(t, `{"status":false,"message":"Invalid currency"}`, string(gwErr.Body))
}

func TestStatusFalseIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test", time.Second)
	_, err := client.VerifyTransaction(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestTimeoutIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test", 20*time.Millisecond)
	_, err := client.VerifyTransaction(context.Background(), "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient("", "", 0)
	_, err := client.VerifyTransaction(context.Background(), "ref")
	assert.True(t, errors.Is(err, ErrUnavailable))
}
