package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSMS_DryRunSkipsHTTP(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClientWithOptions("dry-run", "NUSA", false, nil)
	c.BaseURL = srv.URL

	resp, err := c.SendSMS(context.Background(), "+77001234567", "code 123456")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	assert.False(t, called)
}

func TestSendSMS_PostsForm(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{"code":0,"data":{"messageId":"42"}}`))
	}))
	defer srv.Close()

	c := NewClientWithOptions("key", "NUSA", false, nil)
	c.BaseURL = srv.URL

	resp, err := c.SendSMS(context.Background(), "+77001234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Data.MessageID)
	assert.Equal(t, "key", got.Get("apiKey"))
	assert.Equal(t, "+77001234567", got.Get("recipient"))
	assert.Equal(t, "hello", got.Get("text"))
	assert.Equal(t, "NUSA", got.Get("from"))
}

func TestSendSMS_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":1,"message":"bad recipient"}`))
	}))
	defer srv.Close()

	c := NewClientWithOptions("key", "", false, nil)
	c.BaseURL = srv.URL

	_, err := c.SendSMS(context.Background(), "x", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad recipient")
}
