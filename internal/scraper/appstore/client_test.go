package appstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential() Credential {
	return Credential{
		DSID: "123456789",
		Headers: map[string]string{
			"Cookie":       "myacinfo=test-cookie",
			"X-Apple-Xsrf": "token-abc",
		},
	}
}

func TestClient_FetchPage_SendsCredentialAndCursor(t *testing.T) {
	var gotReq SearchRequest
	var gotHeader http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"query":{"batchId":"b2"},"nextBatchId":"","purchases":[]}`))
	}))
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL))
	cursor := "b2"
	page, err := client.FetchPage(context.Background(), testCredential(), &cursor)

	require.NoError(t, err)
	assert.Equal(t, SearchRequest{DSID: "123456789", BatchID: "b2"}, gotReq)
	assert.Equal(t, "myacinfo=test-cookie", gotHeader.Get("Cookie"))
	assert.Equal(t, "token-abc", gotHeader.Get("X-Apple-Xsrf"))
	assert.Equal(t, "en-US,en;q=0.9", gotHeader.Get("Accept-Language"))
	assert.Equal(t, DefaultReferrer, gotHeader.Get("Referer"))
	assert.Nil(t, page.NextCursor)
}

func TestClient_FetchPage_FirstPageOmitsBatchID(t *testing.T) {
	var rawBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rawBody))
		_, _ = w.Write([]byte(`{"query":{"batchId":null},"nextBatchId":"","purchases":[]}`))
	}))
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL))
	_, err := client.FetchPage(context.Background(), testCredential(), nil)

	require.NoError(t, err)
	assert.NotContains(t, rawBody, "batchId")
	assert.Equal(t, "123456789", rawBody["dsid"])
}

func TestClient_FetchPage_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL))
	_, err := client.FetchPage(context.Background(), testCredential(), nil)

	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestClient_FetchPage_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(WithEndpoint(srv.URL))
	_, err := client.FetchPage(context.Background(), testCredential(), nil)

	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestClient_FetchPage_PreservesCustomAcceptLanguage(t *testing.T) {
	var gotHeader http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		_, _ = w.Write([]byte(`{"query":{"batchId":null},"nextBatchId":"","purchases":[]}`))
	}))
	defer srv.Close()

	cred := testCredential()
	cred.Headers["Accept-Language"] = "ja-JP"

	client := NewClient(WithEndpoint(srv.URL))
	_, err := client.FetchPage(context.Background(), cred, nil)

	require.NoError(t, err)
	assert.Equal(t, "ja-JP", gotHeader.Get("Accept-Language"))
}
