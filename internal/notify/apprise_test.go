package notify

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daurydicaprio/nasback/internal/domain"
	"github.com/daurydicaprio/nasback/internal/http"
)

func fastClient() *http.Client {
	return http.NewClient(http.WithRetryConfig(http.RetryConfig{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}))
}

func TestAppriseNotify(t *testing.T) {
	var gotPath string
	var gotReq appriseRequest
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		w.WriteHeader(stdhttp.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "nasback", WithHTTPClient(fastClient()))

	err := client.Notify(context.Background(), domain.ErrorNotification("NAS backup failed", "restic exited 1"))
	require.NoError(t, err)

	assert.Equal(t, "/notify/nasback", gotPath)
	assert.Equal(t, "NAS backup failed", gotReq.Title)
	assert.Equal(t, "restic exited 1", gotReq.Body)
	assert.Equal(t, "failure", gotReq.Type)
}

func TestAppriseNotifyInfoLevel(t *testing.T) {
	var gotReq appriseRequest
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		w.WriteHeader(stdhttp.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "nasback", WithHTTPClient(fastClient()))

	err := client.Notify(context.Background(), domain.InfoNotification("NAS backup completed", "all good"))
	require.NoError(t, err)
	assert.Equal(t, "info", gotReq.Type)
}

func TestAppriseNotifyTruncatesLongBody(t *testing.T) {
	var gotReq appriseRequest
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		w.WriteHeader(stdhttp.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "nasback", WithHTTPClient(fastClient()))

	long := strings.Repeat("x", 5000)
	err := client.Notify(context.Background(), domain.InfoNotification("title", long))
	require.NoError(t, err)

	assert.Len(t, gotReq.Body, maxBodyLength)
	assert.True(t, strings.HasSuffix(gotReq.Body, "..."))
}

func TestAppriseNotifyServerError(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusBadRequest)
		_, _ = w.Write([]byte("no such key"))
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "missing", WithHTTPClient(fastClient()))

	err := client.Notify(context.Background(), domain.InfoNotification("title", "body"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestAppriseTrailingSlashTrimmed(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(stdhttp.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL+"/", "key", WithHTTPClient(fastClient()))

	err := client.Notify(context.Background(), domain.InfoNotification("t", "b"))
	require.NoError(t, err)
	assert.Equal(t, "/notify/key", gotPath)
}

func TestAppriseValidate(t *testing.T) {
	t.Run("details endpoint available", func(t *testing.T) {
		server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			if r.URL.Path == "/details/key" {
				w.WriteHeader(stdhttp.StatusOK)
				return
			}
			w.WriteHeader(stdhttp.StatusNotFound)
		}))
		defer server.Close()

		client := NewAppriseClient(server.URL, "key", WithHTTPClient(fastClient()))
		assert.NoError(t, client.Validate(context.Background()))
	})

	t.Run("falls back to root url", func(t *testing.T) {
		server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			if r.URL.Path == "/" {
				w.WriteHeader(stdhttp.StatusOK)
				return
			}
			w.WriteHeader(stdhttp.StatusNotFound)
		}))
		defer server.Close()

		client := NewAppriseClient(server.URL, "key", WithHTTPClient(fastClient()))
		assert.NoError(t, client.Validate(context.Background()))
	})

	t.Run("unreachable server", func(t *testing.T) {
		server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {}))
		server.Close()

		client := NewAppriseClient(server.URL, "key", WithHTTPClient(fastClient()))
		assert.Error(t, client.Validate(context.Background()))
	})
}

func TestMapLevel(t *testing.T) {
	assert.Equal(t, "info", mapLevel(domain.NotificationLevelInfo))
	assert.Equal(t, "warning", mapLevel(domain.NotificationLevelWarning))
	assert.Equal(t, "failure", mapLevel(domain.NotificationLevelError))
}
