package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppSendTextPayload(t *testing.T) {
	var got sendTextRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"true_919876543210@c.us_ABCD"}`))
	}))
	defer srv.Close()

	client := NewWhatsAppClient(srv.URL, "/api/sendText", "default", nil, zerolog.Nop())
	resp, err := client.SendText(context.Background(), "919876543210@c.us", "hello")
	require.NoError(t, err)
	require.Equal(t, "/api/sendText", path)
	require.Equal(t, "919876543210@c.us", got.ChatID)
	require.Equal(t, "hello", got.Text)
	require.Equal(t, "default", got.Session)
	require.Contains(t, resp, "ABCD")
}

func TestWhatsAppSendTextGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not started", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewWhatsAppClient(srv.URL, "/api/sendText", "default", nil, zerolog.Nop())
	_, err := client.SendText(context.Background(), "919876543210@c.us", "hello")
	require.Error(t, err)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "whatsapp", terr.Transport)
	require.Equal(t, http.StatusInternalServerError, terr.Status)
	require.Contains(t, terr.Error(), "session not started")
}

func TestWhatsAppSendTextConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewWhatsAppClient(srv.URL, "/api/sendText", "default", nil, zerolog.Nop())
	_, err := client.SendText(context.Background(), "919876543210@c.us", "hello")

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	require.Zero(t, terr.Status)
}
