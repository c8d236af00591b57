package dispatch

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/voxbridge/internal/config"
)

func TestHandleAPIGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	p, err := New(config.ProxyConfig{AppKey: "s3cret", DownstreamURL: srv.URL})
	require.NoError(t, err)

	payload := `{"action":{"name":"set_brightness","params":{"brightness_pct":50}}}`
	resp, err := p.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/run",
		Headers:    map[string]string{"x-app-key": "s3cret", "Content-Type": "application/json"},
		Body:       payload,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"brightness_pct":50}`, resp.Body)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])

	resp, err = p.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Headers:         map[string]string{"X-App-Key": "s3cret"},
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"action":{"name":"open_garage"}}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = p.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       payload,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = p.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
