package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// HandleAPIGateway runs the proxy behind an API Gateway Lambda integration.
func (p *Proxy) HandleAPIGateway(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if ev.HTTPMethod != "" && ev.HTTPMethod != http.MethodPost {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusMethodNotAllowed,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"method not allowed"}`,
		}, nil
	}

	body := []byte(ev.Body)
	if ev.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusBadRequest,
				Headers:    map[string]string{"Content-Type": "application/json"},
				Body:       `{"error":"missing action"}`,
			}, nil
		}
		body = decoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/run", bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	for k, v := range ev.Headers {
		req.Header.Set(k, v)
	}

	rec := &bufferedResponse{header: http.Header{}}
	p.ServeHTTP(rec, req)

	headers := make(map[string]string, len(rec.header))
	for k, v := range rec.header {
		headers[k] = strings.Join(v, ", ")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: rec.statusCode(),
		Headers:    headers,
		Body:       rec.body.String(),
	}, nil
}

// bufferedResponse collects a handler's output in memory.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)
	return b.body.Write(p)
}

func (b *bufferedResponse) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}
