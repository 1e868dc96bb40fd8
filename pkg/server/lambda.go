package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LambdaHandlerFunc is the signature accepted by lambda.Start.
type LambdaHandlerFunc func(ctx context.Context, event json.RawMessage) (any, error)

// LambdaHandler bridges API Gateway HTTP API (payload 2.0), REST API (payload 1.0) and
// function URL events to the gin engine. Startup hooks run before the first event.
func (s *Server) LambdaHandler() (LambdaHandlerFunc, error) {
	if err := s.RunStartupHooks(); err != nil {
		return nil, err
	}
	engine, err := s.Engine()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, event json.RawMessage) (any, error) {
		return dispatch(ctx, engine, event)
	}, nil
}

type eventProbe struct {
	Version        string `json:"version"`
	HTTPMethod     string `json:"httpMethod"`
	RequestContext struct {
		DomainName string          `json:"domainName"`
		HTTP       json.RawMessage `json:"http"`
	} `json:"requestContext"`
}

func dispatch(ctx context.Context, handler http.Handler, event json.RawMessage) (any, error) {
	var probe eventProbe
	if err := json.Unmarshal(event, &probe); err != nil {
		return nil, errors.Wrap(err, "unrecognized Lambda event")
	}

	switch {
	case strings.Contains(probe.RequestContext.DomainName, ".lambda-url."):
		var req events.LambdaFunctionURLRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, errors.Wrap(err, "invalid function URL event")
		}
		return serveFunctionURL(ctx, handler, req)

	case probe.Version == "2.0" || len(probe.RequestContext.HTTP) > 0:
		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, errors.Wrap(err, "invalid API Gateway v2 event")
		}
		return serveV2(ctx, handler, req)

	case probe.HTTPMethod != "":
		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, errors.Wrap(err, "invalid API Gateway v1 event")
		}
		return serveV1(ctx, handler, req)

	default:
		return nil, errors.New("unsupported Lambda event: expected an API Gateway or function URL request")
	}
}

func serveV2(ctx context.Context, handler http.Handler, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	path := event.RawPath
	if stage := event.RequestContext.Stage; stage != "" && stage != "$default" {
		path = strings.TrimPrefix(path, "/"+stage)
	}
	req, err := newRequest(ctx, event.RequestContext.HTTP.Method, path, event.RawQueryString, event.Body, event.IsBase64Encoded)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	for name, value := range event.Headers {
		req.Header.Set(name, value)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP

	res := serve(handler, req)
	body, encoded := res.encodedBody()
	return events.APIGatewayV2HTTPResponse{
		StatusCode:      res.status,
		Headers:         res.singleValueHeaders(),
		Cookies:         res.header.Values("Set-Cookie"),
		Body:            body,
		IsBase64Encoded: encoded,
	}, nil
}

func serveFunctionURL(ctx context.Context, handler http.Handler, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	req, err := newRequest(ctx, event.RequestContext.HTTP.Method, event.RawPath, event.RawQueryString, event.Body, event.IsBase64Encoded)
	if err != nil {
		return events.LambdaFunctionURLResponse{}, err
	}
	for name, value := range event.Headers {
		req.Header.Set(name, value)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP

	res := serve(handler, req)
	body, encoded := res.encodedBody()
	return events.LambdaFunctionURLResponse{
		StatusCode:      res.status,
		Headers:         res.singleValueHeaders(),
		Cookies:         res.header.Values("Set-Cookie"),
		Body:            body,
		IsBase64Encoded: encoded,
	}, nil
}

func serveV1(ctx context.Context, handler http.Handler, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	query := url.Values{}
	for name, values := range event.MultiValueQueryStringParameters {
		query[name] = values
	}
	if len(query) == 0 {
		for name, value := range event.QueryStringParameters {
			query.Set(name, value)
		}
	}

	req, err := newRequest(ctx, event.HTTPMethod, event.Path, query.Encode(), event.Body, event.IsBase64Encoded)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	for name, values := range event.MultiValueHeaders {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	for name, value := range event.Headers {
		if req.Header.Get(name) == "" {
			req.Header.Set(name, value)
		}
	}
	req.RemoteAddr = event.RequestContext.Identity.SourceIP

	res := serve(handler, req)
	body, encoded := res.encodedBody()
	return events.APIGatewayProxyResponse{
		StatusCode:        res.status,
		MultiValueHeaders: res.header,
		Body:              body,
		IsBase64Encoded:   encoded,
	}, nil
}

func newRequest(ctx context.Context, method, path, rawQuery, body string, base64Encoded bool) (*http.Request, error) {
	payload := []byte(body)
	if base64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, errors.Wrap(err, "invalid base64 request body")
		}
		payload = decoded
	}
	if path == "" {
		path = "/"
	}

	target := &url.URL{Path: path, RawQuery: rawQuery}
	req, err := http.NewRequestWithContext(ctx, method, target.RequestURI(), bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request from Lambda event")
	}
	return req, nil
}

func serve(handler http.Handler, req *http.Request) *bufferedResponse {
	res := &bufferedResponse{header: http.Header{}}
	handler.ServeHTTP(res, req)
	if res.status == 0 {
		res.status = http.StatusOK
	}
	log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Int("status", res.status).Msg("Lambda request served")
	return res
}

// bufferedResponse collects a response in memory so it can be returned as a Lambda payload.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (r *bufferedResponse) Header() http.Header {
	return r.header
}

func (r *bufferedResponse) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

func (r *bufferedResponse) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *bufferedResponse) singleValueHeaders() map[string]string {
	headers := make(map[string]string, len(r.header))
	for name, values := range r.header {
		if http.CanonicalHeaderKey(name) == "Set-Cookie" {
			continue
		}
		headers[name] = strings.Join(values, ",")
	}
	return headers
}

// encodedBody returns the body as text, or base64 encoded when the content is binary.
func (r *bufferedResponse) encodedBody() (string, bool) {
	if r.body.Len() == 0 || isText(r.header.Get("Content-Type")) {
		return r.body.String(), false
	}
	return base64.StdEncoding.EncodeToString(r.body.Bytes()), true
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/json" ||
		strings.HasSuffix(mediaType, "+json") ||
		mediaType == "application/xml" ||
		mediaType == "application/javascript"
}
