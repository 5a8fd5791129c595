package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"golang.org/x/time/rate"
)

const (
	defaultReadTimeout   = 10 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultRetryBackoff  = 300 * time.Millisecond
	defaultRatePerSecond = 20
	defaultBurst         = 10
	maxErrorBodyBytes    = 4096
	duplicateEntryMarker = "duplicate entry"

	errorOperationDataAPI = "dataapi"
	errorCodeEncode       = "encode"
	errorCodeTransport    = "transport"
	errorCodeStatus       = "status"
	errorCodeDecode       = "decode"
	errorCodeRejected     = "rejected"
)

// Config controls the client's endpoint, timeouts and throttling.
type Config struct {
	BaseURL           string
	Headers           map[string]string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Burst             int
}

// RejectedError is returned when the data API answered but refused the operation.
type RejectedError struct {
	Operation string
	Table     string
	Status    int
	Message   string
}

func (rejected RejectedError) Error() string {
	return fmt.Sprintf("data api rejected %s %s (status %d): %s", rejected.Operation, rejected.Table, rejected.Status, rejected.Message)
}

// IsDuplicateKey reports whether err is a unique-key rejection from the backing database.
func IsDuplicateKey(err error) bool {
	var rejected RejectedError
	if !errors.As(err, &rejected) {
		return false
	}
	return strings.Contains(strings.ToLower(rejected.Message), duplicateEntryMarker)
}

// Client talks to the tabular data API. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	headers      map[string]string
	readTimeout  time.Duration
	writeTimeout time.Duration
	retryBackoff time.Duration
	limiter      *rate.Limiter
}

// NewClient builds a client. httpClient may be nil to use a default client.
func NewClient(httpClient *http.Client, cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidRequest)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	ratePerSecond := cfg.RequestsPerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = defaultRatePerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	headers := make(map[string]string, len(cfg.Headers))
	for key, value := range cfg.Headers {
		headers[key] = value
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		headers:      headers,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		retryBackoff: retryBackoff,
		limiter:      rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}, nil
}

// Get reads rows. Upstream failures are retried once after a backoff.
func (client *Client) Get(ctx context.Context, request Request) ([]Row, error) {
	request.Operation = operationGet
	if err := request.validate(); err != nil {
		return nil, err
	}
	response, err := client.do(ctx, request, client.readTimeout)
	if errors.Is(err, booking.ErrUpstreamUnavailable) {
		timer := time.NewTimer(client.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
		response, err = client.do(ctx, request, client.readTimeout)
	}
	if err != nil {
		return nil, err
	}
	return response.Data, nil
}

// Add inserts one row. Writes are never retried.
func (client *Client) Add(ctx context.Context, request Request) (Response, error) {
	request.Operation = operationAdd
	if err := request.validate(); err != nil {
		return Response{}, err
	}
	return client.do(ctx, request, client.writeTimeout)
}

func (client *Client) do(ctx context.Context, request Request, timeout time.Duration) (Response, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return Response{}, wrapUpstream(request.Table, errorCodeTransport, err)
	}
	body, err := json.Marshal(request)
	if err != nil {
		return Response{}, booking.WrapError(errorOperationDataAPI, request.Table, errorCodeEncode, err)
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(requestCtx, http.MethodPost, client.baseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, booking.WrapError(errorOperationDataAPI, request.Table, errorCodeEncode, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")
	for key, value := range client.headers {
		httpRequest.Header.Set(key, value)
	}

	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return Response{}, wrapUpstream(request.Table, errorCodeTransport, err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode >= http.StatusInternalServerError || httpResponse.StatusCode == http.StatusTooManyRequests {
		snippet, _ := io.ReadAll(io.LimitReader(httpResponse.Body, maxErrorBodyBytes))
		return Response{}, wrapUpstream(request.Table, errorCodeStatus,
			fmt.Errorf("status %d: %s", httpResponse.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var response Response
	decodeErr := json.NewDecoder(io.LimitReader(httpResponse.Body, 64<<20)).Decode(&response)
	if httpResponse.StatusCode >= http.StatusBadRequest {
		message := response.Error
		if message == "" {
			message = response.Message
		}
		return Response{}, booking.WrapError(errorOperationDataAPI, request.Table, errorCodeRejected, RejectedError{
			Operation: request.Operation,
			Table:     request.Table,
			Status:    httpResponse.StatusCode,
			Message:   message,
		})
	}
	if decodeErr != nil {
		return Response{}, wrapUpstream(request.Table, errorCodeDecode, decodeErr)
	}
	if !response.Success {
		message := response.Error
		if message == "" {
			message = response.Message
		}
		return Response{}, booking.WrapError(errorOperationDataAPI, request.Table, errorCodeRejected, RejectedError{
			Operation: request.Operation,
			Table:     request.Table,
			Status:    httpResponse.StatusCode,
			Message:   message,
		})
	}
	return response, nil
}

func wrapUpstream(table string, code string, err error) error {
	return booking.WrapError(errorOperationDataAPI, table, code, fmt.Errorf("%w: %v", booking.ErrUpstreamUnavailable, err))
}
