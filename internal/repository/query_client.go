package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SergeiKhy/linkdash/internal/config"
	"github.com/SergeiKhy/linkdash/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 16 << 20
)

// Executor выполняет SQL на хранилище: одиночные запросы и пакеты
type Executor interface {
	Query(ctx context.Context, sql string, params ...any) (Rows, error)
	Batch(ctx context.Context, statements []Statement) ([]Rows, error)
	IsConfigured() bool
}

// QueryClient клиент stateless HTTP-эндпоинта (формат D1 query API).
// Каждый вызов это отдельный HTTP-запрос, повторов нет.
type QueryClient struct {
	cfg        config.DBConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*QueryClient)

func WithHTTPClient(client *http.Client) Option {
	return func(c *QueryClient) {
		c.httpClient = client
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *QueryClient) {
		c.logger = logger
	}
}

func NewQueryClient(cfg config.DBConfig, opts ...Option) *QueryClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &QueryClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured проверяет наличие всех трёх параметров доступа
func (c *QueryClient) IsConfigured() bool {
	return c.cfg.AccountID != "" && c.cfg.DatabaseID != "" && c.cfg.APIToken != ""
}

type queryRequest struct {
	SQL    string `json:"sql"`
	Params any    `json:"params"`
}

type queryResult struct {
	Results Rows `json:"results"`
}

type queryResponse struct {
	Success bool          `json:"success"`
	Result  []queryResult `json:"result"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (r *queryResponse) errorMessage() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Query выполняет один запрос и возвращает строки первого результата
func (c *QueryClient) Query(ctx context.Context, sql string, params ...any) (Rows, error) {
	if !c.IsConfigured() {
		metrics.QueryErrors.WithLabelValues(errorKind(ErrNotConfigured)).Inc()
		return nil, ErrNotConfigured
	}
	if params == nil {
		params = []any{}
	}

	resp, err := c.do(ctx, "query", queryRequest{SQL: sql, Params: params})
	if err != nil {
		return nil, err
	}

	if len(resp.Result) == 0 || resp.Result[0].Results == nil {
		return Rows{}, nil
	}
	return resp.Result[0].Results, nil
}

// Batch отправляет все запросы одним HTTP-вызовом: SQL через "; ",
// параметры массивом массивов. Результаты возвращаются в порядке запросов.
func (c *QueryClient) Batch(ctx context.Context, statements []Statement) ([]Rows, error) {
	if len(statements) == 0 {
		return []Rows{}, nil
	}
	if !c.IsConfigured() {
		metrics.QueryErrors.WithLabelValues(errorKind(ErrNotConfigured)).Inc()
		return nil, ErrNotConfigured
	}

	sqls := make([]string, len(statements))
	params := make([][]any, len(statements))
	for i, s := range statements {
		sqls[i] = s.SQL
		params[i] = s.Params
		if params[i] == nil {
			params[i] = []any{}
		}
	}

	resp, err := c.do(ctx, "batch", queryRequest{SQL: strings.Join(sqls, "; "), Params: params})
	if err != nil {
		return nil, err
	}

	out := make([]Rows, len(statements))
	for i := range out {
		if i < len(resp.Result) && resp.Result[i].Results != nil {
			out[i] = resp.Result[i].Results
		} else {
			out[i] = Rows{}
		}
	}
	return out, nil
}

func (c *QueryClient) endpoint() string {
	return fmt.Sprintf("%s/accounts/%s/d1/database/%s/query",
		strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.AccountID, c.cfg.DatabaseID)
}

func (c *QueryClient) do(ctx context.Context, op string, payload queryRequest) (*queryResponse, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.send(ctx, payload)
	if err != nil {
		metrics.QueryErrors.WithLabelValues(errorKind(err)).Inc()
		return nil, err
	}
	return resp, nil
}

func (c *QueryClient) send(ctx context.Context, payload queryRequest) (*queryResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Query endpoint request failed", zap.Error(err))
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		c.logger.Warn("Failed to read query response", zap.Error(err))
		return nil, &TransportError{Err: err}
	}

	var out queryResponse
	decodeErr := json.Unmarshal(raw, &out)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn("Query endpoint returned error status",
			zap.Int("status", res.StatusCode),
			zap.String("errors", out.errorMessage()),
		)
		return nil, newRemoteError(res.StatusCode, out.errorMessage())
	}
	if decodeErr != nil {
		c.logger.Warn("Malformed query response", zap.Error(decodeErr))
		return nil, newRemoteError(res.StatusCode, "")
	}
	if !out.Success {
		c.logger.Warn("Query failed on remote", zap.String("errors", out.errorMessage()))
		return nil, newRemoteError(res.StatusCode, out.errorMessage())
	}

	return &out, nil
}
