package nets

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

	"github.com/shopspring/decimal"

	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://sandbox.nets.openapipaas.com/api/v1"
	qrRequestPath              = "common/payments/nets-qr/request"
	qrQueryPath                = "common/payments/nets-qr/query"
	responseCodeOK             = "00"
	txnStatusSucceeded         = 1
	txnStatusFailed            = 2
	requestBodyReadLimit int64 = 1024
)

var (
	errAPIKeyRequired    = errors.New("nets api key is required")
	errProjectIDRequired = errors.New("nets project id is required")
)

// Client wraps the NETS QR payment APIs used for the bank transfer rail.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	projectID  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured NETS base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the NETS client given the sandbox or production credentials.
func NewClient(apiKey, projectID string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	trimmedProject := strings.TrimSpace(projectID)
	if trimmedProject == "" {
		return nil, errProjectIDRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		projectID:  trimmedProject,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// QRRequest describes a request for a scan-to-pay QR code.
type QRRequest struct {
	TxnID        string
	AmountCents  int64
	NotifyMobile bool
}

// TxnData is the normalized payload NETS returns for both the request and
// query APIs.
type TxnData struct {
	ResponseCode    string `json:"response_code"`
	TxnStatus       int    `json:"txn_status"`
	QRCode          string `json:"qr_code"`
	TxnRetrievalRef string `json:"txn_retrieval_ref"`
	NetworkStatus   int    `json:"network_status"`
	ErrorMessage    string `json:"error_message"`
}

// Succeeded reports whether NETS confirmed the payment.
func (d TxnData) Succeeded() bool {
	return d.ResponseCode == responseCodeOK && d.TxnStatus == txnStatusSucceeded
}

// Failed reports whether NETS rejected or voided the payment.
func (d TxnData) Failed() bool {
	return d.TxnStatus == txnStatusFailed || (d.ResponseCode != "" && d.ResponseCode != responseCodeOK)
}

type apiEnvelope struct {
	Result struct {
		Data TxnData `json:"data"`
	} `json:"result"`
}

// RequestQR asks NETS to mint a QR code for the given amount.
func (c *Client) RequestQR(ctx context.Context, req QRRequest) (*TxnData, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nets client not configured")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qr amount must be positive")
	}

	notify := 0
	if req.NotifyMobile {
		notify = 1
	}
	// NETS takes the amount in dollars
	amount := decimal.NewFromInt(req.AmountCents).Div(decimal.NewFromInt(100))
	payload := map[string]any{
		"txn_id":         req.TxnID,
		"amt_in_dollars": amount.InexactFloat64(),
		"notify_mobile":  notify,
	}

	data, err := c.post(ctx, qrRequestPath, payload)
	if err != nil {
		return nil, err
	}
	if data.QRCode == "" || data.TxnRetrievalRef == "" {
		msg := data.ErrorMessage
		if msg == "" {
			msg = "nets did not return a qr code"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	return data, nil
}

// QueryStatus polls the current state of a QR payment. frontendTimeout tells
// NETS the buyer-facing timer has elapsed so it can finalize the txn state.
func (c *Client) QueryStatus(ctx context.Context, txnRetrievalRef string, frontendTimeout bool) (*TxnData, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nets client not configured")
	}
	if strings.TrimSpace(txnRetrievalRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "txn retrieval ref is required")
	}

	timeoutStatus := 0
	if frontendTimeout {
		timeoutStatus = 1
	}
	payload := map[string]any{
		"txn_retrieval_ref":       txnRetrievalRef,
		"frontend_timeout_status": timeoutStatus,
	}
	return c.post(ctx, qrQueryPath, payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*TxnData, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal nets request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build nets request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("project-id", c.projectID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute nets request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "nets request failed")
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode nets response")
	}
	data := envelope.Result.Data
	return &data, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}
