package nets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", "test-project", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestRequestQR(t *testing.T) {
	var gotPath, gotAPIKey, gotProject string
	var gotBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("api-key")
		gotProject = r.Header.Get("project-id")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"data": map[string]any{
					"response_code":     "00",
					"txn_status":        1,
					"qr_code":           "aGVsbG8=",
					"txn_retrieval_ref": "ref-123",
				},
			},
		})
	})

	data, err := client.RequestQR(context.Background(), QRRequest{TxnID: "order-1", AmountCents: 12550})
	if err != nil {
		t.Fatalf("RequestQR error: %v", err)
	}
	if gotPath != "/common/payments/nets-qr/request" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAPIKey != "test-key" || gotProject != "test-project" {
		t.Fatalf("missing credentials headers: %q %q", gotAPIKey, gotProject)
	}
	if gotBody["amt_in_dollars"] != 125.5 {
		t.Fatalf("expected amount in dollars 125.5, got %v", gotBody["amt_in_dollars"])
	}
	if data.TxnRetrievalRef != "ref-123" || !data.Succeeded() {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestRequestQRMissingQRCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"data": map[string]any{
					"response_code": "68",
					"txn_status":    2,
					"error_message": "issuer unreachable",
				},
			},
		})
	})

	_, err := client.RequestQR(context.Background(), QRRequest{TxnID: "order-1", AmountCents: 1000})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestQueryStatus(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"data": map[string]any{
					"response_code": "00",
					"txn_status":    0,
				},
			},
		})
	})

	data, err := client.QueryStatus(context.Background(), "ref-123", true)
	if err != nil {
		t.Fatalf("QueryStatus error: %v", err)
	}
	if gotBody["txn_retrieval_ref"] != "ref-123" || gotBody["frontend_timeout_status"] != float64(1) {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if data.Succeeded() || data.Failed() {
		t.Fatalf("pending txn should be neither succeeded nor failed: %+v", data)
	}
}

func TestQueryStatusServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.QueryStatus(context.Background(), "ref-123", false)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "project"); err == nil {
		t.Fatal("expected api key error")
	}
	if _, err := NewClient("key", " "); err == nil {
		t.Fatal("expected project id error")
	}
}
