package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/nbd-wtf/go-nostr"

	"github.com/nostrid/nip05-registry/internal/common/constants"
	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/signer"
)

const recipientPubKey = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

// lnurlResponder fakes a LNURL-pay provider accepting 1000 to 500000 sats.
type lnurlResponder struct {
	server        *httptest.Server
	lastCallback  url.Values
	payStatus     int
	invoiceStatus int
	invoice       string
	omitCallback  bool
	omitInvoice   bool
	oversizedPay  bool
}

func newLnurlResponder() *lnurlResponder {
	r := &lnurlResponder{
		payStatus:     http.StatusOK,
		invoiceStatus: http.StatusOK,
		invoice:       "lnbc50u1fakeinvoice",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/lnurlp/", func(w http.ResponseWriter, req *http.Request) {
		if r.payStatus != http.StatusOK {
			w.WriteHeader(r.payStatus)
			return
		}
		if r.oversizedPay {
			// pads past the read cap so only whitespace survives truncation
			_, _ = w.Write([]byte(strings.Repeat(" ", constants.LnurlResponseMax+1)))
			_ = json.NewEncoder(w).Encode(map[string]any{"callback": r.server.URL + "/callback"})
			return
		}
		resp := map[string]any{
			"minSendable": 1000000,
			"maxSendable": 500000000,
			"tag":         "payRequest",
		}
		if !r.omitCallback {
			resp["callback"] = r.server.URL + "/callback"
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/callback", func(w http.ResponseWriter, req *http.Request) {
		r.lastCallback = req.URL.Query()
		if r.invoiceStatus != http.StatusOK {
			w.WriteHeader(r.invoiceStatus)
			return
		}
		resp := map[string]any{"routes": []any{}}
		if !r.omitInvoice {
			resp["pr"] = r.invoice
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	r.server = httptest.NewServer(mux)
	return r
}

func setupZapService(t *testing.T, sgn signer.Signer) (*Service, *lnurlResponder) {
	responder := newLnurlResponder()
	t.Cleanup(responder.server.Close)

	log, _ := logger.New("", "test", "error")
	svc := NewService(responder.server.Client(), sgn, []string{"wss://nos.lol"}, log)
	svc.lnurlpURL = func(domain, local string) string {
		return responder.server.URL + "/.well-known/lnurlp/" + local
	}
	return svc, responder
}

func testSigner(t *testing.T) *signer.LocalSigner {
	sgn, err := signer.NewLocalSigner(nostr.GeneratePrivateKey())
	if err != nil {
		t.Fatalf("failed to build signer: %v", err)
	}
	return sgn
}

func TestRequestInvoice_ReturnsInvoiceVerbatim(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))

	result, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
		Comment:          "great post",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Invoice != responder.invoice {
		t.Errorf("expected invoice returned verbatim, got %q", result.Invoice)
	}
	if got := responder.lastCallback.Get("amount"); got != "5000000" {
		t.Errorf("expected amount in millisats, got %q", got)
	}
}

func TestRequestInvoice_ZapRequestTagShape(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
		Comment:          "great post",
		Relays:           []string{"wss://relay.damus.io"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	raw := responder.lastCallback.Get("nostr")
	if raw == "" {
		t.Fatal("expected a nostr zap request on the callback")
	}

	var event nostr.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("zap request is not valid JSON: %v", err)
	}

	if event.Kind != 9734 {
		t.Errorf("expected kind 9734, got %d", event.Kind)
	}
	if tag := event.Tags.GetFirst([]string{"p"}); tag == nil || (*tag)[1] != recipientPubKey {
		t.Errorf("expected p tag with recipient key, got %v", event.Tags)
	}
	if tag := event.Tags.GetFirst([]string{"amount"}); tag == nil || (*tag)[1] != "5000000" {
		t.Errorf("expected amount tag in millisats, got %v", event.Tags)
	}
	if tag := event.Tags.GetFirst([]string{"relays"}); tag == nil || (*tag)[1] != "wss://relay.damus.io" {
		t.Errorf("expected relays tag, got %v", event.Tags)
	}
	if tag := event.Tags.GetFirst([]string{"lnurl"}); tag == nil || !strings.HasPrefix(strings.ToLower((*tag)[1]), "lnurl") {
		t.Errorf("expected bech32 lnurl tag, got %v", event.Tags)
	}
	if event.Content != "great post" {
		t.Errorf("expected comment as content, got %q", event.Content)
	}
	if ok, _ := event.CheckSignature(); !ok {
		t.Error("expected a validly signed zap request")
	}
}

func TestRequestInvoice_AmountOutOfBounds(t *testing.T) {
	svc, _ := setupZapService(t, testSigner(t))

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       400,
	})

	domainErr, ok := commonerrors.AsDomainError(err)
	if !ok || domainErr.Code() != "AMOUNT_OUT_OF_BOUNDS" {
		t.Fatalf("expected AMOUNT_OUT_OF_BOUNDS, got %v", err)
	}
	if !strings.Contains(domainErr.Message(), "1000") || !strings.Contains(domainErr.Message(), "500000") {
		t.Errorf("expected the valid range in the message, got %q", domainErr.Message())
	}
}

func TestRequestInvoice_InvalidAmount(t *testing.T) {
	svc, _ := setupZapService(t, testSigner(t))

	for _, amount := range []int64{0, -5} {
		_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
			RecipientAddress: "alice@example.com",
			RecipientPubKey:  recipientPubKey,
			AmountSats:       amount,
		})
		if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "INVALID_AMOUNT" {
			t.Errorf("amount %d: expected INVALID_AMOUNT, got %v", amount, err)
		}
	}
}

func TestRequestInvoice_MissingAddress(t *testing.T) {
	svc, _ := setupZapService(t, testSigner(t))

	for _, address := range []string{"", "nobody", "@example.com", "alice@"} {
		_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
			RecipientAddress: address,
			RecipientPubKey:  recipientPubKey,
			AmountSats:       5000,
		})
		if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "MISSING_ADDRESS" {
			t.Errorf("address %q: expected MISSING_ADDRESS, got %v", address, err)
		}
	}
}

func TestRequestInvoice_LnurlUnreachable(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))
	responder.payStatus = http.StatusNotFound

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
	})
	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "LNURL_UNREACHABLE" {
		t.Errorf("expected LNURL_UNREACHABLE, got %v", err)
	}
}

func TestRequestInvoice_NetworkErrorIsUnreachable(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))
	responder.server.Close()

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
	})
	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "LNURL_UNREACHABLE" {
		t.Errorf("expected LNURL_UNREACHABLE, got %v", err)
	}
}

func TestRequestInvoice_MissingCallback(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))
	responder.omitCallback = true

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
	})
	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "MALFORMED_LNURL_RESPONSE" {
		t.Errorf("expected MALFORMED_LNURL_RESPONSE, got %v", err)
	}
}

func TestRequestInvoice_CallbackRejected(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))
	responder.invoiceStatus = http.StatusBadRequest

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
	})
	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "INVOICE_REQUEST_FAILED" {
		t.Errorf("expected INVOICE_REQUEST_FAILED, got %v", err)
	}
}

func TestRequestInvoice_MissingInvoice(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))
	responder.omitInvoice = true

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
	})
	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "NO_INVOICE_RETURNED" {
		t.Errorf("expected NO_INVOICE_RETURNED, got %v", err)
	}
}

func TestRequestInvoice_NoSignerStillWorks(t *testing.T) {
	svc, responder := setupZapService(t, signer.NoopSigner{})

	result, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
	})
	if err != nil {
		t.Fatalf("expected plain LNURL-pay fallback, got %v", err)
	}
	if result.Invoice == "" {
		t.Error("expected an invoice")
	}
	if responder.lastCallback.Get("nostr") != "" {
		t.Error("expected no zap request without a signer")
	}
}

func TestSendZap_NoSigner(t *testing.T) {
	svc, _ := setupZapService(t, signer.NoopSigner{})

	_, err := svc.SendZap(context.Background(), InvoiceRequest{
		RecipientPubKey: recipientPubKey,
		AmountSats:      21,
	})
	if !commonerrors.IsDomainError(err) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if domainErr, _ := commonerrors.AsDomainError(err); domainErr.Code() != "NO_SIGNER_AVAILABLE" {
		t.Errorf("expected NO_SIGNER_AVAILABLE, got %v", err)
	}
}

func TestSendZap_PublishesToAllRelays(t *testing.T) {
	svc, _ := setupZapService(t, testSigner(t))

	var (
		mu        sync.Mutex
		published []string
	)
	svc.publish = func(ctx context.Context, relayURL string, event nostr.Event) error {
		mu.Lock()
		published = append(published, relayURL)
		mu.Unlock()
		if relayURL == "wss://dead.example" {
			return context.DeadlineExceeded
		}
		return nil
	}

	result, err := svc.SendZap(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       21,
		Relays:           []string{"wss://relay.damus.io", "wss://dead.example"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(published) != 2 {
		t.Errorf("expected both relays attempted, got %v", published)
	}
	if len(result.Published) != 1 || result.Published[0] != "wss://relay.damus.io" {
		t.Errorf("unexpected published set: %v", result.Published)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "wss://dead.example" {
		t.Errorf("unexpected failed set: %v", result.Failed)
	}
	if result.EventID == "" {
		t.Error("expected a computed event id")
	}
}

func TestRequestInvoice_OversizedResponseIsMalformed(t *testing.T) {
	svc, responder := setupZapService(t, testSigner(t))
	responder.oversizedPay = true

	_, err := svc.RequestInvoice(context.Background(), InvoiceRequest{
		RecipientAddress: "alice@example.com",
		RecipientPubKey:  recipientPubKey,
		AmountSats:       5000,
	})
	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.Code() != "MALFORMED_LNURL_RESPONSE" {
		t.Errorf("expected MALFORMED_LNURL_RESPONSE, got %v", err)
	}
}
