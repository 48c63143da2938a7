package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fiatjaf/go-lnurl"
	"github.com/nbd-wtf/go-nostr"
	decodepay "github.com/nbd-wtf/ln-decodepay"

	"github.com/nostrid/nip05-registry/internal/common/constants"
	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/observability/metrics"
	"github.com/nostrid/nip05-registry/internal/signer"
)

// State names the phase an invoice request is in. Requests move through
// them strictly in order and stop at the first failure.
type State string

const (
	StateValidating        State = "VALIDATING"
	StateResolvingLnurl    State = "RESOLVING_LNURL"
	StateCheckingBounds    State = "CHECKING_BOUNDS"
	StateRequestingInvoice State = "REQUESTING_INVOICE"
	StateDone              State = "DONE"
)

type InvoiceRequest struct {
	RecipientAddress string
	RecipientPubKey  string
	AmountSats       int64
	Comment          string
	Relays           []string
}

type InvoiceResult struct {
	Invoice string `json:"invoice"`
}

type SendZapResult struct {
	EventID   string   `json:"eventId"`
	Published []string `json:"published"`
	Failed    []string `json:"failed,omitempty"`
}

type payParams struct {
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Tag         string `json:"tag"`
}

type payValues struct {
	Pr string `json:"pr"`
}

type Service struct {
	client        *http.Client
	signer        signer.Signer
	log           *logger.Logger
	defaultRelays []string
	lnurlpURL     func(domain, local string) string
	publish       func(ctx context.Context, relayURL string, event nostr.Event) error
}

func NewService(client *http.Client, sgn signer.Signer, defaultRelays []string, log *logger.Logger) *Service {
	return &Service{
		client:        client,
		signer:        sgn,
		log:           log,
		defaultRelays: defaultRelays,
		lnurlpURL:     wellKnownPayURL,
		publish:       publishToRelay,
	}
}

func wellKnownPayURL(domain, local string) string {
	return fmt.Sprintf("https://%s/.well-known/lnurlp/%s", domain, local)
}

// RequestInvoice walks the LNURL-pay flow for a lightning address and
// returns the provider's bolt11 invoice verbatim.
func (s *Service) RequestInvoice(ctx context.Context, req InvoiceRequest) (InvoiceResult, error) {
	s.logState(ctx, StateValidating, req)

	if req.AmountSats <= 0 {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("invalid_amount").Inc()
		return InvoiceResult{}, ErrInvalidAmount
	}

	local, domain, err := splitLightningAddress(req.RecipientAddress)
	if err != nil {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("missing_address").Inc()
		return InvoiceResult{}, ErrMissingAddress
	}

	s.logState(ctx, StateResolvingLnurl, req)

	lnurlpURL := s.lnurlpURL(domain, local)
	params, err := s.fetchPayParams(ctx, lnurlpURL)
	if err != nil {
		return InvoiceResult{}, err
	}

	s.logState(ctx, StateCheckingBounds, req)

	amountMsat := req.AmountSats * 1000
	if amountMsat < params.MinSendable || amountMsat > params.MaxSendable {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("out_of_bounds").Inc()
		return InvoiceResult{}, ErrAmountOutOfBounds.WithMessage(fmt.Sprintf(
			"amount must be between %d and %d sats",
			params.MinSendable/1000, params.MaxSendable/1000,
		))
	}

	s.logState(ctx, StateRequestingInvoice, req)

	invoice, err := s.fetchInvoice(ctx, params.Callback, lnurlpURL, amountMsat, req)
	if err != nil {
		return InvoiceResult{}, err
	}

	s.logState(ctx, StateDone, req)

	if bolt11, decodeErr := decodepay.Decodepay(invoice); decodeErr == nil {
		if bolt11.MSatoshi != 0 && bolt11.MSatoshi != amountMsat {
			metrics.ZapInvoiceRequestsTotal.WithLabelValues("amount_mismatch").Inc()
			return InvoiceResult{}, ErrInvoiceRequestFailed.WithMessage(
				"provider returned an invoice for a different amount")
		}
	} else {
		s.log.WithFields(ctx, logger.Fields{
			"action": "invoice_decode_skipped",
		}).Warnf("could not decode invoice: %v", decodeErr)
	}

	metrics.ZapInvoiceRequestsTotal.WithLabelValues("success").Inc()
	return InvoiceResult{Invoice: invoice}, nil
}

func (s *Service) fetchPayParams(ctx context.Context, lnurlpURL string) (payParams, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, lnurlpURL, nil)
	if err != nil {
		return payParams{}, ErrLnurlUnreachable.WithCause(err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("lnurl_unreachable").Inc()
		return payParams{}, ErrLnurlUnreachable.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("lnurl_unreachable").Inc()
		return payParams{}, ErrLnurlUnreachable
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.LnurlResponseMax))
	if err != nil {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("lnurl_unreachable").Inc()
		return payParams{}, ErrLnurlUnreachable.WithCause(err)
	}

	var params payParams
	if err := json.Unmarshal(body, &params); err != nil || params.Callback == "" {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("malformed_response").Inc()
		return payParams{}, ErrMalformedLnurlResponse
	}
	return params, nil
}

func (s *Service) fetchInvoice(ctx context.Context, callback, lnurlpURL string, amountMsat int64, req InvoiceRequest) (string, error) {
	callbackURL, err := url.Parse(callback)
	if err != nil {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("malformed_response").Inc()
		return "", ErrMalformedLnurlResponse.WithCause(err)
	}

	query := callbackURL.Query()
	query.Set("amount", strconv.FormatInt(amountMsat, 10))
	if event, ok := s.zapRequestEvent(ctx, req, amountMsat, lnurlpURL); ok {
		payload, marshalErr := json.Marshal(event)
		if marshalErr == nil {
			query.Set("nostr", string(payload))
		}
	}
	if req.Comment != "" {
		query.Set("comment", req.Comment)
	}
	callbackURL.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, callbackURL.String(), nil)
	if err != nil {
		return "", ErrInvoiceRequestFailed.WithCause(err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("request_failed").Inc()
		return "", ErrInvoiceRequestFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("request_failed").Inc()
		return "", ErrInvoiceRequestFailed
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.LnurlResponseMax))
	if err != nil {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("request_failed").Inc()
		return "", ErrInvoiceRequestFailed.WithCause(err)
	}

	var values payValues
	if err := json.Unmarshal(body, &values); err != nil || values.Pr == "" {
		metrics.ZapInvoiceRequestsTotal.WithLabelValues("no_invoice").Inc()
		return "", ErrNoInvoiceReturned
	}
	return values.Pr, nil
}

// zapRequestEvent builds the kind 9734 zap request. Without an available
// signer the callback still works as plain LNURL-pay, so a missing signer
// just drops the nostr parameter.
func (s *Service) zapRequestEvent(ctx context.Context, req InvoiceRequest, amountMsat int64, lnurlpURL string) (nostr.Event, bool) {
	if s.signer.Capability() != signer.Available {
		return nostr.Event{}, false
	}

	pubKey, err := s.signer.PublicKey(ctx)
	if err != nil {
		return nostr.Event{}, false
	}

	event := s.buildZapRequest(pubKey, req, amountMsat, lnurlpURL)
	if err := s.signer.SignEvent(ctx, &event); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "zap_request_sign_failed",
		}).Warnf("failed to sign zap request: %v", err)
		return nostr.Event{}, false
	}
	return event, true
}

func (s *Service) buildZapRequest(pubKey string, req InvoiceRequest, amountMsat int64, lnurlpURL string) nostr.Event {
	relays := req.Relays
	if len(relays) == 0 {
		relays = s.defaultRelays
	}

	relaysTag := nostr.Tag{"relays"}
	relaysTag = append(relaysTag, relays...)

	tags := nostr.Tags{
		nostr.Tag{"p", req.RecipientPubKey},
		nostr.Tag{"amount", strconv.FormatInt(amountMsat, 10)},
		relaysTag,
	}
	if encoded, err := lnurl.Encode(lnurlpURL); err == nil {
		tags = append(tags, nostr.Tag{"lnurl", encoded})
	}

	return nostr.Event{
		PubKey:    pubKey,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      9734,
		Tags:      tags,
		Content:   req.Comment,
	}
}

// SendZap signs the zap request and broadcasts it to the recipient's
// relays. It requires an available signer.
func (s *Service) SendZap(ctx context.Context, req InvoiceRequest) (SendZapResult, error) {
	if s.signer.Capability() != signer.Available {
		metrics.ZapsPublishedTotal.WithLabelValues("no_signer").Inc()
		return SendZapResult{}, commonerrors.ErrNoSignerAvailable
	}

	if req.AmountSats <= 0 {
		return SendZapResult{}, ErrInvalidAmount
	}
	if req.RecipientPubKey == "" {
		return SendZapResult{}, ErrMissingAddress
	}

	pubKey, err := s.signer.PublicKey(ctx)
	if err != nil {
		return SendZapResult{}, commonerrors.ErrNoSignerAvailable.WithCause(err)
	}

	lnurlpURL := ""
	if local, domain, addrErr := splitLightningAddress(req.RecipientAddress); addrErr == nil {
		lnurlpURL = s.lnurlpURL(domain, local)
	}

	event := s.buildZapRequest(pubKey, req, req.AmountSats*1000, lnurlpURL)
	if err := s.signer.SignEvent(ctx, &event); err != nil {
		return SendZapResult{}, commonerrors.ErrNoSignerAvailable.WithCause(err)
	}

	relays := req.Relays
	if len(relays) == 0 {
		relays = s.defaultRelays
	}

	result := SendZapResult{EventID: event.GetID()}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, relayURL := range relays {
		wg.Add(1)
		go func(relayURL string) {
			defer wg.Done()

			publishCtx, cancel := context.WithTimeout(ctx, constants.ZapPublishTimeout)
			defer cancel()

			err := s.publish(publishCtx, relayURL, event)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.WithFields(ctx, logger.Fields{
					"relay":  relayURL,
					"action": "zap_publish_failed",
				}).Warnf("publish failed: %v", err)
				result.Failed = append(result.Failed, relayURL)
				return
			}
			result.Published = append(result.Published, relayURL)
		}(relayURL)
	}
	wg.Wait()

	if len(result.Published) == 0 {
		metrics.ZapsPublishedTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.ZapsPublishedTotal.WithLabelValues("success").Inc()
	}
	return result, nil
}

func (s *Service) logState(ctx context.Context, state State, req InvoiceRequest) {
	s.log.WithFields(ctx, logger.Fields{
		"state":  string(state),
		"amount": req.AmountSats,
		"action": "invoice_request",
	}).Debug("invoice request state")
}

func splitLightningAddress(address string) (local, domain string, err error) {
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid lightning address %q", address)
	}
	return parts[0], parts[1], nil
}

func publishToRelay(ctx context.Context, relayURL string, event nostr.Event) error {
	relay, err := nostr.RelayConnect(ctx, relayURL)
	if err != nil {
		return err
	}
	defer relay.Close()

	_, err = relay.Publish(ctx, event)
	return err
}
