package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/totegamma/lngateway/internal/domain"
	"github.com/totegamma/lngateway/internal/utils"
)

const (
	defaultTimeout = 10 * time.Second
	infoCacheKey   = "federation:info"
)

// FederationClient talks to one federation's gateway daemon: invoice
// creation over HTTP, receive streams over websocket. The handle is safe for
// concurrent use and is shared read-only by every tracker and issuer call
// for its federation.
type FederationClient struct {
	federationID string
	endpoint     string
	client       *http.Client
	dialer       *websocket.Dialer
	cache        *cache.Cache
}

func NewFederationClient(descriptor domain.InviteDescriptor) (*FederationClient, error) {
	endpoint := strings.TrimSuffix(descriptor.Endpoint, "/")
	if endpoint == "" {
		return nil, errors.New("federation endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, errors.Wrap(err, "invalid federation endpoint")
	}

	return &FederationClient{
		federationID: descriptor.FederationID,
		endpoint:     endpoint,
		client:       &http.Client{Timeout: defaultTimeout},
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultTimeout,
		},
		cache: cache.New(10*time.Minute, 15*time.Minute),
	}, nil
}

func (c *FederationClient) FederationID() string {
	return c.federationID
}

type createInvoiceRequest struct {
	FederationID string `json:"federationId"`
	Pubkey       string `json:"pubkey"`
	TweakedKey   string `json:"tweakedKey"`
	Tweak        uint64 `json:"tweak"`
	AmountMsat   int64  `json:"amountMsat"`
	Description  string `json:"description"`
}

type createInvoiceResponse struct {
	OperationID string `json:"operationId"`
	Invoice     string `json:"invoice"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateTweakedInvoice derives the receiving key for (pubkey, tweak) and
// asks the gateway to issue an invoice bound to it.
func (c *FederationClient) CreateTweakedInvoice(ctx context.Context, pubkey string, tweak uint64, amountMsat int64, description string) (string, string, error) {
	tweakedKey, err := utils.TweakPubkey(pubkey, tweak)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to derive tweaked key")
	}

	payload, err := json.Marshal(createInvoiceRequest{
		FederationID: c.federationID,
		Pubkey:       pubkey,
		TweakedKey:   tweakedKey,
		Tweak:        tweak,
		AmountMsat:   amountMsat,
		Description:  description,
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/ln/invoice", bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", errors.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return "", "", domain.ErrDuplicateTweak
	default:
		var failure errorResponse
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &failure); err != nil || failure.Error == "" {
			failure.Error = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
		return "", "", errors.Wrap(domain.ErrBackendUnavailable, failure.Error)
	}

	var result createInvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", errors.Wrap(err, "failed to decode invoice response")
	}
	if result.OperationID == "" || result.Invoice == "" {
		return "", "", errors.New("gateway returned empty invoice")
	}

	return result.OperationID, result.Invoice, nil
}

type receiveUpdate struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// SubscribeReceive opens the websocket update stream for one operation. The
// returned channel closes after a terminal update, on transport loss, or
// when ctx is cancelled.
func (c *FederationClient) SubscribeReceive(ctx context.Context, opID string) (<-chan domain.PaymentUpdate, error) {
	wsURL, err := c.subscribeURL(opID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, domain.NotFoundError{Resource: "operation"}
		}
		return nil, errors.Wrap(domain.ErrBackendUnavailable, err.Error())
	}

	updates := make(chan domain.PaymentUpdate)
	done := make(chan struct{})

	// The watcher must exit when the stream ends normally, not only on
	// cancellation, or every completed subscription leaks a goroutine.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(updates)
		defer close(done)
		defer conn.Close()

		for {
			var raw receiveUpdate
			if err := conn.ReadJSON(&raw); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if !ok || !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
					slog.Debug(
						"receive stream interrupted",
						slog.String("opID", opID),
						slog.String("error", err.Error()),
						slog.String("module", "gateway"),
					)
				}
				return
			}

			update := decodeUpdate(raw)
			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}

			if update.Status.Terminal() {
				return
			}
		}
	}()

	return updates, nil
}

func (c *FederationClient) subscribeURL(opID string) (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", errors.Wrap(err, "invalid federation endpoint")
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported endpoint scheme %s", parsed.Scheme)
	}
	parsed.Path += "/ln/subscribe/" + url.PathEscape(opID)
	return parsed.String(), nil
}

// Info fetches federation metadata. Responses are cached; the info endpoint
// is hit on every status probe otherwise.
func (c *FederationClient) Info(ctx context.Context) (domain.FederationInfo, error) {
	if cached, found := c.cache.Get(infoCacheKey); found {
		return cached.(domain.FederationInfo), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/federation/info", nil)
	if err != nil {
		return domain.FederationInfo{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.FederationInfo{}, errors.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.FederationInfo{}, errors.Wrapf(domain.ErrBackendUnavailable, "unexpected status code: %d", resp.StatusCode)
	}

	var info domain.FederationInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.FederationInfo{}, errors.Wrap(err, "failed to decode federation info")
	}

	c.cache.Set(infoCacheKey, info, cache.DefaultExpiration)
	return info, nil
}

func decodeUpdate(raw receiveUpdate) domain.PaymentUpdate {
	update := domain.PaymentUpdate{Reason: raw.Reason}
	switch raw.Status {
	case "created":
		update.Status = domain.PaymentStatusCreated
	case "waiting-for-payment":
		update.Status = domain.PaymentStatusWaitingForPayment
	case "funded":
		update.Status = domain.PaymentStatusFunded
	case "awaiting-funds":
		update.Status = domain.PaymentStatusAwaitingFunds
	case "claimed":
		update.Status = domain.PaymentStatusClaimed
	case "canceled":
		update.Status = domain.PaymentStatusCanceled
	default:
		update.Status = domain.PaymentStatusCreated
	}
	return update
}
