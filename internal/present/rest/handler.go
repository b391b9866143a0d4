package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/lngateway/internal/config"
	"github.com/totegamma/lngateway/internal/domain"
	"github.com/totegamma/lngateway/internal/present/rest/presenter"
	"github.com/totegamma/lngateway/internal/service"
	"github.com/totegamma/lngateway/internal/usecase"
	"github.com/totegamma/lngateway/internal/utils"
)

// SignalListener is the subscribe side of the signal service.
type SignalListener interface {
	Listen(ctx context.Context, channel string) <-chan string
}

type Handler struct {
	config    config.Gateway
	invoice   *usecase.InvoiceUsecase
	recovery  *usecase.RecoveryUsecase
	users     usecase.UserRepository
	directory usecase.Directory
	signal    SignalListener
}

func NewHandler(
	config config.Gateway,
	invoice *usecase.InvoiceUsecase,
	recovery *usecase.RecoveryUsecase,
	users usecase.UserRepository,
	directory usecase.Directory,
	signal SignalListener,
) *Handler {
	return &Handler{
		config:    config,
		invoice:   invoice,
		recovery:  recovery,
		users:     users,
		directory: directory,
		signal:    signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/.well-known/lnurlp/:username", h.handleWellKnown)
	e.GET("/lnurlp/:username/callback", h.handleCallback)
	e.GET("/lnurlp/:username/verify/:opID", h.handleVerify)
	e.GET("/invoices", h.handleInvoices)
	e.GET("/federations", h.handleFederations)
	e.GET("/users/:username/lnurl", h.handleUserLnurl)
	e.POST("/api/v1/recover", h.handleRecover)
	e.GET("/realtime", h.handleRealtime)
}

// handleRecover re-runs the pending invoice recovery pass. Invoices that
// already have a live subscription are left alone, so calling this twice is
// harmless.
func (h *Handler) handleRecover(c echo.Context) error {
	count, err := h.recovery.RecoverPending(c.Request().Context())
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok", "recovered": count})
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type wellKnownResponse struct {
	Callback    string `json:"callback"`
	MaxSendable int64  `json:"maxSendable"`
	MinSendable int64  `json:"minSendable"`
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`
	Status      string `json:"status"`
	AllowsNostr bool   `json:"allowsNostr"`
	NostrPubkey string `json:"nostrPubkey,omitempty"`
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	ctx := c.Request().Context()
	username := c.Param("username")

	user, err := h.users.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownUser) {
			return presenter.NotFound(c, "user not found")
		}
		return presenter.InternalError(c, err)
	}

	metadata, err := utils.PayMetadata(username, h.config.Domain)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, wellKnownResponse{
		Callback:    fmt.Sprintf("https://%s/lnurlp/%s/callback", h.config.Domain, username),
		MaxSendable: h.config.MaxSendable,
		MinSendable: h.config.MinSendable,
		Metadata:    metadata,
		Tag:         "payRequest",
		Status:      "OK",
		AllowsNostr: true,
		NostrPubkey: user.Pubkey,
	})
}

// handleUserLnurl returns the bech32 LNURL form of the user's pay endpoint,
// the string wallets expect behind a QR code.
func (h *Handler) handleUserLnurl(c echo.Context) error {
	ctx := c.Request().Context()
	username := c.Param("username")

	if _, err := h.users.GetByName(ctx, username); err != nil {
		if errors.Is(err, domain.ErrUnknownUser) {
			return presenter.NotFound(c, "user not found")
		}
		return presenter.InternalError(c, err)
	}

	encoded, err := utils.EncodeLNURL(fmt.Sprintf("https://%s/.well-known/lnurlp/%s", h.config.Domain, username))
	if err != nil {
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, echo.Map{
		"lnurl":   encoded,
		"address": fmt.Sprintf("%s@%s", username, h.config.Domain),
	})
}

type callbackResponse struct {
	Status string   `json:"status"`
	Pr     string   `json:"pr"`
	Verify string   `json:"verify"`
	Routes []string `json:"routes"`
}

func (h *Handler) handleCallback(c echo.Context) error {
	ctx := c.Request().Context()
	username := c.Param("username")

	amountStr := c.QueryParam("amount")
	if amountStr == "" {
		return presenter.BadRequestMessage(c, "amount parameter is required")
	}
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid amount parameter")
	}
	if amount < h.config.MinSendable {
		return presenter.BadRequestMessage(c, "amount below minSendable")
	}
	if amount > h.config.MaxSendable {
		return presenter.BadRequestMessage(c, "amount above maxSendable")
	}

	comment := c.QueryParam("comment")

	invoice, err := h.invoice.Issue(ctx, username, amount, comment)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownUser):
			return presenter.NotFound(c, "user not found")
		case errors.Is(err, domain.ErrUnknownFederation):
			return presenter.BadRequest(c, err)
		default:
			return presenter.InternalError(c, err)
		}
	}

	return presenter.OK(c, callbackResponse{
		Status: "OK",
		Pr:     invoice.Bolt11,
		Verify: fmt.Sprintf("https://%s/lnurlp/%s/verify/%s", h.config.Domain, username, invoice.OperationID),
		Routes: []string{},
	})
}

type verifyResponse struct {
	Status   string `json:"status"`
	Settled  bool   `json:"settled"`
	Preimage string `json:"preimage"`
	Pr       string `json:"pr"`
}

func (h *Handler) handleVerify(c echo.Context) error {
	ctx := c.Request().Context()

	invoice, err := h.invoice.GetByOperationID(ctx, c.Param("opID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "invoice not found")
		}
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, verifyResponse{
		Status:   "OK",
		Settled:  invoice.State == domain.InvoiceStateSettled,
		Preimage: "",
		Pr:       invoice.Bolt11,
	})
}

func (h *Handler) handleInvoices(c echo.Context) error {
	ctx := c.Request().Context()

	state := domain.InvoiceStatePending
	switch c.QueryParam("state") {
	case "", "pending":
	case "settled":
		state = domain.InvoiceStateSettled
	case "cancelled":
		state = domain.InvoiceStateCancelled
	default:
		return presenter.BadRequestMessage(c, "invalid state parameter")
	}

	invoices, err := h.invoice.ListByState(ctx, state)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, invoices)
}

type federationStatus struct {
	FederationID string `json:"federationId"`
	Name         string `json:"name,omitempty"`
	BlockHeight  int64  `json:"blockHeight,omitempty"`
	Online       bool   `json:"online"`
}

func (h *Handler) handleFederations(c echo.Context) error {
	ctx := c.Request().Context()

	statuses := []federationStatus{}
	for _, backend := range h.directory.List(ctx) {
		status := federationStatus{FederationID: backend.FederationID()}
		info, err := backend.Info(ctx)
		if err != nil {
			slog.ErrorContext(
				ctx, "failed to fetch federation info",
				slog.String("federation", backend.FederationID()),
				slog.String("error", err.Error()),
				slog.String("module", "rest"),
			)
		} else {
			status.Name = info.Name
			status.BlockHeight = info.BlockHeight
			status.Online = true
		}
		statuses = append(statuses, status)
	}

	return presenter.OK(c, statuses)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	events := h.signal.Listen(ctx, service.SettledChannel)

	quit := make(chan struct{})

	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.DebugContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				close(quit)
				break
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case payload, ok := <-events:
			if !ok {
				return nil
			}
			err := ws.WriteMessage(websocket.TextMessage, []byte(payload))
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
