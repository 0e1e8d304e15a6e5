// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bureau-foundation/ap2/lib/events"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/mollie"
	"github.com/bureau-foundation/ap2/lib/netutil"
)

// maxSettingsBody bounds POST /auto-checkout request bodies.
const maxSettingsBody = 64 * 1024

// router builds the HTTP surface: provider webhooks, the event stream,
// admin routes, and auto-checkout settings.
func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.logger))

	r.Get("/healthz", func(writer http.ResponseWriter, request *http.Request) {
		netutil.WriteJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/webhook/mollie", a.handleWebhook)
	r.Get("/events", a.handleEvents)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/reset", a.handleAdminReset)
		r.Post("/kill", a.handleAdminKill)
		r.Get("/status", a.handleAdminStatus)
	})

	r.Get("/auto-checkout", a.handleAutoCheckoutGet)
	r.Post("/auto-checkout", a.handleAutoCheckoutPost)

	return otelhttp.NewHandler(r, "ap2-mandate-service")
}

// requestLogger logs one line per request. The event stream is logged
// when it ends, so its duration is the connection lifetime.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(wrapped, request)
			logger.Debug("http request",
				"method", request.Method,
				"path", request.URL.Path,
				"status", wrapped.Status(),
				"bytes", wrapped.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(request.Context()),
			)
		})
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, mandate.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, mandate.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mandate.ErrProvider), errors.Is(err, mandate.ErrTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(writer http.ResponseWriter, err error) {
	netutil.WriteJSON(writer, statusForError(err), errorBody{Error: err.Error(), Kind: mandate.KindOf(err)})
}

// handleWebhook processes a provider status callback. The provider
// sends only the payment id; the status is always re-fetched.
func (a *app) handleWebhook(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxSettingsBody)
	if err := request.ParseForm(); err != nil {
		netutil.WriteJSON(writer, http.StatusBadRequest, errorBody{Error: "malformed form body"})
		return
	}
	settlementID := request.PostForm.Get("id")
	if !mollie.ValidPaymentID(settlementID) {
		a.logger.Warn("webhook rejected", "id", settlementID)
		netutil.WriteJSON(writer, http.StatusBadRequest, errorBody{Error: "invalid payment id"})
		return
	}

	result, err := a.settler.HandleWebhook(request.Context(), settlementID)
	if err != nil {
		a.logger.Error("webhook processing failed", "settlement_id", settlementID, "error", err)
		netutil.WriteJSON(writer, http.StatusInternalServerError, errorBody{Error: "webhook processing failed"})
		return
	}
	a.logger.Info("webhook processed",
		"settlement_id", settlementID,
		"status", string(result.Status),
		"receipt_updated", result.ReceiptUpdated,
		"mandate_captured", result.MandateCaptured,
	)
	netutil.WriteJSON(writer, http.StatusOK, map[string]bool{"received": true})
}

// handleEvents streams agent activity as Server-Sent Events: recent
// history first, then live events, with a comment line every
// heartbeat interval to keep proxies from closing the connection.
func (a *app) handleEvents(writer http.ResponseWriter, request *http.Request) {
	flusher, ok := writer.(http.Flusher)
	if !ok {
		http.Error(writer, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	header := writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	subscription := a.events.Subscribe(a.config.Events.Replay)
	defer subscription.Close()

	heartbeat := a.config.Events.Heartbeat.Std()
	ctx := request.Context()
	for {
		timer := a.clock.NewTimer(heartbeat)
		var err error
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, open := <-subscription.C:
			timer.Stop()
			if !open {
				return
			}
			err = writeEvent(writer, event)
		case <-timer.C:
			_, err = fmt.Fprint(writer, ": heartbeat\n\n")
		}
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				a.logger.Warn("event stream write failed", "error", err)
			}
			return
		}
		flusher.Flush()
	}
}

func writeEvent(writer http.ResponseWriter, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(writer, "data: %s\n\n", data)
	return err
}

func (a *app) handleAdminReset(writer http.ResponseWriter, request *http.Request) {
	a.reset()
	netutil.WriteJSON(writer, http.StatusOK, map[string]any{"success": true, "message": "All mandates and events cleared"})
}

func (a *app) handleAdminKill(writer http.ResponseWriter, request *http.Request) {
	netutil.WriteJSON(writer, http.StatusOK, a.settler.Kill(request.Context()))
}

func (a *app) handleAdminStatus(writer http.ResponseWriter, request *http.Request) {
	netutil.WriteJSON(writer, http.StatusOK, a.status())
}

func (a *app) handleAutoCheckoutGet(writer http.ResponseWriter, request *http.Request) {
	netutil.WriteJSON(writer, http.StatusOK, a.tracker.Summary())
}

type autoCheckoutRequest struct {
	Action string                `json:"action"`
	Method mandate.PaymentMethod `json:"method,omitempty"`
}

func (a *app) handleAutoCheckoutPost(writer http.ResponseWriter, request *http.Request) {
	var body autoCheckoutRequest
	if err := netutil.DecodeJSON(request.Body, maxSettingsBody, &body); err != nil {
		netutil.WriteJSON(writer, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "validation"})
		return
	}

	var err error
	switch body.Action {
	case "setup":
		_, err = a.tracker.Setup(request.Context(), body.Method)
	case "toggle":
		_, err = a.tracker.Toggle()
	case "setMethod":
		_, err = a.tracker.SetMethod(body.Method)
	default:
		netutil.WriteJSON(writer, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown action %q", body.Action), Kind: "validation"})
		return
	}
	if err != nil {
		writeError(writer, err)
		return
	}
	netutil.WriteJSON(writer, http.StatusOK, a.tracker.Summary())
}
