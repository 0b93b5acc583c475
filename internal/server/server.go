// Package server exposes the inbound HTTP surface: the deploy webhook
// endpoint plus health and metrics probes.
package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"render-relay/internal/logging"
	"render-relay/internal/metrics"
	"render-relay/internal/relay"
	"render-relay/internal/verify"
)

// SignatureHeader carries the HMAC digest of the raw request body.
const SignatureHeader = "x-render-signature"

type Server struct {
	secret     string
	dispatcher *relay.Dispatcher
	counters   *metrics.Counters
	httpServer *fasthttp.Server
}

func New(secret string, dispatcher *relay.Dispatcher, counters *metrics.Counters) *Server {
	s := &Server{
		secret:     secret,
		dispatcher: dispatcher,
		counters:   counters,
	}
	s.httpServer = &fasthttp.Server{
		Handler:            s.route,
		Name:               "render-relay",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	return s
}

// ListenAndServe blocks serving HTTP on the given port. The insecure-mode
// warning is emitted here, once, rather than per request.
func (s *Server) ListenAndServe(port int) error {
	if !verify.Enabled(s.secret) {
		logging.Warn("webhook: RENDER_WEBHOOK_SECRET not set, accepting unverified requests")
	}
	logging.Info("webhook: listening on :%d", port)
	return s.httpServer.ListenAndServe(fmt.Sprintf(":%d", port))
}

func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown()
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("webhook: panic handling %s %s: %v", ctx.Method(), ctx.Path(), r)
			ctx.Response.Reset()
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		}
	}()

	switch string(ctx.Path()) {
	case "/render-webhook":
		if !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
			return
		}
		s.handleWebhook(ctx)
	case "/healthz":
		fmt.Fprintf(ctx, "ok %s\n", s.counters.Uptime().Round(time.Second))
	case "/metrics":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.WriteString(s.counters.Export())
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleWebhook(ctx *fasthttp.RequestCtx) {
	s.counters.Received()

	body := ctx.PostBody()
	signature := string(ctx.Request.Header.Peek(SignatureHeader))

	if !verify.Verify(s.secret, body, signature) {
		// Expected adversarial or misconfigured traffic, not alarming.
		s.counters.Rejected()
		logging.Debug("webhook: rejected request with bad signature")
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		return
	}
	s.counters.Verified()

	var ev relay.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		logging.Warn("webhook: unparseable payload: %v", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	// Acceptance is acknowledged immediately; per-guild delivery results
	// never influence the HTTP response.
	s.dispatcher.Dispatch(&ev)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.WriteString("OK")
}
