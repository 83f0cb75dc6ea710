package replication

import (
	"context"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxWebhookBodySize caps the payload we read; label events are small.
const maxWebhookBodySize = 1 << 20

const (
	eventLabel = "label"
	eventPing  = "ping"

	signatureHeader       = "X-Hub-Signature"
	signatureSHA256Header = "X-Hub-Signature-256"
)

var statusPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>labelord</title></head>
<body>
<h1>labelord</h1>
<p>Replicating labels across {{len .Repos}} repositories.</p>
<ul>
{{- range .Repos}}
<li><a href="https://github.com/{{.}}">{{.}}</a></li>
{{- end}}
</ul>
<p>Pending echoes: {{.Pending}}</p>
</body>
</html>
`))

// Server exposes the replicator over HTTP: the webhook endpoint, a status
// page and Prometheus metrics.
type Server struct {
	replicator *Replicator
	secret     []byte
	logger     *slog.Logger
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	router     *mux.Router
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithServerLogger sets the server logger
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServerMetrics sets the collectors updated per request and the
// gatherer served on /metrics.
func WithServerMetrics(metrics *Metrics, gatherer prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
		s.gatherer = gatherer
	}
}

// NewServer creates the HTTP surface of the replication service
func NewServer(replicator *Replicator, secret []byte, opts ...ServerOption) *Server {
	s := &Server{
		replicator: replicator,
		secret:     secret,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    NewMetrics(nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/", s.handleWebhook).Methods(http.MethodPost)
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("replication server listening", "address", addr, "repositories", len(s.replicator.Repositories()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down replication server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Repos   []string
		Pending int
	}{
		Repos:   s.replicator.Repositories(),
		Pending: s.replicator.EchoGuard().Len(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPage.Execute(w, data); err != nil {
		s.logger.Error("rendering status page failed", "error", err)
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := github.WebHookType(r)
	deliveryID := github.DeliveryID(r)

	status := s.serveWebhook(w, r, eventType, deliveryID)
	s.metrics.WebhooksReceived.WithLabelValues(metricEventLabel(eventType), strconv.Itoa(status)).Inc()
}

func (s *Server) serveWebhook(w http.ResponseWriter, r *http.Request, eventType, deliveryID string) int {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		s.logger.Error("reading webhook body failed", "error", err)
		return reply(w, http.StatusInternalServerError, "")
	}

	signature := r.Header.Get(signatureSHA256Header)
	if signature == "" {
		signature = r.Header.Get(signatureHeader)
	}
	if err := github.ValidateSignature(signature, body, s.secret); err != nil {
		s.logger.Warn("webhook signature verification failed",
			"delivery_id", deliveryID,
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		return reply(w, http.StatusUnauthorized, "")
	}

	switch eventType {
	case eventPing:
		s.logger.Info("accepting ping webhook event", "delivery_id", deliveryID)
		return reply(w, http.StatusOK, "")
	case eventLabel:
	default:
		s.logger.Debug("unsupported webhook event", "event_type", eventType, "delivery_id", deliveryID)
		return reply(w, http.StatusBadRequest, "Event not supported")
	}

	event, err := ParseLabelEvent(body)
	if err != nil {
		s.logger.Debug("malformed label webhook", "delivery_id", deliveryID, "error", err)
		return reply(w, http.StatusBadRequest, "Malformed payload")
	}

	s.logger.Info("processing label webhook event",
		"delivery_id", deliveryID,
		"action", string(event.Action),
		"repo", event.Repo,
		"label", event.Name,
	)

	// Propagation outlives the sender: a delivery timing out on GitHub's side
	// must not cancel the remaining peers.
	result, err := s.replicator.Handle(context.WithoutCancel(r.Context()), event)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			s.logger.Debug("rejected label webhook", "delivery_id", deliveryID, "error", err)
			if errors.Is(err, ErrUnwatchedRepository) {
				return reply(w, http.StatusBadRequest, "Repository is not allowed in application")
			}
			return reply(w, http.StatusBadRequest, "Event not supported")
		}
		s.logger.Error("handling label webhook failed", "delivery_id", deliveryID, "error", err)
		return reply(w, http.StatusInternalServerError, "")
	}

	if result.Failed > 0 {
		s.logger.Warn("label change propagated with failures",
			"delivery_id", deliveryID,
			"peers", result.Peers,
			"failed", result.Failed,
		)
	}
	return reply(w, http.StatusOK, "")
}

func reply(w http.ResponseWriter, status int, message string) int {
	if status == http.StatusOK {
		w.WriteHeader(status)
		return status
	}
	http.Error(w, message, status)
	return status
}

// metricEventLabel bounds the label cardinality of the event type
func metricEventLabel(eventType string) string {
	switch eventType {
	case eventLabel, eventPing:
		return eventType
	default:
		return "other"
	}
}
