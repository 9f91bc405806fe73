package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-devsurvey/pkg/responses"
)

// DefaultMaxBodyBytes bounds the request body.
const DefaultMaxBodyBytes int64 = 1 << 20

// DefaultRequired lists the server-mandated fields.
var DefaultRequired = []string{"age", "employment_status"}

// Handler is the ingestion endpoint.
type Handler struct {
	store      responses.Store
	normalizer *Normalizer
	required   []string
	logger     *zap.Logger
	metrics    *Metrics
	sanitizer  *bluemonday.Policy
	maxBody    int64
	now        func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRequired overrides the server-mandated field list.
func WithRequired(fields ...string) Option {
	return func(h *Handler) {
		h.required = append([]string(nil), fields...)
	}
}

// WithMetrics records request outcomes and insert latency.
func WithMetrics(metrics *Metrics) Option {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// WithSanitizer strips markup from free-text answers with policy before
// they are stored. Answers are stored verbatim without it.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(h *Handler) {
		h.sanitizer = policy
	}
}

// WithMaxBodyBytes bounds the accepted body size.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler builds the endpoint for store, writing rows shaped by schema.
func NewHandler(store responses.Store, schema responses.Schema, opts ...Option) (*Handler, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	h := &Handler{
		store:      store,
		required:   append([]string(nil), DefaultRequired...),
		logger:     zap.NewNop(),
		maxBody:    DefaultMaxBodyBytes,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.normalizer = NewNormalizer(schema, WithTextPolicy(h.sanitizer))
	return h, nil
}

// SetCORSHeaders writes the endpoint's CORS headers.
func SetCORSHeaders(header http.Header) {
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, X-Requested-With")
}

// ServeHTTP handles one submission.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	SetCORSHeaders(w.Header())

	switch r.Method {
	case http.MethodOptions:
		h.metrics.observe(OutcomePreflight)
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		h.metrics.observe(OutcomeMethodNotAllowed)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: msgMethodNotAllowed})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err == nil {
		var body map[string]any
		body, err = DecodeBody(raw)
		if err == nil {
			h.accept(w, r, body)
			return
		}
	}
	h.logger.Debug("rejected malformed body", zap.Error(err))
	h.metrics.observe(OutcomeInvalid)
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidRequest, Details: detail(err)})
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request, body map[string]any) {
	if missing := Missing(body, h.required); len(missing) > 0 {
		names := strings.Join(missing, ", ")
		h.logger.Debug("rejected submission", zap.Strings("missing", missing))
		h.metrics.observe(OutcomeMissingFields)
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   fmt.Sprintf("%s: %s", msgMissingFields, names),
			Details: fmt.Sprintf("required fields must be present and non-empty: %s", names),
		})
		return
	}

	row := h.normalizer.Row(body, r.UserAgent())
	start := h.now()
	err := h.store.Insert(r.Context(), row)
	h.metrics.observeInsert(h.now().Sub(start))
	if err != nil {
		h.logger.Error("insert failed", zap.Error(err))
		h.metrics.observe(OutcomeStoreError)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgInsertFailed})
		return
	}

	h.logger.Info("response stored", zap.String("submission_id", row.String(responses.ColumnSubmissionID)))
	h.metrics.observe(OutcomeAccepted)
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type successBody struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func detail(err error) string {
	var tooLarge *http.MaxBytesError
	var syntax *json.SyntaxError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	case errors.As(err, &syntax):
		return fmt.Sprintf("malformed JSON at offset %d: %s", syntax.Offset, syntax.Error())
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON: unexpected end of input"
	default:
		return strings.TrimPrefix(err.Error(), "ingest: ")
	}
}
