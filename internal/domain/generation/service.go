package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/formfill/internal/providers/identity"
	"github.com/GriffinCanCode/formfill/internal/providers/keystore"
	"github.com/GriffinCanCode/formfill/internal/providers/vendors/openai"
	"github.com/GriffinCanCode/formfill/internal/shared/errs"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// Caller-visible messages.
const (
	MsgMissingAuthHeader   = "Missing or invalid Authorization header"
	MsgServerConfig        = "Server configuration error."
	MsgInvalidToken        = "Invalid or expired JWT."
	MsgMissingFieldContext = "Missing 'fieldContext' in request body"
	MsgServiceRoleConfig   = "Server configuration error for service role."
	MsgKeyNotSetUp         = "OpenAI API key not set up for this user."
	MsgKeyRetrievalFailed  = "Failed to retrieve API key."
	MsgVendorErrorPrefix   = "OpenAI API error: "
	MsgNoUsableText        = "LLM did not return usable text."
	MsgInternalServerError = "Internal server error."
	MsgMethodNotAllowed    = "Method Not Allowed"
	MsgRateLimitExceeded   = "Rate limit exceeded."
)

const bearerPrefix = "Bearer "

// Identity validates bearer tokens.
type Identity interface {
	User(ctx context.Context, jwt string) (*identity.User, error)
}

// KeyStore resolves a user's vendor key. keystore.ErrNotFound marks a user
// without a key.
type KeyStore interface {
	APIKey(ctx context.Context, userID string) (string, error)
}

// Completer calls the vendor. A non-2xx answer is an *openai.APIError; an
// empty string means the vendor returned no usable text.
type Completer interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// Outcome is the status and body a request ends with.
type Outcome struct {
	Status int
	Body   types.GenerationResponse
}

func failure(status int, msg string) Outcome {
	return Outcome{Status: status, Body: types.Failed(msg)}
}

// Service handles generation requests. A nil Identity or KeyStore means that
// part of the server is not configured.
type Service struct {
	identity Identity
	keys     KeyStore
	vendor   Completer
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// NewService creates a generation service.
func NewService(identity Identity, keys KeyStore, vendor Completer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		identity: identity,
		keys:     keys,
		vendor:   vendor,
		logger:   logger.Named("generation"),
	}
}

// WithMetrics adds metrics tracking to the service
func (s *Service) WithMetrics(metrics *monitoring.Metrics) *Service {
	s.metrics = metrics
	return s
}

// WithTracer records a span for each upstream call.
func (s *Service) WithTracer(tracer *tracing.Tracer) *Service {
	s.tracer = tracer
	return s
}

// Readiness reports which collaborators are configured.
type Readiness struct {
	Identity bool `json:"identity"`
	KeyStore bool `json:"keystore"`
	Vendor   bool `json:"vendor"`
}

// Readiness reports which collaborators are configured.
func (s *Service) Readiness() Readiness {
	return Readiness{
		Identity: s.identity != nil,
		KeyStore: s.keys != nil,
		Vendor:   s.vendor != nil,
	}
}

// Handle runs one generation request given the raw Authorization header and
// request body. It never panics.
func (s *Service) Handle(ctx context.Context, authorization string, body []byte) (out Outcome) {
	log := s.logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("unhandled panic in generation request", zap.Any("panic", r), zap.Stack("stack"))
			out = failure(http.StatusInternalServerError, MsgInternalServerError)
		}
		if s.metrics != nil {
			s.metrics.RecordGeneration(out.Status)
		}
	}()

	if !strings.HasPrefix(authorization, bearerPrefix) {
		return failure(http.StatusUnauthorized, MsgMissingAuthHeader)
	}
	jwt := strings.Replace(authorization, bearerPrefix, "", 1)

	if s.identity == nil {
		log.Error("identity provider not configured", zap.Stringer("kind", errs.KindConfiguration))
		return failure(http.StatusInternalServerError, MsgServerConfig)
	}

	timer := monitoring.NewTimer(s.metrics, "identity")
	span, spanCtx := s.tracer.StartSpan(ctx, "proxy.identity")
	user, err := s.identity.User(spanCtx, jwt)
	span.End(err)
	if err != nil || user == nil {
		timer.Stop(outcome(err))
		log.Warn("token validation failed", zap.Stringer("kind", errs.KindAuthentication), zap.Error(err))
		return failure(http.StatusUnauthorized, MsgInvalidToken)
	}
	timer.Stop("ok")
	log = &logging.Logger{Logger: log.With(zap.String("user_id", user.ID))}

	var req types.GenerationRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		log.Error("malformed request body", zap.Stringer("kind", errs.KindValidation), zap.Error(err))
		return failure(http.StatusInternalServerError, MsgInternalServerError)
	}
	if req.FieldContext == nil {
		return failure(http.StatusBadRequest, MsgMissingFieldContext)
	}

	if s.keys == nil {
		log.Error("key store not configured", zap.Stringer("kind", errs.KindConfiguration))
		return failure(http.StatusInternalServerError, MsgServiceRoleConfig)
	}

	timer = monitoring.NewTimer(s.metrics, "keystore")
	span, spanCtx = s.tracer.StartSpan(ctx, "proxy.keystore")
	apiKey, err := s.keys.APIKey(spanCtx, user.ID)
	span.Tag("user_id", user.ID).End(err)
	switch {
	case errors.Is(err, keystore.ErrNotFound):
		timer.Stop("not_found")
		log.Warn("api key not found for user", zap.Stringer("kind", errs.KindConfiguration))
		return failure(http.StatusForbidden, MsgKeyNotSetUp)
	case err != nil:
		timer.Stop(outcome(err))
		log.Error("error retrieving api key", zap.Stringer("kind", errs.KindTransport), zap.Error(err))
		return failure(http.StatusInternalServerError, MsgKeyRetrievalFailed)
	}
	timer.Stop("ok")

	if s.vendor == nil {
		log.Error("vendor client not configured", zap.Stringer("kind", errs.KindConfiguration))
		return failure(http.StatusInternalServerError, MsgInternalServerError)
	}

	prompt := BuildPrompt(req.FieldContext)

	timer = monitoring.NewTimer(s.metrics, "openai")
	span, spanCtx = s.tracer.StartSpan(ctx, "proxy.vendor")
	text, err := s.vendor.Complete(spanCtx, apiKey, prompt)
	span.Tag("prompt_length", strconv.Itoa(len(prompt))).End(err)
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &apiErr):
		timer.Stop(fmt.Sprintf("status_%d", apiErr.Status))
		log.Error("vendor api error", zap.Stringer("kind", errs.KindVendor),
			zap.Int("vendor_status", apiErr.Status), zap.String("vendor_message", apiErr.Message))
		return failure(http.StatusBadGateway, MsgVendorErrorPrefix+apiErr.Message)
	case err != nil:
		timer.Stop(outcome(err))
		log.Error("vendor call failed", zap.Stringer("kind", errs.KindTransport), zap.Error(err))
		return failure(http.StatusInternalServerError, MsgInternalServerError)
	}
	timer.Stop("ok")

	text = strings.TrimSpace(text)
	if text == "" {
		log.Error("no generated text in vendor response", zap.Stringer("kind", errs.KindVendor))
		return failure(http.StatusInternalServerError, MsgNoUsableText)
	}

	return Outcome{Status: http.StatusOK, Body: types.Succeeded(text)}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
