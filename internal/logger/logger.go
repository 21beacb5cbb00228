package logger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new structured logger. JSON output is used in production
// or when logging.format is "json"; otherwise a colored console encoder.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}

// WithRequest adds request context to logger
func WithRequest(logger *zap.Logger, method, path, requestID string) *zap.Logger {
	return logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithActor adds the authenticated user and their company to logger
func WithActor(logger *zap.Logger, userID, companyID uuid.UUID) *zap.Logger {
	return logger.With(
		zap.String("user_id", userID.String()),
		zap.String("company_id", companyID.String()),
	)
}

type scopeKey struct{}

// Scope collects fields that are only known further down the handler chain,
// such as the authenticated actor, for the request's access log line
type Scope struct {
	mu     sync.Mutex
	fields []zap.Field
}

// NewScope attaches an empty Scope to ctx
func NewScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// Fields returns a copy of the collected fields
func (s *Scope) Fields() []zap.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]zap.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Annotate adds fields to the request scope in ctx. It is a no-op when no
// scope is attached.
func Annotate(ctx context.Context, fields ...zap.Field) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok {
		return
	}
	s.mu.Lock()
	s.fields = append(s.fields, fields...)
	s.mu.Unlock()
}
