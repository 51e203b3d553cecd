package middleware

import (
	"log/slog"
	"time"

	"github.com/broady/tyrest"
)

// LoggingInterceptor logs every handler call with slog: a "request started"
// record naming the handler, then one record when it returns.
//
// Both records carry the endpoint and, behind the RequestID middleware, the
// request ID. A failed call is logged at Error with the envelope code its
// error maps to. A completed call logs its populated status; a response that
// does not populate exactly one status is logged at Warn, since the router
// answers it with a 500.
func LoggingInterceptor(logger *slog.Logger) tyrest.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx *tyrest.Context, req *tyrest.Request, next tyrest.HandlerFunc) (*tyrest.Response, error) {
		log := logger.With(callAttrs(ctx)...)
		log.InfoContext(ctx, "request started", slog.String("handler", ctx.HandlerName()))

		start := time.Now()
		res, err := next(ctx, req)
		elapsed := slog.Duration("duration", time.Since(start))

		if err != nil {
			log.ErrorContext(ctx, "request failed",
				elapsed,
				slog.String("code", string(tyrest.DefaultErrorTransformer(err).Code)),
				slog.Any("error", err))
			return res, err
		}

		codes := res.Populated()
		if len(codes) == 1 {
			log.InfoContext(ctx, "request completed", elapsed, slog.Int("status", codes[0]))
		} else {
			log.WarnContext(ctx, "request completed", elapsed, slog.Any("status", codes))
		}
		return res, nil
	}
}

func callAttrs(ctx *tyrest.Context) []any {
	attrs := []any{slog.String("endpoint", ctx.EndpointID())}
	if id, ok := RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("request_id", id))
	}
	return attrs
}
