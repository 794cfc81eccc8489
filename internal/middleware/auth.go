package middleware

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/auth"
	"dental-clinic-admin/internal/model"
)

type ctxKey string

const sessionKey ctxKey = "session"

var (
	ErrNoToken    = errors.New("no token")
	ErrNotCurrent = errors.New("session ended")
)

// SessionSource reports the single signed-in user of the silo.
type SessionSource interface {
	Current() *model.Session
}

// skip auth for these
var open = map[string]bool{
	api.FullMethod("Login"): true,
}

// Verify checks a bearer token and that its user still holds the session.
// Tokens of a user who no longer holds the session are refused.
func Verify(header, secret string, src SessionSource) (*model.Session, error) {
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" {
		return nil, ErrNoToken
	}
	claims, err := auth.ParseToken(raw, secret)
	if err != nil {
		return nil, err
	}
	cur := src.Current()
	if cur == nil || cur.ID != claims.UserID {
		return nil, ErrNotCurrent
	}
	return cur, nil
}

func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the caller set by Auth, or nil.
func SessionFrom(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionKey).(*model.Session)
	return s
}

func Auth(secret string, src SessionSource) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		header := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}

		sess, err := Verify(header, secret, src)
		switch {
		case errors.Is(err, ErrNoToken):
			return nil, status.Error(codes.Unauthenticated, "no token")
		case errors.Is(err, ErrNotCurrent):
			return nil, status.Error(codes.Unauthenticated, "session ended")
		case err != nil:
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		return next(WithSession(ctx, sess), req)
	}
}
