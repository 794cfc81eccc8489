package handler

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/auth"
)

func (h *Handler) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	var v violations
	if strings.TrimSpace(req.Email) == "" {
		v.add("email", "Email is required")
	}
	if req.Password == "" {
		v.add("password", "Password is required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	res, err := h.app.Session().Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, h.toStatus(err)
	}
	if !res.Success {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}

	tok, err := auth.MakeToken(*res.Session, h.secret, h.ttl)
	if err != nil {
		h.log.Error("sign token", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &api.LoginResponse{Token: tok, User: *res.Session}, nil
}

func (h *Handler) Logout(ctx context.Context, _ *api.Empty) (*api.Empty, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	if err := h.app.Session().Logout(ctx); err != nil {
		return nil, h.toStatus(err)
	}
	return &api.Empty{}, nil
}

func (h *Handler) CurrentUser(ctx context.Context, _ *api.Empty) (*api.CurrentUserResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return &api.CurrentUserResponse{User: s}, nil
}
