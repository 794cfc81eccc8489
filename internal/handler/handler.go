package handler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/clinic"
	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/repository"
	"dental-clinic-admin/internal/store"
)

var _ api.ClinicServiceServer = (*Handler)(nil)

type Handler struct {
	app    *clinic.App
	secret string
	ttl    time.Duration
	log    *zap.Logger
}

func New(app *clinic.App, secret string, ttl time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handler{app: app, secret: secret, ttl: ttl, log: log}
}

// toStatus maps domain errors onto gRPC codes. Only this package does that.
func (h *Handler) toStatus(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, repository.ErrSaveFailed), errors.Is(err, store.ErrWrite):
		return status.Error(codes.Internal, repository.ErrSaveFailed.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	h.log.Error("unhandled error", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

type violations []*errdetails.BadRequest_FieldViolation

func (v *violations) add(field, desc string) {
	*v = append(*v, &errdetails.BadRequest_FieldViolation{Field: field, Description: desc})
}

// err returns nil when nothing was added.
func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	st := status.New(codes.InvalidArgument, v[0].Description)
	if ds, err := st.WithDetails(&errdetails.BadRequest{FieldViolations: v}); err == nil {
		st = ds
	}
	return st.Err()
}

func caller(ctx context.Context) (*model.Session, error) {
	s := middleware.SessionFrom(ctx)
	if s == nil {
		return nil, status.Error(codes.Unauthenticated, "not signed in")
	}
	return s, nil
}

func requireAdmin(ctx context.Context) (*model.Session, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if s.Role != model.RoleAdmin {
		return nil, status.Error(codes.PermissionDenied, "admin only")
	}
	return s, nil
}

// canSee reports whether s may read the records of patientID.
func canSee(s *model.Session, patientID string) bool {
	return s.Role == model.RoleAdmin || (s.PatientID != "" && s.PatientID == patientID)
}

// scope narrows as to what s may read.
func scope(s *model.Session, as []model.Appointment) []model.Appointment {
	if s.Role == model.RoleAdmin {
		return as
	}
	out := []model.Appointment{}
	for _, a := range as {
		if canSee(s, a.PatientID) {
			out = append(out, a)
		}
	}
	return out
}
