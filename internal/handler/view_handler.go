package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/calendar"
	"dental-clinic-admin/internal/model"
)

func (h *Handler) Calendar(ctx context.Context, req *api.CalendarRequest) (*api.CalendarResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	view, err := calendar.ParseView(req.View)
	if err != nil {
		var v violations
		v.add("view", err.Error())
		return nil, v.err()
	}
	ref := req.Ref
	if ref.IsZero() {
		ref = h.app.Now()
	}
	ref = ref.In(h.app.Location())

	p := h.app.Calendar(ref, view)
	out := &api.CalendarResponse{
		View:   string(view),
		Days:   make([]string, len(p.Days)),
		ByDate: map[string][]model.Appointment{},
		Prev:   calendar.Key(calendar.Prev(ref, view)),
		Next:   calendar.Key(calendar.Next(ref, view)),
	}
	for i, d := range p.Days {
		k := calendar.Key(d)
		out.Days[i] = k
		if as := p.ByDate[k]; len(as) > 0 {
			out.ByDate[k] = as
		}
	}
	return out, nil
}

func (h *Handler) AdminDashboard(ctx context.Context, _ *api.Empty) (*api.AdminDashboardResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	d := h.app.AdminDashboard()
	return &d, nil
}

// PatientDashboard serves the caller's own dashboard when PatientID is empty.
func (h *Handler) PatientDashboard(ctx context.Context, req *api.PatientDashboardRequest) (*api.PatientDashboardResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	pid := req.PatientID
	if pid == "" {
		pid = s.PatientID
	}
	if pid == "" {
		return nil, status.Error(codes.InvalidArgument, "patientId required")
	}
	if !canSee(s, pid) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	d, err := h.app.PatientDashboard(pid)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &d, nil
}
