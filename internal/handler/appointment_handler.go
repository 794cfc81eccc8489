package handler

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/attachment"
	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/repository"
)

// validateAppointment checks a full record. The past-date rule applies only
// when dateChanged, so existing appointments can still be closed out.
func validateAppointment(a model.Appointment, now time.Time, dateChanged bool) error {
	var v violations
	if a.PatientID == "" {
		v.add("patientId", "Patient is required")
	}
	if strings.TrimSpace(a.Title) == "" {
		v.add("title", "Title is required")
	}
	switch {
	case a.AppointmentDate.IsZero():
		v.add("appointmentDate", "Date is required")
	case dateChanged && a.AppointmentDate.Before(now.Truncate(time.Minute)):
		v.add("appointmentDate", "Appointment cannot be in the past")
	}
	if a.NextAppointmentDate != nil && !a.NextAppointmentDate.After(a.AppointmentDate) {
		v.add("nextAppointmentDate", "Next appointment must be after current appointment")
	}
	if a.Status != "" && !a.Status.Valid() {
		v.add("status", "Unknown status")
	}
	if a.Cost < 0 {
		v.add("cost", "Cost cannot be negative")
	}
	return v.err()
}

// validateAttachments checks each attachment that is not already stored on
// the record, reporting the first problem of each.
func validateAttachments(atts, stored []model.Attachment) error {
	var v violations
	for i, att := range atts {
		if slices.Contains(stored, att) {
			continue
		}
		if errs := attachment.Validate(att, 0); len(errs) > 0 {
			v.add("attachments["+strconv.Itoa(i)+"]", errs[0])
		}
	}
	return v.err()
}

func (h *Handler) ListAppointments(ctx context.Context, _ *api.Empty) (*api.ListAppointmentsResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return &api.ListAppointmentsResponse{Appointments: scope(s, h.app.Appointments().List())}, nil
}

func (h *Handler) GetAppointment(ctx context.Context, req *api.IDRequest) (*api.AppointmentResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	a, err := h.app.Appointments().GetByID(req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	// ownership: 404 not 403 to hide existence
	if !canSee(s, a.PatientID) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &api.AppointmentResponse{Appointment: a}, nil
}

func (h *Handler) ListPatientAppointments(ctx context.Context, req *api.IDRequest) (*api.ListAppointmentsResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !canSee(s, req.ID) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &api.ListAppointmentsResponse{Appointments: h.app.Appointments().ByPatient(req.ID)}, nil
}

func (h *Handler) UpcomingAppointments(ctx context.Context, req *api.UpcomingRequest) (*api.ListAppointmentsResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	repo := h.app.Appointments()
	if s.Role == model.RoleAdmin {
		return &api.ListAppointmentsResponse{Appointments: repo.Upcoming(req.Limit)}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = repository.DefaultUpcoming
	}
	now := h.app.Now()
	out := []model.Appointment{}
	for _, a := range repo.ByPatient(s.PatientID) {
		if a.AppointmentDate.After(now) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return &api.ListAppointmentsResponse{Appointments: out}, nil
}

func (h *Handler) TodayAppointments(ctx context.Context, _ *api.Empty) (*api.ListAppointmentsResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return &api.ListAppointmentsResponse{Appointments: scope(s, h.app.Appointments().Today())}, nil
}

func (h *Handler) AppointmentsInRange(ctx context.Context, req *api.RangeRequest) (*api.ListAppointmentsResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var v violations
	if req.Start.IsZero() {
		v.add("start", "Start is required")
	}
	if req.End.IsZero() {
		v.add("end", "End is required")
	} else if req.End.Before(req.Start) {
		v.add("end", "End must not be before start")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return &api.ListAppointmentsResponse{Appointments: scope(s, h.app.Appointments().ByDateRange(req.Start, req.End))}, nil
}

func (h *Handler) CreateAppointment(ctx context.Context, req *api.CreateAppointmentRequest) (*api.AppointmentResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	in := req.Appointment
	in.Title = strings.TrimSpace(in.Title)
	if err := validateAppointment(in, h.app.Now(), true); err != nil {
		return nil, err
	}
	if err := validateAttachments(in.Attachments, nil); err != nil {
		return nil, err
	}

	out, err := h.app.CreateAppointment(ctx, in)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &api.AppointmentResponse{Appointment: out}, nil
}

func (h *Handler) UpdateAppointment(ctx context.Context, req *api.UpdateAppointmentRequest) (*api.AppointmentResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	cur, err := h.app.Appointments().GetByID(req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	patch := req.Patch
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	if patch.Attachments != nil {
		if err := validateAttachments(*patch.Attachments, cur.Attachments); err != nil {
			return nil, err
		}
	}
	merged := cur.Apply(patch)
	dateChanged := patch.AppointmentDate != nil && !patch.AppointmentDate.Equal(cur.AppointmentDate)
	if err := validateAppointment(merged, h.app.Now(), dateChanged); err != nil {
		return nil, err
	}

	updated, followUp, err := h.app.UpdateAppointment(ctx, req.ID, patch)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &api.AppointmentResponse{Appointment: updated, FollowUp: followUp}, nil
}

func (h *Handler) DeleteAppointment(ctx context.Context, req *api.IDRequest) (*api.Empty, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := h.app.DeleteAppointment(ctx, req.ID); err != nil {
		return nil, h.toStatus(err)
	}
	return &api.Empty{}, nil
}

func (h *Handler) AddAttachment(ctx context.Context, req *api.AddAttachmentRequest) (*api.AppointmentResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if errs := attachment.Validate(req.Attachment, 0); len(errs) > 0 {
		var v violations
		for _, e := range errs {
			v.add("attachment", e)
		}
		return nil, v.err()
	}
	out, err := h.app.AddAttachment(ctx, req.AppointmentID, req.Attachment)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &api.AppointmentResponse{Appointment: out}, nil
}

func (h *Handler) RemoveAttachment(ctx context.Context, req *api.RemoveAttachmentRequest) (*api.AppointmentResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	out, err := h.app.RemoveAttachment(ctx, req.AppointmentID, req.Index)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &api.AppointmentResponse{Appointment: out}, nil
}
