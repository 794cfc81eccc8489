package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/model"
)

const minContactLen = 10

func trimPatient(p model.Patient) model.Patient {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.DOB = strings.TrimSpace(p.DOB)
	p.Contact = strings.TrimSpace(p.Contact)
	p.Address = strings.TrimSpace(p.Address)
	p.HealthInfo = strings.TrimSpace(p.HealthInfo)
	p.EmergencyContact = strings.TrimSpace(p.EmergencyContact)
	return p
}

func validatePatient(p model.Patient) error {
	var v violations
	if p.Name == "" {
		v.add("name", "Name is required")
	}
	switch {
	case p.Email == "":
		v.add("email", "Email is required")
	case !strings.Contains(p.Email, "@"):
		v.add("email", "Valid email is required")
	}
	if p.DOB == "" {
		v.add("dob", "Date of birth is required")
	}
	switch {
	case p.Contact == "":
		v.add("contact", "Contact number is required")
	case len(p.Contact) < minContactLen:
		v.add("contact", "Valid contact number is required")
	}
	return v.err()
}

func (h *Handler) ListPatients(ctx context.Context, _ *api.Empty) (*api.ListPatientsResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return &api.ListPatientsResponse{Patients: h.app.Patients().List()}, nil
}

func (h *Handler) GetPatient(ctx context.Context, req *api.IDRequest) (*api.PatientResponse, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	// not found rather than denied, so ids of other patients don't leak
	if !canSee(s, req.ID) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	p, err := h.app.Patients().GetByID(req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &api.PatientResponse{Patient: p}, nil
}

func (h *Handler) SearchPatients(ctx context.Context, req *api.SearchPatientsRequest) (*api.ListPatientsResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return &api.ListPatientsResponse{Patients: h.app.Patients().Search(req.Query)}, nil
}

func (h *Handler) CreatePatient(ctx context.Context, req *api.CreatePatientRequest) (*api.PatientResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	p := trimPatient(req.Patient)
	if err := validatePatient(p); err != nil {
		return nil, err
	}
	out, err := h.app.CreatePatient(ctx, p)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &api.PatientResponse{Patient: out}, nil
}

func (h *Handler) UpdatePatient(ctx context.Context, req *api.UpdatePatientRequest) (*api.PatientResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	cur, err := h.app.Patients().GetByID(req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	// validate the merged record, then store exactly that
	merged := trimPatient(cur.Apply(req.Patch))
	if err := validatePatient(merged); err != nil {
		return nil, err
	}
	out, err := h.app.UpdatePatient(ctx, req.ID, model.PatientPatch{
		Name:             &merged.Name,
		Email:            &merged.Email,
		DOB:              &merged.DOB,
		Contact:          &merged.Contact,
		Address:          &merged.Address,
		HealthInfo:       &merged.HealthInfo,
		EmergencyContact: &merged.EmergencyContact,
	})
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &api.PatientResponse{Patient: out}, nil
}

func (h *Handler) DeletePatient(ctx context.Context, req *api.IDRequest) (*api.Empty, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := h.app.DeletePatient(ctx, req.ID); err != nil {
		return nil, h.toStatus(err)
	}
	return &api.Empty{}, nil
}
