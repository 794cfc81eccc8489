package api

import (
	"time"

	"dental-clinic-admin/internal/clinic"
	"dental-clinic-admin/internal/model"
)

type Empty struct{}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string        `json:"token"`
	User  model.Session `json:"user"`
}

type CurrentUserResponse struct {
	User *model.Session `json:"user"`
}

// IDRequest addresses a single patient or appointment.
type IDRequest struct {
	ID string `json:"id"`
}

type SearchPatientsRequest struct {
	Query string `json:"query"`
}

type PatientResponse struct {
	Patient model.Patient `json:"patient"`
}

type ListPatientsResponse struct {
	Patients []model.Patient `json:"patients"`
}

type CreatePatientRequest struct {
	Patient model.Patient `json:"patient"`
}

type UpdatePatientRequest struct {
	ID    string             `json:"id"`
	Patch model.PatientPatch `json:"patch"`
}

type ListAppointmentsResponse struct {
	Appointments []model.Appointment `json:"appointments"`
}

type UpcomingRequest struct {
	Limit int `json:"limit"`
}

type RangeRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AppointmentResponse struct {
	Appointment model.Appointment `json:"appointment"`
	// FollowUp is set when an update scheduled a new appointment.
	FollowUp *model.Appointment `json:"followUp,omitempty"`
}

type CreateAppointmentRequest struct {
	Appointment model.Appointment `json:"appointment"`
}

type UpdateAppointmentRequest struct {
	ID    string                 `json:"id"`
	Patch model.AppointmentPatch `json:"patch"`
}

type AddAttachmentRequest struct {
	AppointmentID string           `json:"appointmentId"`
	Attachment    model.Attachment `json:"attachment"`
}

type RemoveAttachmentRequest struct {
	AppointmentID string `json:"appointmentId"`
	Index         int    `json:"index"`
}

type CalendarRequest struct {
	// Ref defaults to now; View to "month".
	Ref  time.Time `json:"ref"`
	View string    `json:"view"`
}

type CalendarResponse struct {
	View   string                         `json:"view"`
	Days   []string                       `json:"days"`
	ByDate map[string][]model.Appointment `json:"byDate"`
	Prev   string                         `json:"prev"`
	Next   string                         `json:"next"`
}

type PatientDashboardRequest struct {
	PatientID string `json:"patientId"`
}

type AdminDashboardResponse = clinic.AdminDashboard

type PatientDashboardResponse = clinic.PatientDashboard
