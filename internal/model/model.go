package model

import "time"

type Role string

const (
	RoleAdmin   Role = "Admin"
	RolePatient Role = "Patient"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// User is a row of the credential table. Seeded once, never mutated.
type User struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	PatientID string `json:"patientId,omitempty"`
}

// Session holds the public fields of the authenticated user.
type Session struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Name      string `json:"name"`
	PatientID string `json:"patientId,omitempty"`
}

func (u User) Session() Session {
	return Session{ID: u.ID, Email: u.Email, Role: u.Role, Name: u.Name, PatientID: u.PatientID}
}

type Patient struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	DOB              string    `json:"dob"`
	Contact          string    `json:"contact"`
	Address          string    `json:"address"`
	HealthInfo       string    `json:"healthInfo"`
	EmergencyContact string    `json:"emergencyContact"`
	CreatedAt        time.Time `json:"createdAt"`
}

// PatientPatch carries the fields to change; nil means unchanged.
type PatientPatch struct {
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty"`
	DOB              *string `json:"dob,omitempty"`
	Contact          *string `json:"contact,omitempty"`
	Address          *string `json:"address,omitempty"`
	HealthInfo       *string `json:"healthInfo,omitempty"`
	EmergencyContact *string `json:"emergencyContact,omitempty"`
}

func (p Patient) Apply(patch PatientPatch) Patient {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.DOB != nil {
		p.DOB = *patch.DOB
	}
	if patch.Contact != nil {
		p.Contact = *patch.Contact
	}
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	if patch.HealthInfo != nil {
		p.HealthInfo = *patch.HealthInfo
	}
	if patch.EmergencyContact != nil {
		p.EmergencyContact = *patch.EmergencyContact
	}
	return p
}

// Attachment is an inline-encoded file. Data is a data: URL.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

type Appointment struct {
	ID                     string       `json:"id"`
	PatientID              string       `json:"patientId"`
	Title                  string       `json:"title"`
	Description            string       `json:"description"`
	AppointmentDate        time.Time    `json:"appointmentDate"`
	Status                 Status       `json:"status"`
	Cost                   float64      `json:"cost"`
	TreatmentNotes         string       `json:"treatmentNotes"`
	NextAppointmentDate    *time.Time   `json:"nextAppointmentDate,omitempty"`
	NextAppointmentNotes   string       `json:"nextAppointmentNotes"`
	NextAppointmentCreated bool         `json:"nextAppointmentCreated,omitempty"`
	Attachments            []Attachment `json:"attachments"`
	PreviousAppointmentID  string       `json:"previousAppointmentId,omitempty"`
	CreatedAt              time.Time    `json:"createdAt"`
}

// AppointmentPatch carries the fields to change; nil means unchanged.
type AppointmentPatch struct {
	PatientID              *string       `json:"patientId,omitempty"`
	Title                  *string       `json:"title,omitempty"`
	Description            *string       `json:"description,omitempty"`
	AppointmentDate        *time.Time    `json:"appointmentDate,omitempty"`
	Status                 *Status       `json:"status,omitempty"`
	Cost                   *float64      `json:"cost,omitempty"`
	TreatmentNotes         *string       `json:"treatmentNotes,omitempty"`
	NextAppointmentDate    *time.Time    `json:"nextAppointmentDate,omitempty"`
	NextAppointmentNotes   *string       `json:"nextAppointmentNotes,omitempty"`
	NextAppointmentCreated *bool         `json:"nextAppointmentCreated,omitempty"`
	Attachments            *[]Attachment `json:"attachments,omitempty"`
}

func (a Appointment) Apply(patch AppointmentPatch) Appointment {
	if patch.PatientID != nil {
		a.PatientID = *patch.PatientID
	}
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.AppointmentDate != nil {
		a.AppointmentDate = *patch.AppointmentDate
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Cost != nil {
		a.Cost = *patch.Cost
	}
	if patch.TreatmentNotes != nil {
		a.TreatmentNotes = *patch.TreatmentNotes
	}
	if patch.NextAppointmentDate != nil {
		d := *patch.NextAppointmentDate
		a.NextAppointmentDate = &d
	}
	if patch.NextAppointmentNotes != nil {
		a.NextAppointmentNotes = *patch.NextAppointmentNotes
	}
	if patch.NextAppointmentCreated != nil {
		a.NextAppointmentCreated = *patch.NextAppointmentCreated
	}
	if patch.Attachments != nil {
		a.Attachments = append([]Attachment(nil), (*patch.Attachments)...)
	}
	return a
}

// Clone copies the attachment slice so callers can't alias cached state.
func (a Appointment) Clone() Appointment {
	if a.Attachments != nil {
		a.Attachments = append([]Attachment{}, a.Attachments...)
	}
	if a.NextAppointmentDate != nil {
		d := *a.NextAppointmentDate
		a.NextAppointmentDate = &d
	}
	return a
}
