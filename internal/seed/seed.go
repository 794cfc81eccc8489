// Package seed holds the first-run data for a new clinic silo.
package seed

import (
	"fmt"
	"time"

	"dental-clinic-admin/internal/auth"
	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/store"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Initial returns the demo clinic with plaintext passwords.
func Initial() store.Seed {
	next := ts("2025-08-15T10:00:00Z")
	return store.Seed{
		Users: []model.User{
			{ID: "1", Role: model.RoleAdmin, Email: "admin@entnt.in", Password: "admin123", Name: "Dr. Smith"},
			{ID: "2", Role: model.RolePatient, Email: "john@entnt.in", Password: "patient123", Name: "John Doe", PatientID: "p1"},
			{ID: "3", Role: model.RolePatient, Email: "jane@entnt.in", Password: "patient123", Name: "Jane Smith", PatientID: "p2"},
		},
		Patients: []model.Patient{
			{
				ID:               "p1",
				Name:             "John Doe",
				Email:            "john@entnt.in",
				DOB:              "1990-05-10",
				Contact:          "1234567890",
				Address:          "123 Main St, City",
				HealthInfo:       "No known allergies",
				EmergencyContact: "9876543210",
				CreatedAt:        ts("2024-01-15T10:00:00Z"),
			},
			{
				ID:               "p2",
				Name:             "Jane Smith",
				Email:            "jane@entnt.in",
				DOB:              "1985-08-22",
				Contact:          "2345678901",
				Address:          "456 Oak Ave, City",
				HealthInfo:       "Allergic to penicillin",
				EmergencyContact: "8765432109",
				CreatedAt:        ts("2024-02-20T14:30:00Z"),
			},
		},
		Appointments: []model.Appointment{
			{
				ID:              "a1",
				PatientID:       "p1",
				Title:           "Routine Checkup",
				Description:     "Regular dental checkup and cleaning",
				AppointmentDate: ts("2025-07-15T10:00:00Z"),
				Status:          model.StatusScheduled,
				Cost:            120,
				Attachments:     []model.Attachment{},
				CreatedAt:       ts("2024-06-20T09:00:00Z"),
			},
			{
				ID:                  "a2",
				PatientID:           "p1",
				Title:               "Toothache Treatment",
				Description:         "Upper molar pain treatment",
				AppointmentDate:     ts("2025-06-28T14:00:00Z"),
				Status:              model.StatusCompleted,
				Cost:                250,
				TreatmentNotes:      "Root canal therapy completed",
				NextAppointmentDate: &next,
				Attachments: []model.Attachment{
					{Name: "xray_report.pdf", Type: "application/pdf", Size: 2048, Data: "data:application/pdf;base64,c2FtcGxlLWJhc2U2NC1zdHJpbmc="},
				},
				CreatedAt: ts("2024-06-15T11:00:00Z"),
			},
		},
	}
}

// Hashed returns Initial with bcrypt-hashed passwords.
func Hashed() (store.Seed, error) {
	s := Initial()
	for i := range s.Users {
		h, err := auth.HashPassword(s.Users[i].Password)
		if err != nil {
			return store.Seed{}, fmt.Errorf("hash seed password for %s: %w", s.Users[i].Email, err)
		}
		s.Users[i].Password = h
	}
	return s, nil
}
