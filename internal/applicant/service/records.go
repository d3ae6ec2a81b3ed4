package service

import (
	"time"

	"rnp-recruitment/internal/applicant/models"
	"rnp-recruitment/internal/store"
	dErrors "rnp-recruitment/pkg/domain-errors"
)

// LoadApplicants reads every applicant inside tx. tx must hold store.Applicants.
func LoadApplicants(tx *store.Tx) ([]models.Applicant, error) {
	var list []models.Applicant
	if err := tx.Load(store.Applicants, &list, SeedApplicants()); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveApplicants stages list as the applicant collection.
func SaveApplicants(tx *store.Tx, list []models.Applicant) error {
	return tx.Save(store.Applicants, list)
}

// FindByID returns the index of the applicant with id.
func FindByID(list []models.Applicant, id string) (int, error) {
	for i := range list {
		if list[i].ID == id {
			return i, nil
		}
	}
	return -1, dErrors.New(dErrors.CodeNotFound, "applicant not found")
}

// SeedApplicants is the demonstration data written on first use.
func SeedApplicants() []models.Applicant {
	return []models.Applicant{
		{
			ID:                         "1",
			ApplicationID:              "RNP-2024-0001",
			FirstName:                  "Jean",
			LastName:                   "Mugisha",
			NationalID:                 "1199580000000001",
			Email:                      "jean.m@example.com",
			Phone:                      "0788000001",
			Gender:                     models.GenderMale,
			DateOfBirth:                "1995-05-12",
			Province:                   "Kigali City",
			District:                   "Gasabo",
			EducationLevel:             "Bachelor Degree",
			PhysicalFitnessDeclaration: true,
			Status:                     models.StatusShortlisted,
			AppliedDate:                time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC),
			Documents:                  []models.Document{},
			BlockchainHash:             "0x8f2a3b9c1d4e5f6",
			IPAddress:                  "197.243.0.1",
			Verification: models.Verification{
				Identity:  models.Check{Verified: true, Data: "Identity Confirmed"},
				Education: models.Check{Verified: true, Data: "Degree: Computer Science (A0)"},
				Criminal:  models.CriminalCheck{Check: models.Check{Verified: true, Data: "No Record Found"}, Cleared: true},
			},
			AdminComments: []models.Comment{},
			AIMetrics: &models.AIMetrics{
				EstimatedHeight: "1.78m",
				BodyProportions: "Athletic",
				FitnessScore:    "85/100",
				ConfidenceScore: 98,
			},
		},
		{
			ID:                         "2",
			ApplicationID:              "RNP-2024-0002",
			FirstName:                  "Aline",
			LastName:                   "Keza",
			NationalID:                 "1199870000000002",
			Email:                      "aline.k@example.com",
			Phone:                      "0788000002",
			Gender:                     models.GenderFemale,
			DateOfBirth:                "1998-08-20",
			Province:                   "Northern Province",
			District:                   "Musanze",
			EducationLevel:             "High School Diploma",
			PhysicalFitnessDeclaration: true,
			Status:                     models.StatusUnderReview,
			AppliedDate:                time.Date(2024, 5, 11, 14, 30, 0, 0, time.UTC),
			Documents:                  []models.Document{},
			BlockchainHash:             "0x1a2b3c4d5e6f7g8",
			FraudScore:                 10,
			IPAddress:                  "197.243.0.55",
			AdminComments:              []models.Comment{},
		},
	}
}
