package applications

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"pet-adoption-hub/internal/platform/apperr"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed questionnaire.schema.json
var questionnaireSchema []byte

type ResidenceType string

const (
	ResidenceHouse     ResidenceType = "house"
	ResidenceApartment ResidenceType = "apartment"
	ResidenceCondo     ResidenceType = "condo"
	ResidenceTownhouse ResidenceType = "townhouse"
	ResidenceFarm      ResidenceType = "farm"
	ResidenceOther     ResidenceType = "other"
)

type Ownership string

const (
	OwnershipOwn  Ownership = "own"
	OwnershipRent Ownership = "rent"
)

type ExperienceLevel string

const (
	ExperienceFirstTime    ExperienceLevel = "first_time"
	ExperienceSome         ExperienceLevel = "some"
	ExperienceExperienced  ExperienceLevel = "experienced"
	ExperienceProfessional ExperienceLevel = "professional"
)

type ActivityLevel string

const (
	ActivityLow      ActivityLevel = "low"
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
)

type Residence struct {
	Type               ResidenceType `json:"type"`
	Ownership          Ownership     `json:"ownership"`
	LandlordAllowsPets *bool         `json:"landlord_allows_pets,omitempty"` // requerido si ownership=rent
	HasYard            bool          `json:"has_yard"`
	YardFenced         *bool         `json:"yard_fenced,omitempty"`
}

type Household struct {
	Adults           int  `json:"adults"`
	Children         int  `json:"children"`
	YoungestChildAge *int `json:"youngest_child_age,omitempty"` // requerido si children > 0
	AllMembersAgree  bool `json:"all_members_agree"`
	Allergies        bool `json:"allergies"`
}

type CurrentPet struct {
	Species          string `json:"species"`
	Count            int    `json:"count"`
	SpayedOrNeutered bool   `json:"spayed_or_neutered"`
	Vaccinated       bool   `json:"vaccinated"`
}

type Experience struct {
	Level        ExperienceLevel `json:"level"`
	PreviousPets string          `json:"previous_pets,omitempty"`
	CurrentPets  []CurrentPet    `json:"current_pets,omitempty"`
}

type Lifestyle struct {
	HoursAlonePerDay  int           `json:"hours_alone_per_day"`
	ActivityLevel     ActivityLevel `json:"activity_level"`
	CaretakerWhenAway string        `json:"caretaker_when_away,omitempty"`
}

type Affordability struct {
	MonthlyBudget    float64 `json:"monthly_budget"`
	CanCoverVetCosts bool    `json:"can_cover_vet_costs"`
	HasEmergencyFund bool    `json:"has_emergency_fund"`
}

// ApplicationData es el cuestionario fijo de adopción.
type ApplicationData struct {
	Residence         Residence     `json:"residence"`
	Household         Household     `json:"household"`
	Experience        Experience    `json:"experience"`
	Lifestyle         Lifestyle     `json:"lifestyle"`
	Affordability     Affordability `json:"affordability"`
	Motivation        string        `json:"motivation"`
	AgreesToHomeVisit bool          `json:"agrees_to_home_visit"`
	AgreesToTerms     bool          `json:"agrees_to_terms"`
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(questionnaireSchema))
})

// DecodeApplicationData valida el JSON crudo contra el schema embebido y lo
// convierte al struct tipado. Se usa en el borde HTTP.
func DecodeApplicationData(raw []byte) (ApplicationData, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return ApplicationData{}, apperr.New(apperr.CodeValidation, "application_data is required")
	}

	schema, err := compiledSchema()
	if err != nil {
		return ApplicationData{}, fmt.Errorf("questionnaire schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return ApplicationData{}, apperr.Wrap(apperr.CodeValidation, "application_data is not valid json", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.Field()+": "+e.Description())
		}
		return ApplicationData{}, apperr.New(apperr.CodeValidation, "invalid application_data: "+strings.Join(msgs, "; "))
	}

	var d ApplicationData
	if err := json.Unmarshal(raw, &d); err != nil {
		return ApplicationData{}, apperr.Wrap(apperr.CodeValidation, "invalid application_data", err)
	}
	return d, d.Validate()
}

// Validate aplica las reglas que cruzan campos (el schema cubre tipos y enums).
func (d ApplicationData) Validate() error {
	switch d.Residence.Type {
	case ResidenceHouse, ResidenceApartment, ResidenceCondo, ResidenceTownhouse, ResidenceFarm, ResidenceOther:
	default:
		return invalidData("residence.type is required")
	}
	switch d.Residence.Ownership {
	case OwnershipOwn:
	case OwnershipRent:
		if d.Residence.LandlordAllowsPets == nil {
			return invalidData("residence.landlord_allows_pets is required when renting")
		}
		if !*d.Residence.LandlordAllowsPets {
			return invalidData("landlord must allow pets")
		}
	default:
		return invalidData("residence.ownership is required")
	}
	if d.Household.Adults < 1 {
		return invalidData("household.adults must be at least 1")
	}
	if d.Household.Children > 0 && d.Household.YoungestChildAge == nil {
		return invalidData("household.youngest_child_age is required when there are children")
	}
	switch d.Experience.Level {
	case ExperienceFirstTime, ExperienceSome, ExperienceExperienced, ExperienceProfessional:
	default:
		return invalidData("experience.level is required")
	}
	switch d.Lifestyle.ActivityLevel {
	case ActivityLow, ActivityModerate, ActivityHigh:
	default:
		return invalidData("lifestyle.activity_level is required")
	}
	if d.Lifestyle.HoursAlonePerDay < 0 || d.Lifestyle.HoursAlonePerDay > 24 {
		return invalidData("lifestyle.hours_alone_per_day must be between 0 and 24")
	}
	if d.Affordability.MonthlyBudget < 0 {
		return invalidData("affordability.monthly_budget must be positive")
	}
	if strings.TrimSpace(d.Motivation) == "" {
		return invalidData("motivation is required")
	}
	if !d.AgreesToTerms {
		return invalidData("terms must be accepted")
	}
	return nil
}

func invalidData(msg string) error {
	return apperr.New(apperr.CodeValidation, "invalid application_data: "+msg)
}
