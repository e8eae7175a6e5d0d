// Package patient manages patient records and their onboarding from an
// initial report document.
package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a registered patient. The core fields come from report
// extraction at onboarding; the profile fields are filled in later through
// the profile endpoint.
type Patient struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Age    int       `json:"age"`
	Sex    string    `json:"sex"`
	Mobile string    `json:"mobile"`

	FullName         string     `json:"full_name,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Gender           string     `json:"gender,omitempty"`
	Email            string     `json:"email,omitempty"`
	EmergencyContact string     `json:"emergency_contact,omitempty"`
	Address          string     `json:"address,omitempty"`
	HeightCM         *float64   `json:"height_cm,omitempty"`
	WeightKG         *float64   `json:"weight_kg,omitempty"`
	BloodType        string     `json:"blood_type,omitempty"`
	WaistCM          *float64   `json:"waist_cm,omitempty"`
	HipCM            *float64   `json:"hip_cm,omitempty"`
	DominantHand     string     `json:"dominant_hand,omitempty"`
	SkinTone         string     `json:"skin_tone,omitempty"`
	HairColor        string     `json:"hair_color,omitempty"`
	EyeColor         string     `json:"eye_color,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BMI computes body mass index from the profile measurements, or 0 when
// either measurement is missing.
func (p *Patient) BMI() float64 {
	if p.HeightCM == nil || p.WeightKG == nil || *p.HeightCM <= 0 {
		return 0
	}
	m := *p.HeightCM / 100
	return *p.WeightKG / (m * m)
}

// ProfileUpdate carries a partial profile edit. Nil fields are left
// untouched.
type ProfileUpdate struct {
	FullName         *string    `json:"full_name"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	Gender           *string    `json:"gender"`
	Email            *string    `json:"email"`
	EmergencyContact *string    `json:"emergency_contact"`
	Address          *string    `json:"address"`
	HeightCM         *float64   `json:"height_cm"`
	WeightKG         *float64   `json:"weight_kg"`
	BloodType        *string    `json:"blood_type"`
	WaistCM          *float64   `json:"waist_cm"`
	HipCM            *float64   `json:"hip_cm"`
	DominantHand     *string    `json:"dominant_hand"`
	SkinTone         *string    `json:"skin_tone"`
	HairColor        *string    `json:"hair_color"`
	EyeColor         *string    `json:"eye_color"`
}

// Apply copies the set fields onto the patient.
func (u *ProfileUpdate) Apply(p *Patient) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = u.DateOfBirth
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = *u.EmergencyContact
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.HeightCM != nil {
		p.HeightCM = u.HeightCM
	}
	if u.WeightKG != nil {
		p.WeightKG = u.WeightKG
	}
	if u.BloodType != nil {
		p.BloodType = *u.BloodType
	}
	if u.WaistCM != nil {
		p.WaistCM = u.WaistCM
	}
	if u.HipCM != nil {
		p.HipCM = u.HipCM
	}
	if u.DominantHand != nil {
		p.DominantHand = *u.DominantHand
	}
	if u.SkinTone != nil {
		p.SkinTone = *u.SkinTone
	}
	if u.HairColor != nil {
		p.HairColor = *u.HairColor
	}
	if u.EyeColor != nil {
		p.EyeColor = *u.EyeColor
	}
}
