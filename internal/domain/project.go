package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AMITier is the area-median-income restriction tier attached to a unit.
type AMITier string

const (
	AMITier30 AMITier = "AMI_30"
	AMITier50 AMITier = "AMI_50"
	AMITier60 AMITier = "AMI_60"
	AMITier80 AMITier = "AMI_80"
)

// Percent returns the tier's AMI percentage.
func (t AMITier) Percent() decimal.Decimal {
	switch t {
	case AMITier30:
		return decimal.NewFromInt(30)
	case AMITier50:
		return decimal.NewFromInt(50)
	case AMITier60:
		return decimal.NewFromInt(60)
	case AMITier80:
		return decimal.NewFromInt(80)
	}
	return decimal.Zero
}

// Tenure distinguishes rental units from homeownership units; the
// affordability thresholds differ.
type Tenure string

const (
	TenureRental    Tenure = "RENTAL"
	TenureOwnership Tenure = "OWNERSHIP"
)

// Unit is one dwelling in a project. A unit has at most one occupant
// household at a time.
type Unit struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Bedrooms    int     `json:"bedrooms"`
	Tier        AMITier `json:"tier"`
	Tenure      Tenure  `json:"tenure"`
	HouseholdID string  `json:"household_id,omitempty"`
}

// Occupied reports whether a household currently holds the unit.
func (u *Unit) Occupied() bool {
	return u.HouseholdID != ""
}

// ProgramTrack determines the commitment period fixed at placed-in-service.
type ProgramTrack string

const (
	TrackHomeownership ProgramTrack = "HOMEOWNERSHIP"
	TrackRental        ProgramTrack = "RENTAL"
	TrackPreservation  ProgramTrack = "PRESERVATION"
)

// CommitmentYears returns the affordability commitment length for a track.
func (t ProgramTrack) CommitmentYears() int {
	switch t {
	case TrackHomeownership:
		return 25
	case TrackRental:
		return 40
	case TrackPreservation:
		return 50
	}
	return 40
}

// Project owns units, an operating/replacement reserve pair, and one active
// contract.
type Project struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	County     string       `json:"county"`
	Track      ProgramTrack `json:"track"`
	ContractID string       `json:"contract_id,omitempty"`
	Units      []Unit       `json:"units"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewProject creates a project with its units.
func NewProject(name, county string, track ProgramTrack, units []Unit) *Project {
	now := time.Now()
	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		County:    county,
		Track:     track,
		Units:     units,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range p.Units {
		if p.Units[i].ID == "" {
			p.Units[i].ID = uuid.NewString()
		}
		p.Units[i].ProjectID = p.ID
	}
	return p
}

// OccupiedUnits returns the units with a current occupant household.
func (p *Project) OccupiedUnits() []Unit {
	var occupied []Unit
	for _, u := range p.Units {
		if u.Occupied() {
			occupied = append(occupied, u)
		}
	}
	return occupied
}
