package entity

import (
	"time"

	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// Application represents a controlled-data access application
type Application struct {
	ID          string             `json:"id"`
	OwnerUserID string             `json:"owner_user_id"`
	State       workflow.State     `json:"state"`
	Content     ApplicationContent `json:"content"`
	// Version increments on every state change and guards compare-and-swap updates
	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ApplicationContent is the form payload reviewed by the representative and the DAC
type ApplicationContent struct {
	Applicant        ApplicantInfo      `json:"applicant"`
	Representative   RepresentativeInfo `json:"representative"`
	Collaborators    []Collaborator     `json:"collaborators" validate:"dive"`
	Project          ProjectInfo        `json:"project"`
	RequestedStudies []string           `json:"requested_studies" validate:"required,min=1,dive,required"`
	Agreements       []string           `json:"agreements" validate:"required,min=1,dive,required"`
}

// ApplicantInfo identifies the principal investigator
type ApplicantInfo struct {
	Name        string `json:"name" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Position    string `json:"position" validate:"required"`
}

// RepresentativeInfo identifies the institutional representative signing off the application
type RepresentativeInfo struct {
	Name        string `json:"name" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Position    string `json:"position" validate:"required"`
}

// Collaborator is an additional researcher granted access under the application
type Collaborator struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Position string `json:"position" validate:"required"`
}

// ProjectInfo describes the research use of the data
type ProjectInfo struct {
	Title       string `json:"title" validate:"required,max=250"`
	Website     string `json:"website,omitempty" validate:"omitempty,url"`
	Background  string `json:"background" validate:"required"`
	Aims        string `json:"aims" validate:"required"`
	Methodology string `json:"methodology" validate:"required"`
	Summary     string `json:"summary" validate:"required"`
}
