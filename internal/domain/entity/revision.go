package entity

import (
	"time"

	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// Reviewable section names
const (
	SectionApplicant        = "applicant"
	SectionRepresentative   = "representative"
	SectionCollaborators    = "collaborators"
	SectionProject          = "project"
	SectionRequestedStudies = "requested_studies"
)

// SectionReview is the reviewer's verdict on one section
type SectionReview struct {
	Approved bool    `json:"approved"`
	Notes    *string `json:"notes,omitempty"`
}

// RevisionRequest records which sections must be reworked before resubmission.
// A new record is written per request and never updated.
type RevisionRequest struct {
	ID               string         `json:"id"`
	ApplicationID    string         `json:"application_id"`
	ActionState      workflow.State `json:"action_state"`
	Comments         string         `json:"comments"`
	Applicant        SectionReview  `json:"applicant"`
	Representative   SectionReview  `json:"representative"`
	Collaborators    SectionReview  `json:"collaborators"`
	Project          SectionReview  `json:"project"`
	RequestedStudies SectionReview  `json:"requested_studies"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Sections returns the section reviews keyed by section name in form order
func (r *RevisionRequest) Sections() []NamedSectionReview {
	return []NamedSectionReview{
		{Name: SectionApplicant, Review: r.Applicant},
		{Name: SectionRepresentative, Review: r.Representative},
		{Name: SectionCollaborators, Review: r.Collaborators},
		{Name: SectionProject, Review: r.Project},
		{Name: SectionRequestedStudies, Review: r.RequestedStudies},
	}
}

// SectionsNeedingWork returns the names of sections that were not approved
func (r *RevisionRequest) SectionsNeedingWork() []string {
	var names []string
	for _, s := range r.Sections() {
		if !s.Review.Approved {
			names = append(names, s.Name)
		}
	}
	return names
}

// NamedSectionReview pairs a section name with its review
type NamedSectionReview struct {
	Name   string
	Review SectionReview
}
