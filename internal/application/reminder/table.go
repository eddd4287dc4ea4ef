package reminder

import (
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// Rule says which reminder a stalled application earns and who receives it
type Rule struct {
	EmailType entity.EmailType
	Recipient entity.Role
}

type ruleKey struct {
	state     workflow.State
	lastActor entity.Role
}

// Any role may act in any state, so every actionable state resolves for all four
var rules = map[ruleKey]Rule{
	{workflow.StateDraft, entity.RoleApplicant}:        {entity.EmailDraftInactive, entity.RoleApplicant},
	{workflow.StateDraft, entity.RoleInstitutionalRep}: {entity.EmailDraftInactive, entity.RoleApplicant},
	{workflow.StateDraft, entity.RoleDAC}:              {entity.EmailDraftInactive, entity.RoleApplicant},
	{workflow.StateDraft, entity.RoleSystem}:           {entity.EmailDraftInactive, entity.RoleApplicant},

	{workflow.StateInstitutionalRepReview, entity.RoleApplicant}:        {entity.EmailRepReviewPending, entity.RoleInstitutionalRep},
	{workflow.StateInstitutionalRepReview, entity.RoleInstitutionalRep}: {entity.EmailRepReviewPending, entity.RoleInstitutionalRep},
	{workflow.StateInstitutionalRepReview, entity.RoleDAC}:              {entity.EmailRepReviewPending, entity.RoleInstitutionalRep},
	{workflow.StateInstitutionalRepReview, entity.RoleSystem}:           {entity.EmailRepReviewPending, entity.RoleInstitutionalRep},

	{workflow.StateRepRevision, entity.RoleApplicant}:        {entity.EmailRepRevisionsOutstanding, entity.RoleApplicant},
	{workflow.StateRepRevision, entity.RoleInstitutionalRep}: {entity.EmailRepRevisionsOutstanding, entity.RoleApplicant},
	{workflow.StateRepRevision, entity.RoleDAC}:              {entity.EmailRepRevisionsOutstanding, entity.RoleApplicant},
	{workflow.StateRepRevision, entity.RoleSystem}:           {entity.EmailRepRevisionsOutstanding, entity.RoleApplicant},

	{workflow.StateDACReview, entity.RoleApplicant}:        {entity.EmailDACReviewPending, entity.RoleDAC},
	{workflow.StateDACReview, entity.RoleInstitutionalRep}: {entity.EmailDACReviewPending, entity.RoleDAC},
	{workflow.StateDACReview, entity.RoleDAC}:              {entity.EmailDACReviewPending, entity.RoleDAC},
	{workflow.StateDACReview, entity.RoleSystem}:           {entity.EmailDACReviewPending, entity.RoleDAC},

	{workflow.StateDACRevisionsRequested, entity.RoleApplicant}:        {entity.EmailDACRevisionsOutstanding, entity.RoleApplicant},
	{workflow.StateDACRevisionsRequested, entity.RoleInstitutionalRep}: {entity.EmailDACRevisionsOutstanding, entity.RoleApplicant},
	{workflow.StateDACRevisionsRequested, entity.RoleDAC}:              {entity.EmailDACRevisionsOutstanding, entity.RoleApplicant},
	{workflow.StateDACRevisionsRequested, entity.RoleSystem}:           {entity.EmailDACRevisionsOutstanding, entity.RoleApplicant},
}

// ActionableStates are the states the scheduler inspects
var ActionableStates = []workflow.State{
	workflow.StateDraft,
	workflow.StateInstitutionalRepReview,
	workflow.StateRepRevision,
	workflow.StateDACReview,
	workflow.StateDACRevisionsRequested,
}

// LookupRule returns the reminder for an application in state whose last action was by lastActor
func LookupRule(state workflow.State, lastActor entity.Role) (Rule, bool) {
	r, ok := rules[ruleKey{state: state, lastActor: lastActor}]
	return r, ok
}
