package vocabulary

import "github.com/Veraticus/sift/internal/model"

// DefaultFactKinds returns the built-in fact kinds.
func DefaultFactKinds() []model.FactKind {
	return []model.FactKind{
		{
			Kind:            "Invoice",
			Description:     "A bill issued to a customer",
			RequiredFields:  []string{"invoice_number", "amount"},
			SignatureFields: []string{"invoice_number", "amount", "due_date", "customer", "billed_to"},
			Keywords:        []string{`invoice`, `bill(ing|ed)?`},
		},
		{
			Kind:            "PaymentRecord",
			Description:     "Money received or sent",
			RequiredFields:  []string{"amount", "paid_on"},
			SignatureFields: []string{"amount", "paid_on", "payer", "reference", "payment_method"},
			Keywords:        []string{`payments?`, `paid`, `receipt`, `remittance`},
		},
		{
			Kind:            "Contract",
			Description:     "A signed agreement with a counterparty",
			RequiredFields:  []string{"counterparty", "start_date"},
			SignatureFields: []string{"counterparty", "start_date", "end_date", "contract_value", "signed_on"},
			Keywords:        []string{`contract`, `agreement`, `msa`, `sow`},
		},
		{
			Kind:            "Approval",
			Description:     "A recorded sign-off decision",
			RequiredFields:  []string{"approver", "decision"},
			SignatureFields: []string{"approver", "decision", "approved_on"},
			Keywords:        []string{`approv(al|ed)`, `sign[- ]?off`},
		},
		{
			Kind:            "Milestone",
			Description:     "A dated deliverable",
			RequiredFields:  []string{"due_date"},
			SignatureFields: []string{"due_date", "owner", "milestone"},
			Keywords:        []string{`milestone`, `deliverable`, `launch`},
		},
	}
}

// statusFieldNames are the normalized field names treated as status-like.
var statusFieldNames = map[string]bool{
	"status":   true,
	"state":    true,
	"stage":    true,
	"progress": true,
}

// statusValues maps recognized status values onto normalized states.
var statusValues = map[string]string{
	"done":           StateDone,
	"complete":       StateDone,
	"completed":      StateDone,
	"closed":         StateDone,
	"finished":       StateDone,
	"resolved":       StateDone,
	"in progress":    StateInProgress,
	"in_progress":    StateInProgress,
	"working on it":  StateInProgress,
	"started":        StateInProgress,
	"active":         StateInProgress,
	"doing":          StateInProgress,
	"in review":      StateInReview,
	"review":         StateInReview,
	"todo":           StateTodo,
	"to do":          StateTodo,
	"not started":    StateTodo,
	"open":           StateTodo,
	"new":            StateTodo,
	"backlog":        StateTodo,
	"blocked":        StateBlocked,
	"stuck":          StateBlocked,
	"on hold":        StateBlocked,
	"waiting":        StateBlocked,
	"cancelled":      StateCancelled,
	"canceled":       StateCancelled,
	"won't do":       StateCancelled,
	"wont do":        StateCancelled,
}

// noteFieldNames are normalized field names that carry free text.
var noteFieldNames = map[string]bool{
	"note":        true,
	"notes":       true,
	"comment":     true,
	"comments":    true,
	"description": true,
	"details":     true,
	"update":      true,
	"updates":     true,
	"memo":        true,
}

// externalWorkPattern marks work owned by someone outside the system.
const externalWorkPattern = `\b(vendor|supplier|third[- ]party|external|contractor|outsourced|agency|waiting on)\b`
