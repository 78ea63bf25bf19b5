package extract

// Status is the lifecycle stage of an application process.
type Status string

const (
	StatusUnknown       Status = "UNKNOWN"
	StatusApplied       Status = "APPLIED"
	StatusPending       Status = "PENDING"
	StatusCommunication Status = "COMMUNICATION"
	StatusAssessment    Status = "ASSESSMENT"
	StatusInterview     Status = "INTERVIEW"
	StatusRejected      Status = "REJECTED"
	StatusOffer         Status = "OFFER"
)

// statusRank totally orders statuses. Higher rank supersedes lower rank;
// REJECTED is reachable from any rank regardless of ordering.
var statusRank = map[Status]int{
	StatusUnknown:       0,
	StatusApplied:       1,
	StatusPending:       2,
	StatusCommunication: 2,
	StatusAssessment:    3,
	StatusInterview:     4,
	StatusRejected:      5,
	StatusOffer:         6,
}

// Rank returns the progression rank of s. Unrecognized statuses rank 0.
func (s Status) Rank() int {
	return statusRank[s]
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Weak reports whether s may be overridden by keyword correction.
// Weak statuses are APPLIED, PENDING, COMMUNICATION, and UNKNOWN.
func (s Status) Weak() bool {
	switch s {
	case StatusUnknown, StatusApplied, StatusPending, StatusCommunication:
		return true
	}
	return false
}

// Record is the canonical structured result of extracting one message.
// It is produced fresh per message and never persisted directly.
type Record struct {
	Company     string `json:"company_name"`
	Position    string `json:"position"`
	Status      Status `json:"status"`
	Summary     string `json:"summary"`
	IsRejection bool   `json:"is_rejection"`
	NextStep    string `json:"next_step"`
}

// UnknownCompany is the sentinel used when no employer could be derived.
const UnknownCompany = "Unknown"
