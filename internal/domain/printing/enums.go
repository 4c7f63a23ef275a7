package printing

// Side represents the sidedness of a print job
type Side string

const (
	SideSimplex Side = "simplex" // single-sided
	SideDuplex  Side = "duplex"  // double-sided
)

// IsValid checks if the Side is a valid value
func (s Side) IsValid() bool {
	switch s {
	case SideSimplex, SideDuplex:
		return true
	}
	return false
}

// String returns the string representation of Side
func (s Side) String() string {
	return string(s)
}

// AllSides returns all valid Side values
func AllSides() []Side {
	return []Side{SideSimplex, SideDuplex}
}

// SubmissionState represents the progress of a print submission
type SubmissionState string

const (
	SubmissionReceived    SubmissionState = "RECEIVED"    // request accepted
	SubmissionDirect      SubmissionState = "DIRECT"      // source document printed as-is
	SubmissionSubsetted   SubmissionState = "SUBSETTED"   // page subset materialized
	SubmissionSubmitted   SubmissionState = "SUBMITTED"   // renderer exited
	SubmissionCorrelating SubmissionState = "CORRELATING" // polling the spooler
	SubmissionResolved    SubmissionState = "RESOLVED"    // spooler job found
	SubmissionUnresolved  SubmissionState = "UNRESOLVED"  // no spooler job found in the poll window
)

// IsValid checks if the SubmissionState is a valid value
func (s SubmissionState) IsValid() bool {
	switch s {
	case SubmissionReceived, SubmissionDirect, SubmissionSubsetted, SubmissionSubmitted,
		SubmissionCorrelating, SubmissionResolved, SubmissionUnresolved:
		return true
	}
	return false
}

// String returns the string representation of SubmissionState
func (s SubmissionState) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s SubmissionState) IsTerminal() bool {
	return s == SubmissionResolved || s == SubmissionUnresolved
}

// CanTransitionTo checks if the state can transition to the target state
func (s SubmissionState) CanTransitionTo(target SubmissionState) bool {
	switch s {
	case SubmissionReceived:
		return target == SubmissionDirect || target == SubmissionSubsetted
	case SubmissionDirect, SubmissionSubsetted:
		return target == SubmissionSubmitted
	case SubmissionSubmitted:
		return target == SubmissionCorrelating
	case SubmissionCorrelating:
		return target == SubmissionResolved || target == SubmissionUnresolved
	case SubmissionResolved, SubmissionUnresolved:
		return false
	}
	return false
}
