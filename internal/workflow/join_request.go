package workflow

// RequestStatus is the lifecycle state of a join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// ValidRequestStatus reports whether s is a known join-request status.
func ValidRequestStatus(s string) bool {
	switch RequestStatus(s) {
	case RequestPending, RequestAccepted, RequestRejected:
		return true
	}
	return false
}

// RequestDecided reports whether the creator has already ruled on the request.
func RequestDecided(s RequestStatus) bool {
	return s == RequestAccepted || s == RequestRejected
}

// CheckRequestDecision validates the creator's ruling on a pending request.
func CheckRequestDecision(role Role, from, to RequestStatus) error {
	if role == RoleCreator && from == RequestPending && RequestDecided(to) {
		return nil
	}
	return &InvalidTransitionError{Entity: "join request", Role: role, From: string(from), To: string(to)}
}

// CheckRequestDelete validates removal of a join request. Deletion ends the
// entity's lifecycle: withdrawal by the requester while pending, or
// acknowledgment/dismissal of a decided request by the requester or creator.
// A creator cannot delete a pending request; it must be decided first.
func CheckRequestDelete(role Role, from RequestStatus) error {
	switch role {
	case RoleRequester:
		return nil // withdraw (PENDING) or acknowledge (decided)
	case RoleCreator:
		if RequestDecided(from) {
			return nil // dismiss after decision
		}
	}
	return &InvalidTransitionError{Entity: "join request", Role: role, From: string(from)}
}
