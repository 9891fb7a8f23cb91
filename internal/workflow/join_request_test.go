package workflow

import (
	"errors"
	"testing"
)

func TestCheckRequestDecision_Creator(t *testing.T) {
	if err := CheckRequestDecision(RoleCreator, RequestPending, RequestAccepted); err != nil {
		t.Errorf("creator accept should be allowed, got %v", err)
	}
	if err := CheckRequestDecision(RoleCreator, RequestPending, RequestRejected); err != nil {
		t.Errorf("creator reject should be allowed, got %v", err)
	}
}

func TestCheckRequestDecision_Rejected(t *testing.T) {
	cases := []struct {
		name string
		role Role
		from RequestStatus
		to   RequestStatus
	}{
		{"requester deciding own request", RoleRequester, RequestPending, RequestAccepted},
		{"double accept", RoleCreator, RequestAccepted, RequestAccepted},
		{"flip decision", RoleCreator, RequestRejected, RequestAccepted},
		{"decide to pending", RoleCreator, RequestPending, RequestPending},
		{"outsider", RoleNone, RequestPending, RequestAccepted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRequestDecision(tc.role, tc.from, tc.to)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("CheckRequestDecision(%s, %s, %s) = %v, want invalid transition",
					tc.role, tc.from, tc.to, err)
			}
		})
	}
}

func TestCheckRequestDelete(t *testing.T) {
	// Requester may withdraw while pending and acknowledge once decided.
	for _, from := range []RequestStatus{RequestPending, RequestAccepted, RequestRejected} {
		if err := CheckRequestDelete(RoleRequester, from); err != nil {
			t.Errorf("requester delete from %s should be allowed, got %v", from, err)
		}
	}

	// Creator may only dismiss a decided request.
	for _, from := range []RequestStatus{RequestAccepted, RequestRejected} {
		if err := CheckRequestDelete(RoleCreator, from); err != nil {
			t.Errorf("creator dismiss from %s should be allowed, got %v", from, err)
		}
	}
	if err := CheckRequestDelete(RoleCreator, RequestPending); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("creator deleting a pending request must be rejected, got %v", err)
	}

	if err := CheckRequestDelete(RoleNone, RequestPending); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("outsider delete must be rejected, got %v", err)
	}
}

func TestValidRequestStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "ACCEPTED", "REJECTED"} {
		if !ValidRequestStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if ValidRequestStatus("WITHDRAWN") {
		t.Error("WITHDRAWN should not be valid")
	}
}
