// Package workflow holds the pure transition rules for tasks and join
// requests. Both the command services and the client sync core validate
// against the same tables, so a transition rejected here is rejected
// everywhere, deterministically.
package workflow

import (
	"errors"
	"fmt"
)

// Role identifies the actor attempting a transition, relative to the entity.
type Role string

const (
	RoleCreator   Role = "creator"   // project creator
	RoleAssignee  Role = "assignee"  // user a task is assigned to
	RoleRequester Role = "requester" // user who sent a join request
	RoleNone      Role = "none"
)

// ErrInvalidTransition is matched by errors.Is for every transition rejection.
var ErrInvalidTransition = errors.New("invalid transition")

// InvalidTransitionError describes a rejected transition attempt.
type InvalidTransitionError struct {
	Entity string
	Role   Role
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%s may not delete %s in state %s", e.Role, e.Entity, e.From)
	}
	return fmt.Sprintf("%s may not move %s from %s to %s", e.Role, e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
