package workflow

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskRequested       TaskStatus = "REQUESTED"        // assigned, not yet acknowledged
	TaskPending         TaskStatus = "PENDING"          // assignee accepted / viewed
	TaskRequestComplete TaskStatus = "REQUEST_COMPLETE" // assignee submitted completion reference
	TaskCompleted       TaskStatus = "COMPLETED"        // creator confirmed
	TaskRejected        TaskStatus = "REJECTED"         // assignee declined
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskRequested, TaskPending, TaskRequestComplete, TaskCompleted, TaskRejected:
		return true
	}
	return false
}

// TaskTerminal reports whether s admits no further status transitions.
func TaskTerminal(s TaskStatus) bool {
	return s == TaskCompleted || s == TaskRejected
}

// CheckTaskTransition validates a status change attempted by role.
// completionRef is the pull-request/reference URL; it is required for the
// PENDING → REQUEST_COMPLETE move and ignored elsewhere.
//
// Note the REQUESTED → PENDING move doubles as the "task viewed" transition:
// opening an assigned task accepts it. That coupling is deliberate and lives
// here as a named transition instead of inside rendering code.
func CheckTaskTransition(role Role, from, to TaskStatus, completionRef string) error {
	switch role {
	case RoleAssignee:
		if from == TaskRequested && (to == TaskPending || to == TaskRejected) {
			return nil
		}
		if from == TaskPending && to == TaskRequestComplete {
			if completionRef == "" {
				return &InvalidTransitionError{Entity: "task", Role: role, From: string(from), To: string(to)}
			}
			return nil
		}
	case RoleCreator:
		if from == TaskRequestComplete && to == TaskCompleted {
			return nil
		}
	}
	return &InvalidTransitionError{Entity: "task", Role: role, From: string(from), To: string(to)}
}

// CheckTaskDelete validates task deletion, a destructive transition rather
// than a status. Only the project creator may cancel, and only while the
// task sits in PENDING.
func CheckTaskDelete(role Role, from TaskStatus) error {
	if role == RoleCreator && from == TaskPending {
		return nil
	}
	return &InvalidTransitionError{Entity: "task", Role: role, From: string(from)}
}
