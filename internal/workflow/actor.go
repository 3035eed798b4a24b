package workflow

import (
	"fmt"
	"net/http"

	"github.com/spec-kit/hubops/internal/domain"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// Actor is the authenticated principal invoking a transition.
type Actor struct {
	ID           string
	Role         domain.Role
	DepartmentID *string
}

// ActorFromUser builds an Actor from a directory user.
func ActorFromUser(user *domain.User) Actor {
	return Actor{
		ID:           user.ID,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
	}
}

func (a Actor) inDepartment(deptID *string) bool {
	return deptID != nil && a.DepartmentID != nil && *a.DepartmentID == *deptID
}

func (a Actor) isAssignedStaff(ticket *domain.Ticket) bool {
	return ticket.AssignedStaffID != nil && *ticket.AssignedStaffID == a.ID
}

// authorize is a pure function deciding whether the actor may invoke the
// action on the ticket. It checks role and ownership only; state-machine
// guards live in the engine. Failures never mutate anything.
func authorize(actor Actor, action Action, ticket *domain.Ticket) error {
	switch action.(type) {
	case Assign, GMApprove, GMReject:
		if actor.Role != domain.RoleGM {
			return unauthorized(fmt.Sprintf("%s requires the GM role", action.Name()))
		}
	case Accept, AssignStaff, Resolve, ApproveWork, RejectWork:
		if actor.Role != domain.RoleDeptHead {
			return unauthorized(fmt.Sprintf("%s requires a department head", action.Name()))
		}
		if !actor.inDepartment(ticket.AssignedDeptID) {
			return unauthorized("ticket is not assigned to your department")
		}
	case StaffAccept, StaffReject, SubmitWork:
		if actor.Role != domain.RoleStaff {
			return unauthorized(fmt.Sprintf("%s requires a staff member", action.Name()))
		}
		if !actor.isAssignedStaff(ticket) {
			return unauthorized("ticket is not delegated to you")
		}
	default:
		return unauthorized("unknown action")
	}
	return nil
}

// unauthorized is the workflow's ownership/role failure: the caller is
// authenticated but not allowed to invoke this transition.
func unauthorized(message string) error {
	return apperrors.NewDomainError(apperrors.CodeUnauthorized, message, http.StatusForbidden, nil)
}
