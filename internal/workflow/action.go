package workflow

import "github.com/spec-kit/hubops/internal/domain"

// Action is a closed set of workflow transitions. Each concrete type carries
// only the parameters its transition needs, so an invalid parameter
// combination cannot be expressed.
type Action interface {
	Name() string
	isAction()
}

// Assign is the GM triage step routing a ticket to a department. It also
// re-enters a Rejected ticket into the flow.
type Assign struct {
	DepartmentID string
}

// Accept is the department head taking on the work themselves, committing to
// an estimated duration.
type Accept struct {
	Duration domain.DurationInput
}

// AssignStaff delegates an assigned ticket to a staff member of the same
// department.
type AssignStaff struct {
	StaffID string
}

// StaffAccept is the delegated staff member accepting the job with an
// estimated duration.
type StaffAccept struct {
	Duration domain.DurationInput
}

// StaffReject is the delegated staff member declining the job, returning it
// to the department head.
type StaffReject struct{}

// Resolve is the department head closing out self-performed work with proof.
type Resolve struct {
	ProofURL string
}

// SubmitWork is the staff member submitting proof for review.
type SubmitWork struct {
	ProofURL string
}

// ApproveWork is the department head passing staff work up to GM review.
type ApproveWork struct{}

// RejectWork is the department head sending staff work back for rework.
type RejectWork struct{}

// GMApprove is the final GM sign-off resolving the ticket.
type GMApprove struct{}

// GMReject is the GM rejecting submitted work with a mandatory message.
type GMReject struct {
	Message string
}

func (Assign) Name() string      { return "assign" }
func (Accept) Name() string      { return "accept" }
func (AssignStaff) Name() string { return "assign_staff" }
func (StaffAccept) Name() string { return "staff_accept" }
func (StaffReject) Name() string { return "staff_reject" }
func (Resolve) Name() string     { return "resolve" }
func (SubmitWork) Name() string  { return "staff_submit_work" }
func (ApproveWork) Name() string { return "dept_approve_work" }
func (RejectWork) Name() string  { return "dept_reject_work" }
func (GMApprove) Name() string   { return "gm_approve_work" }
func (GMReject) Name() string    { return "gm_reject_work" }

func (Assign) isAction()      {}
func (Accept) isAction()      {}
func (AssignStaff) isAction() {}
func (StaffAccept) isAction() {}
func (StaffReject) isAction() {}
func (Resolve) isAction()     {}
func (SubmitWork) isAction()  {}
func (ApproveWork) isAction() {}
func (RejectWork) isAction()  {}
func (GMApprove) isAction()   {}
func (GMReject) isAction()    {}
