/*
authority.go - Approval authority resolution

PURPOSE:
  Answers "may this person decide that person's request?". The engine
  treats authorization as a fact it is handed, this file is where the
  fact comes from: the reporting chain plus HR/admin roles, read from
  the employee store.

SEE ALSO:
  - leave/lifecycle.go: ApproverAuthority consumer
*/
package api

import (
	"context"

	"github.com/peopleops/leave-engine/leave"
)

// ManagerAuthority grants decision rights to the employee's direct
// manager and to HR/admin roles.
type ManagerAuthority struct {
	Employees leave.EmployeeStore
}

func NewManagerAuthority(employees leave.EmployeeStore) *ManagerAuthority {
	return &ManagerAuthority{Employees: employees}
}

func (a *ManagerAuthority) CanDecide(ctx context.Context, approverID, employeeID string) (bool, error) {
	approver, err := a.Employees.GetEmployee(ctx, approverID)
	if err != nil {
		return false, err
	}
	if approver.Role.CanActForOthers() {
		return true, nil
	}
	emp, err := a.Employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return approver.Role == leave.RoleManager && emp.ManagerID == approver.ID, nil
}
