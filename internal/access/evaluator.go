// Package access decides who may see or mutate a quality record. It is pure:
// callers load the membership and the project, the evaluator never touches storage.
package access

import (
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// Decision is the outcome of an allowed evaluation.
type Decision struct {
	Role  domain.Role
	Scope Scope
}

// scopedEntities are narrowed for subcontractor roles.
var scopedEntities = map[string]bool{
	domain.EntityLot:       true,
	domain.EntityNCR:       true,
	domain.EntityDocket:    true,
	domain.EntityITP:       true,
	domain.EntityHoldPoint: true,
}

// Evaluator applies the access rules against a permission matrix.
type Evaluator struct {
	matrix Matrix
}

// NewEvaluator creates an evaluator over matrix
func NewEvaluator(matrix Matrix) *Evaluator {
	return &Evaluator{matrix: matrix}
}

// Matrix returns the evaluator's permission matrix
func (e *Evaluator) Matrix() Matrix {
	return e.matrix
}

// EffectiveRole resolves the role the user acts with on project. An active
// project membership always decides; a company owner or admin without one falls
// back to their company standing on projects of their own company.
func (e *Evaluator) EffectiveRole(m *Membership, project *domain.Project) (domain.Role, error) {
	if m == nil {
		return "", domain.NewUnauthorizedError("authentication required")
	}
	if project == nil {
		return "", domain.NewForbiddenError(domain.CodeProjectAccessDenied, "no access to this project")
	}
	if role, ok := m.ProjectRole(project.ID); ok {
		return role, nil
	}
	if project.CompanyID == m.CompanyID && m.CompanyRole.IsCompanyAdmin() {
		return m.CompanyRole, nil
	}
	return "", domain.NewForbiddenError(domain.CodeProjectAccessDenied, "no access to this project")
}

// Evaluate authorizes action on entity within project. A nil project is denied
// exactly like a project of another tenant.
func (e *Evaluator) Evaluate(m *Membership, project *domain.Project, entity string, action Action) (Decision, error) {
	role, err := e.EffectiveRole(m, project)
	if err != nil {
		return Decision{}, err
	}

	if !e.matrix.Allows(role, entity, action) {
		return Decision{}, domain.NewForbiddenError(
			domain.CodeInsufficientRole,
			"role "+string(role)+" may not "+string(action)+" "+entity,
		)
	}

	decision := Decision{Role: role, Scope: Unrestricted()}
	if role.IsSubcontractor() && scopedEntities[entity] {
		decision.Scope = Scope{Restricted: true, UserID: m.UserID}
		if companyID, ok := m.SubcontractorCompany(project.ID); ok {
			decision.Scope.SubcontractorCompanyID = &companyID
		}
	}
	return decision, nil
}
