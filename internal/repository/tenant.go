package repository

import (
	"strings"

	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// DefaultPageSize applies when the caller does not ask for a limit
const DefaultPageSize = 20

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// fieldMap maps API field names to database column names; unknown fields fall back
// to defaultColumn so user input never reaches the SQL text.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// NormalizePage clamps paging input to sane bounds
func NormalizePage(p domain.PageRequest) domain.PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// paginate counts, orders and pages query into dest. Preloads apply to the page
// query only, never to the count.
func paginate(query *gorm.DB, page domain.PageRequest, fieldMap map[string]string, defaultColumn string, dest interface{}, preloads ...string) (int64, error) {
	page = NormalizePage(page)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}

	order := BuildOrderClause(SortConfig{Field: page.SortBy, Order: ParseSortOrder(page.SortOrder)}, fieldMap, defaultColumn)
	for _, p := range preloads {
		query = query.Preload(p)
	}
	err := query.
		Order(order).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(dest).Error
	return total, err
}

// lotPredicate matches lots whose effective assignment contains @sub. It is the
// SQL form of access.EffectiveAssignments and must stay in step with it.
func lotPredicate(alias string) string {
	return "(" + alias + ".assigned_subcontractor_id = @sub OR EXISTS (" +
		"SELECT 1 FROM lot_subcontractor_assignments lsa" +
		" WHERE lsa.lot_id = " + alias + ".id" +
		" AND lsa.subcontractor_company_id = @sub" +
		" AND lsa.status = @active))"
}

func scopeArgs(scope access.Scope) map[string]interface{} {
	return map[string]interface{}{
		"sub":    *scope.SubcontractorCompanyID,
		"active": domain.AssignmentStatusActive,
		"user":   scope.UserID,
	}
}

// ApplyLotScope narrows a query on the lots table
func ApplyLotScope(query *gorm.DB, scope access.Scope) *gorm.DB {
	if !scope.Restricted {
		return query
	}
	if scope.SubcontractorCompanyID == nil {
		return query.Where("1 = 0")
	}
	return query.Where(lotPredicate("lots"), scopeArgs(scope))
}

// ApplyLotChildScope narrows a query on a table carrying a lot_id column
func ApplyLotChildScope(query *gorm.DB, scope access.Scope, table string) *gorm.DB {
	if !scope.Restricted {
		return query
	}
	if scope.SubcontractorCompanyID == nil {
		return query.Where("1 = 0")
	}
	return query.Where(
		"EXISTS (SELECT 1 FROM lots WHERE lots.id = "+table+".lot_id AND "+lotPredicate("lots")+")",
		scopeArgs(scope),
	)
}

// ApplyNCRScope narrows a query on the ncrs table. Without a subcontractor company
// only NCRs naming the user responsible remain.
func ApplyNCRScope(query *gorm.DB, scope access.Scope) *gorm.DB {
	if !scope.Restricted {
		return query
	}
	if scope.SubcontractorCompanyID == nil {
		return query.Where("ncrs.responsible_user_id = ?", scope.UserID)
	}
	return query.Where(
		"(ncrs.responsible_user_id = @user OR EXISTS ("+
			"SELECT 1 FROM ncr_lots nl JOIN lots ON lots.id = nl.lot_id"+
			" WHERE nl.ncr_id = ncrs.id AND "+lotPredicate("lots")+"))",
		scopeArgs(scope),
	)
}

// ApplyDocketScope narrows a query on the dockets table
func ApplyDocketScope(query *gorm.DB, scope access.Scope) *gorm.DB {
	if !scope.Restricted {
		return query
	}
	if scope.SubcontractorCompanyID == nil {
		return query.Where("1 = 0")
	}
	return query.Where("dockets.subcontractor_company_id = ?", *scope.SubcontractorCompanyID)
}
