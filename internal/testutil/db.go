// Package testutil builds throwaway databases and fixture rows for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/database"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var counter atomic.Int64

// SetupTestDB creates a migrated file-backed SQLite database private to the test.
// A file (not :memory:) keeps every pooled connection on the same data, and
// immediate transactions make concurrent writers queue instead of failing.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "siteproof.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL&_foreign_keys=off", path)

	db, err := gorm.Open(sqlite.Open(dsn), database.Options())
	require.NoError(t, err, "failed to open sqlite test database")
	require.NoError(t, database.AutoMigrate(db), "failed to migrate test database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// NewLogger returns a logger that discards output
func NewLogger() *zap.Logger {
	return zap.NewNop()
}

func next() int64 {
	return counter.Add(1)
}

// CreateCompany creates a tenant company
func CreateCompany(t *testing.T, db *gorm.DB, name string) *domain.Company {
	t.Helper()
	company := &domain.Company{Name: name, ABN: fmt.Sprintf("%011d", next())}
	require.NoError(t, db.Create(company).Error)
	return company
}

// CreateUser creates an active user in the company with the given company role
func CreateUser(t *testing.T, db *gorm.DB, companyID uuid.UUID, role domain.Role) *domain.User {
	t.Helper()
	n := next()
	user := &domain.User{
		CompanyID:     companyID,
		Email:         fmt.Sprintf("user%d@example.test", n),
		FullName:      fmt.Sprintf("Test User %d", n),
		RoleInCompany: role,
		IsActive:      true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProject creates an active project owned by the company
func CreateProject(t *testing.T, db *gorm.DB, companyID uuid.UUID) *domain.Project {
	t.Helper()
	n := next()
	project := &domain.Project{
		CompanyID:     companyID,
		Name:          fmt.Sprintf("Project %d", n),
		ProjectNumber: fmt.Sprintf("P-%04d", n),
		Status:        domain.ProjectStatusActive,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

// AddMember gives a user an active role on the project
func AddMember(t *testing.T, db *gorm.DB, projectID, userID uuid.UUID, role domain.Role) *domain.ProjectUser {
	t.Helper()
	pu := &domain.ProjectUser{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		Status:    domain.MembershipStatusActive,
	}
	require.NoError(t, db.Create(pu).Error)
	return pu
}

// CreateSubcontractor creates an approved subcontractor company on the project
func CreateSubcontractor(t *testing.T, db *gorm.DB, projectID uuid.UUID) *domain.SubcontractorCompany {
	t.Helper()
	sc := &domain.SubcontractorCompany{
		ProjectID:   projectID,
		CompanyName: fmt.Sprintf("Subbie %d", next()),
		Status:      domain.SubcontractorStatusApproved,
	}
	require.NoError(t, db.Create(sc).Error)
	return sc
}

// LinkSubcontractorUser makes the user an active member of the subcontractor company
func LinkSubcontractorUser(t *testing.T, db *gorm.DB, subcontractorID, userID uuid.UUID) *domain.SubcontractorUser {
	t.Helper()
	su := &domain.SubcontractorUser{
		UserID:                 userID,
		SubcontractorCompanyID: subcontractorID,
		Role:                   domain.SubcontractorRoleMember,
		Status:                 domain.MembershipStatusActive,
	}
	require.NoError(t, db.Create(su).Error)
	return su
}

// CreateLot creates a chainage lot in not_started
func CreateLot(t *testing.T, db *gorm.DB, projectID, createdBy uuid.UUID) *domain.Lot {
	t.Helper()
	lot := &domain.Lot{
		ProjectID:   projectID,
		LotNumber:   fmt.Sprintf("LOT-%04d", next()),
		Description: "earthworks",
		LotType:     domain.LotTypeChainage,
		Status:      domain.LotStatusNotStarted,
		CreatedByID: createdBy,
	}
	require.NoError(t, db.Create(lot).Error)
	return lot
}

// AssignLot adds an active assignment row for the subcontractor on the lot
func AssignLot(t *testing.T, db *gorm.DB, lot *domain.Lot, subcontractorID, assignedBy uuid.UUID, canComplete, requiresVerification bool) *domain.LotSubcontractorAssignment {
	t.Helper()
	a := &domain.LotSubcontractorAssignment{
		LotID:                   lot.ID,
		ProjectID:               lot.ProjectID,
		SubcontractorCompanyID:  subcontractorID,
		CanCompleteITP:          canComplete,
		ITPRequiresVerification: requiresVerification,
		Status:                  domain.AssignmentStatusActive,
		AssignedByID:            assignedBy,
		AssignedAt:              time.Now().UTC(),
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

// CreateDocket creates a draft docket for the subcontractor
func CreateDocket(t *testing.T, db *gorm.DB, projectID, subcontractorID, createdBy uuid.UUID) *domain.Docket {
	t.Helper()
	d := &domain.Docket{
		ProjectID:              projectID,
		SubcontractorCompanyID: subcontractorID,
		DocketDate:             time.Now().UTC().Truncate(24 * time.Hour),
		Status:                 domain.DocketStatusDraft,
		LabourHoursSubmitted:   8,
		PlantHoursSubmitted:    4,
		CreatedByID:            createdBy,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}
