package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"github.com/juggajay/site-proof-sub006/internal/storage"
	"github.com/juggajay/site-proof-sub006/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// site is one head-contractor company with a project staffed across the roles
// the workflows care about, plus one subcontractor company with a linked user.
type site struct {
	db       *gorm.DB
	orch     *service.Orchestrator
	guard    *service.Guard
	identity *service.IdentityService

	projects      *service.ProjectService
	lots          *service.LotService
	ncrs          *service.NCRService
	itp           *service.ITPService
	holdPoints    *service.HoldPointService
	dockets       *service.DocketService
	drawings      *service.DrawingService
	notifications *service.NotificationService
	audit         *service.AuditLogService

	company *domain.Company
	project *domain.Project
	sub     *domain.SubcontractorCompany

	owner    *domain.User
	pm       *domain.User
	qm       *domain.User
	engineer *domain.User
	foreman  *domain.User
	viewer   *domain.User
	subUser  *domain.User
}

func newSite(t *testing.T) *site {
	t.Helper()
	return newSiteOn(t, testutil.SetupTestDB(t))
}

// newSiteOn builds the fixture on an already migrated database
func newSiteOn(t *testing.T, db *gorm.DB) *site {
	t.Helper()

	logger := testutil.NewLogger()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	orch := service.NewOrchestrator(db, logger)
	guard := service.NewGuard(access.NewEvaluator(access.DefaultMatrix()), logger)

	s := &site{
		db:            db,
		orch:          orch,
		guard:         guard,
		identity:      service.NewIdentityService(repository.NewRepositories(db), logger),
		projects:      service.NewProjectService(orch, guard, logger),
		lots:          service.NewLotService(orch, guard, logger),
		ncrs:          service.NewNCRService(orch, guard, logger),
		itp:           service.NewITPService(orch, guard, logger),
		holdPoints:    service.NewHoldPointService(orch, guard, logger),
		dockets:       service.NewDocketService(orch, guard, logger),
		drawings:      service.NewDrawingService(orch, guard, store, logger),
		notifications: service.NewNotificationService(repository.NewNotificationRepository(db), logger),
		audit:         service.NewAuditLogService(orch, guard, logger),
	}

	s.company = testutil.CreateCompany(t, db, "Harbour Civil")
	s.project = testutil.CreateProject(t, db, s.company.ID)
	s.sub = testutil.CreateSubcontractor(t, db, s.project.ID)

	s.owner = testutil.CreateUser(t, db, s.company.ID, domain.RoleOwner)
	s.pm = s.member(t, domain.RoleProjectManager)
	s.qm = s.member(t, domain.RoleQualityManager)
	s.engineer = s.member(t, domain.RoleSiteEngineer)
	s.foreman = s.member(t, domain.RoleForeman)
	s.viewer = s.member(t, domain.RoleViewer)
	s.subUser = s.subcontractorUser(t, s.sub)

	return s
}

// member creates a company user holding role on the project
func (s *site) member(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	u := testutil.CreateUser(t, s.db, s.company.ID, domain.RoleMember)
	testutil.AddMember(t, s.db, s.project.ID, u.ID, role)
	return u
}

// subcontractorUser creates a user of another company holding the subcontractor
// role on the project and linked to sc
func (s *site) subcontractorUser(t *testing.T, sc *domain.SubcontractorCompany) *domain.User {
	t.Helper()
	other := testutil.CreateCompany(t, s.db, sc.CompanyName)
	u := testutil.CreateUser(t, s.db, other.ID, domain.RoleMember)
	testutil.AddMember(t, s.db, s.project.ID, u.ID, domain.RoleSubcontractor)
	testutil.LinkSubcontractorUser(t, s.db, sc.ID, u.ID)
	return u
}

// as resolves the membership of a user
func (s *site) as(t *testing.T, u *domain.User) *access.Membership {
	t.Helper()
	m, err := s.identity.Resolve(context.Background(), u.ID)
	require.NoError(t, err)
	return m
}

func (s *site) notificationsFor(t *testing.T, userID uuid.UUID, kind domain.NotificationType) []domain.Notification {
	t.Helper()
	var rows []domain.Notification
	require.NoError(t, s.db.Where("user_id = ? AND type = ?", userID, string(kind)).Find(&rows).Error)
	return rows
}

func (s *site) countNotifications(t *testing.T, kind domain.NotificationType, entityID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&domain.Notification{}).
		Where("type = ? AND entity_id = ?", string(kind), entityID).
		Count(&n).Error)
	return n
}

func (s *site) createLot(t *testing.T, number string) *domain.LotDTO {
	t.Helper()
	lot, err := s.lots.Create(context.Background(), s.as(t, s.pm), &domain.CreateLotRequest{
		ProjectID: s.project.ID,
		LotNumber: number,
		LotType:   domain.LotTypeChainage,
	})
	require.NoError(t, err)
	return lot
}

func requireCode(t *testing.T, err error, kind domain.ErrorKind, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "unexpected error kind: %v", err)
	require.True(t, domain.IsCode(err, code), "expected code %s, got %v", code, err)
}

func ptr[T any](v T) *T {
	return &v
}
