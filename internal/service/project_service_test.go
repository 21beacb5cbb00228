package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectService_Create(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	t.Run("company owner creates an active project", func(t *testing.T) {
		got, err := s.projects.Create(ctx, s.as(t, s.owner), &domain.CreateProjectRequest{Name: "Bypass Stage 2", ProjectNumber: "P-200"})
		require.NoError(t, err)
		assert.Equal(t, s.company.ID, got.CompanyID)
		assert.Equal(t, domain.ProjectStatusActive, got.Status)

		// owners reach their company's projects without a project role
		fetched, err := s.projects.GetByID(ctx, s.as(t, s.owner), got.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bypass Stage 2", fetched.Name)
	})

	t.Run("project manager without company standing is refused", func(t *testing.T) {
		_, err := s.projects.Create(ctx, s.as(t, s.pm), &domain.CreateProjectRequest{Name: "Rogue"})
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})

	t.Run("anonymous caller is unauthorized", func(t *testing.T) {
		_, err := s.projects.Create(ctx, nil, &domain.CreateProjectRequest{Name: "x"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestProjectService_Visibility(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	other := testutil.CreateCompany(t, s.db, "Other Civil")
	foreign := testutil.CreateProject(t, s.db, other.ID)

	t.Run("members list their projects", func(t *testing.T) {
		page, err := s.projects.List(ctx, s.as(t, s.viewer), domain.PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, s.project.ID, page.Items[0].ID)
	})

	t.Run("owner lists every company project", func(t *testing.T) {
		testutil.CreateProject(t, s.db, s.company.ID)
		page, err := s.projects.List(ctx, s.as(t, s.owner), domain.PageRequest{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Pagination.Total)
	})

	t.Run("another company's project reads as not found", func(t *testing.T) {
		_, err := s.projects.GetByID(ctx, s.as(t, s.owner), foreign.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestProjectService_Members(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	newcomer := testutil.CreateUser(t, s.db, s.company.ID, domain.RoleMember)

	t.Run("manager adds a member", func(t *testing.T) {
		got, err := s.projects.AddUser(ctx, s.as(t, s.pm), s.project.ID, &domain.AddProjectUserRequest{UserID: newcomer.ID, Role: domain.RoleSiteEngineer})
		require.NoError(t, err)
		assert.Equal(t, domain.MembershipStatusActive, got.Status)

		m := s.as(t, newcomer)
		role, ok := m.ProjectRole(s.project.ID)
		require.True(t, ok)
		assert.Equal(t, domain.RoleSiteEngineer, role)
	})

	t.Run("active member cannot be added twice", func(t *testing.T) {
		_, err := s.projects.AddUser(ctx, s.as(t, s.pm), s.project.ID, &domain.AddProjectUserRequest{UserID: newcomer.ID, Role: domain.RoleViewer})
		requireCode(t, err, domain.KindConflict, domain.CodeDuplicateMember)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.projects.AddUser(ctx, s.as(t, s.pm), s.project.ID, &domain.AddProjectUserRequest{UserID: uuid.New(), Role: domain.RoleViewer})
		requireCode(t, err, domain.KindValidation, domain.CodeValidation)
	})

	t.Run("quality manager may not manage members", func(t *testing.T) {
		_, err := s.projects.AddUser(ctx, s.as(t, s.qm), s.project.ID, &domain.AddProjectUserRequest{UserID: newcomer.ID, Role: domain.RoleViewer})
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})
}

func TestProjectService_Subcontractors(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	sc, err := s.projects.AddSubcontractor(ctx, s.as(t, s.pm), s.project.ID, &domain.CreateSubcontractorRequest{CompanyName: "Kerb & Channel Co", ABN: "51824753556"})
	require.NoError(t, err)
	assert.Equal(t, domain.SubcontractorStatusPendingApproval, sc.Status)

	outside := testutil.CreateCompany(t, s.db, "Kerb & Channel Co")
	crew := testutil.CreateUser(t, s.db, outside.ID, domain.RoleMember)
	testutil.AddMember(t, s.db, s.project.ID, crew.ID, domain.RoleSubcontractor)

	t.Run("linking a user scopes them to the company", func(t *testing.T) {
		got, err := s.projects.AddSubcontractorUser(ctx, s.as(t, s.pm), s.project.ID, sc.ID, &domain.AddSubcontractorUserRequest{UserID: crew.ID, Role: domain.SubcontractorRoleMember})
		require.NoError(t, err)
		assert.Equal(t, sc.ID, got.SubcontractorCompanyID)

		company, ok := s.as(t, crew).SubcontractorCompany(s.project.ID)
		require.True(t, ok)
		assert.Equal(t, sc.ID, company)
	})

	t.Run("company of another project reads as not found", func(t *testing.T) {
		foreign := testutil.CreateSubcontractor(t, s.db, testutil.CreateProject(t, s.db, s.company.ID).ID)
		_, err := s.projects.AddSubcontractorUser(ctx, s.as(t, s.pm), s.project.ID, foreign.ID, &domain.AddSubcontractorUserRequest{UserID: crew.ID, Role: domain.SubcontractorRoleMember})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("foreman may not engage subcontractors", func(t *testing.T) {
		_, err := s.projects.AddSubcontractor(ctx, s.as(t, s.foreman), s.project.ID, &domain.CreateSubcontractorRequest{CompanyName: "x"})
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})
}
