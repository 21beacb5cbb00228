package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"github.com/juggajay/site-proof-sub006/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *site) draftDocket(t *testing.T, labour, plant float64) *domain.DocketDTO {
	t.Helper()
	d, err := s.dockets.Create(context.Background(), s.as(t, s.subUser), &domain.CreateDocketRequest{
		ProjectID:   s.project.ID,
		DocketDate:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		LabourHours: labour,
		PlantHours:  plant,
	})
	require.NoError(t, err)
	return d
}

func TestDocketService_Create(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	t.Run("subcontractor files for its own company", func(t *testing.T) {
		d := s.draftDocket(t, 8, 4)
		assert.Equal(t, s.sub.ID, d.SubcontractorCompanyID)
		assert.Equal(t, domain.DocketStatusDraft, d.Status)
		assert.Equal(t, s.subUser.ID, d.CreatedByID)
	})

	t.Run("subcontractor cannot file for another company", func(t *testing.T) {
		other := testutil.CreateSubcontractor(t, s.db, s.project.ID)
		_, err := s.dockets.Create(ctx, s.as(t, s.subUser), &domain.CreateDocketRequest{
			ProjectID:              s.project.ID,
			SubcontractorCompanyID: &other.ID,
			DocketDate:             time.Now().UTC(),
		})
		requireCode(t, err, domain.KindValidation, domain.CodeSubcontractorNotOnProject)
	})

	t.Run("head contractor must name the company", func(t *testing.T) {
		_, err := s.dockets.Create(ctx, s.as(t, s.pm), &domain.CreateDocketRequest{
			ProjectID:  s.project.ID,
			DocketDate: time.Now().UTC(),
		})
		requireCode(t, err, domain.KindValidation, domain.CodeValidation)

		d, err := s.dockets.Create(ctx, s.as(t, s.pm), &domain.CreateDocketRequest{
			ProjectID:              s.project.ID,
			SubcontractorCompanyID: &s.sub.ID,
			DocketDate:             time.Now().UTC(),
			LabourHours:            6,
		})
		require.NoError(t, err)
		assert.Equal(t, s.sub.ID, d.SubcontractorCompanyID)
	})

	t.Run("company of another project is refused", func(t *testing.T) {
		foreign := testutil.CreateSubcontractor(t, s.db, testutil.CreateProject(t, s.db, s.company.ID).ID)
		_, err := s.dockets.Create(ctx, s.as(t, s.pm), &domain.CreateDocketRequest{
			ProjectID:              s.project.ID,
			SubcontractorCompanyID: &foreign.ID,
			DocketDate:             time.Now().UTC(),
		})
		requireCode(t, err, domain.KindValidation, domain.CodeSubcontractorNotOnProject)
	})

	t.Run("foreman may not create", func(t *testing.T) {
		_, err := s.dockets.Create(ctx, s.as(t, s.foreman), &domain.CreateDocketRequest{
			ProjectID:              s.project.ID,
			SubcontractorCompanyID: &s.sub.ID,
			DocketDate:             time.Now().UTC(),
		})
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})
}

func TestDocketService_SubmitFanOut(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	// the company owner also holds a project role that approves dockets
	testutil.AddMember(t, s.db, s.project.ID, s.owner.ID, domain.RoleProjectManager)

	d := s.draftDocket(t, 8, 4)
	submitted, err := s.dockets.Submit(ctx, s.as(t, s.subUser), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocketStatusPendingApproval, submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)

	for _, u := range []*domain.User{s.owner, s.pm, s.foreman} {
		assert.Len(t, s.notificationsFor(t, u.ID, domain.NotificationDocketSubmitted), 1, "user %s", u.FullName)
	}
	assert.EqualValues(t, 3, s.countNotifications(t, domain.NotificationDocketSubmitted, d.ID))
	assert.Empty(t, s.notificationsFor(t, s.qm.ID, domain.NotificationDocketSubmitted))
	assert.Empty(t, s.notificationsFor(t, s.subUser.ID, domain.NotificationDocketSubmitted))

	t.Run("submitted docket is no longer editable", func(t *testing.T) {
		_, err := s.dockets.Update(ctx, s.as(t, s.subUser), d.ID, &domain.UpdateDocketRequest{LabourHours: ptr(10.0)})
		requireCode(t, err, domain.KindValidation, domain.CodeDocketNotDraft)

		err = s.dockets.Delete(ctx, s.as(t, s.subUser), d.ID)
		requireCode(t, err, domain.KindValidation, domain.CodeDocketNotDraft)
	})

	t.Run("second submit is an invalid transition", func(t *testing.T) {
		_, err := s.dockets.Submit(ctx, s.as(t, s.subUser), d.ID)
		requireCode(t, err, domain.KindValidation, domain.CodeInvalidStatusTransition)
	})
}

func TestDocketService_SubmitFanOutFollowsEffectiveRole(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	// a company admin holding only a viewer role on the project cannot approve
	demoted := testutil.CreateUser(t, s.db, s.company.ID, domain.RoleAdmin)
	testutil.AddMember(t, s.db, s.project.ID, demoted.ID, domain.RoleViewer)

	d := s.draftDocket(t, 8, 0)
	_, err := s.dockets.Submit(ctx, s.as(t, s.subUser), d.ID)
	require.NoError(t, err)

	assert.Len(t, s.notificationsFor(t, s.owner.ID, domain.NotificationDocketSubmitted), 1)
	assert.Empty(t, s.notificationsFor(t, demoted.ID, domain.NotificationDocketSubmitted))

	_, err = s.dockets.Approve(ctx, s.as(t, demoted), d.ID, &domain.ApproveDocketRequest{})
	requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
}

func TestDocketService_SubmitFanOutUsesGuardMatrix(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	matrix := access.DefaultMatrix()
	matrix[access.Permission{Entity: domain.EntityDocket, Action: access.ActionApprove}] = map[domain.Role]bool{
		domain.RoleQualityManager: true,
	}
	logger := testutil.NewLogger()
	dockets := service.NewDocketService(s.orch, service.NewGuard(access.NewEvaluator(matrix), logger), logger)

	d := s.draftDocket(t, 8, 0)
	_, err := dockets.Submit(ctx, s.as(t, s.subUser), d.ID)
	require.NoError(t, err)

	assert.Len(t, s.notificationsFor(t, s.qm.ID, domain.NotificationDocketSubmitted), 1)
	assert.Empty(t, s.notificationsFor(t, s.pm.ID, domain.NotificationDocketSubmitted))
	assert.Empty(t, s.notificationsFor(t, s.foreman.ID, domain.NotificationDocketSubmitted))
}

func TestDocketService_Approval(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	submit := func(t *testing.T, labour, plant float64) *domain.DocketDTO {
		t.Helper()
		d := s.draftDocket(t, labour, plant)
		_, err := s.dockets.Submit(ctx, s.as(t, s.subUser), d.ID)
		require.NoError(t, err)
		return d
	}

	t.Run("approval copies submitted hours", func(t *testing.T) {
		d := submit(t, 7.5, 3)
		got, err := s.dockets.Approve(ctx, s.as(t, s.foreman), d.ID, &domain.ApproveDocketRequest{})
		require.NoError(t, err)
		assert.Equal(t, domain.DocketStatusApproved, got.Status)
		require.NotNil(t, got.LabourHoursApproved)
		require.NotNil(t, got.PlantHoursApproved)
		assert.Equal(t, 7.5, *got.LabourHoursApproved)
		assert.Equal(t, 3.0, *got.PlantHoursApproved)
		assert.Empty(t, got.AdjustmentReason)
		assert.EqualValues(t, 1, s.countNotifications(t, domain.NotificationDocketApproved, d.ID))
		assert.Len(t, s.notificationsFor(t, s.subUser.ID, domain.NotificationDocketApproved), 1)
	})

	t.Run("approved docket cannot be approved again", func(t *testing.T) {
		d := submit(t, 1, 1)
		_, err := s.dockets.Approve(ctx, s.as(t, s.pm), d.ID, &domain.ApproveDocketRequest{})
		require.NoError(t, err)

		_, err = s.dockets.Approve(ctx, s.as(t, s.pm), d.ID, &domain.ApproveDocketRequest{})
		requireCode(t, err, domain.KindValidation, domain.CodeInvalidStatusTransition)
	})

	t.Run("adjusted hours need a reason", func(t *testing.T) {
		d := submit(t, 10, 5)
		_, err := s.dockets.Approve(ctx, s.as(t, s.pm), d.ID, &domain.ApproveDocketRequest{LabourHoursApproved: ptr(8.0)})
		requireCode(t, err, domain.KindValidation, domain.CodeAdjustmentReasonRequired)

		got, err := s.dockets.Approve(ctx, s.as(t, s.pm), d.ID, &domain.ApproveDocketRequest{
			LabourHoursApproved: ptr(8.0),
			AdjustmentReason:    "two hours standby",
		})
		require.NoError(t, err)
		assert.Equal(t, 8.0, *got.LabourHoursApproved)
		assert.Equal(t, 5.0, *got.PlantHoursApproved)
		assert.Equal(t, "two hours standby", got.AdjustmentReason)
	})

	t.Run("subcontractor cannot approve its own docket", func(t *testing.T) {
		d := submit(t, 1, 1)
		_, err := s.dockets.Approve(ctx, s.as(t, s.subUser), d.ID, &domain.ApproveDocketRequest{})
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})

	t.Run("draft cannot be approved", func(t *testing.T) {
		d := s.draftDocket(t, 1, 1)
		_, err := s.dockets.Approve(ctx, s.as(t, s.pm), d.ID, &domain.ApproveDocketRequest{})
		requireCode(t, err, domain.KindValidation, domain.CodeInvalidStatusTransition)
	})

	t.Run("rejection records the reason", func(t *testing.T) {
		d := submit(t, 1, 1)
		_, err := s.dockets.Reject(ctx, s.as(t, s.pm), d.ID, &domain.RejectDocketRequest{})
		requireCode(t, err, domain.KindValidation, domain.CodeRejectionReasonRequired)

		got, err := s.dockets.Reject(ctx, s.as(t, s.pm), d.ID, &domain.RejectDocketRequest{Reason: "no signature"})
		require.NoError(t, err)
		assert.Equal(t, domain.DocketStatusRejected, got.Status)
		assert.Equal(t, "no signature", got.RejectionReason)
		assert.EqualValues(t, 1, s.countNotifications(t, domain.NotificationDocketRejected, d.ID))
	})
}

func TestDocketService_Scope(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	s2 := testutil.CreateSubcontractor(t, s.db, s.project.ID)
	s2User := s.subcontractorUser(t, s2)

	mine := s.draftDocket(t, 8, 0)
	_, err := s.dockets.Create(ctx, s.as(t, s2User), &domain.CreateDocketRequest{
		ProjectID:  s.project.ID,
		DocketDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	t.Run("each company lists its own dockets", func(t *testing.T) {
		page, err := s.dockets.List(ctx, s.as(t, s.subUser), s.project.ID, repository.DocketFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, mine.ID, page.Items[0].ID)
	})

	t.Run("head contractor lists all", func(t *testing.T) {
		page, err := s.dockets.List(ctx, s.as(t, s.viewer), s.project.ID, repository.DocketFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("other company reads as not found", func(t *testing.T) {
		_, err := s.dockets.GetByID(ctx, s.as(t, s2User), mine.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.dockets.Submit(ctx, s.as(t, s2User), mine.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("draft can be edited and deleted", func(t *testing.T) {
		got, err := s.dockets.Update(ctx, s.as(t, s.subUser), mine.ID, &domain.UpdateDocketRequest{Notes: ptr("wet weather")})
		require.NoError(t, err)
		assert.Equal(t, "wet weather", got.Notes)

		require.NoError(t, s.dockets.Delete(ctx, s.as(t, s.subUser), mine.ID))
		_, err = s.dockets.GetByID(ctx, s.as(t, s.subUser), mine.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
