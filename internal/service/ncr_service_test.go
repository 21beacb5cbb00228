package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func (s *site) raiseNCR(t *testing.T, severity domain.NCRSeverity, responsible *uuid.UUID, lots ...uuid.UUID) *domain.NCRDTO {
	t.Helper()
	ncr, err := s.ncrs.Create(context.Background(), s.as(t, s.qm), &domain.CreateNCRRequest{
		ProjectID:         s.project.ID,
		Description:       "subgrade failed proof roll",
		Severity:          severity,
		ResponsibleUserID: responsible,
		LotIDs:            lots,
	})
	require.NoError(t, err)
	return ncr
}

func TestNCRService_MajorLifecycle(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()
	lot := s.createLot(t, "LOT-100")

	ncr := s.raiseNCR(t, domain.NCRSeverityMajor, &s.foreman.ID, lot.ID)

	t.Run("raised NCR is numbered and flagged", func(t *testing.T) {
		assert.Equal(t, "NCR-0001", ncr.NCRNumber)
		assert.Equal(t, domain.NCRStatusOpen, ncr.Status)
		assert.True(t, ncr.QMApprovalRequired)
		assert.True(t, ncr.ClientNotificationRequired)
		assert.Equal(t, []uuid.UUID{lot.ID}, ncr.LotIDs)
	})

	t.Run("linked lot reads as ncr_raised", func(t *testing.T) {
		got, err := s.lots.GetByID(ctx, s.as(t, s.pm), lot.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LotStatusNCRRaised, got.Status)
		assert.Equal(t, domain.LotStatusNotStarted, got.ProgressStatus)
		assert.True(t, got.HasOpenNCR)

		page, err := s.lots.List(ctx, s.as(t, s.pm), s.project.ID,
			repository.LotFilter{Status: ptr(domain.LotStatusNCRRaised)}, domain.PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, lot.ID, page.Items[0].ID)
	})

	t.Run("responsible user is notified exactly once", func(t *testing.T) {
		assert.Len(t, s.notificationsFor(t, s.foreman.ID, domain.NotificationNCRAssigned), 1)
		assert.EqualValues(t, 1, s.countNotifications(t, domain.NotificationNCRAssigned, ncr.ID))
	})

	t.Run("open NCR cannot close", func(t *testing.T) {
		_, err := s.ncrs.Close(ctx, s.as(t, s.qm), ncr.ID, &domain.CloseNCRRequest{})
		requireCode(t, err, domain.KindValidation, domain.CodeInvalidStatusTransition)
	})

	t.Run("respond moves it into progress", func(t *testing.T) {
		got, err := s.ncrs.Respond(ctx, s.as(t, s.foreman), ncr.ID, &domain.RespondNCRRequest{RectificationNotes: "re-compacted"})
		require.NoError(t, err)
		assert.Equal(t, domain.NCRStatusInProgress, got.Status)
	})

	t.Run("closing without QM approval fails", func(t *testing.T) {
		_, err := s.ncrs.Close(ctx, s.as(t, s.qm), ncr.ID, &domain.CloseNCRRequest{})
		requireCode(t, err, domain.KindValidation, domain.CodeQMApprovalRequired)
	})

	t.Run("foreman may not approve", func(t *testing.T) {
		_, err := s.ncrs.QMApprove(ctx, s.as(t, s.foreman), ncr.ID, &domain.QMApproveNCRRequest{})
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})

	t.Run("rejection withdraws approval", func(t *testing.T) {
		approved, err := s.ncrs.QMApprove(ctx, s.as(t, s.qm), ncr.ID, &domain.QMApproveNCRRequest{Comments: "ok"})
		require.NoError(t, err)
		require.NotNil(t, approved.QMApprovedAt)

		rejected, err := s.ncrs.Reject(ctx, s.as(t, s.qm), ncr.ID, &domain.RejectNCRRequest{Reason: "density still low"})
		require.NoError(t, err)
		assert.Equal(t, domain.NCRStatusInProgress, rejected.Status)
		assert.Equal(t, 1, rejected.RejectionCount)
		assert.Nil(t, rejected.QMApprovedAt)
		assert.Len(t, s.notificationsFor(t, s.foreman.ID, domain.NotificationNCRRejected), 1)
	})

	t.Run("client notification goes to company admins", func(t *testing.T) {
		got, err := s.ncrs.NotifyClient(ctx, s.as(t, s.qm), ncr.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.ClientNotifiedAt)
		assert.Len(t, s.notificationsFor(t, s.owner.ID, domain.NotificationNCRClientNotified), 1)
	})

	t.Run("approved NCR closes and clears the lot", func(t *testing.T) {
		_, err := s.ncrs.QMApprove(ctx, s.as(t, s.qm), ncr.ID, &domain.QMApproveNCRRequest{})
		require.NoError(t, err)

		closed, err := s.ncrs.Close(ctx, s.as(t, s.qm), ncr.ID, &domain.CloseNCRRequest{})
		require.NoError(t, err)
		assert.Equal(t, domain.NCRStatusClosed, closed.Status)
		assert.NotNil(t, closed.ClosedAt)

		got, err := s.lots.GetByID(ctx, s.as(t, s.pm), lot.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LotStatusNotStarted, got.Status)
		assert.False(t, got.HasOpenNCR)
	})

	t.Run("closed NCR accepts no further transitions", func(t *testing.T) {
		_, err := s.ncrs.Respond(ctx, s.as(t, s.foreman), ncr.ID, &domain.RespondNCRRequest{RectificationNotes: "again"})
		requireCode(t, err, domain.KindValidation, domain.CodeInvalidStatusTransition)
	})
}

func TestNCRService_MinorRules(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()
	lot := s.createLot(t, "LOT-200")

	t.Run("minor NCR needs no QM approval", func(t *testing.T) {
		ncr := s.raiseNCR(t, domain.NCRSeverityMinor, nil, lot.ID)
		assert.False(t, ncr.QMApprovalRequired)
		assert.False(t, ncr.ClientNotificationRequired)

		_, err := s.ncrs.QMApprove(ctx, s.as(t, s.qm), ncr.ID, &domain.QMApproveNCRRequest{})
		requireCode(t, err, domain.KindValidation, domain.CodeQMApprovalNotRequired)

		_, err = s.ncrs.NotifyClient(ctx, s.as(t, s.qm), ncr.ID)
		requireCode(t, err, domain.KindValidation, domain.CodeClientNotificationNotRequired)
	})

	t.Run("concession requires justification", func(t *testing.T) {
		ncr := s.raiseNCR(t, domain.NCRSeverityMinor, nil, lot.ID)
		_, err := s.ncrs.Respond(ctx, s.as(t, s.engineer), ncr.ID, &domain.RespondNCRRequest{RectificationNotes: "accepted as is"})
		require.NoError(t, err)

		_, err = s.ncrs.Close(ctx, s.as(t, s.qm), ncr.ID, &domain.CloseNCRRequest{Concession: true})
		requireCode(t, err, domain.KindValidation, domain.CodeConcessionJustification)

		closed, err := s.ncrs.Close(ctx, s.as(t, s.qm), ncr.ID, &domain.CloseNCRRequest{Concession: true, ConcessionJustification: "within tolerance"})
		require.NoError(t, err)
		assert.Equal(t, domain.NCRStatusClosedConcession, closed.Status)
	})

	t.Run("lot stays flagged while another NCR is open", func(t *testing.T) {
		got, err := s.lots.GetByID(ctx, s.as(t, s.pm), lot.ID)
		require.NoError(t, err)
		assert.True(t, got.HasOpenNCR)
	})

	t.Run("responsible user must be a member", func(t *testing.T) {
		outsider := testutil.CreateUser(t, s.db, s.company.ID, domain.RoleMember)
		_, err := s.ncrs.Create(ctx, s.as(t, s.qm), &domain.CreateNCRRequest{
			ProjectID:         s.project.ID,
			Description:       "x",
			Severity:          domain.NCRSeverityMinor,
			ResponsibleUserID: &outsider.ID,
		})
		requireCode(t, err, domain.KindValidation, domain.CodeResponsibleUserNotMember)
	})

	t.Run("lots must belong to the project", func(t *testing.T) {
		other := testutil.CreateProject(t, s.db, s.company.ID)
		foreign := testutil.CreateLot(t, s.db, other.ID, s.owner.ID)
		_, err := s.ncrs.Create(ctx, s.as(t, s.qm), &domain.CreateNCRRequest{
			ProjectID:   s.project.ID,
			Description: "x",
			Severity:    domain.NCRSeverityMinor,
			LotIDs:      []uuid.UUID{foreign.ID},
		})
		requireCode(t, err, domain.KindValidation, domain.CodeValidation)
	})

	t.Run("redirect notifies the new responsible user", func(t *testing.T) {
		ncr := s.raiseNCR(t, domain.NCRSeverityMinor, &s.foreman.ID)
		got, err := s.ncrs.Update(ctx, s.as(t, s.pm), ncr.ID, &domain.UpdateNCRRequest{ResponsibleUserID: &s.engineer.ID})
		require.NoError(t, err)
		assert.Equal(t, &s.engineer.ID, got.ResponsibleUserID)
		assert.Equal(t, domain.NCRStatusOpen, got.Status)
		assert.EqualValues(t, 1, s.countNotifications(t, domain.NotificationNCRRedirected, ncr.ID))
	})
}

func TestNCRService_ConcurrentNumbering(t *testing.T) {
	s := newSite(t)
	m := s.as(t, s.qm)

	const n = 10
	numbers := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			ncr, err := s.ncrs.Create(context.Background(), m, &domain.CreateNCRRequest{
				ProjectID:   s.project.ID,
				Description: fmt.Sprintf("defect %d", i),
				Severity:    domain.NCRSeverityMinor,
			})
			if err != nil {
				return err
			}
			numbers[i] = ncr.NCRNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, n)
	for _, number := range numbers {
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("NCR-%04d", i)], "missing NCR-%04d", i)
	}
}

func TestNCRService_SubcontractorScoping(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	// subcontractor role with no company link
	unlinked := testutil.CreateUser(t, s.db, testutil.CreateCompany(t, s.db, "Sole Trader").ID, domain.RoleMember)
	testutil.AddMember(t, s.db, s.project.ID, unlinked.ID, domain.RoleSubcontractor)

	assigned := s.createLot(t, "LOT-SUB")
	_, err := s.lots.AssignSubcontractor(ctx, s.as(t, s.pm), assigned.ID, &domain.AssignLotSubcontractorRequest{SubcontractorCompanyID: s.sub.ID})
	require.NoError(t, err)
	other := s.createLot(t, "LOT-OTHER")

	mine := s.raiseNCR(t, domain.NCRSeverityMinor, &unlinked.ID, other.ID)
	onAssigned := s.raiseNCR(t, domain.NCRSeverityMinor, nil, assigned.ID)
	hidden := s.raiseNCR(t, domain.NCRSeverityMinor, nil, other.ID)

	t.Run("unlinked subcontractor sees only NCRs naming them", func(t *testing.T) {
		page, err := s.ncrs.List(ctx, s.as(t, unlinked), s.project.ID, repository.NCRFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, mine.ID, page.Items[0].ID)

		_, err = s.ncrs.GetByID(ctx, s.as(t, unlinked), hidden.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unlinked subcontractor sees no lots", func(t *testing.T) {
		page, err := s.lots.List(ctx, s.as(t, unlinked), s.project.ID, repository.LotFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("linked subcontractor sees NCRs on assigned lots", func(t *testing.T) {
		page, err := s.ncrs.List(ctx, s.as(t, s.subUser), s.project.ID, repository.NCRFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, onAssigned.ID, page.Items[0].ID)
	})

	t.Run("out of scope transition reads as not found", func(t *testing.T) {
		_, err := s.ncrs.Respond(ctx, s.as(t, s.subUser), hidden.ID, &domain.RespondNCRRequest{RectificationNotes: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("subcontractor responds on a visible NCR", func(t *testing.T) {
		got, err := s.ncrs.Respond(ctx, s.as(t, s.subUser), onAssigned.ID, &domain.RespondNCRRequest{RectificationNotes: "fixed"})
		require.NoError(t, err)
		assert.Equal(t, domain.NCRStatusInProgress, got.Status)
	})

	t.Run("subcontractor cannot link an unassigned lot", func(t *testing.T) {
		_, err := s.ncrs.Create(ctx, s.as(t, s.subUser), &domain.CreateNCRRequest{
			ProjectID:   s.project.ID,
			Description: "x",
			Severity:    domain.NCRSeverityMinor,
			LotIDs:      []uuid.UUID{other.ID},
		})
		requireCode(t, err, domain.KindValidation, domain.CodeValidation)
	})
}
