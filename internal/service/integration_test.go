//go:build integration

package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// These run the race-sensitive paths against Postgres, where the sequence row
// lock and the partial unique index on drawings are the real guards.
func TestPostgres_ConcurrentWorkflows(t *testing.T) {
	s := newSiteOn(t, testutil.SetupPostgresDB(t))
	ctx := context.Background()

	t.Run("NCR numbers are unique and gapless", func(t *testing.T) {
		m := s.as(t, s.qm)
		const n = 20
		numbers := make([]string, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				ncr, err := s.ncrs.Create(ctx, m, &domain.CreateNCRRequest{
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
			seen[number] = true
		}
		for i := 1; i <= n; i++ {
			assert.True(t, seen[fmt.Sprintf("NCR-%04d", i)], "missing NCR-%04d", i)
		}
	})

	t.Run("one supersede wins", func(t *testing.T) {
		m := s.as(t, s.engineer)
		head, err := s.drawings.Create(ctx, m, &domain.CreateDrawingRequest{
			ProjectID:     s.project.ID,
			DrawingNumber: "PG-100",
			Title:         "Bridge deck",
			Revision:      "A",
		})
		require.NoError(t, err)

		const writers = 8
		errs := make([]error, writers)
		var g errgroup.Group
		for i := 0; i < writers; i++ {
			i := i
			g.Go(func() error {
				_, errs[i] = s.drawings.Supersede(ctx, m, head.ID, &domain.SupersedeDrawingRequest{Revision: "B"})
				return nil
			})
		}
		require.NoError(t, g.Wait())

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			requireCode(t, err, domain.KindConflict, domain.CodeDrawingSuperseded)
		}
		assert.Equal(t, 1, succeeded)

		page, err := s.drawings.List(ctx, m, s.project.ID, repository.DrawingFilter{CurrentOnly: true, DrawingNumber: "PG-100"}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})
}
