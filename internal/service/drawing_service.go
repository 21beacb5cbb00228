package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/storage"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DrawingService manages drawing revision chains and their files
type DrawingService struct {
	orch    *Orchestrator
	guard   *Guard
	storage storage.Storage
	logger  *zap.Logger
}

// NewDrawingService creates a new DrawingService
func NewDrawingService(orch *Orchestrator, guard *Guard, store storage.Storage, logger *zap.Logger) *DrawingService {
	return &DrawingService{orch: orch, guard: guard, storage: store, logger: logger}
}

// Create registers the first revision of a drawing number
func (s *DrawingService) Create(ctx context.Context, m *access.Membership, req *domain.CreateDrawingRequest) (*domain.DrawingDTO, error) {
	drawing := &domain.Drawing{
		ProjectID:     req.ProjectID,
		DrawingNumber: req.DrawingNumber,
		Title:         req.Title,
		Revision:      req.Revision,
		Discipline:    req.Discipline,
		Version:       1,
		UploadedByID:  actorOf(m),
	}

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		if _, _, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, req.ProjectID, domain.EntityDrawing, access.ActionCreate); err != nil {
			return err
		}

		exists, err := tx.Repos.Drawings.CurrentExists(tx.Ctx, req.ProjectID, req.DrawingNumber)
		if err != nil {
			return fmt.Errorf("failed to check drawing number: %w", err)
		}
		if exists {
			return domain.NewConflictError(domain.CodeDuplicateDrawingNumber, "drawing number already has a current revision")
		}

		if err := tx.Repos.Drawings.Create(tx.Ctx, drawing); err != nil {
			return conflictOn(err, domain.CodeDuplicateDrawingNumber, "drawing number already has a current revision")
		}
		tx.Audit(drawing.ProjectID, domain.AuditActionCreate, domain.EntityDrawing, drawing.ID, "", drawing.Revision,
			map[string]string{"drawingNumber": drawing.DrawingNumber})
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToDrawingDTO(drawing)
	return &dto, nil
}

// GetByID returns one revision
func (s *DrawingService) GetByID(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.DrawingDTO, error) {
	drawing, err := s.load(ctx, m, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToDrawingDTO(drawing)
	return &dto, nil
}

func (s *DrawingService) load(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.Drawing, error) {
	repos := s.orch.Repos()
	drawing, err := repos.Drawings.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "drawing")
	}
	if _, _, err := s.guard.AuthorizeRecord(ctx, repos, m, drawing.ProjectID, domain.EntityDrawing, access.ActionRead, "drawing"); err != nil {
		return nil, err
	}
	return drawing, nil
}

// List returns a page of project drawings
func (s *DrawingService) List(ctx context.Context, m *access.Membership, projectID uuid.UUID, filter repository.DrawingFilter, page domain.PageRequest) (*domain.Paged[domain.DrawingDTO], error) {
	repos := s.orch.Repos()
	if _, _, err := s.guard.Authorize(ctx, repos, m, projectID, domain.EntityDrawing, access.ActionRead); err != nil {
		return nil, err
	}

	page = pageOf(page)
	drawings, total, err := repos.Drawings.List(ctx, projectID, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list drawings: %w", err)
	}

	items := make([]domain.DrawingDTO, len(drawings))
	for i := range drawings {
		items[i] = mapper.ToDrawingDTO(&drawings[i])
	}
	return &domain.Paged[domain.DrawingDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}

// Supersede replaces the current revision with a new one. Of two concurrent
// supersedes of the same drawing exactly one succeeds.
func (s *DrawingService) Supersede(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.SupersedeDrawingRequest) (*domain.DrawingDTO, error) {
	var next *domain.Drawing

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		current, err := tx.Repos.Drawings.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "drawing")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, current.ProjectID, domain.EntityDrawing, access.ActionSupersede, "drawing", nil); err != nil {
			return err
		}
		if err := workflow.CheckSupersedable(current); err != nil {
			return err
		}

		next = workflow.NextRevision(current, *req, m.UserID)

		changed, err := tx.Repos.Drawings.MarkSuperseded(tx.Ctx, current.ID, next.ID)
		if err != nil {
			return fmt.Errorf("failed to supersede drawing: %w", err)
		}
		if changed == 0 {
			return domain.NewConflictError(domain.CodeDrawingSuperseded, "drawing has already been superseded")
		}

		if err := tx.Repos.Drawings.Create(tx.Ctx, next); err != nil {
			return conflictOn(err, domain.CodeDrawingSuperseded, "drawing has already been superseded")
		}

		tx.Audit(current.ProjectID, domain.AuditActionTransition, domain.EntityDrawing, current.ID,
			current.Revision, next.Revision, map[string]string{"supersededById": next.ID.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("drawing superseded",
		zap.String("drawing_id", id.String()),
		zap.String("successor_id", next.ID.String()),
		zap.String("revision", next.Revision))

	dto := mapper.ToDrawingDTO(next)
	return &dto, nil
}

// Delete removes the current revision and makes its predecessor current again
func (s *DrawingService) Delete(ctx context.Context, m *access.Membership, id uuid.UUID) error {
	var storagePath string

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		drawing, err := tx.Repos.Drawings.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "drawing")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, drawing.ProjectID, domain.EntityDrawing, access.ActionDelete, "drawing", nil); err != nil {
			return err
		}
		if err := workflow.CheckDrawingDeletable(drawing); err != nil {
			return err
		}

		previous, err := tx.Repos.Drawings.Predecessor(tx.Ctx, drawing.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load previous revision: %w", err)
		}

		if err := tx.Repos.Drawings.Delete(tx.Ctx, drawing.ID); err != nil {
			return fmt.Errorf("failed to delete drawing: %w", err)
		}
		if previous != nil {
			if err := tx.Repos.Drawings.Reinstate(tx.Ctx, previous.ID); err != nil {
				return fmt.Errorf("failed to reinstate previous revision: %w", err)
			}
		}

		tx.Audit(drawing.ProjectID, domain.AuditActionDelete, domain.EntityDrawing, drawing.ID, drawing.Revision, "",
			map[string]string{"drawingNumber": drawing.DrawingNumber})
		storagePath = drawing.StoragePath
		return nil
	})
	if err != nil {
		return err
	}

	if storagePath != "" {
		if err := s.storage.Delete(ctx, storagePath); err != nil {
			s.logger.Warn("failed to delete drawing file",
				zap.String("drawing_id", id.String()),
				zap.String("key", storagePath),
				zap.Error(err))
		}
	}
	return nil
}

// UploadFile stores the file of a revision, replacing any earlier file
func (s *DrawingService) UploadFile(ctx context.Context, m *access.Membership, id uuid.UUID, filename, contentType string, data io.Reader) (*domain.DrawingDTO, error) {
	drawing, err := s.load(ctx, m, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.guard.Authorize(ctx, s.orch.Repos(), m, drawing.ProjectID, domain.EntityDrawing, access.ActionCreate); err != nil {
		return nil, err
	}

	key := storage.DrawingKey(drawing.ProjectID, drawing.ID, filename)
	size, err := s.storage.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store drawing file: %w", err)
	}

	err = s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		if err := tx.Repos.Drawings.UpdateFile(tx.Ctx, drawing.ID, key, filename, contentType, size); err != nil {
			return fmt.Errorf("failed to record drawing file: %w", err)
		}
		tx.Audit(drawing.ProjectID, domain.AuditActionUpdate, domain.EntityDrawing, drawing.ID, "", "",
			map[string]interface{}{"fileName": filename, "size": size})
		return nil
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned drawing file", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	if drawing.StoragePath != "" && drawing.StoragePath != key {
		if err := s.storage.Delete(ctx, drawing.StoragePath); err != nil {
			s.logger.Warn("failed to delete replaced drawing file", zap.String("key", drawing.StoragePath), zap.Error(err))
		}
	}

	drawing.StoragePath = key
	drawing.FileName = filename
	drawing.ContentType = contentType
	drawing.FileSize = size

	dto := mapper.ToDrawingDTO(drawing)
	return &dto, nil
}

// DownloadFile opens the stored file of a revision. The caller closes the reader.
func (s *DrawingService) DownloadFile(ctx context.Context, m *access.Membership, id uuid.UUID) (io.ReadCloser, *domain.DrawingDTO, error) {
	drawing, err := s.load(ctx, m, id)
	if err != nil {
		return nil, nil, err
	}
	if drawing.StoragePath == "" {
		return nil, nil, domain.NewNotFoundError("drawing file")
	}

	body, err := s.storage.Get(ctx, drawing.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, domain.NewNotFoundError("drawing file")
		}
		return nil, nil, fmt.Errorf("failed to read drawing file: %w", err)
	}

	dto := mapper.ToDrawingDTO(drawing)
	return body, &dto, nil
}
