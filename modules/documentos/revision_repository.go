package documentos

import (
	"errors"
	"time"

	domain "github.com/example/feria-collab/domain/documento"
	"gorm.io/gorm"
)

// RevisionRepository handles revision persistence using GORM.
type RevisionRepository struct {
	db *gorm.DB
}

// NewRevisionRepository creates a new RevisionRepository.
func NewRevisionRepository(db *gorm.DB) *RevisionRepository {
	return &RevisionRepository{
		db: db,
	}
}

// Create creates a new revision.
func (r *RevisionRepository) Create(rev *domain.Revision) error {
	return r.db.Create(rev).Error
}

// FindByID finds a revision by ID.
func (r *RevisionRepository) FindByID(id string) (*domain.Revision, error) {
	var rev domain.Revision
	result := r.db.First(&rev, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRevisionNotFound
		}
		return nil, result.Error
	}
	return &rev, nil
}

// SaveContenido persists new content for a revision and stamps the content
// modification time. Returns ErrRevisionNotFound when no row was updated.
func (r *RevisionRepository) SaveContenido(id, contenido string, ts time.Time) error {
	result := r.db.Model(&domain.Revision{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"contenido":             contenido,
			"contenido_actualizado": ts,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRevisionNotFound
	}
	return nil
}
