package documentos

import (
	"errors"
	"time"

	domain "github.com/example/feria-collab/domain/documento"
	"gorm.io/gorm"
)

var (
	// ErrProyectoNotFound is returned when a project does not exist.
	ErrProyectoNotFound = errors.New("proyecto not found")
	// ErrRevisionNotFound is returned when a revision does not exist.
	ErrRevisionNotFound = errors.New("revision not found")
)

// ProyectoRepository handles project persistence using GORM.
type ProyectoRepository struct {
	db *gorm.DB
}

// NewProyectoRepository creates a new ProyectoRepository.
func NewProyectoRepository(db *gorm.DB) *ProyectoRepository {
	return &ProyectoRepository{
		db: db,
	}
}

// Create creates a new project.
func (r *ProyectoRepository) Create(p *domain.Proyecto) error {
	return r.db.Create(p).Error
}

// FindByID finds a project by ID.
func (r *ProyectoRepository) FindByID(id string) (*domain.Proyecto, error) {
	var p domain.Proyecto
	result := r.db.First(&p, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProyectoNotFound
		}
		return nil, result.Error
	}
	return &p, nil
}

// SaveContenido persists new content for a project and stamps the content
// modification time. Returns ErrProyectoNotFound when no row was updated.
func (r *ProyectoRepository) SaveContenido(id, contenido string, ts time.Time) error {
	result := r.db.Model(&domain.Proyecto{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"contenido":             contenido,
			"contenido_actualizado": ts,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProyectoNotFound
	}
	return nil
}

// IsMiembro reports whether the user is a member of the project.
func (r *ProyectoRepository) IsMiembro(proyectoID, usuarioID string) (bool, error) {
	var count int64
	result := r.db.Model(&domain.Miembro{}).
		Where("proyecto_id = ? AND usuario_id = ?", proyectoID, usuarioID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// AddMiembro links a user to a project with a role.
func (r *ProyectoRepository) AddMiembro(m *domain.Miembro) error {
	return r.db.Create(m).Error
}

// FindArchivos returns the file metadata attached to a project.
func (r *ProyectoRepository) FindArchivos(proyectoID string) ([]domain.Archivo, error) {
	var archivos []domain.Archivo
	result := r.db.
		Where("proyecto_id = ?", proyectoID).
		Order("created_at").
		Find(&archivos)
	if result.Error != nil {
		return nil, result.Error
	}
	return archivos, nil
}
