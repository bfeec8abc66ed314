package documentos

import (
	"errors"

	domain "github.com/example/feria-collab/domain/usuario"
	"gorm.io/gorm"
)

var (
	// ErrUsuarioNotFound is returned when a user does not exist.
	ErrUsuarioNotFound = errors.New("usuario not found")
	// ErrUsuarioExists is returned when a user with the email already exists.
	ErrUsuarioExists = errors.New("usuario with this email already exists")
)

// UsuarioRepository handles user persistence using GORM.
type UsuarioRepository struct {
	db *gorm.DB
}

// NewUsuarioRepository creates a new UsuarioRepository.
func NewUsuarioRepository(db *gorm.DB) *UsuarioRepository {
	return &UsuarioRepository{
		db: db,
	}
}

// Create creates a new user.
func (r *UsuarioRepository) Create(u *domain.Usuario) error {
	result := r.db.Create(u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUsuarioExists
		}
		return result.Error
	}
	return nil
}

// FindByID finds a user by ID.
func (r *UsuarioRepository) FindByID(id string) (*domain.Usuario, error) {
	var u domain.Usuario
	result := r.db.First(&u, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUsuarioNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}

// FindByEmail finds a user by email.
func (r *UsuarioRepository) FindByEmail(email string) (*domain.Usuario, error) {
	var u domain.Usuario
	result := r.db.First(&u, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUsuarioNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}
