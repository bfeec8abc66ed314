package usuario

import "time"

// Usuario represents an account in the system. The display fields travel with
// the JWT so peers can render presence without extra lookups.
type Usuario struct {
	ID           string `gorm:"primaryKey;type:text"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	Nombre       string `gorm:"not null;type:text"`
	Apellido     string `gorm:"not null;type:text"`
	Iniciales    string `gorm:"type:text"`
	Avatar       string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the Usuario entity.
func (Usuario) TableName() string {
	return "usuarios"
}

// Identity is the authenticated identity attached to a connection or request.
type Identity struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Nombre    string `json:"nombre"`
	Apellido  string `json:"apellido"`
	Iniciales string `json:"iniciales"`
	Avatar    string `json:"avatar,omitempty"`
}
