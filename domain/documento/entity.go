package documento

import "time"

// Document types addressable by the collaboration layer.
const (
	TipoProyecto = "proyecto"
	TipoRevision = "revision"
)

// TipoValido reports whether t names a known document type.
func TipoValido(t string) bool {
	return t == TipoProyecto || t == TipoRevision
}

// RoomKey returns the broadcast room key for a document, e.g. "proyecto:42".
func RoomKey(tipo, id string) string {
	return tipo + ":" + id
}

// Proyecto represents a fair project with collaboratively edited content.
type Proyecto struct {
	ID                   string `gorm:"primaryKey;type:text"`
	Titulo               string `gorm:"not null;type:text"`
	Descripcion          string `gorm:"type:text"`
	Contenido            string `gorm:"type:text"`
	ContenidoActualizado time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Miembros []Miembro `gorm:"foreignKey:ProyectoID;constraint:OnDelete:CASCADE"`
	Archivos []Archivo `gorm:"foreignKey:ProyectoID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for the Proyecto entity.
func (Proyecto) TableName() string {
	return "proyectos"
}

// Revision represents a review document attached to a project. Edit rights on
// a revision are resolved through its parent project's membership.
type Revision struct {
	ID                   string `gorm:"primaryKey;type:text"`
	ProyectoID           string `gorm:"not null;index;type:text"`
	Contenido            string `gorm:"type:text"`
	ContenidoActualizado time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName returns the table name for the Revision entity.
func (Revision) TableName() string {
	return "revisiones"
}

// Miembro links a user to a project with a role (estudiante, tutor).
type Miembro struct {
	ProyectoID string `gorm:"primaryKey;type:text"`
	UsuarioID  string `gorm:"primaryKey;type:text"`
	Rol        string `gorm:"not null;type:text"`
	CreatedAt  time.Time
}

// TableName returns the table name for the Miembro entity.
func (Miembro) TableName() string {
	return "proyecto_miembros"
}

// Archivo is file metadata attached to a project. The file bytes live in
// external storage; only the reference is kept here.
type Archivo struct {
	ID         string `gorm:"primaryKey;type:text"`
	ProyectoID string `gorm:"not null;index;type:text"`
	Nombre     string `gorm:"not null;type:text"`
	URL        string `gorm:"not null;type:text"`
	Tamano     int64
	MimeType   string `gorm:"type:text"`
	CreatedAt  time.Time
}

// TableName returns the table name for the Archivo entity.
func (Archivo) TableName() string {
	return "archivos"
}
