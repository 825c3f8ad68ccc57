package entity

// Roles válidos del sistema.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal identidad autenticada que invoca una operación.
// La capa HTTP la construye desde el JWT; los casos de uso la reciben explícitamente.
type Principal struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin indica si el principal tiene rol administrador.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Anonymous indica que no hay usuario autenticado.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}
