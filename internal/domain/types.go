package domain

import "time"

// Identity es la identidad resuelta de una credencial verificada.
// Se resuelve una sola vez por conexión y es inmutable durante su vida.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// User es la cuenta persistida detrás de una Identity.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Status       string // active | disabled
	CreatedAt    time.Time
}

// Database es el recurso compartido que los colaboradores ven y mutan.
// El owner se fija en la creación y nunca se transfiere.
type Database struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	OwnerID          string    `json:"owner_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Grant es el registro durable del nivel de permiso de un usuario sobre
// una database. Máximo un grant por par (database, user); el grant de
// owner es implícito vía Database.OwnerID, no una fila borrable.
type Grant struct {
	DatabaseID string    `json:"database_id"`
	UserID     string    `json:"user_id"`
	Level      Level     `json:"level"`
	GrantedBy  string    `json:"granted_by"`
	GrantedAt  time.Time `json:"granted_at"`
}

// Collaborator es un Grant enriquecido con los datos visibles del usuario,
// tal como lo consume la lista de colaboradores.
type Collaborator struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Level     Level     `json:"level"`
	GrantedAt time.Time `json:"granted_at"`
}
