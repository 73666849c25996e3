package models

import "time"

// Role classifies what a volunteer may do on the rota.
type Role string

const (
	RoleProfessor Role = "professor"
	RoleAuxiliar  Role = "auxiliar"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleProfessor, RoleAuxiliar, RoleAdmin:
		return true
	}
	return false
}

// Room identifies a children's classroom. A volunteer may carry a fixed room
// (professors teach their own age group); a nil room means unbound.
type Room string

const (
	RoomBebes    Room = "bebes"
	RoomPequenos Room = "pequenos"
	RoomGrandes  Room = "grandes"
	// RoomUnificada is the catch-all EBD room: all age groups together,
	// any professor qualifies. Never a volunteer's fixed room.
	RoomUnificada Room = "unificada"
)

// ServiceRooms are the rooms staffed on a regular culto.
var ServiceRooms = []Room{RoomBebes, RoomPequenos, RoomGrandes}

// Valid reports whether the room is assignable.
func (r Room) Valid() bool {
	switch r {
	case RoomBebes, RoomPequenos, RoomGrandes, RoomUnificada:
		return true
	}
	return false
}

// Volunteer represents a team member record.
type Volunteer struct {
	ID        string    `db:"id" json:"id"`
	Phone     string    `db:"phone" json:"phone"`
	PINHash   string    `db:"pin_hash" json:"-"`
	Name      string    `db:"name" json:"name"`
	Role      Role      `db:"role" json:"role"`
	Room      *Room     `db:"room" json:"room,omitempty"`
	Active    bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// VolunteerFilter captures filtering options for listing volunteers.
type VolunteerFilter struct {
	Search   string
	Role     Role
	Active   *bool
	Page     int
	PageSize int
}
