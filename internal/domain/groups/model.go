package groups

import "time"

// Relation del miembro respecto del líder.
type Relation string

const (
	RelationSpouse  Relation = "spouse"
	RelationParent  Relation = "parent"
	RelationSibling Relation = "sibling"
	RelationChild   Relation = "child"
	RelationOther   Relation = "other"
)

type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

type Group struct {
	ID     string
	Name   string
	Leader string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member: el líder también es miembro (RoleLeader, sin Relation).
type Member struct {
	GroupID   string
	PatientID string

	Role     Role
	Relation Relation

	JoinedAt time.Time
}

// Grant autoriza a Grantee a leer los registros de GrantedBy. No vence;
// vive hasta revoke o hasta que alguno de los dos deja el grupo.
type Grant struct {
	GroupID   string
	Grantee   string
	GrantedBy string

	CreatedAt time.Time
}
