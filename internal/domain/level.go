package domain

// Level es el nivel de permiso sobre una database.
// Orden total: owner > editor > viewer.
type Level string

const (
	LevelOwner  Level = "owner"
	LevelEditor Level = "editor"
	LevelViewer Level = "viewer"
)

// rank map fijo: niveles desconocidos rankean 0 y siempre fallan.
var levelRank = map[Level]int{
	LevelOwner:  3,
	LevelEditor: 2,
	LevelViewer: 1,
}

// Rank devuelve el rango numérico del nivel (0 si es desconocido).
func (l Level) Rank() int { return levelRank[l] }

// Valid reporta si el nivel es uno de los tres conocidos.
func (l Level) Valid() bool { return levelRank[l] > 0 }

// AtLeast reporta si l alcanza el nivel requerido.
func (l Level) AtLeast(required Level) bool {
	return l.Rank() >= required.Rank() && required.Rank() > 0
}

func (l Level) String() string { return string(l) }
