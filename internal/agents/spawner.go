package agents

import "github.com/talgya/divine-lands/internal/world"

// Spawner issues walkers with sequential IDs.
type Spawner struct {
	nextID WalkerID
}

// NewSpawner creates a spawner whose first walker gets ID 1.
func NewSpawner() *Spawner {
	return &Spawner{nextID: 1}
}

// SetNextID sets the next walker ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id WalkerID) {
	s.nextID = id
}

// NextID returns the ID the next walker will receive.
func (s *Spawner) NextID() WalkerID {
	return s.nextID
}

// Spawn creates a standing walker at the centre of cell with the given health.
func (s *Spawner) Spawn(cell world.Point, health float64) *Walker {
	w := &Walker{
		ID:        s.nextID,
		Position:  CellCenter(cell),
		Health:    health,
		Direction: DirStand,
	}
	s.nextID++
	return w
}
