// Package social places civilizations on generated terrain: it scores land
// for habitability, picks separated spawn sites, and describes the
// settlement seeds the simulation founds there.
package social

import (
	"fmt"

	"github.com/talgya/divine-lands/internal/world"
)

// Alignment is the moral leaning of a civilization.
type Alignment uint8

const (
	AlignGood Alignment = iota
	AlignNeutral
	AlignEvil
)

var alignmentNames = [...]string{"good", "neutral", "evil"}

func (a Alignment) String() string {
	if int(a) < len(alignmentNames) {
		return alignmentNames[a]
	}
	return fmt.Sprintf("alignment(%d)", uint8(a))
}

// MarshalText encodes the alignment as its name.
func (a Alignment) MarshalText() ([]byte, error) {
	if int(a) >= len(alignmentNames) {
		return nil, fmt.Errorf("unknown alignment %d", uint8(a))
	}
	return []byte(alignmentNames[a]), nil
}

// UnmarshalText decodes an alignment name.
func (a *Alignment) UnmarshalText(b []byte) error {
	for i, n := range alignmentNames {
		if n == string(b) {
			*a = Alignment(i)
			return nil
		}
	}
	return fmt.Errorf("unknown alignment %q", b)
}

// AlignmentWeights are the relative odds of each alignment being drawn.
type AlignmentWeights struct {
	Good    float64 `toml:"good" json:"good"`
	Neutral float64 `toml:"neutral" json:"neutral"`
	Evil    float64 `toml:"evil" json:"evil"`
}

func (w AlignmentWeights) total() float64 {
	return w.Good + w.Neutral + w.Evil
}

// SpawnSite is a candidate location scored by habitability.
type SpawnSite struct {
	Position world.Point   `json:"position"`
	Quality  float64       `json:"quality"`
	Terrain  world.Terrain `json:"terrain"`
}

// SettlementSeed describes a population group placed by the spawner. The
// simulation turns it into a building when founding.
type SettlementSeed struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Alignment  Alignment     `json:"alignment"`
	Color      string        `json:"color"`
	Position   world.Point   `json:"position"`
	Terrain    world.Terrain `json:"terrain"`
	Quality    float64       `json:"quality"`
	Population int           `json:"population"`
}
