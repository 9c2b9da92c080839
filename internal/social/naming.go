package social

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/divine-lands/internal/world"
)

var alignmentPrefixes = map[Alignment][]string{
	AlignGood:    {"Blessed", "Holy", "Divine", "Radiant"},
	AlignNeutral: {"Ancient", "Mystic", "Elder", "Wise"},
	AlignEvil:    {"Dark", "Shadow", "Cursed", "Forsaken"},
}

var (
	grassSuffixes    = []string{"Plains", "Fields", "Meadows", "Pastures"}
	forestSuffixes   = []string{"Woods", "Grove", "Glade", "Thicket"}
	desertSuffixes   = []string{"Sands", "Dunes", "Oasis", "Wastes"}
	tundraSuffixes   = []string{"Frost", "Ice", "Snow", "Glacier"}
	mountainSuffixes = []string{"Peak", "Summit", "Heights", "Cliffs"}
)

var alignmentPalettes = map[Alignment][]string{
	AlignGood: {
		"#4fc3f7", "#29b6f6", "#03a9f4", "#039be5",
		"#81c784", "#66bb6a", "#4caf50", "#43a047",
	},
	AlignNeutral: {
		"#ffd54f", "#ffca28", "#ffc107", "#ffb300",
		"#bcaaa4", "#a1887f", "#8d6e63", "#795548",
	},
	AlignEvil: {
		"#ef5350", "#f44336", "#e53935", "#d32f2f",
		"#ab47bc", "#9c27b0", "#8e24aa", "#7b1fa2",
	},
}

func biomeSuffixes(t world.Terrain) []string {
	switch t {
	case world.TerrainForest, world.TerrainSwamp:
		return forestSuffixes
	case world.TerrainDesert, world.TerrainSand:
		return desertSuffixes
	case world.TerrainTundra, world.TerrainSnow:
		return tundraSuffixes
	case world.TerrainMountain, world.TerrainRock, world.TerrainVolcanic:
		return mountainSuffixes
	default:
		return grassSuffixes
	}
}

// civilizationName draws an alignment prefix and biome suffix. Names already
// in used get a numeral appended until unique; the result is added to used.
func civilizationName(rng *rand.Rand, a Alignment, t world.Terrain, used map[string]bool) string {
	prefixes := alignmentPrefixes[a]
	suffixes := biomeSuffixes(t)
	base := prefixes[rng.Intn(len(prefixes))] + " " + suffixes[rng.Intn(len(suffixes))]

	name := base
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s %d", base, n)
	}
	used[name] = true
	return name
}

func civilizationColor(rng *rand.Rand, a Alignment) string {
	palette := alignmentPalettes[a]
	return palette[rng.Intn(len(palette))]
}

// seedID derives a stable identifier from the world seed and placement, so
// regenerating the same world yields the same IDs.
func seedID(worldSeed int64, p world.Point, name string) string {
	key := fmt.Sprintf("divine-lands/settlement/%d/%d/%d/%s", worldSeed, p.X, p.Y, name)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
