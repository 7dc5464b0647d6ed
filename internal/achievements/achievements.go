package achievements

// Rarity grades how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityUncommon  Rarity = "Uncommon"
	RarityRare      Rarity = "Rare"
	RarityEpic      Rarity = "Epic"
	RarityLegendary Rarity = "Legendary"
)

// Metric names the observed value an achievement's predicate reads.
type Metric string

const (
	MetricPlantCount    Metric = "plant_count"
	MetricSpeciesCount  Metric = "species_count"
	MetricWateringCount Metric = "watering_count"
)

// Achievement is a statically defined goal. Its predicate is pure: the
// observed metric value crossing the goal unlocks it.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rarity      Rarity `json:"rarity"`
	Goal        int    `json:"goal"`
	Metric      Metric `json:"-"`
}

// Eligible reports whether the observed value satisfies the goal.
func (a Achievement) Eligible(observed int) bool {
	return observed >= a.Goal
}

// Observations carries the current metric values an evaluation runs against.
type Observations struct {
	PlantCount    int
	SpeciesCount  int
	WateringCount int
}

func (o Observations) value(m Metric) int {
	switch m {
	case MetricPlantCount:
		return o.PlantCount
	case MetricSpeciesCount:
		return o.SpeciesCount
	case MetricWateringCount:
		return o.WateringCount
	default:
		return 0
	}
}

// Catalog is the full static achievement list.
var Catalog = []Achievement{
	{ID: "first-sprout", Name: "First Sprout", Description: "Add your first plant", Rarity: RarityCommon, Goal: 1, Metric: MetricPlantCount},
	{ID: "growing-family", Name: "Growing Family", Description: "Grow your collection to 5 plants", Rarity: RarityCommon, Goal: 5, Metric: MetricPlantCount},
	{ID: "plant-parent", Name: "Plant Parent", Description: "Care for 10 plants at once", Rarity: RarityUncommon, Goal: 10, Metric: MetricPlantCount},
	{ID: "urban-jungle", Name: "Urban Jungle", Description: "Reach a 25-plant collection", Rarity: RarityRare, Goal: 25, Metric: MetricPlantCount},
	{ID: "botanical-garden", Name: "Botanical Garden", Description: "Reach a 50-plant collection", Rarity: RarityEpic, Goal: 50, Metric: MetricPlantCount},
	{ID: "legendary-gardener", Name: "Legendary Gardener", Description: "Reach a 100-plant collection", Rarity: RarityLegendary, Goal: 100, Metric: MetricPlantCount},
	{ID: "species-collector", Name: "Species Collector", Description: "Collect 10 distinct species", Rarity: RarityRare, Goal: 10, Metric: MetricSpeciesCount},
	{ID: "hydration-hero", Name: "Hydration Hero", Description: "Log 50 waterings", Rarity: RarityUncommon, Goal: 50, Metric: MetricWateringCount},
}
