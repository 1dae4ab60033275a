package digipin

// metres per degree of latitude
const metersPerDegree = 111_320.0

// gridSizes[L] is the exact cell span at level L, derived from IndiaBounds.
var gridSizes = buildGridSizes()

func buildGridSizes() [MaxPrecision + 1][2]float64 {
	var out [MaxPrecision + 1][2]float64
	lat := IndiaBounds.MaxLat - IndiaBounds.MinLat
	lon := IndiaBounds.MaxLon - IndiaBounds.MinLon
	out[0] = [2]float64{lat, lon}
	for l := 1; l <= MaxPrecision; l++ {
		lat /= gridSide
		lon /= gridSide
		out[l] = [2]float64{lat, lon}
	}
	return out
}

// GridSize returns the latitude and longitude span in degrees of a cell at
// the given level.
func GridSize(level int) (latDeg, lonDeg float64, err error) {
	if err := checkPrecision("level", level); err != nil {
		return 0, 0, err
	}
	return gridSizes[level][0], gridSizes[level][1], nil
}

// ApproxDistance returns the approximate side of a cell at level, in metres.
func ApproxDistance(level int) (float64, error) {
	lat, _, err := GridSize(level)
	if err != nil {
		return 0, err
	}
	return lat * metersPerDegree, nil
}

// LevelInfo describes the cell size at one precision level.
type LevelInfo struct {
	Level           int     `json:"level"`
	CodeLength      int     `json:"code_length"`
	GridSizeLatDeg  float64 `json:"grid_size_lat_deg"`
	GridSizeLonDeg  float64 `json:"grid_size_lon_deg"`
	ApproxDistanceM float64 `json:"approx_distance_m"`
	TotalCells      int64   `json:"total_cells"`
	Description     string  `json:"description"`
}

var levelDescriptions = [MaxPrecision + 1]string{
	"",
	"Region (~1000 km)",
	"State (~250 km)",
	"District (~63 km)",
	"Sub-district (~16 km)",
	"Locality (~4 km)",
	"Neighbourhood (~1 km)",
	"Block (~250 m)",
	"Building (~60 m)",
	"Entrance (~15 m)",
	"Door (~4 m)",
}

// PrecisionInfo describes the cells of one level.
func PrecisionInfo(level int) (LevelInfo, error) {
	lat, lon, err := GridSize(level)
	if err != nil {
		return LevelInfo{}, err
	}
	return LevelInfo{
		Level:           level,
		CodeLength:      level,
		GridSizeLatDeg:  lat,
		GridSizeLonDeg:  lon,
		ApproxDistanceM: lat * metersPerDegree,
		TotalCells:      int64(1) << (4 * level),
		Description:     levelDescriptions[level],
	}, nil
}
