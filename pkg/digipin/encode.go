package digipin

// Cell is a code together with the point it was derived from and the
// extent it covers.
type Cell struct {
	Code   string      `json:"code"`
	Lat    float64     `json:"lat"`
	Lon    float64     `json:"lon"`
	Bounds BoundingBox `json:"bounds"`
}

// Encode returns the code of length precision for the cell holding
// (lat, lon). Pass MaxPrecision for a full-resolution code.
//
// The point must lie inside IndiaBounds, edges included; otherwise a
// *RangeError is returned. A precision outside [1, 10] yields a
// *DomainError.
func Encode(lat, lon float64, precision int) (string, error) {
	code, _, err := encode(lat, lon, precision)
	return code, err
}

// EncodeWithBounds is Encode that also reports the cell extent.
func EncodeWithBounds(lat, lon float64, precision int) (Cell, error) {
	code, box, err := encode(lat, lon, precision)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Code: code, Lat: lat, Lon: lon, Bounds: box}, nil
}

func encode(lat, lon float64, precision int) (string, BoundingBox, error) {
	if err := checkPrecision("precision", precision); err != nil {
		return "", BoundingBox{}, err
	}
	if !IsValidCoordinate(lat, lon) {
		return "", BoundingBox{}, &RangeError{Lat: lat, Lon: lon, Bounds: IndiaBounds}
	}

	var buf [MaxPrecision]byte
	box := IndiaBounds
	for i := 0; i < precision; i++ {
		row, col := box.locate(lat, lon)
		buf[i] = spiral[row][col]
		box = box.sub(row, col)
	}
	return string(buf[:precision]), box, nil
}

// IsValidCoordinate reports whether (lat, lon) is a finite point inside
// IndiaBounds. NaN fails every comparison and is rejected.
func IsValidCoordinate(lat, lon float64) bool {
	return IndiaBounds.Contains(lat, lon)
}
