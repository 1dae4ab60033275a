package digipin

import "fmt"

// BatchEncode encodes every coordinate at the same precision. The first
// failure aborts the batch; no partial result is returned.
func BatchEncode(coords []Coordinate, precision int) ([]string, error) {
	out := make([]string, len(coords))
	for i, c := range coords {
		code, err := Encode(c.Lat, c.Lon, precision)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = code
	}
	return out, nil
}

// BatchDecode decodes every code. The first failure aborts the batch.
func BatchDecode(codes []string) ([]Coordinate, error) {
	out := make([]Coordinate, len(codes))
	for i, code := range codes {
		c, err := Decode(code)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}
