// Package digipin encodes latitude/longitude pairs inside India's bounding
// box into DIGIPIN codes and decodes them back into cell centroids or
// bounding boxes.
//
// A code is 1 to 10 symbols drawn from Alphabet. Each symbol selects one of
// 16 sub-cells of the previous level using the fixed spiral grid, so a code
// of length L names a cell whose sides are 36/4^L degrees. Codes are prefix
// hierarchical: truncating a code yields the code of the enclosing cell.
//
// Every function in this package is pure and safe for concurrent use.
package digipin
