// Package digipinmapper implements mapper.Interface on the DIGIPIN grid.
package digipinmapper
