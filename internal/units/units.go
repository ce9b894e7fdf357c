// Package units renders byte counts and elapsed time for block text.
//
// Both humanizers floor to the largest whole unit instead of rounding, so
// 1023 bytes stays "1023 B" and 1024 becomes "1 KiB". The exact boundaries
// matter more than precision on a status bar.
package units

import "fmt"

// Prefix selects the unit family for Bytes.
type Prefix string

const (
	// Binary uses powers of 1024: B, KiB, MiB, GiB, TiB.
	Binary Prefix = "binary"
	// Decimal uses powers of 1000: B, kB, MB, GB, TB.
	Decimal Prefix = "decimal"
)

var (
	binaryUnits  = []string{"B", "KiB", "MiB", "GiB", "TiB"}
	decimalUnits = []string{"B", "kB", "MB", "GB", "TB"}
)

// ParsePrefix maps a config value to a Prefix. Empty means Binary.
func ParsePrefix(s string) (Prefix, error) {
	switch Prefix(s) {
	case "", Binary:
		return Binary, nil
	case Decimal:
		return Decimal, nil
	default:
		return "", fmt.Errorf("unknown prefix %q (want binary or decimal)", s)
	}
}

// Bytes converts n bytes to "<whole> <unit>". maxUnit, when it names a unit
// of the chosen family, stops the conversion there (e.g. GPU memory in MiB).
func Bytes(n uint64, prefix Prefix, maxUnit string) string {
	unitNames, divisor := binaryUnits, uint64(1024)
	if prefix == Decimal {
		unitNames, divisor = decimalUnits, 1000
	}

	value := n
	for i, unit := range unitNames {
		next := value / divisor
		if next == 0 || unit == maxUnit || i == len(unitNames)-1 {
			return fmt.Sprintf("%d %s", value, unit)
		}
		value = next
	}
	return fmt.Sprintf("%d B", n)
}

// Duration converts whole seconds to the two most significant units:
// "45s", "1m 30s", "2h 5m", "1d 1h", "3y 12d". Years are 365 days.
func Duration(seconds uint64) string {
	minutes := seconds / 60
	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	hours := minutes / 60
	if hours == 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	days := hours / 24
	if days == 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	years := days / 365
	if years == 0 {
		return fmt.Sprintf("%dd %dh", days, hours%24)
	}
	return fmt.Sprintf("%dy %dd", years, days%365)
}

// Percent returns part*100/total floored, or 0 when total is 0.
func Percent(part, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}
