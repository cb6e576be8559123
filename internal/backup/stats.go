package backup

import "time"

// Stats aggregates the catalog for status displays.
type Stats struct {
	Total      int
	ByKind     map[Kind]int
	BackupDays int
	TotalSize  int64
	Latest     time.Time // zero when no backups exist
}

// Stats walks the catalog and tallies backup counts, sizes, and the most
// recent creation time.
func (c *Catalog) Stats() Stats {
	stats := Stats{ByKind: make(map[Kind]int)}
	days := make(map[string]struct{})
	for _, entry := range c.List() {
		stats.Total++
		stats.ByKind[entry.Kind]++
		stats.TotalSize += entry.SizeBytes
		days[entry.Bucket] = struct{}{}
		if entry.CreatedAt.After(stats.Latest) {
			stats.Latest = entry.CreatedAt
		}
	}
	stats.BackupDays = len(days)
	return stats
}
