package dataset

import (
	"github.com/poiesic/dataprep/core"
)

// Normalize drops rows without content and reshapes the rest into
// normalized records, preserving order.
//
// Returns a *LoadError of KindNoValidRowsAfterFiltering when no row survives.
func Normalize(rows []core.RawRow) (core.NormalizedTable, error) {
	records := make(core.NormalizedTable, 0, len(rows))
	for i := range rows {
		if rows[i].Content == "" {
			continue
		}
		record, err := core.NewNormalizedRecord(&rows[i])
		if err != nil {
			return nil, loadError(KindUnexpectedParse, "", err)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, loadError(KindNoValidRowsAfterFiltering, "", nil)
	}
	return records, nil
}
