package features

import "churnlab/internal/dataset"

// ColumnsFor returns the encoding layout of a dataset schema.
func ColumnsFor(s dataset.Schema) Columns {
	return copyColumns(Columns{
		Numeric:     s.Numeric,
		Binary:      s.Binary,
		Categorical: s.Categorical,
	})
}
