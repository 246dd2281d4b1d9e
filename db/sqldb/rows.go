package sqldb

type Rows interface {
	Next() bool
	Columns() ([]string, error)
	// Values returns the current row. Text columns come back as string, not []byte.
	Values() ([]any, error)
	Close() error
	Err() error
}

type Result interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}

// Record is one fetched row keyed by field name
type Record map[string]any

// NextRecord advances rows and returns the row as a Record.
// found is false once the rows are exhausted; check rows.Err() afterwards.
func NextRecord(rows Rows, columns []string) (record Record, found bool, err error) {
	if !rows.Next() {
		return nil, false, nil
	}
	values, err := rows.Values()
	if err != nil {
		return nil, false, err
	}
	record = make(Record, len(columns))
	for i, col := range columns {
		if i < len(values) {
			record[col] = values[i]
		}
	}
	return record, true, nil
}

// CollectRecords reads every remaining row. It does not close rows.
func CollectRecords(rows Rows, columns []string) ([]Record, error) {
	records := []Record{}
	for {
		record, found, err := NextRecord(rows, columns)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
