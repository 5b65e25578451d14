package domain

// Row is one record of a source table, keyed by column name.
type Row = map[string]any

// Snapshot holds every row of each selected table at one point in time,
// keyed by table name.
type Snapshot map[string][]Row
