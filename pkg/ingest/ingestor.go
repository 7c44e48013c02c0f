package ingest

import (
	"context"
	"log/slog"

	"arbor/pkg/common"
)

// DefaultLimit is the number of rows in the published street tree dataset.
const DefaultLimit = 45709

type Stats struct {
	Rows       int `json:"rows"`
	Accepted   int `json:"accepted"`
	Malformed  int `json:"malformed"`
	Duplicates int `json:"duplicates"`
}

// Ingestor turns raw rows into records. Rows that fail to decode are skipped.
// Only measured records claim their id, so a later measured row repeating
// that id is skipped while unmeasured rows never shadow a valid one.
type Ingestor struct {
	src    Source
	limit  int
	logger *slog.Logger
}

// NewIngestor reads at most limit rows from src; limit <= 0 reads everything.
func NewIngestor(src Source, limit int, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{src: src, limit: limit, logger: logger}
}

func (in *Ingestor) Load(ctx context.Context) ([]common.Record, Stats, error) {
	var (
		st      Stats
		records []common.Record
	)
	seen := newIDSet(32)

	err := in.src.Each(ctx, func(row Row) bool {
		if in.limit > 0 && st.Rows == in.limit {
			return false
		}
		st.Rows++

		rec, err := Decode(row)
		if err != nil {
			st.Malformed++
			in.logger.Debug("skipping malformed row", "row", st.Rows, "err", err)
			return true
		}
		if rec.Measured() && !seen.Add(rec.ID) {
			st.Duplicates++
			in.logger.Debug("skipping duplicate id", "id", rec.ID)
			return true
		}

		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, st, err
	}
	st.Accepted = len(records)

	if lo, hi, ok := seen.Range(); ok {
		in.logger.Info("ingested records",
			"rows", st.Rows,
			"accepted", st.Accepted,
			"malformed", st.Malformed,
			"duplicates", st.Duplicates,
			"min_id", lo,
			"max_id", hi,
		)
	}
	return records, st, nil
}
