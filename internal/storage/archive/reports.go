package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/newthinker/retsign/internal/core"
	"github.com/newthinker/retsign/internal/report"
	"go.uber.org/zap"
)

const runsPrefix = "runs"

// ReportKey returns the archive key of a run's report.
func ReportKey(runID string, f report.Format) string {
	return path.Join(runsPrefix, runID, "report."+f.Ext())
}

// Reports stores encoded run reports in a Store.
type Reports struct {
	store  Store
	format report.Format
	logger *zap.Logger
}

// NewReports creates a report archive writing in format f.
func NewReports(store Store, f report.Format, logger *zap.Logger) *Reports {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reports{store: store, format: f, logger: logger}
}

// Save encodes rep and writes it under runs/<run-id>/. It returns the key.
func (r *Reports) Save(ctx context.Context, rep *report.Report) (string, error) {
	if rep.RunID == "" {
		return "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("report has no run id"))
	}

	var buf bytes.Buffer
	if err := report.Encode(&buf, rep, r.format); err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}

	key := ReportKey(rep.RunID, r.format)
	if err := r.store.Put(ctx, key, buf.Bytes(), r.format.ContentType()); err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("put %s: %w", key, err))
	}
	r.logger.Info("report archived", zap.String("key", key), zap.Int("bytes", buf.Len()))
	return key, nil
}

// Load reads back the report of runID.
func (r *Reports) Load(ctx context.Context, runID string) (*report.Report, error) {
	data, err := r.store.Get(ctx, ReportKey(runID, r.format))
	if err != nil {
		return nil, err
	}
	return report.Decode(bytes.NewReader(data), r.format)
}

// Runs lists the run IDs with a stored report, sorted.
func (r *Reports) Runs(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, runsPrefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, k := range keys {
		parts := strings.Split(k, "/")
		if len(parts) != 3 || parts[0] != runsPrefix || !strings.HasPrefix(parts[2], "report.") {
			continue
		}
		if !seen[parts[1]] {
			seen[parts[1]] = true
			ids = append(ids, parts[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}
