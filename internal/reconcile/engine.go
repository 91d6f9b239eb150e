package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/dataset"
	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

// ErrUnknownCompany is returned when the ticker is not in the dataset.
var ErrUnknownCompany = eris.New("reconcile: unknown company")

// Outcome describes one applied merge.
type Outcome struct {
	Ticker     string           `json:"ticker"`
	Stats      model.MergeStats `json:"stats"`
	BackupPath string           `json:"backup_path"`
}

// Engine applies merges to the stored dataset.
type Engine struct {
	store *dataset.Store

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewEngine creates an Engine over store.
func NewEngine(store *dataset.Store) *Engine {
	return &Engine{store: store, nowFunc: time.Now}
}

// Apply merges incoming into the company's history. The stored dataset is
// backed up before mutation; if the backup cannot be written nothing is
// changed and the error is returned.
func (e *Engine) Apply(ctx context.Context, ticker string, incoming []model.MarketCapPoint) (*Outcome, error) {
	out := &Outcome{Ticker: ticker}
	backup, err := e.store.Update(ctx, func(ds *model.Dataset) error {
		c, ok := ds.Company(ticker)
		if !ok {
			return eris.Wrap(ErrUnknownCompany, ticker)
		}
		c.History, out.Stats = Merge(c.History, incoming)
		ds.Metadata.LastUpdated = e.nowFunc().Format(model.DateLayout)
		return nil
	})
	out.BackupPath = backup
	if err != nil {
		return out, eris.Wrapf(err, "reconcile: apply %s", ticker)
	}

	zap.L().Info("reconcile: merged",
		zap.String("ticker", ticker),
		zap.Int("added", out.Stats.Added),
		zap.Int("replaced", out.Stats.Replaced),
		zap.Int("kept", out.Stats.Kept),
		zap.Int("collapsed", out.Stats.Collapsed),
		zap.String("backup", backup),
	)
	return out, nil
}
