package dataset

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emmanuel-123tech/africareai/internal/domain/forecast"
)

// MaxRows bounds the number of data rows accepted in one upload.
const MaxRows = 600

type Service struct {
	analyzer       *Analyzer
	logger         zerolog.Logger
	defaultDisease string
}

func NewService(analyzer *Analyzer, logger zerolog.Logger) *Service {
	return &Service{
		analyzer:       analyzer,
		logger:         logger.With().Str("component", "dataset").Logger(),
		defaultDisease: forecast.DefaultDisease,
	}
}

// SetDefaultDisease changes the disease used when a request names none.
func (s *Service) SetDefaultDisease(disease string) {
	if disease != "" {
		s.defaultDisease = disease
	}
}

// AnalyseText parses raw CSV text and analyses it.
func (s *Service) AnalyseText(ctx context.Context, text, disease string, scenario forecast.Scenario) (*Analysis, error) {
	ds, err := Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(ds.Rows) > MaxRows {
		return nil, fmt.Errorf("dataset must not exceed %d rows", MaxRows)
	}
	if disease == "" {
		disease = s.defaultDisease
	}

	analysis := s.analyzer.Analyse(ds, disease, scenario)
	s.logger.Debug().
		Int("rows", len(ds.Rows)).
		Strs("headers", ds.Headers).
		Str("disease", disease).
		Float64("next_quarter", analysis.NextQuarter).
		Msg("dataset analysed")
	return analysis, nil
}
