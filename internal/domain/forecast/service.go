package forecast

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emmanuel-123tech/africareai/internal/platform/websocket"
)

// MaxHorizon bounds the series length accepted from API callers.
const MaxHorizon = 60

type Service struct {
	engine         *Engine
	runs           RunRepository
	logger         zerolog.Logger
	defaultDisease string
	events         websocket.EventPublisher
}

func NewService(runs RunRepository, engine *Engine, logger zerolog.Logger) *Service {
	return &Service{
		engine:         engine,
		runs:           runs,
		logger:         logger.With().Str("component", "forecast").Logger(),
		defaultDisease: DefaultDisease,
	}
}

// SetDefaultDisease changes the disease used when a request names none.
func (s *Service) SetDefaultDisease(disease string) {
	if disease != "" {
		s.defaultDisease = disease
	}
}

// SetEventPublisher announces stored runs to live subscribers.
func (s *Service) SetEventPublisher(p websocket.EventPublisher) {
	s.events = p
}

// -- Forecast Runs --

func (s *Service) CreateRun(ctx context.Context, seed Seed, createdBy string) (*Run, error) {
	if seed.Horizon > MaxHorizon {
		return nil, fmt.Errorf("horizon must not exceed %d", MaxHorizon)
	}
	if seed.Disease == "" {
		seed.Disease = s.defaultDisease
	}
	if seed.Scenario == "" {
		seed.Scenario = ScenarioBaseline
	}

	series := s.engine.Generate(seed)
	run := &Run{
		Disease:  seed.Disease,
		Location: seed.Location,
		Horizon:  len(series),
		Scenario: seed.Scenario,
		Series:   series,
	}
	if createdBy != "" {
		run.CreatedBy = &createdBy
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("store forecast run: %w", err)
	}

	s.logger.Debug().
		Str("run_id", run.ID.String()).
		Str("disease", run.Disease).
		Str("location", run.Location).
		Str("scenario", string(run.Scenario)).
		Int("horizon", run.Horizon).
		Msg("forecast run stored")
	s.publish(ctx, run)
	return run, nil
}

type runSummary struct {
	Disease  string   `json:"disease"`
	Location string   `json:"location"`
	Scenario Scenario `json:"scenario"`
	Horizon  int      `json:"horizon"`
	Peak     float64  `json:"peak"`
}

func (s *Service) publish(ctx context.Context, run *Run) {
	if s.events == nil {
		return
	}
	summary := runSummary{Disease: run.Disease, Location: run.Location, Scenario: run.Scenario, Horizon: run.Horizon}
	for _, p := range run.Series {
		summary.Peak = max(summary.Peak, p.Forecast)
	}
	event, err := websocket.NewEvent("forecast.created", websocket.TopicForecasts, run.ID.String(), summary)
	if err == nil {
		err = s.events.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID.String()).Msg("failed to publish forecast event")
	}
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *Service) DeleteRun(ctx context.Context, id uuid.UUID) error {
	return s.runs.Delete(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	return s.runs.List(ctx, limit, offset)
}

func (s *Service) SearchRuns(ctx context.Context, params map[string]string, limit, offset int) ([]*Run, int, error) {
	return s.runs.Search(ctx, params, limit, offset)
}

// -- Facility Loads & Scenarios --

func (s *Service) FacilityLoads(disease string, scenario Scenario) []FacilityLoad {
	if disease == "" {
		disease = s.defaultDisease
	}
	if scenario == "" {
		scenario = ScenarioBaseline
	}
	return ForecastFacilityLoads(disease, scenario)
}

func (s *Service) Simulate(baseline []Point, adj Adjustment) ([]Point, error) {
	if len(baseline) == 0 {
		return nil, fmt.Errorf("baseline series is required")
	}
	return RunScenarioSimulation(baseline, adj), nil
}

// Reference describes the static tables the engine draws on.
type Reference struct {
	Diseases   map[string]DiseaseProfile `json:"diseases"`
	Locations  map[string]float64        `json:"locations"`
	Scenarios  map[Scenario]float64      `json:"scenarios"`
	Facilities []string                  `json:"facilities"`
}

func (s *Service) Reference() *Reference {
	ref := &Reference{
		Diseases:   make(map[string]DiseaseProfile),
		Locations:  Locations(),
		Scenarios:  make(map[Scenario]float64, len(Scenarios)),
		Facilities: FacilityNames(),
	}
	for _, d := range Diseases() {
		ref.Diseases[d] = ProfileFor(d)
	}
	for _, sc := range Scenarios {
		ref.Scenarios[sc] = ScenarioShift(sc)
	}
	return ref
}
