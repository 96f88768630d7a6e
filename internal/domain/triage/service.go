package triage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emmanuel-123tech/africareai/internal/platform/websocket"
)

type Service struct {
	assessments AssessmentRepository
	logger      zerolog.Logger
	events      websocket.EventPublisher
}

func NewService(assessments AssessmentRepository, logger zerolog.Logger) *Service {
	return &Service{
		assessments: assessments,
		logger:      logger.With().Str("component", "triage").Logger(),
	}
}

// SetEventPublisher announces stored assessments to live subscribers.
// Emergencies are additionally sent on the emergency topic.
func (s *Service) SetEventPublisher(p websocket.EventPublisher) {
	s.events = p
}

// Assess runs the triage engine and stores the outcome.
func (s *Service) Assess(ctx context.Context, in Input, createdBy string) (*Assessment, error) {
	if in.Age < 0 {
		return nil, fmt.Errorf("age must not be negative")
	}
	if in.OnsetHours < 0 {
		return nil, fmt.Errorf("onset_hours must not be negative")
	}

	result := TriagePatient(in)
	a := &Assessment{
		PrimaryCondition: result.PrimaryCondition,
		Severity:         result.Severity,
		Confidence:       result.Confidence,
		Input:            in,
		Result:           result,
	}
	if createdBy != "" {
		a.CreatedBy = &createdBy
	}
	if err := s.assessments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("store triage assessment: %w", err)
	}

	s.logger.Debug().
		Str("assessment_id", a.ID.String()).
		Str("condition", a.PrimaryCondition).
		Str("severity", string(a.Severity)).
		Int("confidence", a.Confidence).
		Int("red_flags", len(result.RedFlags)).
		Msg("triage assessment stored")
	s.publish(ctx, a)
	return a, nil
}

type assessmentSummary struct {
	PrimaryCondition string   `json:"primary_condition"`
	Severity         Severity `json:"severity"`
	Confidence       int      `json:"confidence"`
	RedFlags         []string `json:"red_flags"`
	ReferralRequired bool     `json:"referral_required"`
}

func (s *Service) publish(ctx context.Context, a *Assessment) {
	if s.events == nil {
		return
	}
	summary := assessmentSummary{
		PrimaryCondition: a.PrimaryCondition,
		Severity:         a.Severity,
		Confidence:       a.Confidence,
		RedFlags:         a.Result.RedFlags,
		ReferralRequired: a.Result.Referral.Required,
	}
	topics := []string{websocket.TopicTriage}
	if a.Severity == SeverityEmergency {
		topics = append(topics, websocket.TopicTriageEmergency)
	}
	for _, topic := range topics {
		event, err := websocket.NewEvent("triage.assessed", topic, a.ID.String(), summary)
		if err == nil {
			err = s.events.Publish(ctx, event)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("assessment_id", a.ID.String()).Msg("failed to publish triage event")
		}
	}
}

func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.assessments.GetByID(ctx, id)
}

func (s *Service) ListAssessments(ctx context.Context, limit, offset int) ([]*Assessment, int, error) {
	return s.assessments.List(ctx, limit, offset)
}

func (s *Service) SearchAssessments(ctx context.Context, params map[string]string, limit, offset int) ([]*Assessment, int, error) {
	return s.assessments.Search(ctx, params, limit, offset)
}
