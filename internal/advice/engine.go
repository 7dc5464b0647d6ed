package advice

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"

	"ai-plant-care/internal/llm"
	"ai-plant-care/internal/plant"
	"ai-plant-care/internal/shared"
	"ai-plant-care/internal/weather"
)

//go:embed watering_prompt.md
var wateringPrompt string

//go:embed recalc_prompt.md
var recalcPrompt string

// ErrGenerationFailed means the model failed to produce a valid response
// after the retry.
var ErrGenerationFailed = errors.New("generation failed")

// Verdict is the watering call the engine makes.
type Verdict string

const (
	VerdictYes  Verdict = "Yes"
	VerdictNo   Verdict = "No"
	VerdictWait Verdict = "Wait"
)

// Decision is an immediate watering decision. NewWateringTime is set only
// when the verdict is Wait, and is always in the future at decision time.
type Decision struct {
	ShouldWater     Verdict    `json:"decision"`
	Reason          string     `json:"reason"`
	NewWateringTime *time.Time `json:"newWateringTime,omitempty"`
}

// Recalculation is an adjusted watering interval. NewFrequencyDays >= 1.
type Recalculation struct {
	NewFrequencyDays int    `json:"newFrequencyDays"`
	Reasoning        string `json:"reasoning"`
}

// DecisionResult pairs a decision with its execution metadata.
type DecisionResult struct {
	Decision Decision
	Meta     shared.AgentMeta
}

// RecalcResult pairs a recalculation with its execution metadata.
type RecalcResult struct {
	Recalculation Recalculation
	Meta          shared.AgentMeta
}

// RecalcRequest carries everything the schedule recalculation needs.
// TimingDiscrepancy is free-form ("early", "late", "skipping", ...).
type RecalcRequest struct {
	CommonName           string
	CurrentFrequencyDays int
	Feedback             string
	TimingDiscrepancy    string
	EnvironmentNotes     string
	Location             string
}

// Engine makes watering decisions and schedule adjustments. Weather always
// informs the generative step; a plant that is not overdue never reaches it.
type Engine struct {
	textGen  llm.TextGenerator
	provider weather.Provider
	validate *validator.Validate
	now      func() time.Time
}

// NewEngine creates an advice engine over the given generator and weather
// provider.
func NewEngine(textGen llm.TextGenerator, provider weather.Provider) *Engine {
	return &Engine{
		textGen:  textGen,
		provider: provider,
		validate: validator.New(),
		now:      time.Now,
	}
}

type wateringPromptData struct {
	CommonName  string
	CustomName  string
	Placement   plant.Placement
	Notes       string
	LastWatered string
	Location    string
	Current     weather.Current
	Forecast    []weather.ForecastDay
	Now         string
}

type rawDecision struct {
	Decision        string `json:"decision" validate:"required,oneof=Yes No Wait"`
	Reason          string `json:"reason" validate:"required"`
	NewWateringTime string `json:"new_watering_time" validate:"required_if=Decision Wait"`
}

// DecideWatering answers "should I water this plant right now". A plant that
// is not overdue gets a deterministic No without any weather or model call.
// Weather failures propagate; the caller decides whether a fallback applies.
func (e *Engine) DecideWatering(ctx context.Context, p plant.Plant, location string) (DecisionResult, error) {
	if !p.IsWateringOverdue(e.now()) {
		return DecisionResult{
			Decision: Decision{ShouldWater: VerdictNo, Reason: "not due yet"},
			Meta:     shared.AgentMeta{AgentName: "WateringAdvisor"},
		}, nil
	}

	report, err := weather.FetchWithPolicy(ctx, e.provider, location, weather.Propagate)
	if err != nil {
		return DecisionResult{}, err
	}
	return e.DecideWithWeather(ctx, p, report)
}

// DecideWithWeather runs the generative step against an already fetched
// weather report. The not-overdue short-circuit still applies.
func (e *Engine) DecideWithWeather(ctx context.Context, p plant.Plant, report weather.Report) (DecisionResult, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "WateringAdvisor"}

	if !p.IsWateringOverdue(e.now()) {
		return DecisionResult{
			Decision: Decision{ShouldWater: VerdictNo, Reason: "not due yet"},
			Meta:     meta,
		}, nil
	}

	data := wateringPromptData{
		CommonName: p.CommonName,
		CustomName: p.CustomName,
		Placement:  p.Placement,
		Notes:      p.Notes,
		Location:   report.Location,
		Current:    report.Current,
		Forecast:   report.Forecast,
		Now:        e.now().UTC().Format(time.RFC3339),
	}
	if p.LastWatered != nil {
		data.LastWatered = p.LastWatered.UTC().Format(time.RFC3339)
	}

	prompt, err := buildPrompt("watering", wateringPrompt, data)
	if err != nil {
		return DecisionResult{Meta: meta}, err
	}

	var decision Decision
	meta, err = e.generateValidated(ctx, meta, prompt, func(content string) error {
		raw := &rawDecision{}
		if err := json.Unmarshal([]byte(content), raw); err != nil {
			return fmt.Errorf("failed to parse watering response: %w. Response: %s", err, content)
		}
		if err := e.validate.Struct(raw); err != nil {
			return fmt.Errorf("watering response failed validation: %w", err)
		}

		decision = Decision{ShouldWater: Verdict(raw.Decision), Reason: raw.Reason}
		if raw.Decision == string(VerdictWait) {
			ts, err := time.Parse(time.RFC3339, raw.NewWateringTime)
			if err != nil {
				return fmt.Errorf("invalid new_watering_time %q: %w", raw.NewWateringTime, err)
			}
			if !ts.After(e.now()) {
				return fmt.Errorf("new_watering_time %q is not in the future", raw.NewWateringTime)
			}
			decision.NewWateringTime = &ts
		}
		return nil
	})
	meta.Latency = time.Since(start)
	if err != nil {
		return DecisionResult{Meta: meta}, err
	}
	return DecisionResult{Decision: decision, Meta: meta}, nil
}

type recalcPromptData struct {
	CommonName           string
	CurrentFrequencyDays int
	Feedback             string
	TimingDiscrepancy    string
	EnvironmentNotes     string
	Location             string
	Current              weather.Current
	Forecast             []weather.ForecastDay
}

type rawRecalculation struct {
	NewFrequencyDays int    `json:"new_frequency_days" validate:"required,min=1"`
	Reasoning        string `json:"reasoning" validate:"required"`
}

// Recalculate proposes a new watering interval from owner feedback. Weather
// is fetched first and supplied as context; failures propagate.
func (e *Engine) Recalculate(ctx context.Context, req RecalcRequest) (RecalcResult, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "ScheduleAdvisor"}

	report, err := weather.FetchWithPolicy(ctx, e.provider, req.Location, weather.Propagate)
	if err != nil {
		return RecalcResult{}, err
	}

	prompt, err := buildPrompt("recalc", recalcPrompt, recalcPromptData{
		CommonName:           req.CommonName,
		CurrentFrequencyDays: req.CurrentFrequencyDays,
		Feedback:             req.Feedback,
		TimingDiscrepancy:    req.TimingDiscrepancy,
		EnvironmentNotes:     req.EnvironmentNotes,
		Location:             report.Location,
		Current:              report.Current,
		Forecast:             report.Forecast,
	})
	if err != nil {
		return RecalcResult{Meta: meta}, err
	}

	var recalc Recalculation
	meta, err = e.generateValidated(ctx, meta, prompt, func(content string) error {
		raw := &rawRecalculation{}
		if err := json.Unmarshal([]byte(content), raw); err != nil {
			return fmt.Errorf("failed to parse recalculation response: %w. Response: %s", err, content)
		}
		if err := e.validate.Struct(raw); err != nil {
			return fmt.Errorf("recalculation response failed validation: %w", err)
		}
		recalc = Recalculation{NewFrequencyDays: raw.NewFrequencyDays, Reasoning: raw.Reasoning}
		return nil
	})
	meta.Latency = time.Since(start)
	if err != nil {
		return RecalcResult{Meta: meta}, err
	}
	return RecalcResult{Recalculation: recalc, Meta: meta}, nil
}

// generateValidated calls the model and applies accept to its output,
// retrying once on an invalid response. Token usage accumulates across
// attempts.
func (e *Engine) generateValidated(
	ctx context.Context,
	meta shared.AgentMeta,
	prompt string,
	accept func(content string) error,
) (shared.AgentMeta, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := e.textGen.GenerateContent(ctx, prompt)
		if err != nil {
			return meta, err
		}
		meta.Usage.PromptTokens += resp.Usage.PromptTokens
		meta.Usage.CompletionTokens += resp.Usage.CompletionTokens
		meta.Usage.TotalTokens += resp.Usage.TotalTokens
		meta.Usage.Model = resp.Usage.Model

		if lastErr = accept(resp.Content); lastErr == nil {
			return meta, nil
		}
	}
	return meta, fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

func buildPrompt(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
