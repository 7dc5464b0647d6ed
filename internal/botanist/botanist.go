package botanist

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
)

//go:embed identify_prompt.md
var identifyPrompt string

//go:embed diagnose_prompt.md
var diagnosePrompt string

//go:embed chat_prompt.md
var chatPrompt string

// ErrIdentificationFailed means the model could not produce a usable
// identification after the retry.
var ErrIdentificationFailed = errors.New("identification failed")

// Identification is what the vision model extracted from a plant photo.
type Identification struct {
	CommonName            string                  `json:"commonName"`
	LatinName             string                  `json:"latinName"`
	CareTips              string                  `json:"careTips"`
	WateringFrequencyDays int                     `json:"wateringFrequencyDays"`
	AnnotatedRegions      []plant.AnnotatedRegion `json:"annotatedRegions"`
}

// Diagnosis is a health assessment from a plant photo.
type Diagnosis struct {
	Healthy   bool   `json:"healthy"`
	Diagnosis string `json:"diagnosis"`
}

// IdentifyResult pairs an identification with its execution metadata.
type IdentifyResult struct {
	Identification Identification
	Meta           shared.AgentMeta
}

// DiagnoseResult pairs a diagnosis with its execution metadata.
type DiagnoseResult struct {
	Diagnosis Diagnosis
	Meta      shared.AgentMeta
}

// ChatResult pairs a chat reply with its execution metadata.
type ChatResult struct {
	Reply string
	Meta  shared.AgentMeta
}

// Botanist wraps the vision and chat agents.
type Botanist struct {
	textGen   llm.TextGenerator
	visionGen llm.VisionGenerator
	validate  *validator.Validate
}

// New creates a Botanist over the given generators.
func New(textGen llm.TextGenerator, visionGen llm.VisionGenerator) *Botanist {
	return &Botanist{
		textGen:   textGen,
		visionGen: visionGen,
		validate:  validator.New(),
	}
}

type rawRegion struct {
	Label       string  `json:"label" validate:"required"`
	Description string  `json:"description"`
	X           float64 `json:"x" validate:"min=0,max=1"`
	Y           float64 `json:"y" validate:"min=0,max=1"`
	Width       float64 `json:"width" validate:"min=0,max=1"`
	Height      float64 `json:"height" validate:"min=0,max=1"`
}

type rawIdentification struct {
	CommonName            string      `json:"common_name" validate:"required"`
	LatinName             string      `json:"latin_name"`
	CareTips              string      `json:"care_tips"`
	WateringFrequencyDays int         `json:"watering_frequency_days" validate:"min=0"`
	AnnotatedRegions      []rawRegion `json:"annotated_regions" validate:"dive"`
}

// Identify names the plant on the photo and extracts care advice plus
// annotated photo regions with normalized coordinates.
func (b *Botanist) Identify(ctx context.Context, image []byte, mimeType string) (IdentifyResult, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Identifier"}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := b.visionGen.GenerateFromImage(ctx, identifyPrompt, mimeType, image)
		if err != nil {
			return IdentifyResult{Meta: meta}, err
		}
		accumulate(&meta, resp)

		raw := &rawIdentification{}
		if lastErr = json.Unmarshal([]byte(resp.Content), raw); lastErr != nil {
			lastErr = fmt.Errorf("failed to parse identification response: %w. Response: %s", lastErr, resp.Content)
			continue
		}
		if lastErr = b.validate.Struct(raw); lastErr != nil {
			continue
		}

		ident := Identification{
			CommonName:            raw.CommonName,
			LatinName:             raw.LatinName,
			CareTips:              raw.CareTips,
			WateringFrequencyDays: raw.WateringFrequencyDays,
		}
		for _, r := range raw.AnnotatedRegions {
			ident.AnnotatedRegions = append(ident.AnnotatedRegions, plant.AnnotatedRegion{
				Label:       r.Label,
				Description: r.Description,
				X:           r.X,
				Y:           r.Y,
				Width:       r.Width,
				Height:      r.Height,
			})
		}
		meta.Latency = time.Since(start)
		return IdentifyResult{Identification: ident, Meta: meta}, nil
	}
	meta.Latency = time.Since(start)
	return IdentifyResult{Meta: meta}, fmt.Errorf("%w: %v", ErrIdentificationFailed, lastErr)
}

type diagnosePromptData struct {
	CommonName string
}

type rawDiagnosis struct {
	Healthy   bool   `json:"healthy"`
	Diagnosis string `json:"diagnosis" validate:"required"`
}

// Diagnose assesses plant health from a photo.
func (b *Botanist) Diagnose(ctx context.Context, image []byte, mimeType, commonName string) (DiagnoseResult, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Diagnostician"}

	prompt, err := buildPrompt("diagnose", diagnosePrompt, diagnosePromptData{CommonName: commonName})
	if err != nil {
		return DiagnoseResult{Meta: meta}, err
	}

	resp, err := b.visionGen.GenerateFromImage(ctx, prompt, mimeType, image)
	if err != nil {
		return DiagnoseResult{Meta: meta}, err
	}
	accumulate(&meta, resp)
	meta.Latency = time.Since(start)

	raw := &rawDiagnosis{}
	if err := json.Unmarshal([]byte(resp.Content), raw); err != nil {
		return DiagnoseResult{Meta: meta}, fmt.Errorf("failed to parse diagnosis response: %w. Response: %s", err, resp.Content)
	}
	if err := b.validate.Struct(raw); err != nil {
		return DiagnoseResult{Meta: meta}, fmt.Errorf("diagnosis response failed validation: %w", err)
	}

	return DiagnoseResult{
		Diagnosis: Diagnosis{Healthy: raw.Healthy, Diagnosis: raw.Diagnosis},
		Meta:      meta,
	}, nil
}

type chatPromptData struct {
	Question     string
	PlantContext string
}

type rawChatReply struct {
	Reply string `json:"reply" validate:"required"`
}

// Chat answers a free-form question, optionally grounded in a description of
// the owner's plants.
func (b *Botanist) Chat(ctx context.Context, question, plantContext string) (ChatResult, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Chat"}

	prompt, err := buildPrompt("chat", chatPrompt, chatPromptData{
		Question:     question,
		PlantContext: plantContext,
	})
	if err != nil {
		return ChatResult{Meta: meta}, err
	}

	resp, err := b.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ChatResult{Meta: meta}, err
	}
	accumulate(&meta, resp)
	meta.Latency = time.Since(start)

	raw := &rawChatReply{}
	if err := json.Unmarshal([]byte(resp.Content), raw); err != nil {
		return ChatResult{Meta: meta}, fmt.Errorf("failed to parse chat response: %w. Response: %s", err, resp.Content)
	}
	if err := b.validate.Struct(raw); err != nil {
		return ChatResult{Meta: meta}, fmt.Errorf("chat response failed validation: %w", err)
	}

	return ChatResult{Reply: raw.Reply, Meta: meta}, nil
}

func accumulate(meta *shared.AgentMeta, resp llm.ContentResponse) {
	meta.Usage.PromptTokens += resp.Usage.PromptTokens
	meta.Usage.CompletionTokens += resp.Usage.CompletionTokens
	meta.Usage.TotalTokens += resp.Usage.TotalTokens
	meta.Usage.Model = resp.Usage.Model
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
