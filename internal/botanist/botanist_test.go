package botanist

import (
	"context"
	"errors"
	"testing"

	"ai-plant-care/internal/llm"
)

type mockVision struct {
	responses []string
	err       error
	calls     int
}

func (m *mockVision) GenerateFromImage(_ context.Context, _ string, _ string, _ []byte) (llm.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return llm.ContentResponse{Content: m.responses[idx]}, nil
}

type mockText struct {
	response string
	err      error
}

func (m *mockText) GenerateContent(_ context.Context, _ string) (llm.ContentResponse, error) {
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.response}, nil
}

var photo = []byte("fake-jpeg-bytes")

func TestIdentify(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		vision := &mockVision{responses: []string{`{
			"common_name": "Monstera",
			"latin_name": "Monstera deliciosa",
			"care_tips": "Bright indirect light.",
			"watering_frequency_days": 7,
			"annotated_regions": [
				{"label": "Fenestrated leaf", "description": "Mature split leaf", "x": 0.1, "y": 0.2, "width": 0.3, "height": 0.25}
			]
		}`}}
		b := New(&mockText{}, vision)

		res, err := b.Identify(ctx, photo, "image/jpeg")
		if err != nil {
			t.Fatalf("Identify failed: %v", err)
		}
		if res.Identification.CommonName != "Monstera" {
			t.Errorf("Expected Monstera, got %s", res.Identification.CommonName)
		}
		if res.Identification.WateringFrequencyDays != 7 {
			t.Errorf("Expected 7-day interval, got %d", res.Identification.WateringFrequencyDays)
		}
		if len(res.Identification.AnnotatedRegions) != 1 {
			t.Fatalf("Expected 1 region, got %d", len(res.Identification.AnnotatedRegions))
		}
		r := res.Identification.AnnotatedRegions[0]
		if r.Label != "Fenestrated leaf" || r.X != 0.1 || r.Width != 0.3 {
			t.Errorf("Unexpected region: %+v", r)
		}
	})

	t.Run("OutOfRangeRegionRetriesThenFails", func(t *testing.T) {
		vision := &mockVision{responses: []string{`{
			"common_name": "Monstera",
			"annotated_regions": [{"label": "Leaf", "x": 1.5, "y": 0.2, "width": 0.3, "height": 0.25}]
		}`}}
		b := New(&mockText{}, vision)

		_, err := b.Identify(ctx, photo, "image/jpeg")
		if !errors.Is(err, ErrIdentificationFailed) {
			t.Fatalf("Expected ErrIdentificationFailed, got %v", err)
		}
		if vision.calls != 2 {
			t.Errorf("Expected exactly one retry (2 calls), got %d", vision.calls)
		}
	})

	t.Run("MalformedThenValidRecovers", func(t *testing.T) {
		vision := &mockVision{responses: []string{
			`not json at all`,
			`{"common_name": "Snake Plant", "watering_frequency_days": 14}`,
		}}
		b := New(&mockText{}, vision)

		res, err := b.Identify(ctx, photo, "image/jpeg")
		if err != nil {
			t.Fatalf("Identify failed after retry: %v", err)
		}
		if res.Identification.CommonName != "Snake Plant" {
			t.Errorf("Expected Snake Plant, got %s", res.Identification.CommonName)
		}
	})
}

func TestDiagnose(t *testing.T) {
	ctx := context.Background()

	vision := &mockVision{responses: []string{`{"healthy": false, "diagnosis": "Brown leaf tips suggest underwatering."}`}}
	b := New(&mockText{}, vision)

	res, err := b.Diagnose(ctx, photo, "image/jpeg", "Monstera")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if res.Diagnosis.Healthy {
		t.Error("Expected unhealthy diagnosis")
	}
	if res.Diagnosis.Diagnosis == "" {
		t.Error("Expected non-empty diagnosis text")
	}
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		b := New(&mockText{response: `{"reply": "Water it when the top inch of soil is dry."}`}, &mockVision{})

		res, err := b.Chat(ctx, "How often should I water my monstera?", "Monstera, indoor, watered 3 days ago")
		if err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
		if res.Reply == "" {
			t.Error("Expected non-empty reply")
		}
	})

	t.Run("GeneratorErrorPropagates", func(t *testing.T) {
		wantErr := errors.New("quota exceeded")
		b := New(&mockText{err: wantErr}, &mockVision{})

		_, err := b.Chat(ctx, "hello", "")
		if !errors.Is(err, wantErr) {
			t.Fatalf("Expected generator error to propagate, got %v", err)
		}
	})
}
