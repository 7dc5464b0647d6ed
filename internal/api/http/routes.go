package httpapi

import (
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"ai-plant-care/internal/advice"
	"ai-plant-care/internal/app"
	"ai-plant-care/internal/botanist"
	"ai-plant-care/internal/plant"
	"ai-plant-care/internal/schedule"
	"ai-plant-care/internal/settings"
	"ai-plant-care/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(fa *fiber.App, a *app.App) {
	v1 := fa.Group("/api/v1")

	v1.Get("/plants", func(c *fiber.Ctx) error {
		plants, err := a.ListPlants(c.Context())
		if err != nil {
			return mapError(err)
		}

		now := time.Now()
		resp := make([]plantResponse, 0, len(plants))
		for _, p := range plants {
			resp = append(resp, toPlantResponse(p, now))
		}
		return c.JSON(resp)
	})

	v1.Post("/plants", func(c *fiber.Ctx) error {
		var req plantRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		created, err := a.CreatePlant(c.Context(), req.toPlant())
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	v1.Post("/plants/identify", func(c *fiber.Ctx) error {
		image, mimeType, err := readUpload(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		input := app.CreatePlantInput{
			CustomName: c.FormValue("customName"),
			Placement:  plant.Placement(c.FormValue("placement")),
			Notes:      c.FormValue("notes"),
		}
		created, err := a.CreateFromIdentification(c.Context(), image, mimeType, input)
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	v1.Get("/plants/:id", func(c *fiber.Ctx) error {
		p, err := a.GetPlant(c.Context(), c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(toPlantResponse(*p, time.Now()))
	})

	v1.Put("/plants/:id", func(c *fiber.Ctx) error {
		var req plantRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		p := req.toPlant()
		p.ID = c.Params("id")
		updated, err := a.UpdatePlant(c.Context(), p)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(updated)
	})

	v1.Delete("/plants/:id", func(c *fiber.Ctx) error {
		if err := a.DeletePlant(c.Context(), c.Params("id")); err != nil {
			return mapError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/plants/:id/water", func(c *fiber.Ctx) error {
		p, err := a.MarkWatered(c.Context(), c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(toPlantResponse(*p, time.Now()))
	})

	v1.Get("/plants/:id/advice", func(c *fiber.Ctx) error {
		decision, err := a.PlantAdvice(c.Context(), c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(decision)
	})

	v1.Post("/plants/:id/recalculate", func(c *fiber.Ctx) error {
		var req recalcRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		recalc, err := a.RecalculateSchedule(c.Context(), c.Params("id"), req.Feedback, req.TimingDiscrepancy)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(recalc)
	})

	v1.Put("/plants/:id/schedule", func(c *fiber.Ctx) error {
		var req scheduleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		p, err := a.ApplyRecalculation(c.Context(), c.Params("id"), req.FrequencyDays)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(p)
	})

	v1.Post("/plants/:id/diagnose", func(c *fiber.Ctx) error {
		image, mimeType, err := readUpload(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		p, err := a.DiagnosePlant(c.Context(), c.Params("id"), image, mimeType)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(p)
	})

	v1.Get("/advice/garden", func(c *fiber.Ctx) error {
		report, err := a.AdviseGarden(c.Context())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		report, err := a.Weather(c.Context())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(report)
	})

	// Settings live in the database by default; ?scope=session keeps them in
	// a cookie on this client only.
	v1.Get("/settings", func(c *fiber.Ctx) error {
		if c.Query("scope") == "session" {
			s, err := settings.NewCookieProvider(c).Load(c.Context())
			if err != nil {
				return mapError(err)
			}
			return c.JSON(s)
		}

		s, err := a.Settings(c.Context())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(s)
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var s settings.Settings
		if err := c.BodyParser(&s); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if c.Query("scope") == "session" {
			if err := settings.NewCookieProvider(c).Save(c.Context(), s); err != nil {
				return mapError(err)
			}
			return c.JSON(s)
		}

		if err := a.SaveSettings(c.Context(), s); err != nil {
			return mapError(err)
		}
		return c.JSON(s)
	})

	v1.Get("/achievements", func(c *fiber.Ctx) error {
		statuses, err := a.Achievements(c.Context())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(statuses)
	})

	v1.Post("/chat", func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reply, err := a.Chat(c.Context(), req.Question)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"reply": reply})
	})
}

// mapError translates domain sentinels into HTTP status codes. Anything
// unknown stays a 500.
func mapError(err error) error {
	switch {
	case errors.Is(err, plant.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrFetchFailed):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, advice.ErrGenerationFailed):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, botanist.ErrIdentificationFailed):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, plant.ErrInvalidFrequency):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// scheduleStatus is the derived schedule state attached to plant responses.
// Countdown is what the list renders next to the plant; a Wait advice result
// supersedes it client-side until the suggested time passes.
type scheduleStatus struct {
	NextWateringDate time.Time `json:"nextWateringDate"`
	Countdown        string    `json:"countdown"`
	Overdue          bool      `json:"overdue"`
}

type plantResponse struct {
	plant.Plant
	Schedule *scheduleStatus `json:"schedule,omitempty"`
}

func toPlantResponse(p plant.Plant, now time.Time) plantResponse {
	resp := plantResponse{Plant: p}
	if next, ok := p.NextWateringDate(); ok {
		resp.Schedule = &scheduleStatus{
			NextWateringDate: next,
			Countdown:        schedule.Countdown(now, next),
			Overdue:          schedule.IsOverdue(now, next),
		}
	}
	return resp
}

// plantRequest holds the writable plant fields.
type plantRequest struct {
	CustomName            string `json:"customName"`
	CommonName            string `json:"commonName" validate:"required"`
	LatinName             string `json:"latinName"`
	PhotoURL              string `json:"photoUrl"`
	Placement             string `json:"placement" validate:"omitempty,oneof=Indoor Outdoor"`
	Notes                 string `json:"notes"`
	CareTips              string `json:"careTips"`
	WateringFrequencyDays *int   `json:"wateringFrequency" validate:"omitempty,min=1"`
	WateringTime          string `json:"wateringTime"`
}

func (r plantRequest) toPlant() plant.Plant {
	return plant.Plant{
		CustomName:            r.CustomName,
		CommonName:            r.CommonName,
		LatinName:             r.LatinName,
		PhotoURL:              r.PhotoURL,
		Placement:             plant.Placement(r.Placement),
		Notes:                 r.Notes,
		CareTips:              r.CareTips,
		WateringFrequencyDays: r.WateringFrequencyDays,
		WateringTime:          r.WateringTime,
	}
}

type recalcRequest struct {
	Feedback          string `json:"feedback" validate:"required"`
	TimingDiscrepancy string `json:"timingDiscrepancy"`
}

type scheduleRequest struct {
	FrequencyDays int `json:"frequencyDays" validate:"required,min=1"`
}

type chatRequest struct {
	Question string `json:"question" validate:"required"`
}

// readUpload extracts the uploaded photo from a multipart form.
func readUpload(c *fiber.Ctx) ([]byte, string, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		return nil, "", errors.New("photo file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}
