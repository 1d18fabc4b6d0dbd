package api

import (
	"time"

	"github.com/devilsangel360live/Hearth/internal/recipe"
	"github.com/devilsangel360live/Hearth/internal/scrape"
)

// DTO types keep the wire format independent of the domain structs, so store
// or pipeline changes never leak into API responses unreviewed.

func toJobDTOs(handles []scrape.Handle) []jobDTO {
	out := make([]jobDTO, 0, len(handles))
	for _, h := range handles {
		out = append(out, toJobDTO(h))
	}
	return out
}

func toJobDTO(h scrape.Handle) jobDTO {
	return jobDTO{
		JobID:        h.Job.ID,
		URL:          h.Job.URL,
		Status:       string(h.Job.Status),
		RetryCount:   h.Job.RetryCount,
		ErrorMessage: h.Job.ErrorMessage,
		CreatedAt:    h.Job.CreatedAt,
		UpdatedAt:    h.Job.UpdatedAt,
		Recipe:       toRecipeDTO(h.Recipe),
	}
}

func toRecipeDTO(rec *recipe.Recipe) *recipeDTO {
	if rec == nil {
		return nil
	}
	dto := recipeDTO{
		ID:             rec.ID,
		Title:          rec.Title,
		Image:          rec.Image,
		Summary:        rec.Summary,
		SourceURL:      rec.SourceURL,
		SourceName:     rec.SourceName,
		ReadyInMinutes: rec.ReadyInMinutes,
		Servings:       rec.Servings,
		Ingredients:    make([]ingredientDTO, 0, len(rec.Ingredients)),
		Instructions:   make([]instructionDTO, 0, len(rec.Instructions)),
		Cuisines:       rec.Cuisines,
		Tags:           rec.Tags,
		CreatedAt:      rec.CreatedAt,
	}
	for _, ing := range rec.Ingredients {
		dto.Ingredients = append(dto.Ingredients, ingredientDTO{
			Name:   ing.Name,
			Amount: ing.Amount,
			Unit:   ing.Unit,
		})
	}
	for _, step := range rec.Instructions {
		dto.Instructions = append(dto.Instructions, instructionDTO{
			Number: step.Number,
			Text:   step.Text,
		})
	}
	return &dto
}

type jobDTO struct {
	JobID        string     `json:"job_id"`
	URL          string     `json:"url"`
	Status       string     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Recipe       *recipeDTO `json:"recipe,omitempty"`
}

type recipeDTO struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Image          string           `json:"image,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	SourceURL      string           `json:"source_url"`
	SourceName     string           `json:"source_name,omitempty"`
	ReadyInMinutes int              `json:"ready_in_minutes,omitempty"`
	Servings       int              `json:"servings,omitempty"`
	Ingredients    []ingredientDTO  `json:"ingredients"`
	Instructions   []instructionDTO `json:"instructions"`
	Cuisines       []string         `json:"cuisines,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type ingredientDTO struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit,omitempty"`
}

type instructionDTO struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}
