package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status": "ok",
		"engine": "mflux",
		"model":  "FLUX.1-schnell",
	})
}

type modelDescriptor struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	RecommendedSteps int    `json:"recommended_steps"`
}

var availableModels = []modelDescriptor{
	{ID: "flux-schnell", Name: "FLUX.1-schnell", Description: "Fastest model, 4 steps", RecommendedSteps: 4},
	{ID: "flux-dev", Name: "FLUX.1-dev", Description: "Higher quality, 20+ steps", RecommendedSteps: 20},
}

func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"models": availableModels})
}
