package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"fluxserver/internal/imagegen"
)

const maxGenerateBodyBytes = 1 << 20

type generateResponse struct {
	Success  bool   `json:"success"`
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Generate handles POST /generate. The mflux run is detached from the
// client's connection; only the executor timeout or App.Close stops it.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGenerateBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := imagegen.ParseRequest(body)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = &a.Logger
	}

	outcome := "success"
	if a.Metrics != nil {
		done := a.Metrics.GenerationStarted()
		defer func() { done(outcome) }()
	}

	a.inflight.Add(1)
	defer a.inflight.Done()
	ctx, cancel := a.generationContext(r)
	defer cancel()

	res, err := a.Generator.Execute(ctx, req)
	if err != nil {
		kind := imagegen.KindOf(err)
		outcome = kind.String()
		log.Error().Err(err).Str("kind", outcome).Msg("generation failed")
		msg := err.Error()
		if kind == imagegen.KindUnknown {
			msg = "Image generation failed"
		}
		a.json(w, statusForKind(kind), failureResponse{Success: false, Error: msg})
		return
	}

	a.json(w, http.StatusOK, generateResponse{
		Success:  true,
		Image:    base64.StdEncoding.EncodeToString(res.Image),
		MIMEType: res.MIMEType,
		Width:    res.Width,
		Height:   res.Height,
	})
}

func statusForKind(kind imagegen.Kind) int {
	switch kind {
	case imagegen.KindValidation:
		return http.StatusBadRequest
	case imagegen.KindTimeout:
		return http.StatusGatewayTimeout
	case imagegen.KindToolNotInstalled, imagegen.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
