package imagegen

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultWidth  = 512
	DefaultHeight = 512
	// DefaultSteps matches what FLUX.1-schnell is tuned for.
	DefaultSteps = 4

	MIMEType = "image/png"
)

// Request is a validated generation request. It is passed by value; Seed is
// nil when the caller did not supply one.
type Request struct {
	Prompt string
	Width  int
	Height int
	Steps  int
	Seed   *int64
}

// RequestOption customizes a Request built with NewRequest.
type RequestOption func(*Request)

func WithSize(width, height int) RequestOption {
	return func(r *Request) {
		r.Width = width
		r.Height = height
	}
}

func WithSteps(steps int) RequestOption {
	return func(r *Request) { r.Steps = steps }
}

func WithSeed(seed int64) RequestOption {
	return func(r *Request) { r.Seed = &seed }
}

// NewRequest builds a Request with defaults applied, then the options.
func NewRequest(prompt string, opts ...RequestOption) (Request, error) {
	req := Request{Prompt: prompt, Width: DefaultWidth, Height: DefaultHeight, Steps: DefaultSteps}
	for _, opt := range opts {
		opt(&req)
	}
	return req.normalized()
}

type rawRequest struct {
	Prompt string `mapstructure:"prompt"`
	Width  *int   `mapstructure:"width"`
	Height *int   `mapstructure:"height"`
	Steps  *int   `mapstructure:"steps"`
	Seed   *int64 `mapstructure:"seed"`
}

// ParseRequest turns a decoded JSON object into a Request. Missing or null
// numeric fields take their defaults; values are otherwise passed through
// untouched since mflux is the authority on valid ranges.
func ParseRequest(input map[string]any) (Request, error) {
	var raw rawRequest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       integralNumberHook,
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return Request{}, err
	}
	if err := dec.Decode(input); err != nil {
		return Request{}, validationError("invalid request: "+decodeErrorDetail(err), err)
	}

	req := Request{
		Prompt: raw.Prompt,
		Width:  intOr(raw.Width, DefaultWidth),
		Height: intOr(raw.Height, DefaultHeight),
		Steps:  intOr(raw.Steps, DefaultSteps),
		Seed:   raw.Seed,
	}
	return req.normalized()
}

func (r Request) normalized() (Request, error) {
	r.Prompt = norm.NFC.String(strings.TrimSpace(r.Prompt))
	if r.Prompt == "" {
		return Request{}, validationError("prompt is required", nil)
	}
	if r.Seed != nil {
		seed := *r.Seed
		r.Seed = &seed
	}
	return r, nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

// integralNumberHook rejects fractional and out-of-range numbers headed for
// integer fields instead of letting them truncate or wrap silently.
func integralNumberHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}

	var f float64
	switch v := data.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return checkIntRange(to, i)
		}
		if !strings.ContainsAny(v.String(), ".eE") {
			return nil, fmt.Errorf("%s is out of range", v.String())
		}
		parsed, err := v.Float64()
		if err != nil && !math.IsInf(parsed, 0) {
			return nil, fmt.Errorf("%q is not a number", v.String())
		}
		f = parsed
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%v is out of range", f)
	}
	return checkIntRange(to, int64(f))
}

func checkIntRange(to reflect.Type, i int64) (any, error) {
	if reflect.Zero(to).OverflowInt(i) {
		return nil, fmt.Errorf("%d is out of range", i)
	}
	return i, nil
}

func decodeErrorDetail(err error) string {
	if merr, ok := err.(*mapstructure.Error); ok && len(merr.Errors) > 0 {
		return strings.Join(merr.Errors, "; ")
	}
	return err.Error()
}
