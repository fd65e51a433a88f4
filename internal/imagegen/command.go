package imagegen

import (
	"strconv"
)

// OutputFileName is the artifact name mflux is told to write inside the
// workspace.
const OutputFileName = "output.png"

// Command describes how the external generator is launched:
// <Python> -m <Module> --prompt ... --model <Model>.
type Command struct {
	Python string
	Module string
	Model  string
}

// DefaultCommand runs mflux's FLUX.1-schnell pipeline with python3.
func DefaultCommand() Command {
	return Command{Python: "python3", Module: "mflux.generate", Model: "schnell"}
}

// Args returns the argument vector passed to Python for req. The order is
// fixed, and --seed is only present when req carries a seed.
func (c Command) Args(req Request, outputPath string) []string {
	args := []string{
		"-m", c.Module,
		"--prompt", req.Prompt,
		"--width", strconv.Itoa(req.Width),
		"--height", strconv.Itoa(req.Height),
		"--steps", strconv.Itoa(req.Steps),
		"--output", outputPath,
		"--model", c.Model,
	}
	if req.Seed != nil {
		args = append(args, "--seed", strconv.FormatInt(*req.Seed, 10))
	}
	return args
}
