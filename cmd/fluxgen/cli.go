package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"fluxserver/internal/imagegen"
	"fluxserver/internal/infra"
	"fluxserver/internal/storage"
)

type generateFlags struct {
	width  int
	height int
	steps  int
	seed   int64
	out    string
	name   string
}

// NewCLI builds the fluxgen root command. It runs one generation with the
// same executor the HTTP server uses and saves the PNG.
func NewCLI() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:           "fluxgen PROMPT",
		Short:         "Generate one image with mflux and save it as PNG",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, strings.Join(args, " "), flags)
		},
	}

	cmd.Flags().IntVar(&flags.width, "width", imagegen.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&flags.height, "height", imagegen.DefaultHeight, "Image height in pixels")
	cmd.Flags().IntVar(&flags.steps, "steps", imagegen.DefaultSteps, "Number of inference steps")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Seed for reproducible output (random when unset)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", ".", "Directory the image is written to")
	cmd.Flags().StringVar(&flags.name, "name", "", "File name (defaults to a random <uuid>.png)")

	return cmd
}

func runGenerate(cmd *cobra.Command, prompt string, flags generateFlags) error {
	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLoggerTo(os.Stderr, cfg.AppEnv)

	body := map[string]any{
		"prompt": prompt,
		"width":  flags.width,
		"height": flags.height,
		"steps":  flags.steps,
	}
	if cmd.Flags().Changed("seed") {
		body["seed"] = flags.seed
	}
	req, err := imagegen.ParseRequest(body)
	if err != nil {
		return err
	}

	store, err := storage.NewFileStore(flags.out)
	if err != nil {
		return err
	}

	executor := imagegen.NewExecutor(imagegen.Options{
		Command: imagegen.Command{Python: cfg.PythonPath, Module: cfg.MfluxModule, Model: cfg.MfluxModel},
		Timeout: cfg.GenerateTimeout,
		WorkDir: cfg.WorkDir,
		Logger:  logger,
	})
	res, err := executor.Execute(cmd.Context(), req)
	if err != nil {
		return err
	}

	name := flags.name
	if name == "" {
		name = uuid.NewString() + ".png"
	}
	path, err := store.Write(cmd.Context(), name, res.Image)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// exitCode maps a failure to the process exit status and reports it on stderr.
func exitCode(err error) int {
	fmt.Fprintln(os.Stderr, "Error:", err)
	var gerr *imagegen.Error
	if !errors.As(err, &gerr) {
		return 1
	}
	switch gerr.Kind {
	case imagegen.KindValidation:
		return 2
	case imagegen.KindToolNotInstalled:
		return 127
	case imagegen.KindTimeout:
		return 124
	case imagegen.KindCanceled:
		return 130
	default:
		if gerr.Stderr != "" {
			fmt.Fprintln(os.Stderr, strings.TrimSpace(gerr.Stderr))
		}
		return 1
	}
}
