package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/gopg/experiment"
	"github.com/samuelfneumann/gopg/experiment/checkpointer"
	"github.com/samuelfneumann/gopg/experiment/trackers"
	"github.com/samuelfneumann/gopg/utils/progressbar"
)

const (
	returnsFile = "returns.bin"
	lengthsFile = "lengths.bin"
	modelFile   = "model.bin"
	configFile  = "config.json"
)

type trainFlags struct {
	config     string
	env        string
	out        string
	seed       uint64
	steps      int
	checkpoint int
	quiet      bool
}

type plotFlags struct {
	title  string
	yLabel string
	output string
	window int
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pgtrain",
		Short:         "Train linear Gaussian policies with policy gradient",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(trainCommand())
	root.AddCommand(plotCommand())
	return root
}

func trainCommand() *cobra.Command {
	flags := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run an online experiment and save its returns and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := train(flags)
			return err
		},
	}
	cmd.PersistentFlags().StringVar(&flags.config, "config", "",
		"experiment configuration file (JSON), defaults are used if empty")
	cmd.PersistentFlags().StringVar(&flags.env, "env", "",
		"overrides the environment in the configuration (PointMass, "+
			"Pendulum or LunarLander)")
	cmd.PersistentFlags().StringVar(&flags.out, "out", "runs",
		"directory in which to create the run directory")
	cmd.PersistentFlags().Uint64Var(&flags.seed, "seed", 0, "random seed")
	cmd.PersistentFlags().IntVar(&flags.steps, "steps", 0,
		"overrides the number of steps in the configuration if positive")
	cmd.PersistentFlags().IntVar(&flags.checkpoint, "checkpoint", 0,
		"save the model every n steps, never if 0")
	cmd.PersistentFlags().BoolVar(&flags.quiet, "quiet", false,
		"do not display the progress bar")
	return cmd
}

func plotCommand() *cobra.Command {
	flags := &plotFlags{}
	cmd := &cobra.Command{
		Use:   "plot data.bin",
		Short: "Plot data saved by a tracker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return plot(args[0], flags)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.title, "title", "Episodic Return",
		"plot title")
	cmd.PersistentFlags().StringVar(&flags.yLabel, "ylabel", "Return",
		"y axis label")
	cmd.PersistentFlags().StringVar(&flags.output, "output", "",
		"output image, defaults to the data file with a .png extension")
	cmd.PersistentFlags().IntVar(&flags.window, "window", 10,
		"moving average window")
	return cmd
}

// loadConfig reads an experiment configuration from a JSON file, or
// returns the default configuration if filename is empty
func loadConfig(filename string) (experiment.Config, error) {
	if filename == "" {
		return experiment.DefaultConfig()
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return experiment.Config{}, fmt.Errorf("loadConfig: %v", err)
	}

	var c experiment.Config
	if err := json.Unmarshal(data, &c); err != nil {
		return experiment.Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	return c, nil
}

// train runs an experiment and returns the directory holding its data
func train(flags *trainFlags) (string, error) {
	c, err := loadConfig(flags.config)
	if err != nil {
		return "", err
	}
	if flags.steps > 0 {
		c.MaxSteps = flags.steps
	}
	if flags.env != "" {
		c.Env.Name = experiment.EnvType(flags.env)
	}
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("train: %v", err)
	}

	dir := filepath.Join(flags.out, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("train: %v", err)
	}

	// Save the configuration alongside the results so runs can be
	// reproduced
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return "", fmt.Errorf("train: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), data,
		0o644); err != nil {
		return "", fmt.Errorf("train: %v", err)
	}

	logger := log.New(os.Stderr, "pgtrain: ", log.LstdFlags)
	logger.Printf("run %v: seed %v, %v steps", filepath.Base(dir), flags.seed,
		c.MaxSteps)

	t := []trackers.Tracker{
		trackers.NewReturn(filepath.Join(dir, returnsFile)),
		trackers.NewEpisodeLength(filepath.Join(dir, lengthsFile)),
	}
	exp, agent, err := c.CreateExp(flags.seed, t, nil)
	if err != nil {
		return "", fmt.Errorf("train: %v", err)
	}
	agent.SetLogger(logger)

	if flags.checkpoint > 0 {
		check, err := checkpointer.NewNStep(flags.checkpoint, agent,
			checkpointer.FilenameEnumerator(0, filepath.Join(dir, "model"),
				".bin"))
		if err != nil {
			return "", fmt.Errorf("train: %v", err)
		}
		exp.AddCheckpointer(check)
	}

	if !flags.quiet {
		exp.SetProgressBar(progressbar.New(os.Stderr, 50, c.MaxSteps))
	}

	if err := exp.Run(); err != nil {
		return "", fmt.Errorf("train: %v", err)
	}
	if err := exp.Save(); err != nil {
		return "", fmt.Errorf("train: could not save data: %v", err)
	}
	if err := agent.SaveModel(filepath.Join(dir, modelFile)); err != nil {
		return "", fmt.Errorf("train: could not save model: %v", err)
	}

	logger.Printf("run %v: saved to %v", filepath.Base(dir), dir)
	return dir, nil
}

func plot(filename string, flags *plotFlags) error {
	data, err := trackers.LoadData(filename)
	if err != nil {
		return fmt.Errorf("plot: %v", err)
	}

	output := flags.output
	if output == "" {
		output = filename[:len(filename)-len(filepath.Ext(filename))] + ".png"
	}

	if err := trackers.Plot(output, flags.title, flags.yLabel, data,
		flags.window); err != nil {
		return fmt.Errorf("plot: %v", err)
	}
	log.Printf("saved plot to %v", output)
	return nil
}
