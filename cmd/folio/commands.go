package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/remote"
	"github.com/kalambet/folio/internal/storage"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or seed the profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the served profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showProfile(commandContext(cmd), client, os.Stdout)
	},
}

func showProfile(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, remote.ProfilePath)
	if err != nil {
		return err
	}

	var p profile.Profile
	if err := decodeJSON(resp, &p); err != nil {
		return err
	}
	return writeJSON(w, p)
}

var profileSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a profile into the local store",
	Long: `Write a profile into the local SQLite store used by source.kind=sqlite.

Examples:
  folio profile seed --sample
  folio profile seed --file ./me.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		sample, _ := cmd.Flags().GetBool("sample")

		p, err := seedRecord(file, sample)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		if err := seedProfile(commandContext(cmd), store, p); err != nil {
			return err
		}
		printSuccess("Seeded profile for %s", p.Name)
		if cfg.Source.Kind != config.SourceSQLite {
			printWarning("source.kind is %q; run `folio config set source.kind sqlite` to serve it", cfg.Source.Kind)
		}
		return nil
	},
}

func init() {
	profileSeedCmd.Flags().String("file", "", "path to a profile JSON file")
	profileSeedCmd.Flags().Bool("sample", false, "seed the built-in sample profile")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSeedCmd)
}

// seedRecord resolves the --file / --sample flags into a profile.
func seedRecord(file string, sample bool) (profile.Profile, error) {
	switch {
	case file != "" && sample:
		return profile.Profile{}, errors.New("--file and --sample are mutually exclusive")
	case sample:
		return profile.Sample(), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return profile.Profile{}, fmt.Errorf("reading profile file: %w", err)
		}
		var p profile.Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return profile.Profile{}, fmt.Errorf("parsing profile file: %w", err)
		}
		return p, nil
	default:
		return profile.Profile{}, errors.New("one of --file or --sample is required")
	}
}

type profileSaver interface {
	SaveProfile(ctx context.Context, p profile.Profile) error
}

func seedProfile(ctx context.Context, store profileSaver, p profile.Profile) error {
	if err := profile.Validate(ctx, p); err != nil {
		return err
	}
	if err := store.SaveProfile(ctx, p); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
