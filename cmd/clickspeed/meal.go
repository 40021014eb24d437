package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/revoirb612/pedamint-hcoding/internal/config"
	"github.com/revoirb612/pedamint-hcoding/internal/meal"
)

var (
	mealRegion     string
	mealSchool     string
	mealSchoolName string
	mealDate       string
	mealKind       string
	mealAPIKey     string
	mealSave       bool
	mealNoFallback bool
)

func newMealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meal",
		Short: "Look up a school meal menu",
		Args:  cobra.NoArgs,
		RunE:  runMealCmd,
	}
	cmd.Flags().StringVar(&mealRegion, "region", "", fmt.Sprintf("region (%s)", strings.Join(meal.Regions(), ", ")))
	cmd.Flags().StringVar(&mealSchool, "school", "", "school code (SD_SCHUL_CODE)")
	cmd.Flags().StringVar(&mealSchoolName, "school-name", "", "school name to remember")
	cmd.Flags().StringVar(&mealDate, "date", "", "date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&mealKind, "meal", "", "breakfast, lunch or dinner (default all)")
	cmd.Flags().StringVar(&mealAPIKey, "api-key", "", "NEIS open API key")
	cmd.Flags().BoolVar(&mealSave, "save", false, "remember region, school and key")
	cmd.Flags().BoolVar(&mealNoFallback, "no-fallback", false, "fail instead of showing the sample menu")
	return cmd
}

func runMealCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	log, err := commandLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	st, err := openStore(log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	ctx := commandContext(cmd)
	saved, err := meal.LoadPrefs(ctx, st)
	if err != nil {
		return err
	}
	prefs := saved.Merge(meal.Prefs{
		Region:     mealRegion,
		SchoolCode: mealSchool,
		SchoolName: mealSchoolName,
		APIKey:     mealAPIKey,
	})

	query := prefs.Query()
	query.Meal = mealKind
	if mealDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", mealDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date value: %w", err)
		}
		query.Date = parsed
	}
	if _, err := query.Validate(); err != nil {
		return err
	}
	if mealSave {
		if err := meal.SavePrefs(ctx, st, prefs); err != nil {
			return err
		}
	}

	mealCfg, err := resolveMealConfig(fileCfg)
	if err != nil {
		return err
	}
	client := meal.New(mealCfg, nil, nil, log)

	var menu meal.Menu
	if mealNoFallback {
		menu, err = client.Lookup(ctx, query)
	} else {
		menu, err = client.LookupWithFallback(ctx, query)
	}
	if err != nil {
		return err
	}
	if menu.School == "" {
		menu.School = prefs.SchoolName
	}
	return meal.Render(cmd.OutOrStdout(), menu)
}

func resolveMealConfig(fileCfg config.FileConfig) (meal.Config, error) {
	cfg := meal.Config{
		BaseURL:       meal.DefaultBaseURL,
		FallbackDelay: meal.DefaultFallbackDelay,
	}
	if v := fileCfg.Meal.BaseURL; v != nil {
		cfg.BaseURL = *v
	}
	if v := fileCfg.Meal.APIKey; v != nil {
		cfg.APIKey = *v
	}
	if v := fileCfg.Meal.FallbackDelay; v != nil {
		delay, err := time.ParseDuration(*v)
		if err != nil {
			return meal.Config{}, fmt.Errorf("invalid meal fallback delay %q: %w", *v, err)
		}
		cfg.FallbackDelay = delay
	}
	return cfg, nil
}
