package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gateguard/gateguard/internal/config"
	"github.com/gateguard/gateguard/internal/providers/elastic"
	"github.com/gateguard/gateguard/internal/providers/mongo"
	"github.com/gateguard/gateguard/internal/scoring"
	"github.com/gateguard/gateguard/internal/sensitive"
)

// DoctorResult is the structured output of gateguard doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	Mongo struct {
		Reachable bool   `json:"reachable"`
		Error     string `json:"error,omitempty"`
	} `json:"mongo"`

	LogStores struct {
		Loaded    int               `json:"loaded"`
		Reachable map[string]bool   `json:"reachable,omitempty"`
		Errors    map[string]string `json:"errors,omitempty"`
		Error     string            `json:"error,omitempty"`
	} `json:"log_stores"`

	Keywords struct {
		Path    string `json:"path"`
		Present bool   `json:"present"`
		Count   int    `json:"count,omitempty"`
		Error   string `json:"error,omitempty"`
	} `json:"keywords"`

	Weights struct {
		Path   string   `json:"path,omitempty"`
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors,omitempty"`
	} `json:"weights"`

	OverallHealthy bool `json:"overall_healthy"`
}

// configPinger probes the configuration store connection.
type configPinger interface {
	Ping(ctx context.Context) error
}

// logStoreSet loads every enabled log-store connection for health probing.
type logStoreSet interface {
	All(ctx context.Context) (map[string]*elastic.Client, error)
}

func newDoctorCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			settings := config.Load(v)

			store, err := mongo.Connect(cmd.Context(), settings.Mongo.URI, settings.Mongo.Database)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(context.Background()); err != nil {
					log.Printf("closing configuration store: %v", err)
				}
			}()

			result, err := runDoctor(
				cmd.Context(),
				store,
				elastic.NewRegistry(store),
				settings.Analysis,
				cmd.OutOrStdout(),
				format,
			)
			if err != nil {
				// Rendering failure — let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy; runDoctor itself never returns an error for an
// unhealthy result so that no error text leaks to callers (such as main).
func runDoctor(ctx context.Context, store configPinger, logs logStoreSet, analysis config.AnalysisSettings, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, store, logs, analysis)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, store configPinger, logs logStoreSet, analysis config.AnalysisSettings) DoctorResult {
	var result DoctorResult

	// Configuration store: one round-trip to the primary.
	if err := store.Ping(ctx); err != nil {
		result.Mongo.Error = err.Error()
	} else {
		result.Mongo.Reachable = true
	}

	// Log stores: load every enabled connection, then probe each one.
	clients, err := logs.All(ctx)
	if err != nil {
		result.LogStores.Error = err.Error()
	} else {
		result.LogStores.Loaded = len(clients)
		result.LogStores.Reachable = make(map[string]bool, len(clients))
		for name, client := range clients {
			if pingErr := client.Ping(ctx); pingErr != nil {
				result.LogStores.Reachable[name] = false
				if result.LogStores.Errors == nil {
					result.LogStores.Errors = make(map[string]string)
				}
				result.LogStores.Errors[name] = pingErr.Error()
			} else {
				result.LogStores.Reachable[name] = true
			}
		}
	}

	// Keywords file: stat → load (file is optional; absent means the
	// built-in list is used).
	result.Keywords.Path = analysis.KeywordsFile
	_, statErr := os.Stat(analysis.KeywordsFile)
	if statErr == nil {
		result.Keywords.Present = true
		keywords, loadErr := sensitive.LoadKeywords(analysis.KeywordsFile)
		if loadErr != nil {
			result.Keywords.Error = loadErr.Error()
		} else {
			result.Keywords.Count = len(keywords)
		}
	} else if !os.IsNotExist(statErr) {
		// Stat error other than "not found" — treat as present but unreadable.
		result.Keywords.Present = true
		result.Keywords.Error = statErr.Error()
	}

	// Weights file: load → validate (unset means the built-in calibration
	// is used).
	if analysis.WeightsFile == "" {
		result.Weights.Valid = true
	} else {
		result.Weights.Path = analysis.WeightsFile
		weights, loadErr := scoring.LoadWeights(analysis.WeightsFile)
		if loadErr != nil {
			result.Weights.Errors = []string{loadErr.Error()}
		} else {
			errs := weights.Validate()
			if len(errs) == 0 {
				result.Weights.Valid = true
			} else {
				for _, e := range errs {
					result.Weights.Errors = append(result.Weights.Errors, e.Error())
				}
			}
		}
	}

	logsHealthy := result.LogStores.Error == ""
	for _, ok := range result.LogStores.Reachable {
		logsHealthy = logsHealthy && ok
	}

	result.OverallHealthy = result.Mongo.Reachable &&
		logsHealthy &&
		result.Keywords.Error == "" &&
		result.Weights.Valid

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfiguration Store:")
	if result.Mongo.Reachable {
		doctorPrint(w, "MongoDB", "OK", "")
	} else {
		doctorPrint(w, "MongoDB", "FAIL", result.Mongo.Error)
	}

	fmt.Fprintln(w, "\nLog Stores:")
	if result.LogStores.Error != "" {
		doctorPrint(w, "Connections", "FAIL", result.LogStores.Error)
	} else {
		doctorPrint(w, "Connections", "OK", fmt.Sprintf("%d loaded", result.LogStores.Loaded))
		names := make([]string, 0, len(result.LogStores.Reachable))
		for name := range result.LogStores.Reachable {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if result.LogStores.Reachable[name] {
				doctorPrint(w, name, "OK", "")
			} else {
				doctorPrint(w, name, "FAIL", result.LogStores.Errors[name])
			}
		}
	}

	fmt.Fprintln(w, "\nAnalysis:")
	switch {
	case !result.Keywords.Present:
		doctorPrint(w, "Keywords file", "Not found (optional)", "using built-in list")
	case result.Keywords.Error != "":
		doctorPrint(w, "Keywords file", "FAIL", result.Keywords.Error)
	default:
		doctorPrint(w, "Keywords file", "OK", fmt.Sprintf("%d keywords", result.Keywords.Count))
	}
	switch {
	case result.Weights.Path == "":
		doctorPrint(w, "Weights file", "Not set (optional)", "")
	case result.Weights.Valid:
		doctorPrint(w, "Weights file", "OK", "")
	default:
		for _, e := range result.Weights.Errors {
			doctorPrint(w, "Weights file", "FAIL", e)
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
