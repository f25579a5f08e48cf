// Command sift runs spending analysis over a transaction CSV and
// prints the result as JSON, or serves the analysis API over HTTP.
//
//	sift -csv transactions.csv
//	sift -csv transactions.csv -mode stress -scenario job_loss
//	sift -csv transactions.csv -mode project -months 6 -scenario subscription_purge
//	sift -mode serve -addr :8080
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/Shirly8/Sift/agent"
	"github.com/Shirly8/Sift/core"
	"github.com/Shirly8/Sift/llm"
	"github.com/Shirly8/Sift/logger"
	"github.com/Shirly8/Sift/progress"
	"github.com/Shirly8/Sift/server"
	"github.com/Shirly8/Sift/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()

	csvPath := flag.String("csv", "", "transaction CSV (date,amount,merchant,category)")
	mode := flag.String("mode", "analyze", "analyze, stress, project, or serve")
	addr := flag.String("addr", ":8080", "listen address for serve mode")
	scenarioName := flag.String("scenario", "", "job_loss, expense_increase, or subscription_purge")
	category := flag.String("category", "", "category for expense_increase projections")
	multiplier := flag.Float64("multiplier", 0, "multiplier for expense_increase projections")
	months := flag.Int("months", 12, "projection horizon in months")
	noLLM := flag.Bool("no-llm", false, "skip LLM insight supplementation")
	flag.Parse()

	log := logger.New()
	if *mode == "serve" {
		log = logger.NewWithWriter(os.Stderr)
	}

	sims := simulator.DefaultSims
	if v := os.Getenv("SIFT_SIMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			sims = n
		}
	}
	engine := simulator.New(simulator.WithSims(sims), simulator.WithLogger(log))

	var gen llm.Generator
	if !*noLLM && os.Getenv("ANTHROPIC_API_KEY") != "" {
		gen = llm.New(llm.Config{Model: os.Getenv("SIFT_MODEL")})
	}

	sinks := progress.Multi{progress.NewLogSink(log)}

	var hub *progress.Hub
	if *mode == "serve" {
		hub = progress.NewHub(log)
		defer hub.Close()
		sinks = append(sinks, hub)
	}

	ag, err := agent.New(agent.Config{
		Generator: gen,
		Sink:      sinks,
		Engine:    engine,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	if *mode == "serve" {
		srv := server.New(server.Config{Agent: ag, Hub: hub, Logger: log})
		return srv.Run(*addr)
	}

	if *csvPath == "" {
		return fmt.Errorf("-csv is required")
	}
	txns, err := core.LoadCSV(*csvPath)
	if err != nil {
		return err
	}
	log.Info().Int("transactions", len(txns)).Str("file", *csvPath).Msg("loaded transactions")

	var out any
	switch *mode {
	case "analyze":
		out, err = ag.Run(context.Background(), txns)
	case "stress":
		if *scenarioName == "" {
			return fmt.Errorf("-scenario is required for stress mode")
		}
		out, err = ag.StressTest(txns, simulator.ScenarioType(*scenarioName))
	case "project":
		var scenario *simulator.Scenario
		if *scenarioName != "" {
			scenario = &simulator.Scenario{
				Type:       simulator.ScenarioType(*scenarioName),
				Category:   *category,
				Multiplier: *multiplier,
			}
		}
		out, err = ag.Projection(txns, *months, scenario)
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
