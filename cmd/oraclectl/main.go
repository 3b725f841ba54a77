// Command oraclectl submits a pipeline run and renders it live in the
// terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"oracle/pkg/client"
	"oracle/pkg/logx"
	"oracle/pkg/reconcile"
	"oracle/pkg/tui"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "pipeline server URL")
	profilePath := flag.String("profile", "", "path to the target's profile document (required)")
	resumePath := flag.String("resume", "", "path to the candidate's resume text (optional)")
	resumeDocPath := flag.String("resume-doc", "", "path to the candidate's resume document (optional, overrides -resume)")
	tokenProgress := flag.Bool("token-progress", false, "estimate progress from tokenizer counts instead of word counts")
	flag.Parse()

	logger := logx.NewLogger("oraclectl")

	if *profilePath == "" {
		fmt.Fprintln(os.Stderr, "usage: oraclectl -profile <file> [-resume <file>] [-resume-doc <file>] [-server <url>]")
		os.Exit(2)
	}

	profile, err := os.ReadFile(*profilePath)
	if err != nil {
		logger.Error("read profile: %v", err)
		os.Exit(1)
	}

	input := client.RunInput{ProfileDocument: profile}
	if *resumePath != "" {
		resume, err := os.ReadFile(*resumePath)
		if err != nil {
			logger.Error("read resume: %v", err)
			os.Exit(1)
		}
		input.ResumeText = string(resume)
	}
	if *resumeDocPath != "" {
		resumeDoc, err := os.ReadFile(*resumeDocPath)
		if err != nil {
			logger.Error("read resume document: %v", err)
			os.Exit(1)
		}
		input.ResumeDocument = resumeDoc
	}

	var estimator reconcile.Estimator
	if *tokenProgress {
		estimator, err = reconcile.NewTokenCountEstimator()
		if err != nil {
			logger.Warn("token estimator unavailable, using word counts: %v", err)
			estimator = nil
		}
	}

	c := client.New(*serverURL, estimator)

	healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	info, err := c.Health(healthCtx)
	cancel()
	if err != nil {
		logger.Error("server unreachable at %s: %v", *serverURL, err)
		os.Exit(1)
	}
	logger.Info("connected to %s (model %s)", *serverURL, info.Model)

	app := tui.NewApp(c, input)
	if _, err := tea.NewProgram(app).Run(); err != nil {
		logger.Error("tui: %v", err)
		os.Exit(1)
	}
}
