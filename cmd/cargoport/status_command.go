package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cargoport/internal/api"
)

const statusTimeout = 5 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, raw, err := fetchStatus(cmd.Context(), "http://"+cfg.Paths.APIBind)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				_, err := out.Write(raw)
				return err
			}
			renderStatus(out, status, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw status document")
	return cmd
}

func fetchStatus(ctx context.Context, baseURL string) (api.StatusResponse, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/status", nil)
	if err != nil {
		return api.StatusResponse{}, nil, fmt.Errorf("build status request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return api.StatusResponse{}, nil, fmt.Errorf("contact daemon at %s: %w; start it with `cargoport run`", baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return api.StatusResponse{}, nil, fmt.Errorf("read status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return api.StatusResponse{}, nil, fmt.Errorf("status request failed: %s", resp.Status)
	}
	var status api.StatusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return api.StatusResponse{}, nil, fmt.Errorf("decode status: %w", err)
	}
	return status, raw, nil
}

func renderStatus(out io.Writer, status api.StatusResponse, colorize bool) {
	fmt.Fprintln(out, "Daemon")
	fmt.Fprintln(out, renderStatusLine("Running", passFail(status.Running), "pid "+strconv.Itoa(status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("Subscribers", statusInfo, strconv.Itoa(status.Subscribers), colorize))

	storeKind := passFail(status.Store.Reachable)
	storeDetail := fmt.Sprintf("%s, %d pending claims", status.Store.Driver, status.Store.Pending)
	if status.Store.Error != "" {
		storeDetail = status.Store.Error
	}
	fmt.Fprintln(out, renderStatusLine("Store", storeKind, storeDetail, colorize))
	if summary := status.Enrichment; summary != nil {
		kind := statusInfo
		if summary.Failed > 0 || summary.ClaimErrors > 0 {
			kind = statusWarn
		}
		detail := fmt.Sprintf("claimed %d, enriched %d, discarded %d, failed %d, claim errors %d",
			summary.Claimed, summary.Enriched, summary.Discarded, summary.Failed, summary.ClaimErrors)
		fmt.Fprintln(out, renderStatusLine("Enrichment", kind, detail, colorize))
	}

	if len(status.Preflight) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Preflight")
		for _, check := range status.Preflight {
			fmt.Fprintln(out, renderStatusLine(check.Name, passFail(check.Passed), check.Detail, colorize))
		}
	}

	if len(status.Jobs) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(status.Jobs))
	for _, job := range status.Jobs {
		last := "-"
		if !job.LastFinished.IsZero() {
			last = job.LastFinished.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			string(job.Kind),
			job.Period.String(),
			strconv.FormatInt(job.Runs, 10),
			strconv.FormatInt(job.Failures, 10),
			last,
			job.LastError,
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Header: "Job"},
		{Header: "Period", Right: true},
		{Header: "Runs", Right: true},
		{Header: "Failures", Right: true},
		{Header: "Last run"},
		{Header: "Last error", MaxWidth: 48},
	}, rows))
}
