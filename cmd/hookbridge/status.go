// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hookbridge/internal/control"
)

const statusTimeout = 2 * time.Second

// statusConfig holds configuration for the status command.
type statusConfig struct {
	socketPath string
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running bridge",
		Long: `Query the control socket of a running bridge and show its health,
loaded scripts and pending timers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.socketPath, "socket", control.DefaultSocketPath(), "control socket path")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus queries the bridge and writes its status to out.
func runStatus(out io.Writer, cfg *statusConfig) error {
	status, err := queryStatus(cfg.socketPath)
	if err != nil {
		return err
	}

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return oops.Wrapf(err, "marshal status")
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err = io.WriteString(out, formatStatusTable(status))
	return err
}

// queryStatus reads /status from the control socket at socketPath.
func queryStatus(socketPath string) (*control.StatusResponse, error) {
	errb := oops.With("socket", socketPath)
	if _, err := os.Stat(socketPath); err != nil {
		return nil, errb.Hint("is the bridge running with a control socket?").Wrapf(err, "control socket not found")
	}

	client := control.NewClient(socketPath, statusTimeout)
	resp, err := client.Get("http://localhost/status")
	if err != nil {
		return nil, errb.Wrapf(err, "connect to control socket")
	}
	defer func() { _ = resp.Body.Close() }()

	var status control.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errb.Wrapf(err, "decode status response")
	}
	if resp.StatusCode != http.StatusOK {
		return &status, errb.With("status", resp.StatusCode).Errorf("bridge not ready: %s", status.Error)
	}
	return &status, nil
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status *control.StatusResponse) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	state := "stopped"
	if status.Running {
		state = "running"
	}
	scripts := "-"
	if len(status.Scripts) > 0 {
		scripts = strings.Join(status.Scripts, ", ")
	}

	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", state)
	_, _ = fmt.Fprintf(w, "PID\t%d\n", status.PID)
	_, _ = fmt.Fprintf(w, "UPTIME\t%s\n", formatUptime(status.UptimeSeconds))
	_, _ = fmt.Fprintf(w, "ENGINE\t%s\n", status.EngineID)
	_, _ = fmt.Fprintf(w, "SCRIPTS\t%s\n", scripts)
	_, _ = fmt.Fprintf(w, "TIMERS\t%d\n", status.PendingTimers)

	_ = w.Flush()
	return buf.String()
}

// formatUptime formats seconds into a human-readable duration.
func formatUptime(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
