package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print resilience status of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := statusAddr
		if addr == "" {
			addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}

		client := &http.Client{Timeout: 10 * time.Second}
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, addr+"/status", nil)
		if err != nil {
			return eris.Wrap(err, "build status request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return eris.Wrap(err, "fetch status")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return eris.Errorf("status endpoint returned %d: %s", resp.StatusCode, body)
		}

		var payload map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return eris.Wrap(err, "decode status response")
		}
		pretty, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return eris.Wrap(err, "render status")
		}
		fmt.Println(string(pretty))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "server base url (default from config port)")
	rootCmd.AddCommand(statusCmd)
}
