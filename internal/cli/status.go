package cli

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var (
	statusAddr   string
	statusSecret string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway status",
	Long:  `Query a running toolgate instance and print its health counters.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://127.0.0.1:8000", "gateway base URL")
	statusCmd.Flags().StringVar(&statusSecret, "secret", "", "shared secret if the gateway requires one")
}

func runStatus(cmd *cobra.Command, args []string) error {
	body, err := queryHealth(statusAddr, statusSecret)
	if err != nil {
		fmt.Println("Status: unreachable")
		return err
	}

	result := gjson.GetBytes(body, "result")
	if !result.Exists() {
		return fmt.Errorf("unexpected response: %s", body)
	}

	fmt.Printf("Status: %s\n", result.Get("status").String())
	fmt.Printf("Uptime: %s\n", formatDuration(time.Duration(result.Get("uptime_s").Int())*time.Second))
	fmt.Printf("Plugins: %d\n", result.Get("plugins_discovered").Int())
	fmt.Printf("Tools: %d\n", result.Get("tools_registered").Int())
	fmt.Printf("Calls: %d total, %d ok, %d failed\n",
		result.Get("tool_calls.total").Int(),
		result.Get("tool_calls.success").Int(),
		result.Get("tool_calls.error").Int())

	return nil
}

func queryHealth(addr, secret string) ([]byte, error) {
	payload := []byte(`{"id": "status", "method": "health", "jsonrpc": "2.0"}`)
	req, err := http.NewRequest(http.MethodPost, addr+"/rpc", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Toolgate-Secret", secret)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
