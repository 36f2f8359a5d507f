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
	toolsAddr    string
	toolsSecret  string
	toolsVerbose bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools exposed by a running gateway",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().StringVar(&toolsAddr, "addr", "http://127.0.0.1:8000", "gateway base URL")
	toolsCmd.Flags().StringVar(&toolsSecret, "secret", "", "shared secret if the gateway requires one")
	toolsCmd.Flags().BoolVarP(&toolsVerbose, "verbose", "v", false, "include tool descriptions")
}

func runTools(cmd *cobra.Command, args []string) error {
	payload := []byte(`{"id": "tools", "method": "tools/list", "jsonrpc": "2.0"}`)
	req, err := http.NewRequest(http.MethodPost, toolsAddr+"/rpc", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if toolsSecret != "" {
		req.Header.Set("X-Toolgate-Secret", toolsSecret)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	tools := gjson.GetBytes(body, "result.tools")
	if !tools.Exists() {
		return fmt.Errorf("unexpected response: %s", body)
	}

	tools.ForEach(func(_, tool gjson.Result) bool {
		if toolsVerbose {
			fmt.Printf("%-40s %s\n", tool.Get("name").String(), tool.Get("description").String())
		} else {
			fmt.Println(tool.Get("name").String())
		}
		return true
	})

	return nil
}
