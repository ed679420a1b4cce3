package main

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	hue "github.com/lexfrei/go-hue"
	"github.com/lexfrei/go-hue/api"
)

var checkVerbose bool

// checkCmd exercises every read endpoint against a live bridge
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Exercise every read endpoint against a bridge",
	Long: `Call every read endpoint of the selected bridge and report, per endpoint,
whether the reply decoded, how long it took and which fields the bridge
left empty. Useful after a bridge firmware update.`,
	Example: `  huectl check
  huectl check --verbose`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose", false, "Print a JSON sample of every reply")
	rootCmd.AddCommand(checkCmd)
}

// CheckResult is the outcome of one endpoint.
type CheckResult struct {
	Endpoint    string        `json:"endpoint"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	Count       int           `json:"count"`
	EmptyFields []string      `json:"empty_fields,omitempty"`
	JSONSample  string        `json:"-"`
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	bridge, err := current.selectedBridge(ctx)
	if err != nil {
		return err
	}

	results := checkBridge(ctx, current.client, bridge)

	if outputFormat == "json" {
		return render(out, results, nil)
	}

	fmt.Fprintf(out, "Checking bridge %s (%s)\n", bridge.ID, bridge.HostPort())
	fmt.Fprintln(out, "="+strings.Repeat("=", 60))
	fmt.Fprintln(out)

	failed := 0
	for _, result := range results {
		status := "ok  "
		if !result.Success {
			status = "FAIL"
			failed++
		}

		fmt.Fprintf(out, "%s %s (%d items, %v)\n", status, result.Endpoint, result.Count, result.Duration.Round(time.Millisecond))

		if result.Error != "" {
			fmt.Fprintf(out, "     Error: %s\n", result.Error)
		}
		if len(result.EmptyFields) > 0 {
			fmt.Fprintf(out, "     Empty fields: %s\n", strings.Join(result.EmptyFields, ", "))
		}
		if checkVerbose && result.JSONSample != "" {
			fmt.Fprintf(out, "     JSON sample:\n%s\n", indentJSON(result.JSONSample, "       "))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "="+strings.Repeat("=", 60))
	if failed > 0 {
		return errors.Newf("%d of %d endpoints failed", failed, len(results))
	}
	fmt.Fprintln(out, "All endpoints answered.")

	return nil
}

func checkBridge(ctx context.Context, client hue.HueClient, bridge api.Bridge) []CheckResult {
	results := []CheckResult{
		check("config", func() (any, int, error) {
			cfg, err := client.Config(ctx, bridge)
			return cfg, 1, err
		}),
	}

	var firstLight string
	results = append(results, check("lights", func() (any, int, error) {
		lights, err := client.Lights(ctx, bridge)
		if len(lights) == 0 {
			return nil, 0, err
		}
		firstLight = lights[0].ID
		return lights[0], len(lights), err
	}))

	if firstLight != "" {
		results = append(results, check("light "+firstLight, func() (any, int, error) {
			light, err := client.Light(ctx, bridge, firstLight)
			return light, 1, err
		}))
	}

	results = append(results,
		check("groups", func() (any, int, error) {
			groups, err := client.Groups(ctx, bridge)
			if len(groups) == 0 {
				return nil, 0, err
			}
			return groups[0], len(groups), err
		}),
		check("scenes", func() (any, int, error) {
			scenes, err := client.Scenes(ctx, bridge)
			if len(scenes) == 0 {
				return nil, 0, err
			}
			return scenes[0], len(scenes), err
		}),
	)

	return results
}

// check runs one endpoint; sample is the first decoded item, if any.
func check(endpoint string, call func() (sample any, count int, err error)) CheckResult {
	start := time.Now()
	result := CheckResult{Endpoint: endpoint}

	sample, count, err := call()
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Count = count

	if sample != nil {
		result.EmptyFields = findEmptyFields(sample, typeName(sample))
		if data, err := json.MarshalIndent(sample, "", "  "); err == nil {
			result.JSONSample = string(data)
		}
	}

	return result
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// findEmptyFields recursively lists exported fields left at their zero value
func findEmptyFields(v any, path string) []string {
	var fields []string

	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return fields
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fields
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanInterface() || fieldType.Tag.Get("json") == "-" {
			continue
		}

		fieldPath := path + "." + fieldType.Name

		switch {
		case field.Kind() == reflect.Struct && !fieldType.Anonymous:
			fields = append(fields, findEmptyFields(field.Interface(), fieldPath)...)
		case field.Kind() == reflect.Ptr && !field.IsNil():
			fields = append(fields, findEmptyFields(field.Interface(), fieldPath)...)
		case field.IsZero():
			fields = append(fields, fieldPath)
		}
	}

	return fields
}

func indentJSON(jsonStr, indent string) string {
	lines := strings.Split(jsonStr, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
