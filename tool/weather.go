package tool

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hupe1980/ragstream/core"
)

// WeatherToolName is the name the model uses to invoke the weather lookup.
const WeatherToolName = "get_weather"

// defaultWeatherBaseURL is the open-meteo forecast API.
const defaultWeatherBaseURL = "https://api.open-meteo.com"

// WeatherToolOptions configure the weather tool.
type WeatherToolOptions struct {
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
	// HTTPClient is used for the single provider call.
	HTTPClient *http.Client
}

// WeatherTool looks up current weather for a coordinate pair. It performs one
// external call with no retry; errors propagate directly as tool errors, and
// cancellation is honored through the request context on the underlying call.
type WeatherTool struct {
	baseURL string
	client  *http.Client
}

// NewWeatherTool constructs the weather tool.
func NewWeatherTool(optFns ...func(o *WeatherToolOptions)) *WeatherTool {
	opts := WeatherToolOptions{
		BaseURL:    defaultWeatherBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WeatherTool{baseURL: opts.BaseURL, client: opts.HTTPClient}
}

// Name implements the Tool interface.
func (t *WeatherTool) Name() string { return WeatherToolName }

// Description implements the Tool interface.
func (t *WeatherTool) Description() string {
	return "Get the current weather at a location"
}

// Parameters implements the Tool interface.
func (t *WeatherTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"latitude":  map[string]any{"type": "number"},
			"longitude": map[string]any{"type": "number"},
		},
		"required": []string{"latitude", "longitude"},
	}
}

// Call fetches the forecast payload and passes it through largely unprocessed.
func (t *WeatherTool) Call(reqCtx *core.RequestContext, args map[string]any) (any, error) {
	latitude, _ := args["latitude"].(float64)
	longitude, _ := args["longitude"].(float64)

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%v", latitude))
	query.Set("longitude", fmt.Sprintf("%v", longitude))
	query.Set("current", "temperature_2m")
	query.Set("hourly", "temperature_2m")
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")

	endpoint := fmt.Sprintf("%s/v1/forecast?%s", t.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(reqCtx.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: CodeExecutionError}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("weather request failed: %v", err), Code: CodeExecutionError}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ToolError{
			Tool:    t.Name(),
			Message: fmt.Sprintf("weather provider returned status %d", resp.StatusCode),
			Code:    CodeExecutionError,
		}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("decode weather response: %v", err), Code: CodeExecutionError}
	}

	return payload, nil
}
