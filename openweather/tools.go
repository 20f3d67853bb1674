package openweather

import (
	"context"

	"github.com/swilltec/weather/tool"
)

// RegisterTools adds the weather lookup tools to a registry, all backed by
// the given client. Handlers trap provider failures into error payloads the
// completion backend can reason about ("location not found" and the like);
// they never raise past the dispatcher boundary.
func RegisterTools(reg *tool.Registry, client *Client) error {
	for _, t := range Tools(client) {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Tools returns the weather tool set in presentation order.
func Tools(client *Client) []tool.Tool {
	return []tool.Tool{
		currentWeatherTool(client),
		forecastTool(client),
		coordinatesTool(client),
		weatherByCoordinatesTool(client),
		airQualityTool(client),
	}
}

func locationSchema(extra map[string]any) map[string]any {
	properties := map[string]any{
		"location": map[string]any{
			"type":        "string",
			"description": "City name, optionally with country code (e.g., 'London', 'London,UK')",
		},
	}
	for k, v := range extra {
		properties[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   []string{"location"},
	}
}

var unitsProperty = map[string]any{
	"type":        "string",
	"enum":        []string{"metric", "imperial"},
	"description": "Units for temperature and wind speed",
	"default":     "metric",
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatArg(args map[string]any, key string) float64 {
	f, _ := args[key].(float64)
	return f
}

func currentWeatherTool(client *Client) tool.Tool {
	return tool.NewFunctionTool(
		"get_current_weather",
		"Get current weather conditions for any city or location worldwide.",
		locationSchema(map[string]any{"units": unitsProperty}),
		func(ctx context.Context, args map[string]any) (any, error) {
			location := stringArg(args, "location")
			data, err := client.CurrentWeather(ctx, location, stringArg(args, "units"))
			if err != nil {
				return map[string]any{"error": err.Error(), "location": location}, nil
			}
			return data, nil
		},
	)
}

func forecastTool(client *Client) tool.Tool {
	return tool.NewFunctionTool(
		"get_weather_forecast",
		"Get weather forecast for upcoming days (up to 5 days) with 3-hour intervals.",
		locationSchema(map[string]any{
			"days": map[string]any{
				"type":        "integer",
				"description": "Number of days to forecast (1-5)",
				"minimum":     1,
				"maximum":     5,
				"default":     5,
			},
			"units": unitsProperty,
		}),
		func(ctx context.Context, args map[string]any) (any, error) {
			location := stringArg(args, "location")
			days := int(floatArg(args, "days"))
			if days == 0 {
				days = 5
			}
			data, err := client.Forecast(ctx, location, days, stringArg(args, "units"))
			if err != nil {
				return map[string]any{"error": err.Error(), "location": location}, nil
			}
			return data, nil
		},
	)
}

func coordinatesTool(client *Client) tool.Tool {
	return tool.NewFunctionTool(
		"get_location_coordinates",
		"Get geographic coordinates for any location.",
		locationSchema(nil),
		func(ctx context.Context, args map[string]any) (any, error) {
			location := stringArg(args, "location")
			data, err := client.Coordinates(ctx, location)
			if err != nil {
				return map[string]any{"error": err.Error(), "location": location}, nil
			}
			return data, nil
		},
	)
}

func weatherByCoordinatesTool(client *Client) tool.Tool {
	return tool.NewFunctionTool(
		"get_weather_by_coordinates",
		"Get current weather using latitude and longitude coordinates.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":  map[string]any{"type": "number", "description": "Latitude coordinate"},
				"longitude": map[string]any{"type": "number", "description": "Longitude coordinate"},
				"units":     unitsProperty,
			},
			"required": []string{"latitude", "longitude"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			data, err := client.WeatherByCoordinates(ctx,
				floatArg(args, "latitude"), floatArg(args, "longitude"), stringArg(args, "units"))
			if err != nil {
				return map[string]any{"error": err.Error()}, nil
			}
			return data, nil
		},
	)
}

// airQualityTool chains a geocoding lookup with the air pollution endpoint so
// the model can ask by city name.
func airQualityTool(client *Client) tool.Tool {
	return tool.NewFunctionTool(
		"get_air_quality",
		"Get current air quality index and pollution levels for a location.",
		locationSchema(nil),
		func(ctx context.Context, args map[string]any) (any, error) {
			location := stringArg(args, "location")
			coords, err := client.Coordinates(ctx, location)
			if err != nil {
				return map[string]any{"error": err.Error(), "location": location}, nil
			}
			lat, _ := coords["latitude"].(float64)
			lon, _ := coords["longitude"].(float64)
			data, err := client.AirPollution(ctx, lat, lon)
			if err != nil {
				return map[string]any{"error": err.Error(), "location": location}, nil
			}
			return data, nil
		},
	)
}
