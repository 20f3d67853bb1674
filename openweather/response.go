package openweather

import "time"

// Provider response shapes, reduced to the fields surfaced in tool payloads.

type currentWeatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility *int  `json:"visibility"`
	Timezone   int   `json:"timezone"`
	DT         int64 `json:"dt"`
}

func (r *currentWeatherResponse) payload(units string) map[string]any {
	out := map[string]any{
		"location":    r.Name,
		"country":     r.Sys.Country,
		"temperature": r.Main.Temp,
		"feels_like":  r.Main.FeelsLike,
		"temp_min":    r.Main.TempMin,
		"temp_max":    r.Main.TempMax,
		"humidity":    r.Main.Humidity,
		"pressure":    r.Main.Pressure,
		"wind_speed":  r.Wind.Speed,
		"clouds":      r.Clouds.All,
		"sunrise":     time.Unix(r.Sys.Sunrise, 0).UTC().Format("15:04:05"),
		"sunset":      time.Unix(r.Sys.Sunset, 0).UTC().Format("15:04:05"),
		"timezone":    r.Timezone,
		"units":       units,
	}
	if len(r.Weather) > 0 {
		out["weather"] = r.Weather[0].Main
		out["description"] = r.Weather[0].Description
	}
	if r.Wind.Deg != nil {
		out["wind_direction"] = *r.Wind.Deg
	}
	if r.Visibility != nil {
		out["visibility"] = *r.Visibility
	}
	return out
}

type forecastResponse struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		DTText string `json:"dt_txt"`
		Main   struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Humidity  int     `json:"humidity"`
			Pressure  int     `json:"pressure"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Clouds struct {
			All int `json:"all"`
		} `json:"clouds"`
		POP float64 `json:"pop"`
	} `json:"list"`
}

func (r *forecastResponse) payload(days int, units string) map[string]any {
	// Eight 3-hour intervals per day.
	limit := days * 8
	if limit > len(r.List) {
		limit = len(r.List)
	}
	forecasts := make([]map[string]any, 0, limit)
	for _, item := range r.List[:limit] {
		entry := map[string]any{
			"datetime":    item.DTText,
			"temperature": item.Main.Temp,
			"feels_like":  item.Main.FeelsLike,
			"temp_min":    item.Main.TempMin,
			"temp_max":    item.Main.TempMax,
			"humidity":    item.Main.Humidity,
			"pressure":    item.Main.Pressure,
			"wind_speed":  item.Wind.Speed,
			"clouds":      item.Clouds.All,
			"pop":         item.POP * 100, // probability of precipitation in percent
		}
		if len(item.Weather) > 0 {
			entry["weather"] = item.Weather[0].Main
			entry["description"] = item.Weather[0].Description
		}
		forecasts = append(forecasts, entry)
	}
	return map[string]any{
		"location":  r.City.Name,
		"country":   r.City.Country,
		"forecasts": forecasts,
		"units":     units,
	}
}

type geocodeResponse struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

func (r *geocodeResponse) payload() map[string]any {
	out := map[string]any{
		"name":      r.Name,
		"latitude":  r.Lat,
		"longitude": r.Lon,
	}
	if r.Country != "" {
		out["country"] = r.Country
	}
	if r.State != "" {
		out["state"] = r.State
	}
	return out
}

type airPollutionResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}

var aqiLevels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

func (r *airPollutionResponse) payload(lat, lon float64) map[string]any {
	entry := r.List[0]
	level, ok := aqiLevels[entry.Main.AQI]
	if !ok {
		level = "Unknown"
	}
	out := map[string]any{
		"latitude":  lat,
		"longitude": lon,
		"aqi":       entry.Main.AQI,
		"aqi_level": level,
	}
	for _, pollutant := range []string{"co", "no", "no2", "o3", "so2", "pm2_5", "pm10", "nh3"} {
		if v, ok := entry.Components[pollutant]; ok {
			out[pollutant] = v
		}
	}
	return out
}
