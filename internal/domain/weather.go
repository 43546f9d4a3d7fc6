package domain

import (
	"fmt"
	"math"
)

// UnknownWeather is the label for weather codes missing from the table.
const UnknownWeather = "Unknown"

// Weather is the current conditions at the configured location.
type Weather struct {
	// Temperature in degrees Celsius.
	Temperature float64

	// Code is the WMO weather interpretation code.
	Code int
}

// wmoLabels maps WMO weather interpretation codes to labels.
var wmoLabels = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// WeatherLabel maps a WMO code to its label. Unknown codes map to UnknownWeather.
func WeatherLabel(code int) string {
	if label, ok := wmoLabels[code]; ok {
		return label
	}

	return UnknownWeather
}

// Label returns the condition label for w.
func (w Weather) Label() string {
	return WeatherLabel(w.Code)
}

// String formats the weather as shown on a surface, e.g. "12°C, Overcast".
func (w Weather) String() string {
	return fmt.Sprintf("%d°C, %s", int(math.Round(w.Temperature)), w.Label())
}
