package weather

import (
	"encoding/json"
	"fmt"
)

// TemperatureUnit is the unit a caller asks the report to be computed in.
// The zero value means "not set" and resolves to Celsius.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "celsius"
	UnitFahrenheit TemperatureUnit = "fahrenheit"
)

// ParseTemperatureUnit accepts only the two known unit names.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch u := TemperatureUnit(s); u {
	case UnitCelsius, UnitFahrenheit:
		return u, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// UnmarshalJSON rejects anything but "celsius" or "fahrenheit".
func (u *TemperatureUnit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTemperatureUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// OrDefault returns the unit, or Celsius when unset.
func (u TemperatureUnit) OrDefault() TemperatureUnit {
	if u == "" {
		return UnitCelsius
	}
	return u
}

// SystemCode returns the OpenWeatherMap "units" value for the unit.
func (u TemperatureUnit) SystemCode() string {
	if u.OrDefault() == UnitFahrenheit {
		return "imperial"
	}
	return "metric"
}

// GetWeatherRequest is the input of the get_current_weather tool.
type GetWeatherRequest struct {
	Location string          `json:"location" validate:"required" jsonschema:"The city to get the weather for, e.g., 'Beijing', 'New York', 'Tokyo'"`
	Unit     TemperatureUnit `json:"unit,omitempty" jsonschema:"The unit to use for the temperature, e.g., 'celsius', 'fahrenheit'"`
}

// GetWeatherResponse is the output of the get_current_weather tool.
type GetWeatherResponse struct {
	Weather string `json:"weather" jsonschema:"the weather information"`
}

// GeocodeResult holds the coordinates resolved for a location.
type GeocodeResult struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// GeocodeQuery is the input of a single geocoding call.
type GeocodeQuery struct {
	Location string
	APIKey   string
	Units    string
}

// WeatherQuery is the input of a single current-weather call.
type WeatherQuery struct {
	Coordinates GeocodeResult
	APIKey      string
	Units       string
}

// NormalizedWeather is the validated projection of an OpenWeatherMap
// current weather payload. Counts, measurements and timestamps are unsigned
// so negative values fail to decode.
type NormalizedWeather struct {
	Coord      Coord       `json:"coord"`
	Weather    []Condition `json:"weather"`
	Base       string      `json:"base"`
	Main       Main        `json:"main"`
	Visibility uint32      `json:"visibility"` // meters, max 10 km
	Wind       Wind        `json:"wind"`
	Rain       *Precip     `json:"rain,omitempty"`
	Snow       *Precip     `json:"snow,omitempty"`
	Clouds     Clouds      `json:"clouds"`
	Dt         uint64      `json:"dt"` // time of data calculation, unix UTC
	Sys        Sys         `json:"sys"`
	Timezone   int         `json:"timezone"` // shift in seconds from UTC
	ID         uint64      `json:"id"`
	Name       string      `json:"name"`
	Cod        uint32      `json:"cod"`
}

type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Condition is one weather condition entry (e.g. Rain, Clear).
type Condition struct {
	ID          uint32 `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Main holds temperature and atmospheric data. Pressures are in hPa.
type Main struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  uint32  `json:"pressure"`
	Humidity  uint32  `json:"humidity"`
	SeaLevel  uint32  `json:"sea_level"`
	GrndLevel uint32  `json:"grnd_level"`
}

// Wind speed and gust are in m/s, direction in meteorological degrees.
type Wind struct {
	Speed float64  `json:"speed"`
	Deg   uint32   `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

// Precip is the precipitation volume for the last hour, in mm.
type Precip struct {
	OneHour float64 `json:"1h"`
}

type Clouds struct {
	All uint32 `json:"all"`
}

type Sys struct {
	Type    *uint32 `json:"type,omitempty"`
	ID      *uint32 `json:"id,omitempty"`
	Country string  `json:"country"`
	Sunrise uint64  `json:"sunrise"`
	Sunset  uint64  `json:"sunset"`
}
