package weather

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// weatherSchema is derived from NormalizedWeather: every field without
// omitempty is required and every value must have the declared JSON type.
// Unknown properties are tolerated since the provider adds fields over time.
var weatherSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	s, err := jsonschema.For[NormalizedWeather](nil)
	if err != nil {
		return nil, err
	}
	allowExtraProperties(s)

	conditions := s.Properties["weather"]
	if conditions == nil {
		return nil, fmt.Errorf("schema has no weather property")
	}
	minItems := 1
	conditions.Types = nil
	conditions.Type = "array"
	conditions.MinItems = &minItems

	return s.Resolve(nil)
})

func allowExtraProperties(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	s.AdditionalProperties = nil
	for _, p := range s.Properties {
		allowExtraProperties(p)
	}
	allowExtraProperties(s.Items)
}

// DecodeWeather validates a raw current-weather body against the
// NormalizedWeather schema and decodes it. All failures are
// KindUpstreamProtocol.
func DecodeWeather(body []byte) (NormalizedWeather, error) {
	const op = "parse weather response"

	resolved, err := weatherSchema()
	if err != nil {
		return NormalizedWeather{}, Errorf(KindUpstreamProtocol, op, "build schema: %v", err)
	}

	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return NormalizedWeather{}, Errorf(KindUpstreamProtocol, op, "invalid JSON: %v", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return NormalizedWeather{}, Errorf(KindUpstreamProtocol, op, "%v", err)
	}

	var w NormalizedWeather
	if err := json.Unmarshal(body, &w); err != nil {
		return NormalizedWeather{}, Errorf(KindUpstreamProtocol, op, "%v", err)
	}
	if len(w.Weather) == 0 {
		return NormalizedWeather{}, NewError(KindUpstreamProtocol, op, ErrNoConditions)
	}
	return w, nil
}

// DecodeGeocode takes the coordinates of the first entry of a geocoding
// array response. An empty array wraps ErrLocationNotFound.
func DecodeGeocode(location string, body []byte) (GeocodeResult, error) {
	const op = "parse geocode response"

	var places []struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(body, &places); err != nil {
		return GeocodeResult{}, Errorf(KindUpstreamProtocol, op, "%v", err)
	}
	if len(places) == 0 {
		return GeocodeResult{}, Errorf(KindUpstreamProtocol, op, "%w: %q", ErrLocationNotFound, location)
	}

	first := places[0]
	if first.Lat == nil || first.Lon == nil {
		return GeocodeResult{}, Errorf(KindUpstreamProtocol, op, "missing lat/lon for %q", location)
	}
	return GeocodeResult{Latitude: *first.Lat, Longitude: *first.Lon}, nil
}
