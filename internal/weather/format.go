package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const localTimeLayout = "2006-01-02 15:04:05"

// FormatReport renders a normalized payload as the text report returned to
// tool callers. Only the first condition entry is used.
func FormatReport(w NormalizedWeather) (string, error) {
	if len(w.Weather) == 0 {
		return "", NewError(KindFormatting, "format report", ErrNoConditions)
	}
	cond := w.Weather[0]

	gust := ""
	if w.Wind.Gust != nil {
		gust = fmt.Sprintf(", Gust %s m/s", num(*w.Wind.Gust))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current Location: %s (Country: %s, Latitude: %s, Longitude: %s, Timezone Offset: %d seconds).\n",
		w.Name, w.Sys.Country, num(w.Coord.Lat), num(w.Coord.Lon), w.Timezone)
	fmt.Fprintf(&b, "Weather Condition: %s.\n", cond.Main)
	fmt.Fprintf(&b, "Temperature: %s°C (Feels like: %s°C, Min: %s°C, Max: %s°C).\n",
		num(w.Main.Temp), num(w.Main.FeelsLike), num(w.Main.TempMin), num(w.Main.TempMax))
	fmt.Fprintf(&b, "Atmosphere: Pressure %d hPa (Sea Level: %d hPa, Ground Level: %d hPa), Humidity %d%%.\n",
		w.Main.Pressure, w.Main.SeaLevel, w.Main.GrndLevel, w.Main.Humidity)
	fmt.Fprintf(&b, "Wind: Speed %s m/s, Direction %d°%s.\n", num(w.Wind.Speed), w.Wind.Deg, gust)
	fmt.Fprintf(&b, "Clouds: Cloudiness %d%%.\n", w.Clouds.All)
	fmt.Fprintf(&b, "Visibility: %d meters.\n", w.Visibility)
	fmt.Fprintf(&b, "Other: Data Calculation Time (Unix UTC): %d, Sunrise: %s, Sunset: %s.\n",
		w.Dt, LocalTime(int64(w.Sys.Sunrise), w.Timezone), LocalTime(int64(w.Sys.Sunset), w.Timezone))
	b.WriteString(precipNote("Rain", "rain", w.Rain))
	b.WriteString(precipNote("Snow", "snow", w.Snow))

	return b.String(), nil
}

// LocalTime shifts a unix UTC timestamp by a fixed offset and formats it as
// YYYY-MM-DD HH:MM:SS. No timezone database is consulted.
func LocalTime(unix int64, offsetSeconds int) string {
	return time.Unix(unix+int64(offsetSeconds), 0).UTC().Format(localTimeLayout)
}

func precipNote(label, missing string, p *Precip) string {
	if p == nil {
		return "(No " + missing + " information)"
	}
	return fmt.Sprintf("(%s: %s mm/h)", label, num(p.OneHour))
}

// num prints the shortest decimal that round-trips, so 20.0 renders as "20".
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
