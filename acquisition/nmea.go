package acquisition

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// calculateChecksum calculates the NMEA checksum for a sentence
func calculateChecksum(sentence string) string {
	var checksum byte
	for i := 1; i < len(sentence); i++ { // Skip the '$' character
		checksum ^= sentence[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// formatNMEA formats a complete NMEA sentence with checksum
func formatNMEA(sentence string) string {
	checksum := calculateChecksum(sentence)
	return fmt.Sprintf("%s*%s\r\n", sentence, checksum)
}

// NMEA renders the run state as NMEA 0183 sentences. Position sentences
// carry a fix once the run is connecting; satellites in view are reported
// as soon as they are revealed.
func NMEA(state RunState, timestamp time.Time) []string {
	var sentences []string

	if hasFix(state) {
		sentences = append(sentences, generateGGA(state, timestamp))
		sentences = append(sentences, generateRMC(state, timestamp))
		sentences = append(sentences, generateGLL(state, timestamp))
		sentences = append(sentences, generateGSA(state))
		sentences = append(sentences, generateGSV(state)...)
		sentences = append(sentences, generateZDA(timestamp))
	} else {
		sentences = append(sentences, generateNoFixGGA(timestamp))
		sentences = append(sentences, generateNoFixRMC(timestamp))
		sentences = append(sentences, generateNoFixGLL(timestamp))
		sentences = append(sentences, generateGSV(state)...)
	}

	return sentences
}

func hasFix(state RunState) bool {
	return state.ConnectionPhase == PhaseConnecting || state.ConnectionPhase == PhaseConnected
}

// hdop maps the accuracy radius onto a dilution of precision value
func hdop(accuracy float64) float64 {
	return math.Max(accuracy/5, 0.5)
}

// nmeaCoordinates converts decimal degrees to NMEA DDMM.MMMM / DDDMM.MMMM fields
func nmeaCoordinates(lat, lon float64) string {
	latDeg := int(math.Abs(lat))
	latMin := (math.Abs(lat) - float64(latDeg)) * 60
	latHem := "N"
	if lat < 0 {
		latHem = "S"
	}

	lonDeg := int(math.Abs(lon))
	lonMin := (math.Abs(lon) - float64(lonDeg)) * 60
	lonHem := "E"
	if lon < 0 {
		lonHem = "W"
	}

	return fmt.Sprintf("%02d%07.4f,%s,%03d%07.4f,%s", latDeg, latMin, latHem, lonDeg, lonMin, lonHem)
}

func nmeaTime(timestamp time.Time) string {
	utcTime := timestamp.UTC()
	return fmt.Sprintf("%02d%02d%02d.%02d",
		utcTime.Hour(), utcTime.Minute(), utcTime.Second(), utcTime.Nanosecond()/10000000) // HHMMSS.SS
}

// generateGGA generates a GGA (Fix Data) sentence
func generateGGA(state RunState, timestamp time.Time) string {
	quality := "1" // 1 = autonomous fix
	numSats := fmt.Sprintf("%02d", state.LockedCount())
	altitude := fmt.Sprintf("%.1f", ReferenceAltitude)

	sentence := fmt.Sprintf("$GNGGA,%s,%s,%s,%s,%.1f,%s,M,0.0,M,,",
		nmeaTime(timestamp),
		nmeaCoordinates(state.Fix.Latitude, state.Fix.Longitude),
		quality, numSats, hdop(state.Fix.AccuracyMeters),
		altitude)

	return formatNMEA(sentence)
}

// generateNoFixGGA generates a GGA sentence when there's no fix
func generateNoFixGGA(timestamp time.Time) string {
	sentence := fmt.Sprintf("$GNGGA,%s,,,,,0,00,,,,,,,", nmeaTime(timestamp))
	return formatNMEA(sentence)
}

// generateRMC generates an RMC (Recommended Minimum) sentence
func generateRMC(state RunState, timestamp time.Time) string {
	dateStr := timestamp.UTC().Format("020106") // DDMMYY

	status := "A" // A = Active, V = Void
	mode := "A"   // A = Autonomous

	// receiver is static: zero speed and course
	sentence := fmt.Sprintf("$GNRMC,%s,%s,%s,0.0,0.0,%s,,,%s",
		nmeaTime(timestamp), status,
		nmeaCoordinates(state.Fix.Latitude, state.Fix.Longitude),
		dateStr, mode)

	return formatNMEA(sentence)
}

// generateNoFixRMC generates an RMC sentence when there's no fix
func generateNoFixRMC(timestamp time.Time) string {
	dateStr := timestamp.UTC().Format("020106")

	sentence := fmt.Sprintf("$GNRMC,%s,V,,,,,,,%s,,,N", nmeaTime(timestamp), dateStr)
	return formatNMEA(sentence)
}

// generateGLL generates a GLL (Geographic Position) sentence
func generateGLL(state RunState, timestamp time.Time) string {
	sentence := fmt.Sprintf("$GNGLL,%s,%s,A,A",
		nmeaCoordinates(state.Fix.Latitude, state.Fix.Longitude),
		nmeaTime(timestamp))

	return formatNMEA(sentence)
}

// generateNoFixGLL generates a GLL sentence when there's no fix
func generateNoFixGLL(timestamp time.Time) string {
	sentence := fmt.Sprintf("$GNGLL,,,,,%s,V,N", nmeaTime(timestamp)) // V = Invalid, N = Not valid
	return formatNMEA(sentence)
}

// generateGSA generates a GSA (DOP and active satellites) sentence for the
// locked satellites
func generateGSA(state RunState) string {
	mode1 := "A" // A = Automatic, M = Manual
	mode2 := "1" // 1 = No fix, 2 = 2D fix, 3 = 3D fix
	if state.LockedCount() >= 4 {
		mode2 = "3"
	} else if state.LockedCount() == 3 {
		mode2 = "2"
	}

	// List up to 12 satellite IDs being used for fix
	var satIDs []string
	for _, sat := range state.ActiveSatellites {
		if sat.State == StateLocked && len(satIDs) < 12 {
			satIDs = append(satIDs, fmt.Sprintf("%02d", sat.PRN))
		}
	}

	// Pad with empty fields to make 12 total
	for len(satIDs) < 12 {
		satIDs = append(satIDs, "")
	}

	h := hdop(state.Fix.AccuracyMeters)
	sentence := fmt.Sprintf("$GAGSA,%s,%s,%s,%.1f,%.1f,%.1f",
		mode1, mode2,
		strings.Join(satIDs, ","),
		h*1.5, h, h*1.2)

	return formatNMEA(sentence)
}

// generateGSV generates GSV (Satellites in view) sentences, four satellites
// per sentence. It returns nothing when no satellite is in view.
func generateGSV(state RunState) []string {
	var sentences []string

	totalSats := len(state.ActiveSatellites)
	totalSentences := (totalSats + 3) / 4

	for sentenceNum := 1; sentenceNum <= totalSentences; sentenceNum++ {
		startIdx := (sentenceNum - 1) * 4
		endIdx := startIdx + 4
		if endIdx > totalSats {
			endIdx = totalSats
		}

		sentence := fmt.Sprintf("$GAGSV,%d,%d,%02d",
			totalSentences, sentenceNum, totalSats)

		for i := startIdx; i < endIdx; i++ {
			sat := state.ActiveSatellites[i]
			sentence += fmt.Sprintf(",%02d,%02d,%03d,%02d",
				sat.PRN, int(sat.ElevationDeg), int(sat.AzimuthDeg), int(sat.SignalStrengthDb))
		}

		sentences = append(sentences, formatNMEA(sentence))
	}

	return sentences
}

// generateZDA generates a ZDA (UTC Date and Time) sentence
func generateZDA(timestamp time.Time) string {
	utcTime := timestamp.UTC()

	sentence := fmt.Sprintf("$GNZDA,%s,%02d,%02d,%04d,00,00",
		nmeaTime(timestamp), utcTime.Day(), int(utcTime.Month()), utcTime.Year())

	return formatNMEA(sentence)
}
