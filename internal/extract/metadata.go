// Package extract derives optional typed fields from recovered document text.
// Every extractor is a pure function: absence of a match is reported as nil,
// never as an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

var (
	yearRegex   = regexp.MustCompile(`\b(20[0-9]{2}|19[0-9]{2})\b`)
	amountRegex = regexp.MustCompile(`(?i)(USD|HKD|\$)\s?([0-9]+(\.[0-9]{2})?)`)
)

// vendorScanLines is how many non-empty lines Vendor looks at.
const vendorScanLines = 10

// KnownAirlines is checked in order; the first carrier found wins.
var KnownAirlines = []string{"Cathay", "United", "Delta", "American", "Lufthansa", "Emirates", "Singapore", "Qantas"}

var passengerKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)passenger`),
	regexp.MustCompile(`(?i)name:`),
}

// Extractor fills one field of models.Fields from text.
type Extractor struct {
	Name  string
	Apply func(text string, f *models.Fields)
}

// Extractors is the fixed, ordered chain run by Extract. Each entry is
// independent of the others.
var Extractors = []Extractor{
	{Name: "year", Apply: func(t string, f *models.Fields) { f.Year = Year(t) }},
	{Name: "amount", Apply: func(t string, f *models.Fields) { f.Amount = Amount(t) }},
	{Name: "vendor", Apply: func(t string, f *models.Fields) { f.Vendor = Vendor(t) }},
	{Name: "invoiceDate", Apply: func(t string, f *models.Fields) { f.InvoiceDate = InvoiceDate(t) }},
	{Name: "passenger", Apply: func(t string, f *models.Fields) { f.Passenger = Passenger(t) }},
	{Name: "airline", Apply: func(t string, f *models.Fields) { f.Airline = Airline(t) }},
	{Name: "flightDate", Apply: func(t string, f *models.Fields) { f.FlightDate = FlightDate(t) }},
}

// Extract runs every extractor against text.
func Extract(text string) models.Fields {
	var f models.Fields
	for _, e := range Extractors {
		e.Apply(text, &f)
	}
	return f
}

// Year returns the first 19xx or 20xx token.
func Year(text string) *int {
	m := yearRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

// Amount returns the number following the first USD, HKD or $ marker.
func Amount(text string) *float64 {
	m := amountRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	return &v
}

// Vendor returns the first of the leading non-empty lines that does not
// mention "invoice" and is longer than two characters.
func Vendor(text string) *string {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		seen++
		if seen > vendorScanLines {
			break
		}
		if strings.Contains(strings.ToLower(trimmed), "invoice") {
			continue
		}
		if len([]rune(trimmed)) > 2 {
			return &trimmed
		}
	}
	return nil
}

// InvoiceDate returns the first date phrase in text.
func InvoiceDate(text string) *time.Time { return FirstDate(text) }

// FlightDate uses the same generic detector as InvoiceDate.
func FlightDate(text string) *time.Time { return FirstDate(text) }

// Passenger returns the remainder of the first line mentioning a passenger
// or a "name:" label.
func Passenger(text string) *string {
	for _, line := range strings.Split(text, "\n") {
		for _, key := range passengerKeywords {
			loc := key.FindStringIndex(line)
			if loc == nil {
				continue
			}
			name := strings.Trim(strings.TrimSpace(line[loc[1]:]), ":- ")
			if name != "" {
				return &name
			}
			break
		}
	}
	return nil
}

// Airline returns the first known carrier contained in text.
func Airline(text string) *string {
	for _, brand := range KnownAirlines {
		if strings.Contains(text, brand) {
			b := brand
			return &b
		}
	}
	return nil
}
