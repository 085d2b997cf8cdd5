package alert

import "fmt"

// locationPlaceholder is used when the current position cannot be
// resolved; an alert still goes out rather than aborting.
const locationPlaceholder = "Location not available"

// mapsLink renders a shareable map URL for a coordinate pair.
func mapsLink(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%f,%f", lat, lon)
}

func sosMessage(location string) string {
	return "🚨 EMERGENCY ALERT 🚨\n\n" +
		"I am in trouble and need immediate help!\n\n" +
		"My current location: " + location + "\n\n" +
		"Please contact emergency services if you cannot reach me."
}

func trackingMessage(location string) string {
	return "📍 I have started sharing my live location with you.\n\n" +
		"My current location: " + location + "\n\n" +
		"You will be able to follow my position while sharing is on."
}

func destinationMessage(destination string) string {
	return "🧭 I am on my way to: " + destination + "\n\n" +
		"I am sharing my route with you so you know where I am headed. " +
		"I will let you know when I arrive."
}
