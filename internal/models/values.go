package models

// CoreValue is one selectable value driver.
type CoreValue struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CoreValues is the catalog of value drivers a user picks their five from.
var CoreValues = []CoreValue{
	{Label: "Financial Growth", Description: "Focus on wealth and stability."},
	{Label: "Security & Stability", Description: "Ensuring a solid foundation for the future."},
	{Label: "Peace of Mind", Description: "Protecting your mental space and serenity."},
	{Label: "Mental Resilience", Description: "Strengthening the ability to handle adversity."},
	{Label: "Adventure & Exploration", Description: "Embracing novelty and non-routine experiences."},
	{Label: "Intellectual Growth", Description: "Constant learning and sharpening expertise."},
	{Label: "Creative Expression", Description: "Bringing original ideas and innovation to life."},
	{Label: "Personal Autonomy", Description: "The freedom to choose how you spend your time."},
	{Label: "Deep Connections", Description: "Prioritizing intimacy and close-knit bonds."},
	{Label: "Family Stability", Description: "Building a solid foundation for home life."},
	{Label: "Social Recognition & Influence", Description: "Gaining prestige and a meaningful voice."},
	{Label: "Professional Mastery", Description: "Becoming the absolute best in your field."},
	{Label: "Global Contribution", Description: "Supporting environmental or humanitarian causes."},
	{Label: "Ethical Integrity", Description: "Living in alignment with your moral compass."},
	{Label: "Physical Vitality", Description: "Prioritizing health, energy, and well-being."},
	{Label: "Legacy & Long-Term Impact", Description: "Building something that outlasts you."},
}

// IsKnownValue checks if the given label is in the core value catalog.
func IsKnownValue(label string) bool {
	for _, v := range CoreValues {
		if v.Label == label {
			return true
		}
	}
	return false
}
