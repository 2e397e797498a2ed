package lib

import (
	"regexp"
	"strings"
)

var greetingRegexp = regexp.MustCompile(`^(oi|olá|ola|bom dia|boa tarde|boa noite|eae|e ai|salve|fala|alô|alo|hi|hello|hey|start|comecar|começar|iniciar)[\s!?.]*$`)

func IsGreeting(text string) bool {
	return greetingRegexp.MatchString(strings.ToLower(strings.TrimSpace(text)))
}

// GreetingForHour picks the salutation for a local hour: morning from 5, afternoon from 12, night from 18.
func GreetingForHour(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Bom dia"
	case hour >= 12 && hour < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}
