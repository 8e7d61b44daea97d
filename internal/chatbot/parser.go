package chatbot

import (
	"regexp"
	"strconv"
	"strings"
)

var digitRe = regexp.MustCompile(`^[1-5]$`)

// orderIntent is a parsed "ref, VARIANT, qty" message.
type orderIntent struct {
	ItemRef  string
	Variant  string
	Quantity int
}

// parseOrderIntent recognises the comma-separated order shorthand, e.g.
// "3, NE, 2" or "Chemise, REP, 4". Any line with fewer than three comma
// fields is not an order. A non-numeric or non-positive quantity means the
// shape matched but the content is invalid; ok is true and valid is false so
// the caller can answer with a corrective message instead of the help text.
func parseOrderIntent(body string) (intent orderIntent, ok, valid bool) {
	if !strings.Contains(body, ",") {
		return orderIntent{}, false, false
	}
	parts := strings.Split(body, ",")
	if len(parts) < 3 {
		return orderIntent{}, false, false
	}

	ref := strings.TrimSpace(parts[0])
	variant := strings.ToUpper(strings.TrimSpace(parts[1]))
	qtyStr := strings.TrimSpace(parts[2])

	qty, err := strconv.Atoi(qtyStr)
	if err != nil || qty <= 0 || ref == "" || variant == "" {
		return orderIntent{}, true, false
	}

	return orderIntent{ItemRef: ref, Variant: variant, Quantity: qty}, true, true
}

// isResetKeyword matches the commands that always return to the main menu.
func isResetKeyword(low string) bool {
	return low == "0" || low == "menu" || low == "accueil" || low == "*"
}

// isEscalationKeyword matches explicit requests for a human agent.
func isEscalationKeyword(low string) bool {
	return low == "humain" || strings.Contains(low, "agent")
}

// isServiceDigit reports whether the message is a bare menu selection.
func isServiceDigit(body string) bool {
	return digitRe.MatchString(body)
}

// isYes and isNo match confirmation answers.
func isYes(low string) bool {
	return low == "oui" || low == "o" || low == "yes"
}

func isNo(low string) bool {
	return low == "non"
}
