// Package template renders message content for action nodes by substituting
// {{variable}} placeholders from a flat key/value context.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pulsecrm/lifecycle/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// Render replaces every {{variable}} placeholder found in the context.
// Unmatched placeholders are left verbatim so missing variables stay visible
// in previews instead of silently disappearing.
func Render(content string, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		key := strings.TrimSpace(strings.Trim(match, "{}"))
		if value, present := context[key]; present {
			return value
		}

		return match
	})
}

// CustomerContext builds the standard substitution context for a customer.
func CustomerContext(customer *models.Customer) map[string]string {
	return map[string]string{
		"customer.id":       customer.ID,
		"customer.name":     customer.Name,
		"customer.location": customer.Location,
		"customer.stage":    customer.LifecycleStage,
		"customer.ltv":      fmt.Sprintf("%.2f", customer.LifetimeValue),
	}
}
