package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/template"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	context := map[string]string{
		"customer.name":     "Ada Lovelace",
		"customer.location": "London, UK",
	}

	got := template.Render("Hi {{customer.name}}, come back to {{ customer.location }}!", context)

	assert.Equal(t, "Hi Ada Lovelace, come back to London, UK!", got)
}

func TestRenderLeavesUnmatchedPlaceholdersVerbatim(t *testing.T) {
	got := template.Render("Hi {{customer.name}}, your code is {{promo.code}}", map[string]string{
		"customer.name": "Ada",
	})

	assert.Equal(t, "Hi Ada, your code is {{promo.code}}", got)
}

func TestRenderWithoutPlaceholders(t *testing.T) {
	assert.Equal(t, "plain text", template.Render("plain text", nil))
}

func TestCustomerContext(t *testing.T) {
	customer := &models.Customer{
		ID:             "cust-1",
		Name:           "Ada Lovelace",
		Location:       "London, UK",
		LifecycleStage: "dormant",
		LifetimeValue:  1200,
	}

	context := template.CustomerContext(customer)

	assert.Equal(t, "cust-1", context["customer.id"])
	assert.Equal(t, "Ada Lovelace", context["customer.name"])
	assert.Equal(t, "London, UK", context["customer.location"])
	assert.Equal(t, "dormant", context["customer.stage"])
	assert.Equal(t, "1200.00", context["customer.ltv"])
}
