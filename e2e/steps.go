package e2e

import (
	"github.com/cucumber/godog"

	"claimdesk/e2e/steps/claims"
	"claimdesk/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and status/body assertions
	common.RegisterSteps(ctx, tc)

	// Claim lifecycle steps
	claims.RegisterSteps(ctx, tc)
}
