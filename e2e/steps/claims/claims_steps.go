package claims

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	DELETE(path string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	ClaimID() string
	SetClaimID(id string)
	DamageIDs() []string
	SetDamageIDs(ids []string)
}

// RegisterSteps registers claim lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &claimSteps{tc: tc}

	ctx.Step(`^a pending claim with a (\d+) character description$`, steps.pendingClaimWithDescription)
	ctx.Step(`^I add a "([^"]*)" damage priced ([0-9.]+)$`, steps.addDamage)
	ctx.Step(`^I remove the first damage$`, steps.removeFirstDamage)
	ctx.Step(`^I remove a damage that does not exist$`, steps.removeUnknownDamage)
	ctx.Step(`^I move the claim to "([^"]*)"$`, steps.transitionTo)
	ctx.Step(`^I fetch the claim$`, steps.fetchClaim)
	ctx.Step(`^the claim should have (\d+) damages?$`, steps.claimShouldHaveDamages)
}

type claimSteps struct {
	tc TestContext
}

func (s *claimSteps) pendingClaimWithDescription(ctx context.Context, length int) error {
	body := map[string]interface{}{
		"title":       "Rear bumper collision",
		"description": strings.Repeat("d", length),
	}
	if err := s.tc.POST("/claims", body); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("create claim: expected 201, got %d", status)
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetClaimID(fmt.Sprint(id))
	return nil
}

func (s *claimSteps) addDamage(ctx context.Context, severity, price string) error {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"part":     "front door",
		"severity": severity,
		"imageUrl": "https://img.example.com/door.jpg",
		"price":    p,
	}
	if err := s.tc.POST(s.claimPath()+"/damages", body); err != nil {
		return err
	}
	return s.captureDamageIDs()
}

func (s *claimSteps) removeFirstDamage(ctx context.Context) error {
	ids := s.tc.DamageIDs()
	if len(ids) == 0 {
		return fmt.Errorf("claim has no damages to remove")
	}
	if err := s.tc.DELETE(s.claimPath() + "/damages/" + ids[0]); err != nil {
		return err
	}
	s.tc.SetDamageIDs(ids[1:])
	return nil
}

func (s *claimSteps) removeUnknownDamage(ctx context.Context) error {
	return s.tc.DELETE(s.claimPath() + "/damages/7f0c1a52-3b8e-4d1e-9a64-2f5b9e0c4d11")
}

func (s *claimSteps) transitionTo(ctx context.Context, status string) error {
	return s.tc.POST(s.claimPath()+"/status", map[string]interface{}{"status": status})
}

func (s *claimSteps) fetchClaim(ctx context.Context) error {
	if err := s.tc.GET(s.claimPath()); err != nil {
		return err
	}
	return s.captureDamageIDs()
}

func (s *claimSteps) claimShouldHaveDamages(ctx context.Context, expected int) error {
	raw, err := s.tc.GetResponseField("damages")
	if err != nil {
		return err
	}
	damages, ok := raw.([]interface{})
	if !ok {
		return fmt.Errorf("damages is not a list: %v", raw)
	}
	if len(damages) != expected {
		return fmt.Errorf("expected %d damages, got %d", expected, len(damages))
	}
	return nil
}

func (s *claimSteps) claimPath() string {
	return "/claims/" + s.tc.ClaimID()
}

// captureDamageIDs records damage ids from a successful claim response.
func (s *claimSteps) captureDamageIDs() error {
	status := s.tc.GetLastResponseStatus()
	if status < 200 || status >= 300 {
		return nil
	}
	raw, err := s.tc.GetResponseField("damages")
	if err != nil {
		return err
	}
	list, ok := raw.([]interface{})
	if !ok {
		return fmt.Errorf("damages is not a list: %v", raw)
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		d, ok := item.(map[string]interface{})
		if !ok {
			return fmt.Errorf("unexpected damage entry: %v", item)
		}
		ids = append(ids, fmt.Sprint(d["id"]))
	}
	s.tc.SetDamageIDs(ids)
	return nil
}
