package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should equal the number ([0-9.]+)$`, steps.responseFieldShouldEqualNumber)
	ctx.Step(`^the error rule should be "([^"]*)"$`, steps.errorRuleShouldBe)
	ctx.Step(`^the error description should contain "([^"]*)"$`, steps.errorDescriptionShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqualNumber(ctx context.Context, field, expected string) error {
	want, err := strconv.ParseFloat(expected, 64)
	if err != nil {
		return err
	}
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	got, ok := v.(float64)
	if !ok {
		return fmt.Errorf("field %s is not a number: %v", field, v)
	}
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("expected %s=%v, got %v", field, want, got)
	}
	return nil
}

func (s *commonSteps) errorRuleShouldBe(ctx context.Context, rule string) error {
	return s.responseFieldShouldEqual(ctx, "rule", rule)
}

func (s *commonSteps) errorDescriptionShouldContain(ctx context.Context, fragment string) error {
	v, err := s.tc.GetResponseField("error_description")
	if err != nil {
		return err
	}
	if !strings.Contains(fmt.Sprint(v), fragment) {
		return fmt.Errorf("expected error_description to contain %q, got %q", fragment, v)
	}
	return nil
}
