package models_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimdesk/internal/claims/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

type ClaimSuite struct {
	suite.Suite
	now time.Time
}

func TestClaimSuite(t *testing.T) {
	suite.Run(t, new(ClaimSuite))
}

func (s *ClaimSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *ClaimSuite) newClaim(description string, damages ...models.Damage) *models.Claim {
	c, err := models.NewClaim(id.NewClaimID(), "Rear collision", description, damages, s.now)
	s.Require().NoError(err)
	return c
}

func (s *ClaimSuite) damage(severity models.Severity, price float64) models.Damage {
	d, err := models.NewDamage(id.NewDamageID(), "bumper", severity, "https://img.example.com/1.png", price)
	s.Require().NoError(err)
	return d
}

func (s *ClaimSuite) finishable() *models.Claim {
	return s.newClaim(strings.Repeat("d", 150), s.damage(models.SeverityHigh, 1200))
}

// =============================================================================
// Construction
// =============================================================================

func (s *ClaimSuite) TestNewClaim() {
	s.Run("new claim is pending with zero total", func() {
		c := s.newClaim("short description")
		s.Equal(models.StatusPending, c.Status())
		s.Zero(c.TotalAmount())
		s.Empty(c.Damages())
		s.Equal(s.now, c.CreatedAt())
		s.Equal(s.now, c.UpdatedAt())
	})

	s.Run("rejects nil id", func() {
		_, err := models.NewClaim(id.ClaimID{}, "t", "d", nil, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects empty and oversized title", func() {
		_, err := models.NewClaim(id.NewClaimID(), "", "d", nil, s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "title")

		_, err = models.NewClaim(id.NewClaimID(), strings.Repeat("t", 201), "d", nil, s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "title")
	})

	s.Run("rejects empty and oversized description", func() {
		_, err := models.NewClaim(id.NewClaimID(), "t", "", nil, s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "description")

		_, err = models.NewClaim(id.NewClaimID(), "t", strings.Repeat("d", 2001), nil, s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "description")
	})

	s.Run("rejects duplicate initial damage ids", func() {
		d := s.damage(models.SeverityLow, 10)
		_, err := models.NewClaim(id.NewClaimID(), "t", "d", []models.Damage{d, d}, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// =============================================================================
// Damages and total amount
// =============================================================================

func (s *ClaimSuite) TestTotalAmount() {
	s.Run("total follows add and remove", func() {
		c := s.newClaim("desc")
		first := s.damage(models.SeverityLow, 500)
		second := s.damage(models.SeverityMid, 300.5)

		s.Require().NoError(c.AddDamage(first, s.now))
		s.Require().NoError(c.AddDamage(second, s.now))
		s.InDelta(800.5, c.TotalAmount(), 1e-9)

		s.Require().NoError(c.RemoveDamage(first.ID(), s.now))
		s.InDelta(300.5, c.TotalAmount(), 1e-9)
	})

	s.Run("total follows update", func() {
		d := s.damage(models.SeverityLow, 100)
		c := s.newClaim("desc", d)

		replacement, err := models.NewDamage(d.ID(), "door", models.SeverityMid, d.ImageURL(), 250)
		s.Require().NoError(err)
		s.Require().NoError(c.UpdateDamage(replacement, s.now))

		s.InDelta(250, c.TotalAmount(), 1e-9)
		got, ok := c.Damage(d.ID())
		s.Require().True(ok)
		s.Equal("door", got.Part())
	})
}

func (s *ClaimSuite) TestDamageCollection() {
	s.Run("damages accessor returns a copy", func() {
		d := s.damage(models.SeverityLow, 100)
		c := s.newClaim("desc", d)

		out := c.Damages()
		out[0] = s.damage(models.SeverityHigh, 9999)

		s.Len(c.Damages(), 1)
		s.Equal(d.ID(), c.Damages()[0].ID())
	})

	s.Run("duplicate damage id is rejected", func() {
		d := s.damage(models.SeverityLow, 100)
		c := s.newClaim("desc", d)

		err := c.AddDamage(d, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Len(c.Damages(), 1)
	})

	s.Run("removing an unknown damage fails and leaves claim unchanged", func() {
		d := s.damage(models.SeverityLow, 100)
		c := s.newClaim("desc", d)
		before := c.Snapshot()

		err := c.RemoveDamage(id.NewDamageID(), s.now.Add(time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Contains(err.Error(), "not found")
		s.Equal(before, c.Snapshot())
	})

	s.Run("updating an unknown damage fails", func() {
		c := s.newClaim("desc")
		err := c.UpdateDamage(s.damage(models.SeverityLow, 1), s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("remove keeps order of remaining damages", func() {
		a, b, cc := s.damage(models.SeverityLow, 1), s.damage(models.SeverityLow, 2), s.damage(models.SeverityLow, 3)
		c := s.newClaim("desc", a, b, cc)
		s.Require().NoError(c.RemoveDamage(b.ID(), s.now))

		got := c.Damages()
		s.Require().Len(got, 2)
		s.Equal(a.ID(), got[0].ID())
		s.Equal(cc.ID(), got[1].ID())
	})

	s.Run("successful mutation bumps updatedAt", func() {
		c := s.newClaim("desc")
		later := s.now.Add(time.Minute)
		s.Require().NoError(c.AddDamage(s.damage(models.SeverityLow, 1), later))
		s.Equal(later, c.UpdatedAt())
		s.Equal(s.now, c.CreatedAt())
	})
}

func (s *ClaimSuite) TestEditDamage() {
	raise := func(d models.Damage) (models.Damage, error) {
		return models.NewDamage(d.ID(), d.Part(), models.SeverityHigh, d.ImageURL(), d.Price()+50)
	}

	s.Run("pending claim applies the revision", func() {
		d := s.damage(models.SeverityLow, 100)
		c := s.newClaim("desc", d)
		later := s.now.Add(time.Minute)

		s.Require().NoError(c.EditDamage(d.ID(), raise, later))
		got, ok := c.Damage(d.ID())
		s.Require().True(ok)
		s.Equal(models.SeverityHigh, got.Severity())
		s.InDelta(150, c.TotalAmount(), 1e-9)
		s.Equal(later, c.UpdatedAt())
	})

	s.Run("pending claim reports an unknown damage without a rule", func() {
		c := s.newClaim("desc")
		err := c.EditDamage(id.NewDamageID(), raise, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Empty(dErrors.RuleOf(err))
		s.Contains(err.Error(), "not found")
	})

	s.Run("failed revision leaves the claim unchanged", func() {
		d := s.damage(models.SeverityLow, 100)
		c := s.newClaim("desc", d)
		before := c.Snapshot()

		err := c.EditDamage(d.ID(), func(models.Damage) (models.Damage, error) {
			return models.Damage{}, dErrors.New(dErrors.CodeValidation, "price must be positive")
		}, s.now.Add(time.Hour))
		s.Require().Error(err)
		s.Equal(before, c.Snapshot())
	})

	s.Run("in review rejects before looking up the damage", func() {
		c := s.newClaim("desc")
		s.Require().NoError(c.TransitionTo(models.StatusInReview, s.now))

		called := false
		err := c.EditDamage(id.NewDamageID(), func(d models.Damage) (models.Damage, error) {
			called = true
			return d, nil
		}, s.now)
		s.Equal(models.RuleInReviewLocked, dErrors.RuleOf(err))
		s.False(called)
	})

	s.Run("finished rejects before looking up the damage", func() {
		c := s.finishable()
		s.Require().NoError(c.TransitionTo(models.StatusFinished, s.now))

		err := c.EditDamage(id.NewDamageID(), raise, s.now)
		s.Equal(models.RuleFinishedImmutable, dErrors.RuleOf(err))
	})
}

// =============================================================================
// State machine
// =============================================================================

func (s *ClaimSuite) TestPendingTransitions() {
	s.Run("pending to in review", func() {
		c := s.newClaim("desc")
		s.Require().NoError(c.TransitionTo(models.StatusInReview, s.now))
		s.Equal(models.StatusInReview, c.Status())
	})

	s.Run("pending to pending is rejected", func() {
		c := s.newClaim("desc")
		err := c.TransitionTo(models.StatusPending, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown target is rejected", func() {
		c := s.newClaim("desc")
		err := c.TransitionTo(models.Status("Archived"), s.now)
		s.Require().Error(err)
		s.Equal(models.StatusPending, c.Status())
	})

	s.Run("pending to finished when guard passes", func() {
		c := s.finishable()
		s.Require().NoError(c.TransitionTo(models.StatusFinished, s.now))
		s.Equal(models.StatusFinished, c.Status())
	})
}

func (s *ClaimSuite) TestInReview() {
	s.Run("damage mutations are blocked with BR-02", func() {
		d := s.damage(models.SeverityLow, 10)
		c := s.newClaim("desc", d)
		s.Require().NoError(c.TransitionTo(models.StatusInReview, s.now))

		for _, err := range []error{
			c.AddDamage(s.damage(models.SeverityLow, 1), s.now),
			c.RemoveDamage(d.ID(), s.now),
			c.UpdateDamage(d, s.now),
		} {
			s.Require().Error(err)
			s.Equal(models.RuleInReviewLocked, dErrors.RuleOf(err))
			s.Contains(err.Error(), "BR-02")
		}
		s.Len(c.Damages(), 1)
	})

	s.Run("back to pending re-enables damage mutation", func() {
		c := s.newClaim("desc")
		s.Require().NoError(c.TransitionTo(models.StatusInReview, s.now))
		s.Require().NoError(c.TransitionTo(models.StatusPending, s.now))
		s.Require().NoError(c.AddDamage(s.damage(models.SeverityLow, 1), s.now))
		s.Len(c.Damages(), 1)
	})

	s.Run("in review to in review is rejected", func() {
		c := s.newClaim("desc")
		s.Require().NoError(c.TransitionTo(models.StatusInReview, s.now))
		s.Require().Error(c.TransitionTo(models.StatusInReview, s.now))
	})

	s.Run("in review to finished runs the guard", func() {
		c := s.newClaim("desc")
		s.Require().NoError(c.TransitionTo(models.StatusInReview, s.now))
		s.Require().Error(c.TransitionTo(models.StatusFinished, s.now))
		s.Equal(models.StatusInReview, c.Status())

		ok := s.finishable()
		s.Require().NoError(ok.TransitionTo(models.StatusInReview, s.now))
		s.Require().NoError(ok.TransitionTo(models.StatusFinished, s.now))
	})

	s.Run("details can still be edited", func() {
		c := s.newClaim("desc")
		s.Require().NoError(c.TransitionTo(models.StatusInReview, s.now))
		s.Require().NoError(c.UpdateDetails("New title", "", s.now))
		s.Equal("New title", c.Title())
		s.Equal("desc", c.Description())
	})
}

func (s *ClaimSuite) TestFinished() {
	s.Run("finished claim never changes", func() {
		c := s.finishable()
		existing := c.Damages()[0]
		s.Require().NoError(c.TransitionTo(models.StatusFinished, s.now))
		before := c.Snapshot()
		later := s.now.Add(time.Hour)

		err := c.AddDamage(s.damage(models.SeverityLow, 1), later)
		s.Require().Error(err)
		s.Contains(err.Error(), "BR-01")
		s.Equal(models.RuleFinishedImmutable, dErrors.RuleOf(err))

		s.Require().Error(c.RemoveDamage(existing.ID(), later))
		s.Require().Error(c.UpdateDamage(existing, later))
		s.Require().Error(c.UpdateDetails("other", "", later))
		for _, target := range []models.Status{models.StatusPending, models.StatusInReview, models.StatusFinished} {
			s.Require().Error(c.TransitionTo(target, later))
		}

		s.Equal(before, c.Snapshot())
	})
}

// =============================================================================
// Finish guard
// =============================================================================

func (s *ClaimSuite) TestFinishGuard() {
	s.Run("short description is reported before missing high severity", func() {
		c := s.newClaim(strings.Repeat("d", 50))
		err := c.TransitionTo(models.StatusFinished, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Contains(err.Error(), "exceed 100 characters")
		s.Equal(models.StatusPending, c.Status())
	})

	s.Run("description of exactly 100 characters is too short", func() {
		c := s.newClaim(strings.Repeat("d", 100), s.damage(models.SeverityHigh, 10))
		err := c.ValidateFinishRules()
		s.Require().Error(err)
		s.Contains(err.Error(), "exceed 100 characters")
	})

	s.Run("length counts characters not bytes", func() {
		c := s.newClaim(strings.Repeat("é", 100), s.damage(models.SeverityHigh, 10))
		s.Require().Error(c.ValidateFinishRules())
	})

	s.Run("no damages means no high severity damage", func() {
		c := s.newClaim(strings.Repeat("d", 101))
		err := c.ValidateFinishRules()
		s.Require().Error(err)
		s.Contains(err.Error(), "high severity")
	})

	s.Run("mid and low damages cannot finish", func() {
		c := s.newClaim(strings.Repeat("d", 150), s.damage(models.SeverityMid, 10), s.damage(models.SeverityLow, 10))
		err := c.TransitionTo(models.StatusFinished, s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "high severity")
		s.Equal(models.StatusPending, c.Status())
	})

	s.Run("failed guard leaves updatedAt untouched", func() {
		c := s.newClaim("short")
		s.Require().Error(c.TransitionTo(models.StatusFinished, s.now.Add(time.Hour)))
		s.Equal(s.now, c.UpdatedAt())
	})
}

// =============================================================================
// Details
// =============================================================================

func (s *ClaimSuite) TestUpdateDetails() {
	s.Run("empty values keep current text", func() {
		c := s.newClaim("desc")
		later := s.now.Add(time.Minute)
		s.Require().NoError(c.UpdateDetails("", "", later))
		s.Equal("Rear collision", c.Title())
		s.Equal(s.now, c.UpdatedAt())
	})

	s.Run("invalid values are rejected atomically", func() {
		c := s.newClaim("desc")
		err := c.UpdateDetails("ok", strings.Repeat("d", 2001), s.now)
		s.Require().Error(err)
		s.Equal("Rear collision", c.Title())
		s.Equal("desc", c.Description())
	})
}

// =============================================================================
// Snapshots
// =============================================================================

func (s *ClaimSuite) TestSnapshotRoundTrip() {
	s.Run("rehydrated claim matches the original", func() {
		c := s.finishable()
		s.Require().NoError(c.AddDamage(s.damage(models.SeverityLow, 99.99), s.now))

		back, err := models.RehydrateClaim(c.Snapshot())
		s.Require().NoError(err)
		s.Equal(c.ID(), back.ID())
		s.Equal(c.Title(), back.Title())
		s.Equal(c.Description(), back.Description())
		s.Equal(c.Status(), back.Status())
		s.InDelta(c.TotalAmount(), back.TotalAmount(), 1e-9)
		s.Equal(c.Damages(), back.Damages())
	})

	s.Run("state is derived from status without guards", func() {
		snap := s.newClaim("short").Snapshot()
		snap.Status = models.StatusFinished

		c, err := models.RehydrateClaim(snap)
		s.Require().NoError(err)
		s.Equal(models.StatusFinished, c.Status())
		s.Contains(c.AddDamage(s.damage(models.SeverityLow, 1), s.now).Error(), "BR-01")
	})

	s.Run("rehydrated in review claim blocks damages", func() {
		snap := s.newClaim("desc").Snapshot()
		snap.Status = models.StatusInReview

		c, err := models.RehydrateClaim(snap)
		s.Require().NoError(err)
		s.Equal(models.RuleInReviewLocked, dErrors.RuleOf(c.AddDamage(s.damage(models.SeverityLow, 1), s.now)))
	})

	s.Run("stored total amount is ignored", func() {
		snap := s.newClaim("desc", s.damage(models.SeverityLow, 10)).Snapshot()
		snap.TotalAmount = 12345

		c, err := models.RehydrateClaim(snap)
		s.Require().NoError(err)
		s.InDelta(10, c.TotalAmount(), 1e-9)
	})

	s.Run("unknown status is rejected", func() {
		snap := s.newClaim("desc").Snapshot()
		snap.Status = "Archived"
		_, err := models.RehydrateClaim(snap)
		s.Require().Error(err)
	})

	s.Run("invalid stored damage is rejected", func() {
		snap := s.newClaim("desc", s.damage(models.SeverityLow, 10)).Snapshot()
		snap.Damages[0].Price = 0
		_, err := models.RehydrateClaim(snap)
		s.Require().Error(err)
		s.Contains(err.Error(), "price")
	})
}
