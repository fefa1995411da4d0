package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

type RequestSuite struct {
	suite.Suite
}

func TestRequestSuite(t *testing.T) {
	suite.Run(t, new(RequestSuite))
}

func ptr[T any](v T) *T { return &v }

func (s *RequestSuite) validDamage() AddDamageRequest {
	return AddDamageRequest{
		Part:     "front bumper",
		Severity: "high",
		ImageURL: "https://img.example.com/bumper.png",
		Price:    500,
	}
}

func (s *RequestSuite) TestCreateClaimRequest() {
	s.Run("normalizes whitespace and severity case", func() {
		req := &CreateClaimRequest{
			Title:       "  Hail damage ",
			Description: " roof dented ",
			Damages:     []AddDamageRequest{{Part: " roof ", Severity: " HIGH ", ImageURL: " https://x.io/a.png ", Price: 10}},
		}
		req.Normalize()
		s.Equal("Hail damage", req.Title)
		s.Equal("roof dented", req.Description)
		s.Equal("roof", req.Damages[0].Part)
		s.Equal("high", req.Damages[0].Severity)
		s.Equal("https://x.io/a.png", req.Damages[0].ImageURL)
		s.NoError(req.Validate())
	})

	s.Run("nil request is a bad request", func() {
		var req *CreateClaimRequest
		err := req.Validate()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("size limits are checked before presence", func() {
		req := &CreateClaimRequest{Title: strings.Repeat("t", 201)}
		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "200 characters")
	})

	s.Run("required fields", func() {
		s.Contains((&CreateClaimRequest{Description: "d"}).Validate().Error(), "title is required")
		s.Contains((&CreateClaimRequest{Title: "t"}).Validate().Error(), "description is required")
	})

	s.Run("damage errors carry their index", func() {
		bad := s.validDamage()
		bad.Price = 0
		req := &CreateClaimRequest{Title: "t", Description: "d", Damages: []AddDamageRequest{s.validDamage(), bad}}
		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "damages[1]")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RequestSuite) TestAddDamageRequest() {
	s.Run("valid request builds a damage", func() {
		req := s.validDamage()
		s.Require().NoError(req.Validate())
		damageID := id.NewDamageID()
		d, err := req.ToDamage(damageID)
		s.Require().NoError(err)
		s.Equal(damageID, d.ID())
		s.Equal(SeverityHigh, d.Severity())
	})

	s.Run("rejects malformed url", func() {
		req := s.validDamage()
		req.ImageURL = "not a url"
		s.Contains(req.Validate().Error(), "valid URL")
	})

	s.Run("rejects unknown severity", func() {
		req := s.validDamage()
		req.Severity = "catastrophic"
		s.Contains(req.Validate().Error(), "severity")
	})

	s.Run("price boundaries", func() {
		req := s.validDamage()
		req.Price = 0.01
		s.NoError(req.Validate())
		req.Price = 0
		s.Error(req.Validate())
		req.Price = -1
		s.Error(req.Validate())
	})
}

func (s *RequestSuite) TestUpdateDamageRequest() {
	current, err := NewDamage(id.NewDamageID(), "door", SeverityLow, "https://img.example.com/d.png", 100)
	s.Require().NoError(err)

	s.Run("absent fields keep current values", func() {
		req := &UpdateDamageRequest{Price: ptr(250.0)}
		req.Normalize()
		s.Require().NoError(req.Validate())

		next, err := req.Apply(current)
		s.Require().NoError(err)
		s.Equal(current.ID(), next.ID())
		s.Equal("door", next.Part())
		s.Equal(SeverityLow, next.Severity())
		s.Equal(250.0, next.Price())
	})

	s.Run("present fields are normalized and validated", func() {
		req := &UpdateDamageRequest{Severity: ptr(" MID "), Part: ptr(" hood ")}
		req.Normalize()
		s.Require().NoError(req.Validate())
		next, err := req.Apply(current)
		s.Require().NoError(err)
		s.Equal(SeverityMid, next.Severity())
		s.Equal("hood", next.Part())
	})

	s.Run("empty part is rejected", func() {
		req := &UpdateDamageRequest{Part: ptr("   ")}
		req.Normalize()
		s.Contains(req.Validate().Error(), "part is required")
	})
}

func (s *RequestSuite) TestUpdateClaimRequest() {
	s.Run("status is parsed when present", func() {
		req := &UpdateClaimRequest{Status: ptr(" In Review ")}
		req.Normalize()
		s.Require().NoError(req.Validate())
		st, ok := req.TargetStatus()
		s.True(ok)
		s.Equal(StatusInReview, st)
	})

	s.Run("empty values are absent", func() {
		req := &UpdateClaimRequest{Title: ptr(" "), Status: ptr("")}
		req.Normalize()
		s.Require().NoError(req.Validate())
		s.Empty(req.TitleValue())
		s.Empty(req.DescriptionValue())
		_, ok := req.TargetStatus()
		s.False(ok)
	})

	s.Run("invalid status is rejected", func() {
		req := &UpdateClaimRequest{Status: ptr("Closed")}
		s.Error(req.Validate())
	})
}

func (s *RequestSuite) TestTransitionStatusRequest() {
	req := &TransitionStatusRequest{Status: " Finished "}
	req.Normalize()
	s.NoError(req.Validate())

	s.Contains((&TransitionStatusRequest{}).Validate().Error(), "status is required")
	s.Error((&TransitionStatusRequest{Status: "finished"}).Validate())
}
