package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/asaskevich/govalidator"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

// CreateClaimRequest opens a new claim, optionally with initial damages.
type CreateClaimRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Damages     []AddDamageRequest `json:"damages,omitempty"`
}

func (r *CreateClaimRequest) Normalize() {
	if r == nil {
		return
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	for i := range r.Damages {
		r.Damages[i].Normalize()
	}
}

// Validate checks sizes first, then required fields, then per-damage syntax.
func (r *CreateClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if !govalidator.StringLength(r.Title, "0", "200") {
		return dErrors.New(dErrors.CodeValidation, "title must be 200 characters or less")
	}
	if !govalidator.StringLength(r.Description, "0", "2000") {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	for i := range r.Damages {
		if err := r.Damages[i].Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("damages[%d]", i))
		}
	}
	return nil
}

// AddDamageRequest describes one damage line item.
type AddDamageRequest struct {
	Part     string  `json:"part"`
	Severity string  `json:"severity"`
	ImageURL string  `json:"imageUrl"`
	Price    float64 `json:"price"`
}

func (r *AddDamageRequest) Normalize() {
	if r == nil {
		return
	}
	r.Part = strings.TrimSpace(r.Part)
	r.Severity = strings.ToLower(strings.TrimSpace(r.Severity))
	r.ImageURL = strings.TrimSpace(r.ImageURL)
}

func (r *AddDamageRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validatePart(r.Part); err != nil {
		return err
	}
	if _, err := ParseSeverity(r.Severity); err != nil {
		return err
	}
	if err := validateImageURL(r.ImageURL); err != nil {
		return err
	}
	return validatePrice(r.Price)
}

// ToDamage builds the entity under damageID.
func (r *AddDamageRequest) ToDamage(damageID id.DamageID) (Damage, error) {
	return NewDamage(damageID, r.Part, Severity(r.Severity), r.ImageURL, r.Price)
}

// UpdateDamageRequest is a partial update: nil fields keep the current value.
type UpdateDamageRequest struct {
	Part     *string  `json:"part,omitempty"`
	Severity *string  `json:"severity,omitempty"`
	ImageURL *string  `json:"imageUrl,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

func (r *UpdateDamageRequest) Normalize() {
	if r == nil {
		return
	}
	if r.Part != nil {
		v := strings.TrimSpace(*r.Part)
		r.Part = &v
	}
	if r.Severity != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Severity))
		r.Severity = &v
	}
	if r.ImageURL != nil {
		v := strings.TrimSpace(*r.ImageURL)
		r.ImageURL = &v
	}
}

func (r *UpdateDamageRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Part != nil {
		if err := validatePart(*r.Part); err != nil {
			return err
		}
	}
	if r.Severity != nil {
		if _, err := ParseSeverity(*r.Severity); err != nil {
			return err
		}
	}
	if r.ImageURL != nil {
		if err := validateImageURL(*r.ImageURL); err != nil {
			return err
		}
	}
	if r.Price != nil {
		if err := validatePrice(*r.Price); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the request over current and returns the replacement damage.
func (r *UpdateDamageRequest) Apply(current Damage) (Damage, error) {
	part, severity, imageURL, price := current.Part(), current.Severity(), current.ImageURL(), current.Price()
	if r.Part != nil {
		part = *r.Part
	}
	if r.Severity != nil {
		severity = Severity(*r.Severity)
	}
	if r.ImageURL != nil {
		imageURL = *r.ImageURL
	}
	if r.Price != nil {
		price = *r.Price
	}
	return NewDamage(current.ID(), part, severity, imageURL, price)
}

// UpdateClaimRequest edits claim details and optionally moves its status.
// Empty title or description values are treated as absent.
type UpdateClaimRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (r *UpdateClaimRequest) Normalize() {
	if r == nil {
		return
	}
	if r.Title != nil {
		v := strings.TrimSpace(*r.Title)
		r.Title = &v
	}
	if r.Description != nil {
		v := strings.TrimSpace(*r.Description)
		r.Description = &v
	}
	if r.Status != nil {
		v := strings.TrimSpace(*r.Status)
		r.Status = &v
	}
}

func (r *UpdateClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Title != nil && !govalidator.StringLength(*r.Title, "0", "200") {
		return dErrors.New(dErrors.CodeValidation, "title must be 200 characters or less")
	}
	if r.Description != nil && !govalidator.StringLength(*r.Description, "0", "2000") {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}
	if r.Status != nil && *r.Status != "" {
		if _, err := ParseStatus(*r.Status); err != nil {
			return err
		}
	}
	return nil
}

// TitleValue returns the requested title or "" when absent.
func (r *UpdateClaimRequest) TitleValue() string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}

// DescriptionValue returns the requested description or "" when absent.
func (r *UpdateClaimRequest) DescriptionValue() string {
	if r.Description == nil {
		return ""
	}
	return *r.Description
}

// TargetStatus returns the requested status, if any.
func (r *UpdateClaimRequest) TargetStatus() (Status, bool) {
	if r.Status == nil || *r.Status == "" {
		return "", false
	}
	s, err := ParseStatus(*r.Status)
	if err != nil {
		return "", false
	}
	return s, true
}

// TransitionStatusRequest moves a claim to a new status.
type TransitionStatusRequest struct {
	Status string `json:"status"`
}

func (r *TransitionStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.TrimSpace(r.Status)
}

func (r *TransitionStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	_, err := ParseStatus(r.Status)
	return err
}

func validatePart(part string) error {
	if !govalidator.StringLength(part, "0", "200") {
		return dErrors.New(dErrors.CodeValidation, "part must be 200 characters or less")
	}
	if part == "" {
		return dErrors.New(dErrors.CodeValidation, "part is required")
	}
	return nil
}

func validateImageURL(imageURL string) error {
	if imageURL == "" {
		return dErrors.New(dErrors.CodeValidation, "image url is required")
	}
	if !govalidator.IsURL(imageURL) {
		return dErrors.New(dErrors.CodeValidation, "image url must be a valid URL")
	}
	return nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return dErrors.New(dErrors.CodeValidation, "price must be a finite number")
	}
	if price < MinDamagePrice {
		return dErrors.New(dErrors.CodeValidation, "price must be at least 0.01")
	}
	return nil
}
