package publication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/simplereader/simplereader/internal/api/models"
)

// Validation constants.
const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
	MaxCategoryLength    = 25

	// maxSlugAttempts bounds the suffix search.
	maxSlugAttempts = 1000
)

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Service provides publication operations.
type Service struct {
	repo Repository
}

// NewService creates a new publication service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List retrieves all publications, most recent release first.
func (s *Service) List(ctx context.Context) ([]*Publication, error) {
	return s.repo.List(ctx)
}

// Get retrieves a publication by ID.
func (s *Service) Get(ctx context.Context, id string) (*Publication, error) {
	return s.repo.Get(ctx, id)
}

// Create validates input, assigns a slug and stores the publication. The
// slug suffix is the smallest non-negative integer not yet used for the base.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Publication, error) {
	if fieldErrors := validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	releaseDate := input.ReleaseDate
	if releaseDate.IsZero() {
		releaseDate = time.Now()
	}

	p := &Publication{
		Title:            input.Title,
		ShortDescription: input.ShortDescription,
		PreviewURL:       input.PreviewURL,
		PDFURL:           input.PDFURL,
		ReleaseDate:      releaseDate,
		FileSize:         FormatSize(input.SizeBytes),
		Category:         input.Category,
	}

	base := BaseSlug(input.Title)
	for n := 0; n < maxSlugAttempts; n++ {
		p.ID = Slug(base, n)
		err := s.repo.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrPublicationExists) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("no free slug for %q: %w", base, ErrPublicationExists)
}

// Update applies the given changes to an existing publication. The ID never changes.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*Publication, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if fieldErrors := validateUpdateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	if input.Title != nil {
		p.Title = *input.Title
	}
	if input.ShortDescription != nil {
		p.ShortDescription = *input.ShortDescription
	}
	if input.PreviewURL != nil {
		p.PreviewURL = *input.PreviewURL
	}
	if input.PDFURL != nil {
		p.PDFURL = *input.PDFURL
	}
	if input.ReleaseDate != nil {
		p.ReleaseDate = *input.ReleaseDate
	}
	if input.FileSize != nil {
		p.FileSize = *input.FileSize
	}
	if input.Category != nil {
		p.Category = *input.Category
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete deletes a publication. Uploaded assets are not touched.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateCreateInput(input CreateInput) []models.FieldError {
	var errs []models.FieldError

	if strings.TrimSpace(input.Title) == "" {
		errs = append(errs, models.FieldError{Field: "title", Message: "is required"})
	} else if len(input.Title) > MaxTitleLength {
		errs = append(errs, models.FieldError{Field: "title", Message: "must be at most 120 characters"})
	}
	if len(input.ShortDescription) > MaxDescriptionLength {
		errs = append(errs, models.FieldError{Field: "shortDescription", Message: "must be at most 2000 characters"})
	}
	if len(input.Category) > MaxCategoryLength {
		errs = append(errs, models.FieldError{Field: "category", Message: "must be at most 25 characters"})
	}
	if input.PDFURL == "" {
		errs = append(errs, models.FieldError{Field: "pdfUrl", Message: "is required"})
	}
	if input.PreviewURL == "" {
		errs = append(errs, models.FieldError{Field: "previewUrl", Message: "is required"})
	}
	if input.SizeBytes < 0 {
		errs = append(errs, models.FieldError{Field: "sizeBytes", Message: "must not be negative"})
	}

	return errs
}

func validateUpdateInput(input UpdateInput) []models.FieldError {
	var errs []models.FieldError

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			errs = append(errs, models.FieldError{Field: "title", Message: "cannot be empty"})
		} else if len(*input.Title) > MaxTitleLength {
			errs = append(errs, models.FieldError{Field: "title", Message: "must be at most 120 characters"})
		}
	}
	if input.ShortDescription != nil && len(*input.ShortDescription) > MaxDescriptionLength {
		errs = append(errs, models.FieldError{Field: "shortDescription", Message: "must be at most 2000 characters"})
	}
	if input.Category != nil && len(*input.Category) > MaxCategoryLength {
		errs = append(errs, models.FieldError{Field: "category", Message: "must be at most 25 characters"})
	}

	return errs
}
