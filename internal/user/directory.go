// Package user implements the user directory: identity creation, lookup and
// mutation under case-insensitive uniqueness rules.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/userbase/server/internal/apperr"
	"github.com/userbase/server/internal/clock"
	"github.com/userbase/server/internal/model"
	"github.com/userbase/server/internal/password"
	"github.com/userbase/server/internal/repo"
)

// Directory orchestrates user identity operations against the repository and
// the credential hasher.
type Directory struct {
	repo     repo.UserRepo
	hasher   *password.Hasher
	clock    *clock.Clock
	validate *validator.Validate
}

func NewDirectory(userRepo repo.UserRepo, hasher *password.Hasher, clk *clock.Clock) *Directory {
	return &Directory{
		repo:     userRepo,
		hasher:   hasher,
		clock:    clk,
		validate: validator.New(),
	}
}

// CreateInput carries the fields for a new user.
type CreateInput struct {
	Username string `validate:"required,alphanum,min=3,max=30"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=6,max=72"`
}

// Patch carries an optional subset of mutable user fields. Nil means "leave
// unchanged".
type Patch struct {
	Username *string `validate:"omitempty,alphanum,min=3,max=30"`
	Email    *string `validate:"omitempty,email,max=254"`
	Password *string `validate:"omitempty,min=6,max=72"`
}

// Create registers a new user. Username and email must be unique under
// case-folding; when both collide the username conflict is reported.
func (d *Directory) Create(ctx context.Context, in CreateInput) (model.User, error) {
	if err := d.validate.Struct(in); err != nil {
		return model.User{}, formatError(err)
	}

	// Pre-checks give deterministic field ordering; the unique indexes remain
	// the authoritative guard against races.
	if err := d.checkUsernameFree(ctx, in.Username, uuid.Nil); err != nil {
		return model.User{}, err
	}
	if err := d.checkEmailFree(ctx, in.Email, uuid.Nil); err != nil {
		return model.User{}, err
	}

	hash, err := d.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, apperr.Internal(err)
	}

	now := d.clock.Now()
	u := model.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.repo.Create(ctx, u); err != nil {
		return model.User{}, mapRepoError(err)
	}
	return u, nil
}

// FindByUsername looks up a user case-insensitively.
func (d *Directory) FindByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := d.repo.GetByUsername(ctx, username)
	if err != nil {
		return model.User{}, mapRepoError(err)
	}
	return u, nil
}

// FindByID looks up a user by its identifier.
func (d *Directory) FindByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return model.User{}, mapRepoError(err)
	}
	return u, nil
}

// Update applies a partial patch to the user resolved by username. The first
// uniqueness violation aborts the whole update; no field is applied
// partially. updated_at is strictly greater than its previous value.
func (d *Directory) Update(ctx context.Context, username string, p Patch) (model.User, error) {
	// Resolve the target first: an unknown username is a 404 regardless of
	// what the patch contains.
	current, err := d.FindByUsername(ctx, username)
	if err != nil {
		return model.User{}, err
	}

	if err := d.validate.Struct(p); err != nil {
		return model.User{}, formatError(err)
	}

	// Username before email, always.
	if p.Username != nil {
		if err := d.checkUsernameFree(ctx, *p.Username, current.ID); err != nil {
			return model.User{}, err
		}
		current.Username = *p.Username
	}
	if p.Email != nil {
		if err := d.checkEmailFree(ctx, *p.Email, current.ID); err != nil {
			return model.User{}, err
		}
		current.Email = *p.Email
	}
	if p.Password != nil {
		hash, err := d.hasher.Hash(*p.Password)
		if err != nil {
			return model.User{}, apperr.Internal(err)
		}
		current.PasswordHash = hash
	}

	current.UpdatedAt = d.clock.Now()
	if err := d.repo.Update(ctx, current); err != nil {
		return model.User{}, mapRepoError(err)
	}
	return current, nil
}

// Authenticate resolves a user by email and verifies the password. Unknown
// email, wrong password and a corrupt stored hash all yield the same
// UnauthorizedError.
func (d *Directory) Authenticate(ctx context.Context, email, plaintext string) (model.User, error) {
	u, err := d.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, apperr.InvalidCredentials()
		}
		return model.User{}, apperr.Internal(err)
	}

	ok, err := d.hasher.Compare(plaintext, u.PasswordHash)
	if err != nil {
		// Corrupt digest: fail closed, keep the cause out of the response.
		logrus.WithError(err).WithField("user_id", u.ID).Warn("stored password hash is corrupt")
		return model.User{}, apperr.InvalidCredentials()
	}
	if !ok {
		return model.User{}, apperr.InvalidCredentials()
	}
	return u, nil
}

// checkUsernameFree fails with the duplicate-username ValidationError when
// another user (excluding exclude) already holds the case-folded name.
func (d *Directory) checkUsernameFree(ctx context.Context, username string, exclude uuid.UUID) error {
	existing, err := d.repo.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if existing.ID == exclude {
		return nil
	}
	return apperr.DuplicateUsername()
}

func (d *Directory) checkEmailFree(ctx context.Context, email string, exclude uuid.UUID) error {
	existing, err := d.repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if existing.ID == exclude {
		return nil
	}
	return apperr.DuplicateEmail()
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repo.ErrDuplicateUsername):
		return apperr.DuplicateUsername()
	case errors.Is(err, repo.ErrDuplicateEmail):
		return apperr.DuplicateEmail()
	case errors.Is(err, repo.ErrNotFound):
		return apperr.UserNotFound()
	default:
		return apperr.Internal(err)
	}
}

// formatError converts the first validator failure into a ValidationError
// with field-specific copy.
func formatError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Internal(err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Username":
		return apperr.Validation(
			"Username must be 3 to 30 alphanumeric characters.",
			"Adjust the username and try again.",
		)
	case "Email":
		return apperr.Validation(
			"The email provided is not valid.",
			"Adjust the email and try again.",
		)
	case "Password":
		return apperr.Validation(
			"Password must be 6 to 72 characters long.",
			"Adjust the password and try again.",
		)
	}
	return apperr.Validation(
		fmt.Sprintf("The field %q is not valid.", fe.Field()),
		"Adjust the request body and try again.",
	)
}
