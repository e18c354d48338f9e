package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
)

// Person is the contact card of someone known to the system.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Directory resolves people by identifier.
type Directory struct {
	repo userFinder
}

// NewDirectory builds a person directory over the users table.
func NewDirectory(repo userFinder) (*Directory, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &Directory{repo: repo}, nil
}

// GetPerson returns the person's name and email.
func (d *Directory) GetPerson(ctx context.Context, personID string) (*Person, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "person id is required")
	}
	user, err := d.repo.FindByID(ctx, personID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup person")
	}
	return &Person{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}
