package labs

import (
	"context"
	"fmt"

	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/google/uuid"
)

// Laboratory is the lookup view used to route notifications and authorize callers.
type Laboratory struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creator_id"`
	Members   []string  `json:"members"`
	// Roles maps member ids to their role; the creator is always the professor.
	Roles map[string]enums.MemberRole `json:"roles"`
}

// IsCreator reports whether personID owns the laboratory.
func (l *Laboratory) IsCreator(personID string) bool {
	return l != nil && personID != "" && l.CreatorID == personID
}

// IsMember reports whether personID belongs to the laboratory. The creator counts as a member.
func (l *Laboratory) IsMember(personID string) bool {
	if l.IsCreator(personID) {
		return true
	}
	if l == nil {
		return false
	}
	for _, member := range l.Members {
		if member == personID {
			return true
		}
	}
	return false
}

type labFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Laboratory, error)
}

// Directory resolves laboratories by id.
type Directory struct {
	repo labFinder
}

// NewDirectory builds a laboratory directory.
func NewDirectory(repo labFinder) (*Directory, error) {
	if repo == nil {
		return nil, fmt.Errorf("laboratory repository required")
	}
	return &Directory{repo: repo}, nil
}

// GetLaboratory returns name, creator and member ids.
func (d *Directory) GetLaboratory(ctx context.Context, labID uuid.UUID) (*Laboratory, error) {
	if labID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id is required")
	}
	row, err := d.repo.FindByID(ctx, labID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "laboratory not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup laboratory")
	}

	lab := &Laboratory{
		ID:        row.ID,
		Name:      row.Name,
		CreatorID: row.CreatorID,
		Members:   make([]string, 0, len(row.Members)),
		Roles:     map[string]enums.MemberRole{row.CreatorID: enums.MemberRoleProfessor},
	}
	for _, member := range row.Members {
		lab.Members = append(lab.Members, member.UserID)
		if member.UserID == row.CreatorID {
			continue
		}
		role := member.Role
		if !role.IsValid() {
			role = enums.MemberRoleStudent
		}
		lab.Roles[member.UserID] = role
	}
	return lab, nil
}
